package database

import (
	"fmt"
	"log"

	"jazzedu_backend/internal/config"
	"jazzedu_backend/internal/model"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func InitDB(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=Local",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.DBName,
		cfg.Charset,
		cfg.ParseTime,
	)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Info),
	})

	if err != nil {
		return nil, err
	}

	log.Println("Database connection established")

	if err := Migrate(db); err != nil {
		return nil, err
	}

	log.Println("Database migration completed")

	if err := SeedReferenceData(db); err != nil {
		return nil, err
	}

	return db, nil
}

// Migrate 迁移全部业务表。测试环境用sqlite复用同一份迁移。
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.UserStats{},
		&model.Focus{},
		&model.Step{},
		&model.ProgressRecord{},
		&model.Assignment{},
		&model.BadgeDefinition{},
		&model.UserBadge{},
		&model.PracticeItem{},
		&model.PracticeSession{},
		&model.MilestoneSubmission{},
		&model.GemTransaction{},
		&model.AuditLog{},
	)
}

// SeedReferenceData 目录为空时写入默认的JPC课程目录和徽章定义
func SeedReferenceData(db *gorm.DB) error {
	var focusCount int64
	db.Model(&model.Focus{}).Count(&focusCount)
	if focusCount == 0 {
		defaultFocuses := []model.Focus{
			{SortOrder: 1, Title: "Major ii-V-I Vocabulary", Pillar: "Harmony", Element: "ii-V-I", Tempo: "medium swing"},
			{SortOrder: 2, Title: "Minor ii-V-i Vocabulary", Pillar: "Harmony", Element: "ii-V-i", Tempo: "medium swing"},
			{SortOrder: 3, Title: "Blues Language", Pillar: "Vocabulary", Element: "12-bar blues", Tempo: "medium shuffle"},
			{SortOrder: 4, Title: "Bebop Scales", Pillar: "Technique", Element: "bebop dominant", Tempo: "up swing"},
			{SortOrder: 5, Title: "Guide Tone Lines", Pillar: "Harmony", Element: "voice leading", Tempo: "ballad"},
			{SortOrder: 6, Title: "Rhythm Changes", Pillar: "Repertoire", Element: "I Got Rhythm", Tempo: "up swing"},
		}
		for i := range defaultFocuses {
			if err := db.Create(&defaultFocuses[i]).Error; err != nil {
				return err
			}
			for idx := 1; idx <= model.KeysPerFocus; idx++ {
				step := model.Step{
					FocusID:  defaultFocuses[i].ID,
					KeyIndex: idx,
					KeyName:  model.KeyNames[idx-1],
				}
				if err := db.Create(&step).Error; err != nil {
					return err
				}
			}
		}
	}

	var badgeCount int64
	db.Model(&model.BadgeDefinition{}).Count(&badgeCount)
	if badgeCount == 0 {
		defaultBadges := []model.BadgeDefinition{
			{BadgeKey: "first_session", Name: "First Notes", Description: "记录第一次练习", Category: "practice", CriteriaType: model.CriteriaPracticeSessions, CriteriaValue: 1, XPReward: 25, GemReward: 5, IsActive: true},
			{BadgeKey: "ten_sessions", Name: "Woodshedder", Description: "累计10次练习", Category: "practice", CriteriaType: model.CriteriaPracticeSessions, CriteriaValue: 10, XPReward: 50, GemReward: 10, IsActive: true},
			{BadgeKey: "hundred_sessions", Name: "Gig Ready", Description: "累计100次练习", Category: "practice", CriteriaType: model.CriteriaPracticeSessions, CriteriaValue: 100, XPReward: 200, GemReward: 50, IsActive: true},
			{BadgeKey: "xp_1000", Name: "Rising Star", Description: "累计1000XP", Category: "xp", CriteriaType: model.CriteriaTotalXP, CriteriaValue: 1000, XPReward: 100, GemReward: 20, IsActive: true},
			{BadgeKey: "streak_7", Name: "One Week Strong", Description: "连续7天练习", Category: "streak", CriteriaType: model.CriteriaStreak, CriteriaValue: 7, XPReward: 75, GemReward: 15, IsActive: true},
			{BadgeKey: "streak_30", Name: "Monthly Master", Description: "连续30天练习", Category: "streak", CriteriaType: model.CriteriaStreak, CriteriaValue: 30, XPReward: 300, GemReward: 60, IsActive: true},
			{BadgeKey: "night_owl", Name: "Night Owl", Description: "深夜练习（暂不自动判定）", Category: "habit", CriteriaType: model.CriteriaTimeOfDay, CriteriaValue: 22, XPReward: 50, GemReward: 10, IsActive: true},
		}
		for i := range defaultBadges {
			if err := db.Create(&defaultBadges[i]).Error; err != nil {
				return err
			}
		}
	}

	return nil
}
