package repository

import (
	"time"

	"jazzedu_backend/internal/model"

	"gorm.io/gorm"
)

// StatsDelta 对 UserStats 的一次增量。负值减免时在SQL层截断到0，
// 撤销徽章不会把余额打成负数。
type StatsDelta struct {
	XP       int
	Gems     int
	Sessions int
	Minutes  int
	Badges   int
}

func (d StatsDelta) IsZero() bool {
	return d.XP == 0 && d.Gems == 0 && d.Sessions == 0 && d.Minutes == 0 && d.Badges == 0
}

type UserStatsRepository struct {
	DB *gorm.DB
}

func NewUserStatsRepository(db *gorm.DB) *UserStatsRepository {
	return &UserStatsRepository{DB: db}
}

func (r *UserStatsRepository) FindByUserID(userID uint) (*model.UserStats, error) {
	var stats model.UserStats
	err := r.DB.Where("user_id = ?", userID).First(&stats).Error
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// GetOrCreate 取出用户统计行，不存在则初始化一条零值记录
func (r *UserStatsRepository) GetOrCreate(tx *gorm.DB, userID uint) (*model.UserStats, error) {
	if tx == nil {
		tx = r.DB
	}
	var stats model.UserStats
	err := tx.Where("user_id = ?", userID).First(&stats).Error
	if err == gorm.ErrRecordNotFound {
		stats = model.UserStats{UserID: userID}
		if err := tx.Create(&stats).Error; err != nil {
			return nil, err
		}
		return &stats, nil
	}
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// ApplyDelta 单条UPDATE应用增量，调用方不做读改写。CASE WHEN 截断
// 在 MySQL 和 sqlite 上行为一致。
func (r *UserStatsRepository) ApplyDelta(tx *gorm.DB, userID uint, delta StatsDelta) error {
	if tx == nil {
		tx = r.DB
	}
	if delta.IsZero() {
		return nil
	}

	if _, err := r.GetOrCreate(tx, userID); err != nil {
		return err
	}

	updates := map[string]interface{}{}
	if delta.XP != 0 {
		updates["total_xp"] = clampedExpr("total_xp", delta.XP)
		updates["current_level"] = gorm.Expr(
			"CASE WHEN total_xp + ? < 0 THEN 0 ELSE (total_xp + ?) / 200 END", delta.XP, delta.XP)
	}
	if delta.Gems != 0 {
		updates["gems_balance"] = clampedExpr("gems_balance", delta.Gems)
	}
	if delta.Sessions != 0 {
		updates["total_sessions"] = clampedExpr("total_sessions", delta.Sessions)
	}
	if delta.Minutes != 0 {
		updates["total_minutes"] = clampedExpr("total_minutes", delta.Minutes)
	}
	if delta.Badges != 0 {
		updates["badges_earned"] = clampedExpr("badges_earned", delta.Badges)
	}

	return tx.Model(&model.UserStats{}).
		Where("user_id = ?", userID).
		Updates(updates).
		Error
}

func clampedExpr(column string, delta int) interface{} {
	return gorm.Expr("CASE WHEN "+column+" + ? < 0 THEN 0 ELSE "+column+" + ? END", delta, delta)
}

// UpdateStreak 连击字段整体写入，由练习记录流程在用户锁内调用
func (r *UserStatsRepository) UpdateStreak(tx *gorm.DB, userID uint, current, longest int, lastPractice time.Time) error {
	if tx == nil {
		tx = r.DB
	}
	return tx.Model(&model.UserStats{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"current_streak":     current,
			"longest_streak":     longest,
			"last_practice_date": lastPractice,
		}).Error
}

// FindTopByXP 排行榜主查询，关联用户名
func (r *UserStatsRepository) FindTopByXP(limit, offset int, sortBy, sortOrder string) ([]LeaderboardRow, error) {
	var rows []LeaderboardRow
	err := r.DB.Model(&model.UserStats{}).
		Select("user_stats.user_id, users.name, user_stats.total_xp, user_stats.current_level, user_stats.current_streak, user_stats.badges_earned, user_stats.total_sessions").
		Joins("JOIN users ON users.id = user_stats.user_id AND users.deleted_at IS NULL").
		Order(sortBy + " " + sortOrder).
		Limit(limit).
		Offset(offset).
		Find(&rows).Error
	return rows, err
}

type LeaderboardRow struct {
	UserID        uint   `json:"userId"`
	Name          string `json:"name"`
	TotalXP       int    `json:"totalXp"`
	CurrentLevel  int    `json:"currentLevel"`
	CurrentStreak int    `json:"currentStreak"`
	BadgesEarned  int    `json:"badgesEarned"`
	TotalSessions int    `json:"totalSessions"`
}
