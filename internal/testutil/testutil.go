// Package testutil 提供测试用的内存数据库和常用的种子数据。
package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"

	"jazzedu_backend/internal/model"
	"jazzedu_backend/pkg/database"
	"jazzedu_backend/pkg/logger"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var dbSeq atomic.Int64

// NewTestDB 每次调用返回一个独立的内存sqlite库，迁移与生产共用同一份定义
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	logger.InitTestLogger()

	dsn := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared", dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// CreateUser 插入一个学生账号并初始化统计行
func CreateUser(t *testing.T, db *gorm.DB, name string) *model.User {
	t.Helper()
	user := &model.User{
		Name:     name,
		Email:    name + "@example.com",
		Password: "hashed",
		Role:     model.Student,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	stats := &model.UserStats{UserID: user.ID}
	if err := db.Create(stats).Error; err != nil {
		t.Fatalf("create stats: %v", err)
	}
	return user
}

// SeedCurriculum 建一套 n 个Focus、每个12调的小目录，sort_order 为 1..n
func SeedCurriculum(t *testing.T, db *gorm.DB, focusCount int) []model.Focus {
	t.Helper()
	focuses := make([]model.Focus, 0, focusCount)
	for i := 1; i <= focusCount; i++ {
		focus := model.Focus{
			Title:     fmt.Sprintf("Focus %d", i),
			SortOrder: float64(i),
		}
		if err := db.Create(&focus).Error; err != nil {
			t.Fatalf("create focus: %v", err)
		}
		for k := 1; k <= model.KeysPerFocus; k++ {
			step := model.Step{
				FocusID:  focus.ID,
				KeyIndex: k,
				KeyName:  model.KeyNames[k-1],
			}
			if err := db.Create(&step).Error; err != nil {
				t.Fatalf("create step: %v", err)
			}
		}
		focuses = append(focuses, focus)
	}
	return focuses
}

// StepFor 取某Focus下指定调号的Step
func StepFor(t *testing.T, db *gorm.DB, focusID uint, keyIndex int) *model.Step {
	t.Helper()
	var step model.Step
	if err := db.Where("focus_id = ? AND key_index = ?", focusID, keyIndex).First(&step).Error; err != nil {
		t.Fatalf("find step focus=%d key=%d: %v", focusID, keyIndex, err)
	}
	return &step
}
