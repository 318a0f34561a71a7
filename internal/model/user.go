package model

import (
	"time"
)

type UserRole string

const (
	Student UserRole = "student"
	Teacher UserRole = "teacher"
	Admin   UserRole = "admin"
)

// swagger:model User
type User struct {
	BaseModel
	Name      string    `gorm:"size:100;not null" json:"name"`
	Email     string    `gorm:"size:100;unique;not null" json:"email"`
	Password  string    `gorm:"size:100;not null" json:"-"`
	Role      UserRole  `gorm:"size:20;default:'student'" json:"role"`
	Disabled  bool      `gorm:"default:false" json:"disabled"`
	LastLogin time.Time `json:"lastLogin"`
	LastSeen  time.Time `json:"lastSeen"`
}

func (User) TableName() string {
	return "users"
}

// UserStats 用户的累计统计，是徽章判定、排行榜和奖励发放共享的聚合根。
// 所有变更都要通过 UserStatsRepository.ApplyDelta，禁止裸改字段后 Save。
// swagger:model UserStats
type UserStats struct {
	BaseModel
	UserID            uint       `gorm:"uniqueIndex;not null" json:"userId"`
	TotalXP           int        `gorm:"default:0" json:"totalXp"`
	CurrentLevel      int        `gorm:"default:0" json:"currentLevel"`
	TotalSessions     int        `gorm:"default:0" json:"totalSessions"`
	TotalMinutes      int        `gorm:"default:0" json:"totalMinutes"`
	CurrentStreak     int        `gorm:"default:0" json:"currentStreak"`
	LongestStreak     int        `gorm:"default:0" json:"longestStreak"`
	BadgesEarned      int        `gorm:"default:0" json:"badgesEarned"`
	GemsBalance       int        `gorm:"default:0" json:"gemsBalance"`
	StreakShieldCount int        `gorm:"default:0" json:"streakShieldCount"`
	LastPracticeDate  *time.Time `json:"lastPracticeDate"`
}

func (UserStats) TableName() string {
	return "user_stats"
}

// Level 每200XP升一级
func (s *UserStats) Level() int {
	return s.TotalXP / 200
}
