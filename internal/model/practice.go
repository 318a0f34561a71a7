package model

import "time"

// PracticeItem 可被记录练习的条目（曲目、练习曲、技术单项）
// swagger:model PracticeItem
type PracticeItem struct {
	BaseModel
	UserID   uint   `gorm:"index" json:"userId"`
	Title    string `gorm:"size:200;not null" json:"title"`
	Category string `gorm:"size:50" json:"category"`
	Archived bool   `gorm:"default:false" json:"archived"`
}

func (PracticeItem) TableName() string {
	return "practice_items"
}

// PracticeSession 一次练习记录。XPEarned 在落库时按确定性规则算好，
// 之后不再重算。
// swagger:model PracticeSession
type PracticeSession struct {
	BaseModel
	UserID              uint      `gorm:"index;not null" json:"userId"`
	ItemID              uint      `gorm:"index" json:"itemId"`
	DurationMinutes     int       `gorm:"not null" json:"durationMinutes"`
	SentimentScore      int       `gorm:"not null" json:"sentimentScore"` // 1..5，越界会被截断
	ImprovementDetected bool      `gorm:"default:false" json:"improvementDetected"`
	Notes               string    `gorm:"size:1000" json:"notes"`
	XPEarned            int       `gorm:"default:0" json:"xpEarned"`
	PracticedAt         time.Time `gorm:"index;not null" json:"practicedAt"`
}

func (PracticeSession) TableName() string {
	return "practice_sessions"
}
