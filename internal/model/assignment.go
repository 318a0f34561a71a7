package model

import "time"

// Assignment 用户当前的课程位置指针。核心不变式：任一用户同一时刻
// 至多一条未删除（active）的记录。切换Focus/Step时旧记录软删除保留历史，
// gorm 的 DeletedAt 默认查询范围天然只返回 active 记录。
// swagger:model Assignment
type Assignment struct {
	BaseModel
	UserID      uint       `gorm:"index;not null" json:"userId"`
	FocusID     uint       `gorm:"index;not null" json:"focusId"`
	StepID      uint       `gorm:"not null" json:"stepId"`
	AssignedAt  time.Time  `gorm:"not null" json:"assignedAt"`
	CompletedAt *time.Time `json:"completedAt"`
}

func (Assignment) TableName() string {
	return "assignments"
}
