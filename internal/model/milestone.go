package model

import "time"

const MilestoneGradeRedo = "redo"

// MilestoneSubmission 阶段性里程碑视频提交。每个 (user, focus) 至多一条
// 非 redo 状态的提交；评为 redo 后允许覆盖重新提交并清空评分。
// swagger:model MilestoneSubmission
type MilestoneSubmission struct {
	BaseModel
	UserID       uint       `gorm:"index:idx_user_focus_milestone;not null" json:"userId"`
	FocusID      uint       `gorm:"index:idx_user_focus_milestone;not null" json:"focusId"`
	VideoURL     string     `gorm:"size:500;not null" json:"videoUrl"`
	SubmittedAt  time.Time  `gorm:"not null" json:"submittedAt"`
	Grade        string     `gorm:"size:20" json:"grade"`
	GradedAt     *time.Time `json:"gradedAt"`
	TeacherNotes string     `gorm:"size:1000" json:"teacherNotes"`
}

func (MilestoneSubmission) TableName() string {
	return "milestone_submissions"
}
