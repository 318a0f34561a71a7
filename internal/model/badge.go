package model

import "time"

// CriteriaType 徽章判定条件类型。封闭集合，未知类型一律视为不满足，
// 不做静默兜底。
type CriteriaType string

const (
	CriteriaPracticeSessions CriteriaType = "practice_sessions"
	CriteriaTotalXP          CriteriaType = "total_xp"
	CriteriaStreak           CriteriaType = "streak"

	// 以下类型需要逐条会话的历史分析，当前不自动判定（明确的范围限制）
	CriteriaLongSessionCount CriteriaType = "long_session_count"
	CriteriaTimeOfDay        CriteriaType = "time_of_day"
	CriteriaComeback         CriteriaType = "comeback"
)

// BadgeDefinition 徽章定义，管理员可编辑。BadgeKey 是稳定的业务标识。
// swagger:model BadgeDefinition
type BadgeDefinition struct {
	BaseModel
	BadgeKey             string       `gorm:"size:100;uniqueIndex;not null" json:"badgeKey"`
	Name                 string       `gorm:"size:100;not null" json:"name"`
	Description          string       `gorm:"size:500" json:"description"`
	Category             string       `gorm:"size:50" json:"category"`
	CriteriaType         CriteriaType `gorm:"size:50;not null" json:"criteriaType"`
	CriteriaValue        int          `gorm:"default:0" json:"criteriaValue"`
	XPReward             int          `gorm:"default:0" json:"xpReward"`
	GemReward            int          `gorm:"default:0" json:"gemReward"`
	IsActive             bool         `gorm:"default:true" json:"isActive"`
	ExternalEventEnabled bool         `gorm:"default:false" json:"externalEventEnabled"`
	ExternalEventKey     string       `gorm:"size:100" json:"externalEventKey"`
}

func (BadgeDefinition) TableName() string {
	return "badge_definitions"
}

// UserBadge 用户已获得的徽章。(user_id, badge_key) 唯一约束是防止
// 并发下重复授奖的兜底。
// swagger:model UserBadge
type UserBadge struct {
	BaseModel
	UserID   uint      `gorm:"index:idx_user_badge,unique;not null" json:"userId"`
	BadgeKey string    `gorm:"size:100;index:idx_user_badge,unique;not null" json:"badgeKey"`
	EarnedAt time.Time `gorm:"not null" json:"earnedAt"`
}

func (UserBadge) TableName() string {
	return "user_badges"
}
