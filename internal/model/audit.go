package model

// AuditLog 操作审计，只追加。Metadata 存JSON文本。
// swagger:model AuditLog
type AuditLog struct {
	UUIDBase
	Action   string `gorm:"size:100;index;not null" json:"action"`
	ActorID  uint   `gorm:"index" json:"actorId"` // 0 表示系统触发
	Metadata string `gorm:"size:2000" json:"metadata"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}
