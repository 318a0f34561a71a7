package model

// GemTransactionKind 账目方向
type GemTransactionKind string

const (
	GemEarned GemTransactionKind = "earned"
	GemSpent  GemTransactionKind = "spent"
)

// GemTransaction 宝石流水，只追加不修改。徽章被移除时也不回写流水，
// 账目是不可逆的审计记录。
// swagger:model GemTransaction
type GemTransaction struct {
	BaseModel
	UserID    uint               `gorm:"index;not null" json:"userId"`
	Kind      GemTransactionKind `gorm:"size:20;not null" json:"kind"`
	Amount    int                `gorm:"not null" json:"amount"` // 带符号：earned为正，spent为负
	Reason    string             `gorm:"size:200" json:"reason"`
	Reference string             `gorm:"size:100" json:"reference"` // 例如 badge_key
}

func (GemTransaction) TableName() string {
	return "gem_transactions"
}
