package repository

import (
	"encoding/json"

	"jazzedu_backend/internal/model"

	"gorm.io/gorm"
)

// AuditRepository 只追加的操作日志
type AuditRepository struct {
	DB *gorm.DB
}

func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{DB: db}
}

func (r *AuditRepository) Record(action string, actorID uint, metadata map[string]interface{}) error {
	payload := ""
	if metadata != nil {
		raw, err := json.Marshal(metadata)
		if err == nil {
			payload = string(raw)
		}
	}
	entry := model.AuditLog{
		Action:   action,
		ActorID:  actorID,
		Metadata: payload,
	}
	return r.DB.Create(&entry).Error
}

func (r *AuditRepository) ListRecent(limit int) ([]model.AuditLog, error) {
	var entries []model.AuditLog
	err := r.DB.Order("created_at DESC").Limit(limit).Find(&entries).Error
	return entries, err
}
