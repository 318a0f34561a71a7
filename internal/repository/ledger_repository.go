package repository

import (
	"jazzedu_backend/internal/model"

	"gorm.io/gorm"
)

// LedgerRepository 宝石流水，只有追加和读取
type LedgerRepository struct {
	DB *gorm.DB
}

func NewLedgerRepository(db *gorm.DB) *LedgerRepository {
	return &LedgerRepository{DB: db}
}

func (r *LedgerRepository) Append(tx *gorm.DB, entry *model.GemTransaction) error {
	if tx == nil {
		tx = r.DB
	}
	return tx.Create(entry).Error
}

func (r *LedgerRepository) ListByUser(userID uint, limit, offset int) ([]model.GemTransaction, int64, error) {
	var entries []model.GemTransaction
	var total int64

	query := r.DB.Model(&model.GemTransaction{}).Where("user_id = ?", userID)
	query.Count(&total)

	err := query.Order("id DESC").Limit(limit).Offset(offset).Find(&entries).Error
	return entries, total, err
}

func (r *LedgerRepository) SumByUser(userID uint) (int, error) {
	var sum *int
	err := r.DB.Model(&model.GemTransaction{}).
		Where("user_id = ?", userID).
		Select("SUM(amount)").
		Scan(&sum).Error
	if err != nil || sum == nil {
		return 0, err
	}
	return *sum, nil
}
