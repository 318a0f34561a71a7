package repository

import (
	"jazzedu_backend/internal/model"

	"gorm.io/gorm"
)

type ProgressRepository struct {
	DB *gorm.DB
}

func NewProgressRepository(db *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: db}
}

func (r *ProgressRepository) FindByUserAndFocus(userID, focusID uint) (*model.ProgressRecord, error) {
	var record model.ProgressRecord
	err := r.DB.Where("user_id = ? AND focus_id = ?", userID, focusID).First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// GetOrCreate (user, focus) 唯一，不存在则建一条全空记录
func (r *ProgressRepository) GetOrCreate(tx *gorm.DB, userID, focusID uint) (*model.ProgressRecord, error) {
	if tx == nil {
		tx = r.DB
	}
	var record model.ProgressRecord
	err := tx.Where("user_id = ? AND focus_id = ?", userID, focusID).First(&record).Error
	if err == gorm.ErrRecordNotFound {
		record = model.ProgressRecord{UserID: userID, FocusID: focusID}
		if err := tx.Create(&record).Error; err != nil {
			return nil, err
		}
		return &record, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *ProgressRepository) Save(tx *gorm.DB, record *model.ProgressRecord) error {
	if tx == nil {
		tx = r.DB
	}
	return tx.Save(record).Error
}

func (r *ProgressRepository) ListByUser(userID uint) ([]model.ProgressRecord, error) {
	var records []model.ProgressRecord
	err := r.DB.Where("user_id = ?", userID).Find(&records).Error
	return records, err
}

// ListAll 批量对账用的全量扫描
func (r *ProgressRepository) ListAll() ([]model.ProgressRecord, error) {
	var records []model.ProgressRecord
	err := r.DB.Find(&records).Error
	return records, err
}

// Delete 对账清除"超前进度"时删除整条记录
func (r *ProgressRepository) Delete(tx *gorm.DB, record *model.ProgressRecord) error {
	if tx == nil {
		tx = r.DB
	}
	return tx.Unscoped().Delete(record).Error
}
