package repository

import (
	"jazzedu_backend/internal/model"

	"gorm.io/gorm"
)

type PracticeRepository struct {
	DB *gorm.DB
}

func NewPracticeRepository(db *gorm.DB) *PracticeRepository {
	return &PracticeRepository{DB: db}
}

func (r *PracticeRepository) CreateSession(tx *gorm.DB, session *model.PracticeSession) error {
	if tx == nil {
		tx = r.DB
	}
	return tx.Create(session).Error
}

func (r *PracticeRepository) ListSessionsByUser(userID uint, limit, offset int) ([]model.PracticeSession, int64, error) {
	var sessions []model.PracticeSession
	var total int64

	query := r.DB.Model(&model.PracticeSession{}).Where("user_id = ?", userID)
	query.Count(&total)

	err := query.Order("practiced_at DESC").Limit(limit).Offset(offset).Find(&sessions).Error
	return sessions, total, err
}

func (r *PracticeRepository) CreateItem(item *model.PracticeItem) error {
	return r.DB.Create(item).Error
}

func (r *PracticeRepository) FindItemByID(id uint) (*model.PracticeItem, error) {
	var item model.PracticeItem
	err := r.DB.First(&item, id).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *PracticeRepository) ListItemsByUser(userID uint) ([]model.PracticeItem, error) {
	var items []model.PracticeItem
	err := r.DB.Where("user_id = ? AND archived = ?", userID, false).Order("id ASC").Find(&items).Error
	return items, err
}

func (r *PracticeRepository) UpdateItem(item *model.PracticeItem) error {
	return r.DB.Save(item).Error
}

func (r *PracticeRepository) DeleteItem(id uint) error {
	return r.DB.Delete(&model.PracticeItem{}, id).Error
}
