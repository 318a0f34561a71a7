package repository

import (
	"jazzedu_backend/internal/model"

	"gorm.io/gorm"
)

type BadgeRepository struct {
	DB *gorm.DB
}

func NewBadgeRepository(db *gorm.DB) *BadgeRepository {
	return &BadgeRepository{DB: db}
}

func (r *BadgeRepository) ListActiveDefinitions() ([]model.BadgeDefinition, error) {
	var defs []model.BadgeDefinition
	err := r.DB.Where("is_active = ?", true).Order("id ASC").Find(&defs).Error
	return defs, err
}

func (r *BadgeRepository) ListDefinitions() ([]model.BadgeDefinition, error) {
	var defs []model.BadgeDefinition
	err := r.DB.Order("id ASC").Find(&defs).Error
	return defs, err
}

func (r *BadgeRepository) FindDefinitionByKey(badgeKey string) (*model.BadgeDefinition, error) {
	var def model.BadgeDefinition
	err := r.DB.Where("badge_key = ?", badgeKey).First(&def).Error
	if err != nil {
		return nil, err
	}
	return &def, nil
}

func (r *BadgeRepository) CreateDefinition(def *model.BadgeDefinition) error {
	return r.DB.Create(def).Error
}

func (r *BadgeRepository) UpdateDefinition(def *model.BadgeDefinition) error {
	return r.DB.Save(def).Error
}

func (r *BadgeRepository) ListUserBadges(userID uint) ([]model.UserBadge, error) {
	var badges []model.UserBadge
	err := r.DB.Where("user_id = ?", userID).Order("earned_at ASC").Find(&badges).Error
	return badges, err
}

func (r *BadgeRepository) HasBadge(tx *gorm.DB, userID uint, badgeKey string) (bool, error) {
	if tx == nil {
		tx = r.DB
	}
	var count int64
	err := tx.Model(&model.UserBadge{}).
		Where("user_id = ? AND badge_key = ?", userID, badgeKey).
		Count(&count).Error
	return count > 0, err
}

// CreateUserBadge 唯一约束 (user_id, badge_key) 保证至多一次
func (r *BadgeRepository) CreateUserBadge(tx *gorm.DB, badge *model.UserBadge) error {
	if tx == nil {
		tx = r.DB
	}
	return tx.Create(badge).Error
}

func (r *BadgeRepository) DeleteUserBadge(tx *gorm.DB, userID uint, badgeKey string) error {
	if tx == nil {
		tx = r.DB
	}
	return tx.Unscoped().
		Where("user_id = ? AND badge_key = ?", userID, badgeKey).
		Delete(&model.UserBadge{}).Error
}
