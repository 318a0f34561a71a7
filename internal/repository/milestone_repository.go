package repository

import (
	"jazzedu_backend/internal/model"

	"gorm.io/gorm"
)

type MilestoneRepository struct {
	DB *gorm.DB
}

func NewMilestoneRepository(db *gorm.DB) *MilestoneRepository {
	return &MilestoneRepository{DB: db}
}

func (r *MilestoneRepository) FindByUserAndFocus(userID, focusID uint) (*model.MilestoneSubmission, error) {
	var submission model.MilestoneSubmission
	err := r.DB.Where("user_id = ? AND focus_id = ?", userID, focusID).First(&submission).Error
	if err != nil {
		return nil, err
	}
	return &submission, nil
}

func (r *MilestoneRepository) FindByID(id uint) (*model.MilestoneSubmission, error) {
	var submission model.MilestoneSubmission
	err := r.DB.First(&submission, id).Error
	if err != nil {
		return nil, err
	}
	return &submission, nil
}

func (r *MilestoneRepository) Create(submission *model.MilestoneSubmission) error {
	return r.DB.Create(submission).Error
}

func (r *MilestoneRepository) Save(submission *model.MilestoneSubmission) error {
	return r.DB.Save(submission).Error
}

func (r *MilestoneRepository) ListByUser(userID uint) ([]model.MilestoneSubmission, error) {
	var submissions []model.MilestoneSubmission
	err := r.DB.Where("user_id = ?", userID).Order("submitted_at DESC").Find(&submissions).Error
	return submissions, err
}

// ListUngraded 教师待评队列
func (r *MilestoneRepository) ListUngraded() ([]model.MilestoneSubmission, error) {
	var submissions []model.MilestoneSubmission
	err := r.DB.Where("grade = ?", "").Order("submitted_at ASC").Find(&submissions).Error
	return submissions, err
}
