package repository

import (
	"jazzedu_backend/internal/model"

	"gorm.io/gorm"
)

// CurriculumRepository 只读的课程目录访问。Focus顺序一律按 sort_order，
// id 只作外键身份。
type CurriculumRepository struct {
	DB *gorm.DB
}

func NewCurriculumRepository(db *gorm.DB) *CurriculumRepository {
	return &CurriculumRepository{DB: db}
}

func (r *CurriculumRepository) FindFocusByID(id uint) (*model.Focus, error) {
	var focus model.Focus
	err := r.DB.First(&focus, id).Error
	if err != nil {
		return nil, err
	}
	return &focus, nil
}

func (r *CurriculumRepository) FindFocusByOrder(order float64) (*model.Focus, error) {
	var focus model.Focus
	err := r.DB.Where("sort_order = ?", order).First(&focus).Error
	if err != nil {
		return nil, err
	}
	return &focus, nil
}

// NextFocusAfter 返回 sort_order 严格大于给定值的下一个Focus，
// 没有后继时返回 (nil, nil)，表示终点。
func (r *CurriculumRepository) NextFocusAfter(order float64) (*model.Focus, error) {
	var focus model.Focus
	err := r.DB.Where("sort_order > ?", order).Order("sort_order ASC").First(&focus).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &focus, nil
}

func (r *CurriculumRepository) ListFocusesOrdered() ([]model.Focus, error) {
	var focuses []model.Focus
	err := r.DB.Order("sort_order ASC").Find(&focuses).Error
	return focuses, err
}

func (r *CurriculumRepository) FindStepByID(id uint) (*model.Step, error) {
	var step model.Step
	err := r.DB.First(&step, id).Error
	if err != nil {
		return nil, err
	}
	return &step, nil
}

func (r *CurriculumRepository) FindStep(focusID uint, keyIndex int) (*model.Step, error) {
	var step model.Step
	err := r.DB.Where("focus_id = ? AND key_index = ?", focusID, keyIndex).First(&step).Error
	if err != nil {
		return nil, err
	}
	return &step, nil
}

func (r *CurriculumRepository) StepsByFocus(focusID uint) ([]model.Step, error) {
	var steps []model.Step
	err := r.DB.Where("focus_id = ?", focusID).Order("key_index ASC").Find(&steps).Error
	return steps, err
}
