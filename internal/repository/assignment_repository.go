package repository

import (
	"time"

	"jazzedu_backend/internal/model"

	"gorm.io/gorm"
)

// AssignmentRepository 维护"每个用户至多一条active记录"的不变式。
// 所有换位操作都走 Reassign，先软删旧记录再建新记录，同一事务内完成。
type AssignmentRepository struct {
	DB *gorm.DB
}

func NewAssignmentRepository(db *gorm.DB) *AssignmentRepository {
	return &AssignmentRepository{DB: db}
}

// FindActiveByUser gorm 默认查询范围排除软删除行，拿到的就是active记录
func (r *AssignmentRepository) FindActiveByUser(userID uint) (*model.Assignment, error) {
	var assignment model.Assignment
	err := r.DB.Where("user_id = ?", userID).First(&assignment).Error
	if err != nil {
		return nil, err
	}
	return &assignment, nil
}

func (r *AssignmentRepository) ListActive() ([]model.Assignment, error) {
	var assignments []model.Assignment
	err := r.DB.Find(&assignments).Error
	return assignments, err
}

// Reassign 把用户的active指针换到 (focusID, stepID)。旧active软删除
// 保留历史；指向位置不变时保持原记录不动。
func (r *AssignmentRepository) Reassign(tx *gorm.DB, userID, focusID, stepID uint) (*model.Assignment, error) {
	if tx == nil {
		tx = r.DB
	}

	var current model.Assignment
	err := tx.Where("user_id = ?", userID).First(&current).Error
	if err != nil && err != gorm.ErrRecordNotFound {
		return nil, err
	}

	if err == nil {
		if current.FocusID == focusID && current.StepID == stepID {
			return &current, nil
		}
		if err := tx.Delete(&current).Error; err != nil {
			return nil, err
		}
	}

	next := model.Assignment{
		UserID:     userID,
		FocusID:    focusID,
		StepID:     stepID,
		AssignedAt: time.Now(),
	}
	if err := tx.Create(&next).Error; err != nil {
		return nil, err
	}
	return &next, nil
}

// MarkCompleted 记录终点状态的完成时间（最后一个Focus 12/12）
func (r *AssignmentRepository) MarkCompleted(tx *gorm.DB, assignmentID uint, at time.Time) error {
	if tx == nil {
		tx = r.DB
	}
	return tx.Model(&model.Assignment{}).
		Where("id = ?", assignmentID).
		Update("completed_at", at).
		Error
}
