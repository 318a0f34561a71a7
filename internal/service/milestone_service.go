package service

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"jazzedu_backend/internal/model"
	"jazzedu_backend/internal/repository"
	"jazzedu_backend/internal/util"

	"gorm.io/gorm"
)

// MilestoneService 里程碑视频提交与评阅。每个 (user, focus) 至多一条
// 非 redo 的提交；评为 redo 后允许覆盖同一条记录重新提交并清空评分。
type MilestoneService struct {
	MilestoneRepo  *repository.MilestoneRepository
	CurriculumRepo *repository.CurriculumRepository
	AuditRepo      *repository.AuditRepository
	Storage        *StorageService
}

func NewMilestoneService(
	milestoneRepo *repository.MilestoneRepository,
	curriculumRepo *repository.CurriculumRepository,
	auditRepo *repository.AuditRepository,
	storage *StorageService,
) *MilestoneService {
	return &MilestoneService{
		MilestoneRepo:  milestoneRepo,
		CurriculumRepo: curriculumRepo,
		AuditRepo:      auditRepo,
		Storage:        storage,
	}
}

// Submit 上传视频并登记提交。已有非redo提交时返回冲突。
func (s *MilestoneService) Submit(ctx context.Context, userID, focusID uint, filename string, reader io.Reader, size int64) (*model.MilestoneSubmission, error) {
	if _, err := s.CurriculumRepo.FindFocusByID(focusID); err != nil {
		return nil, util.ErrFocusNotFound
	}

	existing, err := s.MilestoneRepo.FindByUserAndFocus(userID, focusID)
	if err != nil && err != gorm.ErrRecordNotFound {
		return nil, err
	}
	if existing != nil && existing.Grade != model.MilestoneGradeRedo {
		return nil, util.ErrMilestoneSubmitted
	}

	objectName := fmt.Sprintf("milestones/%d/%d/%d%s", userID, focusID, time.Now().UnixNano(), filepath.Ext(filename))
	url, err := s.Storage.Provider.Upload(ctx, objectName, reader, size, "video/mp4")
	if err != nil {
		return nil, err
	}

	if existing != nil {
		// redo 覆盖：同一行重写，清空评分
		existing.VideoURL = url
		existing.SubmittedAt = time.Now()
		existing.Grade = ""
		existing.GradedAt = nil
		existing.TeacherNotes = ""
		if err := s.MilestoneRepo.Save(existing); err != nil {
			return nil, err
		}
		s.AuditRepo.Record("milestone.resubmitted", userID, map[string]interface{}{"focusId": focusID})
		return existing, nil
	}

	submission := &model.MilestoneSubmission{
		UserID:      userID,
		FocusID:     focusID,
		VideoURL:    url,
		SubmittedAt: time.Now(),
	}
	if err := s.MilestoneRepo.Create(submission); err != nil {
		return nil, err
	}
	s.AuditRepo.Record("milestone.submitted", userID, map[string]interface{}{"focusId": focusID})
	return submission, nil
}

// Grade 教师评分。grade 取 pass/fail/redo。
func (s *MilestoneService) Grade(actorID, submissionID uint, grade, notes string) (*model.MilestoneSubmission, error) {
	switch grade {
	case "pass", "fail", model.MilestoneGradeRedo:
	default:
		return nil, util.ErrInvalidInput
	}

	submission, err := s.MilestoneRepo.FindByID(submissionID)
	if err != nil {
		return nil, util.ErrMilestoneNotFound
	}

	now := time.Now()
	submission.Grade = grade
	submission.GradedAt = &now
	submission.TeacherNotes = notes
	if err := s.MilestoneRepo.Save(submission); err != nil {
		return nil, err
	}

	s.AuditRepo.Record("milestone.graded", actorID, map[string]interface{}{
		"submissionId": submissionID,
		"grade":        grade,
	})
	return submission, nil
}

func (s *MilestoneService) ListByUser(userID uint) ([]model.MilestoneSubmission, error) {
	return s.MilestoneRepo.ListByUser(userID)
}

func (s *MilestoneService) ListUngraded() ([]model.MilestoneSubmission, error) {
	return s.MilestoneRepo.ListUngraded()
}
