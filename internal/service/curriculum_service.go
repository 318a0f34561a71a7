package service

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"jazzedu_backend/internal/config"
	"jazzedu_backend/internal/model"
	"jazzedu_backend/internal/repository"
	"jazzedu_backend/internal/util"
	"jazzedu_backend/pkg/logger"
	"jazzedu_backend/pkg/monitoring"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// CurriculumService JPC课程推进的状态机：记录调的完成、12/12时推进到
// 下一个Focus，并提供三种对账修复（全量、指定学生、自助）。
// 同一用户的变更全部经过用户锁串行化。
type CurriculumService struct {
	CurriculumRepo *repository.CurriculumRepository
	ProgressRepo   *repository.ProgressRepository
	AssignmentRepo *repository.AssignmentRepository
	StatsRepo      *repository.UserStatsRepository
	UserRepo       *repository.UserRepository
	LedgerRepo     *repository.LedgerRepository
	AuditRepo      *repository.AuditRepository
	Locks          *util.KeyedMutex
	Cfg            config.GamificationConfig
	DB             *gorm.DB
}

func NewCurriculumService(
	curriculumRepo *repository.CurriculumRepository,
	progressRepo *repository.ProgressRepository,
	assignmentRepo *repository.AssignmentRepository,
	statsRepo *repository.UserStatsRepository,
	userRepo *repository.UserRepository,
	ledgerRepo *repository.LedgerRepository,
	auditRepo *repository.AuditRepository,
	locks *util.KeyedMutex,
	cfg config.GamificationConfig,
	db *gorm.DB,
) *CurriculumService {
	return &CurriculumService{
		CurriculumRepo: curriculumRepo,
		ProgressRepo:   progressRepo,
		AssignmentRepo: assignmentRepo,
		StatsRepo:      statsRepo,
		UserRepo:       userRepo,
		LedgerRepo:     ledgerRepo,
		AuditRepo:      auditRepo,
		Locks:          locks,
		Cfg:            cfg,
		DB:             db,
	}
}

type StepCompletionResult struct {
	XPEarned        int               `json:"xpEarned"`
	GemsEarned      int               `json:"gemsEarned"`
	KeysCompleted   int               `json:"keysCompleted"`
	AllKeysComplete bool              `json:"allKeysComplete"`
	NextAssignment  *model.Assignment `json:"nextAssignment"`
}

// MarkStepComplete 记录某个调完成。重复调用不报错也不重复发奖，
// 奖励只在 null→已完成 的跃迁上发一次。12/12时推进到下一个Focus的第1调，
// 没有后继Focus时停在终点。
func (s *CurriculumService) MarkStepComplete(userID, stepID, focusID uint) (*StepCompletionResult, error) {
	exists, err := s.UserRepo.Exists(userID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, util.ErrUserNotFound
	}

	focus, err := s.CurriculumRepo.FindFocusByID(focusID)
	if err != nil {
		return nil, util.ErrFocusNotFound
	}
	step, err := s.CurriculumRepo.FindStepByID(stepID)
	if err != nil || step.FocusID != focus.ID {
		return nil, util.ErrStepNotFound
	}

	unlock := s.Locks.Lock(userID)
	defer unlock()

	var result StepCompletionResult

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		progress, err := s.ProgressRepo.GetOrCreate(tx, userID, focusID)
		if err != nil {
			return err
		}

		firstCompletion := progress.Slot(step.KeyIndex) == nil
		if firstCompletion {
			id := step.ID
			progress.SetSlot(step.KeyIndex, &id)
			if err := s.ProgressRepo.Save(tx, progress); err != nil {
				return err
			}
		}

		result.KeysCompleted = progress.KeysCompleted()
		result.AllKeysComplete = progress.AllKeysComplete()

		if firstCompletion {
			result.XPEarned = s.Cfg.KeyXP
			result.GemsEarned = s.Cfg.KeyGems
			if result.AllKeysComplete {
				result.XPEarned += s.Cfg.FocusBonusXP
				result.GemsEarned += s.Cfg.FocusBonusGems
			}

			delta := repository.StatsDelta{XP: result.XPEarned, Gems: result.GemsEarned}
			if err := s.StatsRepo.ApplyDelta(tx, userID, delta); err != nil {
				return err
			}
			if result.GemsEarned > 0 {
				entry := model.GemTransaction{
					UserID:    userID,
					Kind:      model.GemEarned,
					Amount:    result.GemsEarned,
					Reason:    "key completed",
					Reference: fmt.Sprintf("step:%d", step.ID),
				}
				if err := s.LedgerRepo.Append(tx, &entry); err != nil {
					return err
				}
			}
		}

		if result.AllKeysComplete {
			next, err := s.CurriculumRepo.NextFocusAfter(focus.SortOrder)
			if err != nil {
				return err
			}
			if next != nil {
				firstStep, err := s.CurriculumRepo.FindStep(next.ID, 1)
				if err != nil {
					return err
				}
				assignment, err := s.AssignmentRepo.Reassign(tx, userID, next.ID, firstStep.ID)
				if err != nil {
					return err
				}
				result.NextAssignment = assignment
			} else {
				// 终点状态：最后一个Focus全部完成，指针停在原地
				current, err := s.AssignmentRepo.FindActiveByUser(userID)
				if err == nil {
					if current.CompletedAt == nil {
						now := time.Now()
						if err := s.AssignmentRepo.MarkCompleted(tx, current.ID, now); err != nil {
							return err
						}
						current.CompletedAt = &now
					}
					result.NextAssignment = current
				} else if err != gorm.ErrRecordNotFound {
					return err
				}
			}
		} else {
			current, err := s.AssignmentRepo.FindActiveByUser(userID)
			if err == nil {
				result.NextAssignment = current
			} else if err != gorm.ErrRecordNotFound {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	if firstTime := result.XPEarned > 0; firstTime {
		s.AuditRepo.Record("curriculum.step_completed", userID, map[string]interface{}{
			"stepId":  stepID,
			"focusId": focusID,
			"keys":    result.KeysCompleted,
		})
	}

	return &result, nil
}

func (s *CurriculumService) GetUserProgress(userID, focusID uint) (*model.ProgressRecord, error) {
	record, err := s.ProgressRepo.FindByUserAndFocus(userID, focusID)
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	return record, err
}

func (s *CurriculumService) GetCurrentAssignment(userID uint) (*model.Assignment, error) {
	assignment, err := s.AssignmentRepo.FindActiveByUser(userID)
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	return assignment, err
}

func (s *CurriculumService) ListFocuses() ([]model.Focus, error) {
	return s.CurriculumRepo.ListFocusesOrdered()
}

func (s *CurriculumService) ListSteps(focusID uint) ([]model.Step, error) {
	if _, err := s.CurriculumRepo.FindFocusByID(focusID); err != nil {
		return nil, util.ErrFocusNotFound
	}
	return s.CurriculumRepo.StepsByFocus(focusID)
}

type AssignmentMismatch struct {
	UserID           uint   `json:"userId"`
	CurrentFocusID   uint   `json:"currentFocusId"`
	CorrectFocusID   uint   `json:"correctFocusId"`
	CompletedFocuses []uint `json:"completedFocuses"`
}

type ProgressReport struct {
	TotalStudents        int                  `json:"totalStudents"`
	CorrectAssignments   int                  `json:"correctAssignments"`
	IncorrectAssignments int                  `json:"incorrectAssignments"`
	Mismatches           []AssignmentMismatch `json:"mismatches"`
}

// AnalyzeProgress 纯诊断扫描，不写库。"正确"的Focus定义为：按 sort_order
// 最高的已全部完成的Focus的后继；一个都没完成则是目录里的第一个。
// 顺序比较一律用 sort_order，id 只作身份。
func (s *CurriculumService) AnalyzeProgress() (*ProgressReport, error) {
	focuses, err := s.CurriculumRepo.ListFocusesOrdered()
	if err != nil {
		return nil, err
	}
	if len(focuses) == 0 {
		return &ProgressReport{}, nil
	}

	assignments, err := s.AssignmentRepo.ListActive()
	if err != nil {
		return nil, err
	}

	records, err := s.ProgressRepo.ListAll()
	if err != nil {
		return nil, err
	}
	recordsByUser := make(map[uint][]model.ProgressRecord)
	for _, rec := range records {
		recordsByUser[rec.UserID] = append(recordsByUser[rec.UserID], rec)
	}

	report := &ProgressReport{TotalStudents: len(assignments)}
	for _, assignment := range assignments {
		correct, completed := s.correctFocusFor(recordsByUser[assignment.UserID], focuses)
		if correct.ID == assignment.FocusID {
			report.CorrectAssignments++
			continue
		}
		report.IncorrectAssignments++
		report.Mismatches = append(report.Mismatches, AssignmentMismatch{
			UserID:           assignment.UserID,
			CurrentFocusID:   assignment.FocusID,
			CorrectFocusID:   correct.ID,
			CompletedFocuses: completed,
		})
	}

	return report, nil
}

// correctFocusFor 推导用户"应在"的Focus。全部完成时返回最后一个Focus
// （终点不再前进）。
func (s *CurriculumService) correctFocusFor(records []model.ProgressRecord, orderedFocuses []model.Focus) (*model.Focus, []uint) {
	byID := make(map[uint]*model.Focus, len(orderedFocuses))
	for i := range orderedFocuses {
		byID[orderedFocuses[i].ID] = &orderedFocuses[i]
	}

	var completed []*model.Focus
	var completedIDs []uint
	for _, rec := range records {
		if rec.AllKeysComplete() {
			if f, ok := byID[rec.FocusID]; ok {
				completed = append(completed, f)
				completedIDs = append(completedIDs, f.ID)
			}
		}
	}

	if len(completed) == 0 {
		return &orderedFocuses[0], completedIDs
	}

	sort.Slice(completed, func(i, j int) bool {
		return completed[i].SortOrder < completed[j].SortOrder
	})
	highest := completed[len(completed)-1]

	for i := range orderedFocuses {
		if orderedFocuses[i].SortOrder > highest.SortOrder {
			return &orderedFocuses[i], completedIDs
		}
	}
	return highest, completedIDs
}

type FixResult struct {
	FixedCount int            `json:"fixedCount"`
	Failures   map[uint]string `json:"failures,omitempty"`
}

// FixAssignments 对账修复：对每个错位用户把指针改写到正确Focus的第1调。
// 可重复执行（第二次运行找不到错位）。单个用户失败不打断整批，
// 用户之间并行，单个用户仍持用户锁。
func (s *CurriculumService) FixAssignments() (*FixResult, error) {
	report, err := s.AnalyzeProgress()
	if err != nil {
		return nil, err
	}

	result := &FixResult{Failures: make(map[uint]string)}
	var mu sync.Mutex

	var g errgroup.Group
	g.SetLimit(8)
	for _, mismatch := range report.Mismatches {
		m := mismatch
		g.Go(func() error {
			if err := s.fixOne(m.UserID, m.CorrectFocusID); err != nil {
				mu.Lock()
				result.Failures[m.UserID] = err.Error()
				mu.Unlock()
				logger.Log.Error("assignment fix failed",
					zap.Uint("userId", m.UserID), zap.Error(err))
				return nil
			}
			mu.Lock()
			result.FixedCount++
			mu.Unlock()
			monitoring.AssignmentsFixed.Inc()
			return nil
		})
	}
	g.Wait()

	if len(result.Failures) == 0 {
		result.Failures = nil
	}

	s.AuditRepo.Record("curriculum.fix_assignments", 0, map[string]interface{}{
		"fixed":    result.FixedCount,
		"failures": len(report.Mismatches) - result.FixedCount,
	})
	return result, nil
}

func (s *CurriculumService) fixOne(userID, correctFocusID uint) error {
	unlock := s.Locks.Lock(userID)
	defer unlock()

	firstStep, err := s.CurriculumRepo.FindStep(correctFocusID, 1)
	if err != nil {
		return util.ErrStepNotFound
	}

	return s.DB.Transaction(func(tx *gorm.DB) error {
		_, err := s.AssignmentRepo.Reassign(tx, userID, correctFocusID, firstStep.ID)
		return err
	})
}

// FixSpecificStudent 管理员强制把某个学生的指针定到 (focusOrder, keyIndex)，
// 不做正确性推导。
func (s *CurriculumService) FixSpecificStudent(actorID, userID uint, focusOrder float64, keyIndex int) (*model.Assignment, error) {
	focus, err := s.CurriculumRepo.FindFocusByOrder(focusOrder)
	if err != nil {
		return nil, util.ErrFocusNotFound
	}
	step, err := s.CurriculumRepo.FindStep(focus.ID, keyIndex)
	if err != nil {
		return nil, util.ErrStepNotFound
	}

	unlock := s.Locks.Lock(userID)
	defer unlock()

	var assignment *model.Assignment
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		assignment, err = s.AssignmentRepo.Reassign(tx, userID, focus.ID, step.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.AuditRepo.Record("curriculum.fix_student", actorID, map[string]interface{}{
		"userId":     userID,
		"focusOrder": focusOrder,
		"keyIndex":   keyIndex,
	})
	return assignment, nil
}

type SelfFixResult struct {
	Fixed    bool   `json:"fixed"`
	OldFocus uint   `json:"oldFocus"`
	OldKey   int    `json:"oldKey"`
	NewFocus uint   `json:"newFocus"`
	NewKey   int    `json:"newKey"`
	Reason   string `json:"reason"`
}

// FixMyProgress 自助修复，比 FixAssignments 更严格：跨全部Focus找到
// 全局最早未完成的调（frontier），把指针定到那里，并清除frontier之后的
// 一切已记录进度，不允许跳着往前完成。清除是有意的破坏性修复，
// 这是客户端状态损坏时的自愈契约。
func (s *CurriculumService) FixMyProgress(userID uint) (*SelfFixResult, error) {
	exists, err := s.UserRepo.Exists(userID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, util.ErrUserNotFound
	}

	focuses, err := s.CurriculumRepo.ListFocusesOrdered()
	if err != nil {
		return nil, err
	}
	if len(focuses) == 0 {
		return nil, util.ErrFocusNotFound
	}

	unlock := s.Locks.Lock(userID)
	defer unlock()

	result := &SelfFixResult{}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		records, err := s.ProgressRepo.ListByUser(userID)
		if err != nil {
			return err
		}
		recordByFocus := make(map[uint]*model.ProgressRecord, len(records))
		for i := range records {
			recordByFocus[records[i].FocusID] = &records[i]
		}

		// frontier：按目录顺序逐Focus逐调找第一个空位
		frontierIdx := -1
		frontierKey := 0
		for i := range focuses {
			rec := recordByFocus[focuses[i].ID]
			for key := 1; key <= model.KeysPerFocus; key++ {
				if rec == nil || rec.Slot(key) == nil {
					frontierIdx = i
					frontierKey = key
					break
				}
			}
			if frontierIdx >= 0 {
				break
			}
		}

		current, err := s.AssignmentRepo.FindActiveByUser(userID)
		if err != nil && err != gorm.ErrRecordNotFound {
			return err
		}
		if current != nil {
			result.OldFocus = current.FocusID
			if step, err := s.CurriculumRepo.FindStepByID(current.StepID); err == nil {
				result.OldKey = step.KeyIndex
			}
		}

		if frontierIdx < 0 {
			// 整个课程都完成了，没有frontier可言，指针留在原地
			result.Fixed = false
			result.NewFocus = result.OldFocus
			result.NewKey = result.OldKey
			result.Reason = "curriculum complete"
			return nil
		}

		frontierFocus := &focuses[frontierIdx]
		result.NewFocus = frontierFocus.ID
		result.NewKey = frontierKey

		// 清除frontier之后的超前进度：同Focus内frontier之后的调，
		// 以及后续Focus的整条记录
		cleared := false
		if rec := recordByFocus[frontierFocus.ID]; rec != nil {
			dirty := false
			for key := frontierKey; key <= model.KeysPerFocus; key++ {
				if rec.Slot(key) != nil {
					rec.SetSlot(key, nil)
					dirty = true
				}
			}
			if dirty {
				if err := s.ProgressRepo.Save(tx, rec); err != nil {
					return err
				}
				cleared = true
			}
		}
		for i := frontierIdx + 1; i < len(focuses); i++ {
			if rec := recordByFocus[focuses[i].ID]; rec != nil {
				if err := s.ProgressRepo.Delete(tx, rec); err != nil {
					return err
				}
				cleared = true
			}
		}

		frontierStep, err := s.CurriculumRepo.FindStep(frontierFocus.ID, frontierKey)
		if err != nil {
			return util.ErrStepNotFound
		}

		needReassign := current == nil ||
			current.FocusID != frontierFocus.ID ||
			current.StepID != frontierStep.ID

		if needReassign {
			if _, err := s.AssignmentRepo.Reassign(tx, userID, frontierFocus.ID, frontierStep.ID); err != nil {
				return err
			}
		}

		switch {
		case needReassign && cleared:
			result.Fixed = true
			result.Reason = "reassigned to frontier and cleared forward progress"
		case needReassign:
			result.Fixed = true
			result.Reason = "reassigned to frontier"
		case cleared:
			result.Fixed = true
			result.Reason = "cleared forward progress"
		default:
			result.Fixed = false
			result.Reason = "already at frontier"
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Fixed {
		s.AuditRepo.Record("curriculum.fix_my_progress", userID, map[string]interface{}{
			"oldFocus": result.OldFocus,
			"oldKey":   result.OldKey,
			"newFocus": result.NewFocus,
			"newKey":   result.NewKey,
			"reason":   result.Reason,
		})
	}
	return result, nil
}
