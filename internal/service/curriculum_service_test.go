package service

import (
	"testing"

	"jazzedu_backend/internal/config"
	"jazzedu_backend/internal/model"
	"jazzedu_backend/internal/repository"
	"jazzedu_backend/internal/testutil"
	"jazzedu_backend/internal/util"

	"gorm.io/gorm"
)

func testGamificationConfig() config.GamificationConfig {
	return config.GamificationConfig{
		KeyXP:               25,
		KeyGems:             5,
		FocusBonusXP:        100,
		FocusBonusGems:      25,
		SessionXPCapMinutes: 60,
		SentimentXPWeight:   2,
		ImprovementBonusXP:  10,
		Timezone:            "UTC",
	}
}

func newTestCurriculumService(t *testing.T, db *gorm.DB) *CurriculumService {
	t.Helper()
	return NewCurriculumService(
		repository.NewCurriculumRepository(db),
		repository.NewProgressRepository(db),
		repository.NewAssignmentRepository(db),
		repository.NewUserStatsRepository(db),
		repository.NewUserRepository(db),
		repository.NewLedgerRepository(db),
		repository.NewAuditRepository(db),
		util.NewKeyedMutex(),
		testGamificationConfig(),
		db,
	)
}

func assignTo(t *testing.T, db *gorm.DB, svc *CurriculumService, userID, focusID uint, keyIndex int) {
	t.Helper()
	step, err := svc.CurriculumRepo.FindStep(focusID, keyIndex)
	if err != nil {
		t.Fatalf("find step: %v", err)
	}
	if _, err := svc.AssignmentRepo.Reassign(db, userID, focusID, step.ID); err != nil {
		t.Fatalf("reassign: %v", err)
	}
}

func TestMarkStepComplete_AwardsOnFirstCompletionOnly(t *testing.T) {
	db := testutil.NewTestDB(t)
	focuses := testutil.SeedCurriculum(t, db, 2)
	user := testutil.CreateUser(t, db, "miles")
	svc := newTestCurriculumService(t, db)
	assignTo(t, db, svc, user.ID, focuses[0].ID, 1)

	step := testutil.StepFor(t, db, focuses[0].ID, 1)

	result, err := svc.MarkStepComplete(user.ID, step.ID, focuses[0].ID)
	if err != nil {
		t.Fatalf("mark complete: %v", err)
	}
	if result.XPEarned != 25 || result.GemsEarned != 5 {
		t.Fatalf("expected 25 XP / 5 gems, got %d / %d", result.XPEarned, result.GemsEarned)
	}
	if result.KeysCompleted != 1 {
		t.Fatalf("expected 1 key completed, got %d", result.KeysCompleted)
	}

	// 重复完成：不报错、不重复发奖
	again, err := svc.MarkStepComplete(user.ID, step.ID, focuses[0].ID)
	if err != nil {
		t.Fatalf("repeat mark complete: %v", err)
	}
	if again.XPEarned != 0 || again.GemsEarned != 0 {
		t.Fatalf("repeat completion must not award, got %d XP / %d gems", again.XPEarned, again.GemsEarned)
	}
	if again.KeysCompleted != 1 {
		t.Fatalf("expected keys completed unchanged, got %d", again.KeysCompleted)
	}

	stats, err := svc.StatsRepo.FindByUserID(user.ID)
	if err != nil {
		t.Fatalf("load stats: %v", err)
	}
	if stats.TotalXP != 25 || stats.GemsBalance != 5 {
		t.Fatalf("expected stats 25/5, got %d/%d", stats.TotalXP, stats.GemsBalance)
	}

	var ledgerCount int64
	if err := db.Model(&model.GemTransaction{}).Where("user_id = ?", user.ID).Count(&ledgerCount).Error; err != nil {
		t.Fatalf("count ledger: %v", err)
	}
	if ledgerCount != 1 {
		t.Fatalf("expected single ledger entry, got %d", ledgerCount)
	}
}

func TestMarkStepComplete_TwelfthKeyAdvancesFocus(t *testing.T) {
	db := testutil.NewTestDB(t)
	focuses := testutil.SeedCurriculum(t, db, 2)
	user := testutil.CreateUser(t, db, "trane")
	svc := newTestCurriculumService(t, db)
	assignTo(t, db, svc, user.ID, focuses[0].ID, 1)

	for k := 1; k <= 11; k++ {
		step := testutil.StepFor(t, db, focuses[0].ID, k)
		if _, err := svc.MarkStepComplete(user.ID, step.ID, focuses[0].ID); err != nil {
			t.Fatalf("key %d: %v", k, err)
		}
	}

	last := testutil.StepFor(t, db, focuses[0].ID, 12)
	result, err := svc.MarkStepComplete(user.ID, last.ID, focuses[0].ID)
	if err != nil {
		t.Fatalf("final key: %v", err)
	}
	if !result.AllKeysComplete {
		t.Fatalf("expected all keys complete")
	}
	if result.XPEarned != 25+100 || result.GemsEarned != 5+25 {
		t.Fatalf("expected focus bonus on 12/12, got %d XP / %d gems", result.XPEarned, result.GemsEarned)
	}
	if result.NextAssignment == nil || result.NextAssignment.FocusID != focuses[1].ID {
		t.Fatalf("expected advancement to next focus, got %+v", result.NextAssignment)
	}

	next, err := svc.GetCurrentAssignment(user.ID)
	if err != nil {
		t.Fatalf("get assignment: %v", err)
	}
	if next == nil || next.FocusID != focuses[1].ID {
		t.Fatalf("active assignment should point at next focus")
	}
	nextStep, err := svc.CurriculumRepo.FindStepByID(next.StepID)
	if err != nil {
		t.Fatalf("find assigned step: %v", err)
	}
	if nextStep.KeyIndex != 1 {
		t.Fatalf("advancement must land on key 1, got %d", nextStep.KeyIndex)
	}

	// 任一时刻至多一条active指针
	var active int64
	if err := db.Model(&model.Assignment{}).Where("user_id = ?", user.ID).Count(&active).Error; err != nil {
		t.Fatalf("count assignments: %v", err)
	}
	if active != 1 {
		t.Fatalf("expected exactly one active assignment, got %d", active)
	}
}

func TestMarkStepComplete_TerminalFocusStaysPut(t *testing.T) {
	db := testutil.NewTestDB(t)
	focuses := testutil.SeedCurriculum(t, db, 1)
	user := testutil.CreateUser(t, db, "bird")
	svc := newTestCurriculumService(t, db)
	assignTo(t, db, svc, user.ID, focuses[0].ID, 1)

	for k := 1; k <= 12; k++ {
		step := testutil.StepFor(t, db, focuses[0].ID, k)
		if _, err := svc.MarkStepComplete(user.ID, step.ID, focuses[0].ID); err != nil {
			t.Fatalf("key %d: %v", k, err)
		}
	}

	assignment, err := svc.GetCurrentAssignment(user.ID)
	if err != nil {
		t.Fatalf("get assignment: %v", err)
	}
	if assignment == nil || assignment.FocusID != focuses[0].ID {
		t.Fatalf("terminal pointer must stay on last focus")
	}
	if assignment.CompletedAt == nil {
		t.Fatalf("terminal assignment should be marked completed")
	}
}

func TestMarkStepComplete_RejectsMismatchedStepAndFocus(t *testing.T) {
	db := testutil.NewTestDB(t)
	focuses := testutil.SeedCurriculum(t, db, 2)
	user := testutil.CreateUser(t, db, "monk")
	svc := newTestCurriculumService(t, db)

	stepInSecond := testutil.StepFor(t, db, focuses[1].ID, 1)
	if _, err := svc.MarkStepComplete(user.ID, stepInSecond.ID, focuses[0].ID); err != util.ErrStepNotFound {
		t.Fatalf("expected ErrStepNotFound, got %v", err)
	}
}

func TestAnalyzeProgress_ReportsMismatchesWithoutWriting(t *testing.T) {
	db := testutil.NewTestDB(t)
	focuses := testutil.SeedCurriculum(t, db, 3)
	svc := newTestCurriculumService(t, db)

	// aligned: focus1完成，指针在focus2
	aligned := testutil.CreateUser(t, db, "aligned")
	completeFocus(t, db, svc, aligned.ID, focuses[0].ID)

	// drifted: focus1完成但指针还停在focus1
	drifted := testutil.CreateUser(t, db, "drifted")
	completeFocus(t, db, svc, drifted.ID, focuses[0].ID)
	assignTo(t, db, svc, drifted.ID, focuses[0].ID, 1)

	report, err := svc.AnalyzeProgress()
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if report.TotalStudents != 2 {
		t.Fatalf("expected 2 students, got %d", report.TotalStudents)
	}
	if report.CorrectAssignments != 1 || report.IncorrectAssignments != 1 {
		t.Fatalf("expected 1 correct / 1 incorrect, got %d / %d",
			report.CorrectAssignments, report.IncorrectAssignments)
	}
	if len(report.Mismatches) != 1 || report.Mismatches[0].UserID != drifted.ID {
		t.Fatalf("unexpected mismatches: %+v", report.Mismatches)
	}
	if report.Mismatches[0].CorrectFocusID != focuses[1].ID {
		t.Fatalf("correct focus should be the successor, got %d", report.Mismatches[0].CorrectFocusID)
	}

	// 诊断不落库
	assignment, err := svc.GetCurrentAssignment(drifted.ID)
	if err != nil {
		t.Fatalf("get assignment: %v", err)
	}
	if assignment.FocusID != focuses[0].ID {
		t.Fatalf("analyze must not modify assignments")
	}
}

func TestFixAssignments_RepairsAndIsIdempotent(t *testing.T) {
	db := testutil.NewTestDB(t)
	focuses := testutil.SeedCurriculum(t, db, 3)
	svc := newTestCurriculumService(t, db)

	drifted := testutil.CreateUser(t, db, "drifted")
	completeFocus(t, db, svc, drifted.ID, focuses[0].ID)
	assignTo(t, db, svc, drifted.ID, focuses[0].ID, 3)

	result, err := svc.FixAssignments()
	if err != nil {
		t.Fatalf("fix: %v", err)
	}
	if result.FixedCount != 1 {
		t.Fatalf("expected 1 fix, got %d", result.FixedCount)
	}

	assignment, err := svc.GetCurrentAssignment(drifted.ID)
	if err != nil {
		t.Fatalf("get assignment: %v", err)
	}
	if assignment.FocusID != focuses[1].ID {
		t.Fatalf("pointer should land on correct focus")
	}
	step, err := svc.CurriculumRepo.FindStepByID(assignment.StepID)
	if err != nil {
		t.Fatalf("find step: %v", err)
	}
	if step.KeyIndex != 1 {
		t.Fatalf("repair must assign key 1, got %d", step.KeyIndex)
	}

	// 第二次运行找不到错位
	second, err := svc.FixAssignments()
	if err != nil {
		t.Fatalf("second fix: %v", err)
	}
	if second.FixedCount != 0 {
		t.Fatalf("second run should fix nothing, got %d", second.FixedCount)
	}
}

func TestFixSpecificStudent_ForcesExactPosition(t *testing.T) {
	db := testutil.NewTestDB(t)
	focuses := testutil.SeedCurriculum(t, db, 3)
	admin := testutil.CreateUser(t, db, "admin")
	user := testutil.CreateUser(t, db, "student")
	svc := newTestCurriculumService(t, db)
	assignTo(t, db, svc, user.ID, focuses[0].ID, 1)

	assignment, err := svc.FixSpecificStudent(admin.ID, user.ID, focuses[2].SortOrder, 7)
	if err != nil {
		t.Fatalf("fix student: %v", err)
	}
	if assignment.FocusID != focuses[2].ID {
		t.Fatalf("expected focus 3, got %d", assignment.FocusID)
	}
	step, err := svc.CurriculumRepo.FindStepByID(assignment.StepID)
	if err != nil {
		t.Fatalf("find step: %v", err)
	}
	if step.KeyIndex != 7 {
		t.Fatalf("expected key 7, got %d", step.KeyIndex)
	}

	if _, err := svc.FixSpecificStudent(admin.ID, user.ID, 99.0, 1); err != util.ErrFocusNotFound {
		t.Fatalf("expected ErrFocusNotFound for bogus order, got %v", err)
	}
}

func TestFixMyProgress_ReassignsToFrontierAndClearsForwardProgress(t *testing.T) {
	db := testutil.NewTestDB(t)
	focuses := testutil.SeedCurriculum(t, db, 3)
	user := testutil.CreateUser(t, db, "dizzy")
	svc := newTestCurriculumService(t, db)
	assignTo(t, db, svc, user.ID, focuses[0].ID, 1)

	// focus1全完成，focus2完成1..5，但客户端把指针拖到了focus3，
	// 还在focus3上塞了超前完成的调
	completeFocus(t, db, svc, user.ID, focuses[0].ID)
	for k := 1; k <= 5; k++ {
		step := testutil.StepFor(t, db, focuses[1].ID, k)
		if _, err := svc.MarkStepComplete(user.ID, step.ID, focuses[1].ID); err != nil {
			t.Fatalf("focus2 key %d: %v", k, err)
		}
	}
	aheadStep := testutil.StepFor(t, db, focuses[2].ID, 4)
	if _, err := svc.MarkStepComplete(user.ID, aheadStep.ID, focuses[2].ID); err != nil {
		t.Fatalf("ahead completion: %v", err)
	}
	assignTo(t, db, svc, user.ID, focuses[2].ID, 4)

	result, err := svc.FixMyProgress(user.ID)
	if err != nil {
		t.Fatalf("fix my progress: %v", err)
	}
	if !result.Fixed {
		t.Fatalf("expected a fix, got %+v", result)
	}
	if result.NewFocus != focuses[1].ID || result.NewKey != 6 {
		t.Fatalf("frontier should be focus2 key6, got focus=%d key=%d", result.NewFocus, result.NewKey)
	}

	// frontier之后的进度必须被清掉
	ahead, err := svc.GetUserProgress(user.ID, focuses[2].ID)
	if err != nil {
		t.Fatalf("load focus3 progress: %v", err)
	}
	if ahead != nil {
		t.Fatalf("forward progress in later focus should be deleted, got %+v", ahead)
	}

	// frontier之前的进度原样保留
	kept, err := svc.GetUserProgress(user.ID, focuses[1].ID)
	if err != nil {
		t.Fatalf("load focus2 progress: %v", err)
	}
	if kept.KeysCompleted() != 5 {
		t.Fatalf("keys 1..5 must survive, got %d", kept.KeysCompleted())
	}

	// 再跑一次：已在frontier，无事可做
	again, err := svc.FixMyProgress(user.ID)
	if err != nil {
		t.Fatalf("second fix: %v", err)
	}
	if again.Fixed {
		t.Fatalf("second run should be a no-op, got %+v", again)
	}
	if again.Reason != "already at frontier" {
		t.Fatalf("unexpected reason %q", again.Reason)
	}
}

func TestFixMyProgress_ClearsLaterKeysInFrontierFocus(t *testing.T) {
	db := testutil.NewTestDB(t)
	focuses := testutil.SeedCurriculum(t, db, 2)
	user := testutil.CreateUser(t, db, "ella")
	svc := newTestCurriculumService(t, db)
	assignTo(t, db, svc, user.ID, focuses[0].ID, 1)

	// 只完成了第5调，frontier是第1调，超前的第5调要被清除
	step5 := testutil.StepFor(t, db, focuses[0].ID, 5)
	if _, err := svc.MarkStepComplete(user.ID, step5.ID, focuses[0].ID); err != nil {
		t.Fatalf("complete key 5: %v", err)
	}

	result, err := svc.FixMyProgress(user.ID)
	if err != nil {
		t.Fatalf("fix: %v", err)
	}
	if result.NewFocus != focuses[0].ID || result.NewKey != 1 {
		t.Fatalf("frontier should be focus1 key1, got focus=%d key=%d", result.NewFocus, result.NewKey)
	}

	progress, err := svc.GetUserProgress(user.ID, focuses[0].ID)
	if err != nil {
		t.Fatalf("load progress: %v", err)
	}
	if progress != nil && progress.KeysCompleted() != 0 {
		t.Fatalf("skipped-ahead key must be cleared, got %d completed", progress.KeysCompleted())
	}
}

func TestFixMyProgress_CurriculumComplete(t *testing.T) {
	db := testutil.NewTestDB(t)
	focuses := testutil.SeedCurriculum(t, db, 1)
	user := testutil.CreateUser(t, db, "sarah")
	svc := newTestCurriculumService(t, db)
	assignTo(t, db, svc, user.ID, focuses[0].ID, 1)
	completeFocus(t, db, svc, user.ID, focuses[0].ID)

	result, err := svc.FixMyProgress(user.ID)
	if err != nil {
		t.Fatalf("fix: %v", err)
	}
	if result.Fixed {
		t.Fatalf("nothing to fix when curriculum is complete")
	}
	if result.Reason != "curriculum complete" {
		t.Fatalf("unexpected reason %q", result.Reason)
	}
}

// completeFocus 把某个Focus的12个调全部标记完成
func completeFocus(t *testing.T, db *gorm.DB, svc *CurriculumService, userID, focusID uint) {
	t.Helper()
	for k := 1; k <= model.KeysPerFocus; k++ {
		step := testutil.StepFor(t, db, focusID, k)
		if _, err := svc.MarkStepComplete(userID, step.ID, focusID); err != nil {
			t.Fatalf("complete focus %d key %d: %v", focusID, k, err)
		}
	}
}
