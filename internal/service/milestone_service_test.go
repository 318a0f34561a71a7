package service

import (
	"context"
	"strings"
	"testing"

	"jazzedu_backend/internal/config"
	"jazzedu_backend/internal/model"
	"jazzedu_backend/internal/repository"
	"jazzedu_backend/internal/testutil"
	"jazzedu_backend/internal/util"

	"gorm.io/gorm"
)

func newTestMilestoneService(t *testing.T, db *gorm.DB) *MilestoneService {
	t.Helper()
	storageCfg := config.StorageConfig{Type: "local", LocalPath: t.TempDir()}
	storage := &StorageService{Provider: &LocalStorageProvider{Config: &storageCfg}}
	return NewMilestoneService(
		repository.NewMilestoneRepository(db),
		repository.NewCurriculumRepository(db),
		repository.NewAuditRepository(db),
		storage,
	)
}

func TestMilestoneSubmit_OnePerFocusUntilRedo(t *testing.T) {
	db := testutil.NewTestDB(t)
	focuses := testutil.SeedCurriculum(t, db, 1)
	user := testutil.CreateUser(t, db, "performer")
	teacher := testutil.CreateUser(t, db, "teacher")
	svc := newTestMilestoneService(t, db)

	ctx := context.Background()
	video := strings.NewReader("fake video bytes")

	submission, err := svc.Submit(ctx, user.ID, focuses[0].ID, "take1.mp4", video, 16)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if submission.VideoURL == "" {
		t.Fatalf("expected stored video URL")
	}

	// 未评redo前重复提交是冲突
	if _, err := svc.Submit(ctx, user.ID, focuses[0].ID, "take2.mp4", strings.NewReader("x"), 1); err != util.ErrMilestoneSubmitted {
		t.Fatalf("expected ErrMilestoneSubmitted, got %v", err)
	}

	// 评为redo后允许覆盖重交，评分被清空
	if _, err := svc.Grade(teacher.ID, submission.ID, model.MilestoneGradeRedo, "tempo drifts in Ab"); err != nil {
		t.Fatalf("grade: %v", err)
	}

	resub, err := svc.Submit(ctx, user.ID, focuses[0].ID, "take3.mp4", strings.NewReader("better"), 6)
	if err != nil {
		t.Fatalf("resubmit after redo: %v", err)
	}
	if resub.ID != submission.ID {
		t.Fatalf("redo resubmission must overwrite the same row")
	}
	if resub.Grade != "" || resub.GradedAt != nil {
		t.Fatalf("resubmission must clear the grade, got %+v", resub)
	}

	if _, err := svc.Submit(ctx, user.ID, 999, "x.mp4", strings.NewReader("x"), 1); err != util.ErrFocusNotFound {
		t.Fatalf("expected ErrFocusNotFound, got %v", err)
	}
}

func TestMilestoneGrade_ValidatesGradeValues(t *testing.T) {
	db := testutil.NewTestDB(t)
	focuses := testutil.SeedCurriculum(t, db, 1)
	user := testutil.CreateUser(t, db, "student")
	teacher := testutil.CreateUser(t, db, "teacher")
	svc := newTestMilestoneService(t, db)

	submission, err := svc.Submit(context.Background(), user.ID, focuses[0].ID, "take.mp4", strings.NewReader("v"), 1)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if _, err := svc.Grade(teacher.ID, submission.ID, "excellent", ""); err != util.ErrInvalidInput {
		t.Fatalf("expected ErrInvalidInput for unknown grade, got %v", err)
	}
	if _, err := svc.Grade(teacher.ID, 999, "pass", ""); err != util.ErrMilestoneNotFound {
		t.Fatalf("expected ErrMilestoneNotFound, got %v", err)
	}

	graded, err := svc.Grade(teacher.ID, submission.ID, "pass", "clean voice leading")
	if err != nil {
		t.Fatalf("grade: %v", err)
	}
	if graded.Grade != "pass" || graded.GradedAt == nil {
		t.Fatalf("grade not recorded: %+v", graded)
	}

	ungraded, err := svc.ListUngraded()
	if err != nil {
		t.Fatalf("list ungraded: %v", err)
	}
	if len(ungraded) != 0 {
		t.Fatalf("graded submission must leave the queue, got %d", len(ungraded))
	}
}
