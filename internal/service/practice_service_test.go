package service

import (
	"testing"
	"time"

	"jazzedu_backend/internal/model"
	"jazzedu_backend/internal/repository"
	"jazzedu_backend/internal/testutil"
	"jazzedu_backend/internal/util"

	"gorm.io/gorm"
)

func newTestPracticeService(t *testing.T, db *gorm.DB) *PracticeService {
	t.Helper()
	locks := util.NewKeyedMutex()
	badge := NewBadgeService(
		repository.NewBadgeRepository(db),
		repository.NewUserStatsRepository(db),
		repository.NewLedgerRepository(db),
		repository.NewAuditRepository(db),
		NoopEmitter{},
		locks,
		db,
	)
	return NewPracticeService(
		repository.NewPracticeRepository(db),
		repository.NewUserStatsRepository(db),
		repository.NewUserRepository(db),
		badge,
		locks,
		testGamificationConfig(),
		db,
	)
}

func TestLogPracticeSession_AppliesXPStreakAndBadgesInOrder(t *testing.T) {
	db := testutil.NewTestDB(t)
	user := testutil.CreateUser(t, db, "newbie")
	svc := newTestPracticeService(t, db)

	createBadgeDef(t, db, model.BadgeDefinition{
		BadgeKey:      "first_session",
		Name:          "First Session",
		CriteriaType:  model.CriteriaPracticeSessions,
		CriteriaValue: 1,
		XPReward:      10,
		GemReward:     5,
		IsActive:      true,
	})

	result, err := svc.LogPracticeSession(user.ID, 0, 30, 4, true, "worked on ii-V-I in F")
	if err != nil {
		t.Fatalf("log session: %v", err)
	}

	// 30分钟 + 情绪4*2 + 进步10 = 48
	if result.XPEarned != 48 {
		t.Fatalf("expected 48 XP, got %d", result.XPEarned)
	}
	if result.CurrentStreak != 1 {
		t.Fatalf("first session starts a 1-day streak, got %d", result.CurrentStreak)
	}
	// 徽章判定在会话入账之后，必须看见 total_sessions=1
	if len(result.AwardedBadges) != 1 || result.AwardedBadges[0] != "first_session" {
		t.Fatalf("expected first_session badge, got %v", result.AwardedBadges)
	}

	stats, err := svc.StatsRepo.FindByUserID(user.ID)
	if err != nil {
		t.Fatalf("load stats: %v", err)
	}
	if stats.TotalSessions != 1 || stats.TotalMinutes != 30 {
		t.Fatalf("session totals wrong: sessions=%d minutes=%d", stats.TotalSessions, stats.TotalMinutes)
	}
	if stats.TotalXP != 48+10 {
		t.Fatalf("expected session XP plus badge XP, got %d", stats.TotalXP)
	}
}

func TestLogPracticeSession_XPCapAndSentimentClamp(t *testing.T) {
	db := testutil.NewTestDB(t)
	user := testutil.CreateUser(t, db, "marathon")
	svc := newTestPracticeService(t, db)

	// 180分钟封顶到60，情绪9截断到5：60 + 5*2 = 70
	result, err := svc.LogPracticeSession(user.ID, 0, 180, 9, false, "")
	if err != nil {
		t.Fatalf("log session: %v", err)
	}
	if result.XPEarned != 70 {
		t.Fatalf("expected capped 70 XP, got %d", result.XPEarned)
	}

	if _, err := svc.LogPracticeSession(user.ID, 0, 0, 3, false, ""); err != util.ErrInvalidInput {
		t.Fatalf("zero duration must be rejected, got %v", err)
	}
	if _, err := svc.LogPracticeSession(999, 0, 30, 3, false, ""); err != util.ErrUserNotFound {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if _, err := svc.LogPracticeSession(user.ID, 404, 30, 3, false, ""); err != util.ErrItemNotFound {
		t.Fatalf("expected ErrItemNotFound, got %v", err)
	}
}

func TestLogPracticeSession_StreakTransitions(t *testing.T) {
	db := testutil.NewTestDB(t)
	user := testutil.CreateUser(t, db, "streaker")
	svc := newTestPracticeService(t, db)

	day1 := time.Date(2025, 3, 10, 20, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return day1 }

	if r, err := svc.LogPracticeSession(user.ID, 0, 10, 3, false, ""); err != nil || r.CurrentStreak != 1 {
		t.Fatalf("day1: streak=%v err=%v", r, err)
	}

	// 同一天再练：连击不变
	svc.now = func() time.Time { return day1.Add(3 * time.Hour) }
	if r, err := svc.LogPracticeSession(user.ID, 0, 10, 3, false, ""); err != nil || r.CurrentStreak != 1 {
		t.Fatalf("same day: streak=%v err=%v", r, err)
	}

	// 第二天：+1
	svc.now = func() time.Time { return day1.AddDate(0, 0, 1) }
	if r, err := svc.LogPracticeSession(user.ID, 0, 10, 3, false, ""); err != nil || r.CurrentStreak != 2 {
		t.Fatalf("next day: streak=%v err=%v", r, err)
	}

	// 断档三天：归1，最长连击保留
	svc.now = func() time.Time { return day1.AddDate(0, 0, 4) }
	if r, err := svc.LogPracticeSession(user.ID, 0, 10, 3, false, ""); err != nil || r.CurrentStreak != 1 {
		t.Fatalf("after gap: streak=%v err=%v", r, err)
	}

	stats, err := svc.StatsRepo.FindByUserID(user.ID)
	if err != nil {
		t.Fatalf("load stats: %v", err)
	}
	if stats.LongestStreak != 2 {
		t.Fatalf("longest streak must survive the reset, got %d", stats.LongestStreak)
	}
}

func TestNextStreak_DayBoundaryUsesConfiguredLocation(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}

	// UTC里跨天，纽约时间里是同一天晚上
	last := time.Date(2025, 3, 10, 23, 0, 0, 0, loc)
	now := time.Date(2025, 3, 11, 1, 0, 0, 0, loc)
	lastUTC := last.UTC()

	stats := &model.UserStats{CurrentStreak: 3, LongestStreak: 5, LastPracticeDate: &lastUTC}
	current, longest := nextStreak(stats, now.UTC(), loc)
	if current != 4 {
		t.Fatalf("expected streak 4 across local midnight, got %d", current)
	}
	if longest != 5 {
		t.Fatalf("longest must not shrink, got %d", longest)
	}

	// 本地同一天
	sameDay := time.Date(2025, 3, 10, 23, 50, 0, 0, loc)
	current, _ = nextStreak(stats, sameDay.UTC(), loc)
	if current != 3 {
		t.Fatalf("same local day keeps streak, got %d", current)
	}
}

func TestPracticeItems_OwnershipEnforced(t *testing.T) {
	db := testutil.NewTestDB(t)
	owner := testutil.CreateUser(t, db, "owner")
	other := testutil.CreateUser(t, db, "other")
	svc := newTestPracticeService(t, db)

	item, err := svc.CreateItem(owner.ID, "Giant Steps changes", "repertoire")
	if err != nil {
		t.Fatalf("create item: %v", err)
	}

	if _, err := svc.UpdateItem(other.ID, item.ID, "stolen", "", false); err != util.ErrPermissionDenied {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
	if err := svc.DeleteItem(other.ID, item.ID); err != util.ErrPermissionDenied {
		t.Fatalf("expected ErrPermissionDenied on delete, got %v", err)
	}

	updated, err := svc.UpdateItem(owner.ID, item.ID, "Giant Steps", "repertoire", true)
	if err != nil {
		t.Fatalf("owner update: %v", err)
	}
	if updated.Title != "Giant Steps" || !updated.Archived {
		t.Fatalf("update not applied: %+v", updated)
	}

	if err := svc.DeleteItem(owner.ID, item.ID); err != nil {
		t.Fatalf("owner delete: %v", err)
	}
	if _, err := svc.UpdateItem(owner.ID, item.ID, "x", "", false); err != util.ErrItemNotFound {
		t.Fatalf("expected ErrItemNotFound after delete, got %v", err)
	}
}
