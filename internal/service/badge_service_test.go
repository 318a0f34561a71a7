package service

import (
	"testing"

	"jazzedu_backend/internal/model"
	"jazzedu_backend/internal/repository"
	"jazzedu_backend/internal/testutil"
	"jazzedu_backend/internal/util"

	"gorm.io/gorm"
)

func newTestBadgeService(t *testing.T, db *gorm.DB) *BadgeService {
	t.Helper()
	return NewBadgeService(
		repository.NewBadgeRepository(db),
		repository.NewUserStatsRepository(db),
		repository.NewLedgerRepository(db),
		repository.NewAuditRepository(db),
		NoopEmitter{},
		util.NewKeyedMutex(),
		db,
	)
}

func createBadgeDef(t *testing.T, db *gorm.DB, def model.BadgeDefinition) {
	t.Helper()
	if err := db.Create(&def).Error; err != nil {
		t.Fatalf("create badge definition: %v", err)
	}
}

func setStats(t *testing.T, db *gorm.DB, userID uint, updates map[string]interface{}) {
	t.Helper()
	if err := db.Model(&model.UserStats{}).Where("user_id = ?", userID).Updates(updates).Error; err != nil {
		t.Fatalf("set stats: %v", err)
	}
}

func TestCheckAndAwardBadges_AwardsOnceAndAppliesRewards(t *testing.T) {
	db := testutil.NewTestDB(t)
	user := testutil.CreateUser(t, db, "louis")
	svc := newTestBadgeService(t, db)

	createBadgeDef(t, db, model.BadgeDefinition{
		BadgeKey:      "first_session",
		Name:          "First Session",
		CriteriaType:  model.CriteriaPracticeSessions,
		CriteriaValue: 1,
		XPReward:      10,
		GemReward:     5,
		IsActive:      true,
	})
	setStats(t, db, user.ID, map[string]interface{}{"total_sessions": 1})

	awarded, err := svc.CheckAndAwardBadges(user.ID)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if len(awarded) != 1 || awarded[0] != "first_session" {
		t.Fatalf("expected [first_session], got %v", awarded)
	}

	stats, err := svc.StatsRepo.FindByUserID(user.ID)
	if err != nil {
		t.Fatalf("load stats: %v", err)
	}
	if stats.TotalXP != 10 || stats.GemsBalance != 5 || stats.BadgesEarned != 1 {
		t.Fatalf("rewards not applied: xp=%d gems=%d badges=%d",
			stats.TotalXP, stats.GemsBalance, stats.BadgesEarned)
	}

	// 第二次判定：空结果是正常成功
	again, err := svc.CheckAndAwardBadges(user.ID)
	if err != nil {
		t.Fatalf("second check: %v", err)
	}
	if len(again) != 0 {
		t.Fatalf("second check must award nothing, got %v", again)
	}

	stats, _ = svc.StatsRepo.FindByUserID(user.ID)
	if stats.TotalXP != 10 || stats.BadgesEarned != 1 {
		t.Fatalf("second check must not double-apply rewards")
	}
}

func TestCheckAndAwardBadges_SequentialChainUnlock(t *testing.T) {
	db := testutil.NewTestDB(t)
	user := testutil.CreateUser(t, db, "chain")
	svc := newTestBadgeService(t, db)

	// 第一枚的XP奖励把用户推过第二枚的门槛，单次调用内连锁解锁
	createBadgeDef(t, db, model.BadgeDefinition{
		BadgeKey:      "starter",
		Name:          "Starter",
		CriteriaType:  model.CriteriaTotalXP,
		CriteriaValue: 100,
		XPReward:      50,
		IsActive:      true,
	})
	createBadgeDef(t, db, model.BadgeDefinition{
		BadgeKey:      "climber",
		Name:          "Climber",
		CriteriaType:  model.CriteriaTotalXP,
		CriteriaValue: 140,
		IsActive:      true,
	})
	setStats(t, db, user.ID, map[string]interface{}{"total_xp": 100})

	awarded, err := svc.CheckAndAwardBadges(user.ID)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if len(awarded) != 2 || awarded[0] != "starter" || awarded[1] != "climber" {
		t.Fatalf("expected chained [starter climber], got %v", awarded)
	}
}

func TestCheckAndAwardBadges_IgnoresInactiveAndUnimplementedCriteria(t *testing.T) {
	db := testutil.NewTestDB(t)
	user := testutil.CreateUser(t, db, "quiet")
	svc := newTestBadgeService(t, db)

	createBadgeDef(t, db, model.BadgeDefinition{
		BadgeKey:      "night_owl",
		Name:          "Night Owl",
		CriteriaType:  model.CriteriaTimeOfDay,
		CriteriaValue: 1,
		IsActive:      true,
	})
	createBadgeDef(t, db, model.BadgeDefinition{
		BadgeKey:      "retired",
		Name:          "Retired",
		CriteriaType:  model.CriteriaPracticeSessions,
		CriteriaValue: 1,
		IsActive:      false,
	})
	setStats(t, db, user.ID, map[string]interface{}{"total_sessions": 100})

	awarded, err := svc.CheckAndAwardBadges(user.ID)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if len(awarded) != 0 {
		t.Fatalf("expected nothing, got %v", awarded)
	}
}

func TestAwardBadge_ManualGrantSkipsCriteria(t *testing.T) {
	db := testutil.NewTestDB(t)
	admin := testutil.CreateUser(t, db, "admin")
	user := testutil.CreateUser(t, db, "lucky")
	svc := newTestBadgeService(t, db)

	createBadgeDef(t, db, model.BadgeDefinition{
		BadgeKey:      "legend",
		Name:          "Legend",
		CriteriaType:  model.CriteriaTotalXP,
		CriteriaValue: 1000000,
		XPReward:      20,
		IsActive:      true,
	})

	granted, err := svc.AwardBadge(admin.ID, user.ID, "legend")
	if err != nil {
		t.Fatalf("award: %v", err)
	}
	if !granted {
		t.Fatalf("expected grant")
	}

	// 已持有时返回false不报错
	granted, err = svc.AwardBadge(admin.ID, user.ID, "legend")
	if err != nil {
		t.Fatalf("repeat award: %v", err)
	}
	if granted {
		t.Fatalf("repeat grant must be a no-op")
	}

	if _, err := svc.AwardBadge(admin.ID, user.ID, "no_such_badge"); err != util.ErrBadgeNotFound {
		t.Fatalf("expected ErrBadgeNotFound, got %v", err)
	}
}

func TestRemoveBadge_RevertsStatsClampedAtZeroWithoutLedgerReversal(t *testing.T) {
	db := testutil.NewTestDB(t)
	admin := testutil.CreateUser(t, db, "admin")
	user := testutil.CreateUser(t, db, "target")
	svc := newTestBadgeService(t, db)

	createBadgeDef(t, db, model.BadgeDefinition{
		BadgeKey:  "gifted",
		Name:      "Gifted",
		XPReward:  30,
		GemReward: 10,
		IsActive:  true,
	})

	if _, err := svc.AwardBadge(admin.ID, user.ID, "gifted"); err != nil {
		t.Fatalf("award: %v", err)
	}

	// 用户在发放后花掉了宝石，余额低于奖励额，回退必须截断在0
	setStats(t, db, user.ID, map[string]interface{}{"gems_balance": 3})

	removed, err := svc.RemoveBadge(admin.ID, user.ID, "gifted")
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if !removed {
		t.Fatalf("expected removal")
	}

	stats, err := svc.StatsRepo.FindByUserID(user.ID)
	if err != nil {
		t.Fatalf("load stats: %v", err)
	}
	if stats.GemsBalance != 0 {
		t.Fatalf("gems must clamp at zero, got %d", stats.GemsBalance)
	}
	if stats.TotalXP != 0 || stats.BadgesEarned != 0 {
		t.Fatalf("stat reversal wrong: xp=%d badges=%d", stats.TotalXP, stats.BadgesEarned)
	}

	// 账本只追加：移除不补写负账
	var ledgerCount int64
	if err := db.Model(&model.GemTransaction{}).Where("user_id = ?", user.ID).Count(&ledgerCount).Error; err != nil {
		t.Fatalf("count ledger: %v", err)
	}
	if ledgerCount != 1 {
		t.Fatalf("ledger must keep only the original earn entry, got %d", ledgerCount)
	}

	// 再移除一次：false不报错
	removed, err = svc.RemoveBadge(admin.ID, user.ID, "gifted")
	if err != nil {
		t.Fatalf("repeat remove: %v", err)
	}
	if removed {
		t.Fatalf("repeat removal must be a no-op")
	}
}

func TestCriteriaSatisfied_ClosedDispatch(t *testing.T) {
	stats := &model.UserStats{TotalSessions: 10, TotalXP: 500, CurrentStreak: 7}

	cases := []struct {
		criteria model.CriteriaType
		value    int
		want     bool
	}{
		{model.CriteriaPracticeSessions, 10, true},
		{model.CriteriaPracticeSessions, 11, false},
		{model.CriteriaTotalXP, 500, true},
		{model.CriteriaTotalXP, 501, false},
		{model.CriteriaStreak, 7, true},
		{model.CriteriaStreak, 8, false},
		{model.CriteriaLongSessionCount, 1, false},
		{model.CriteriaTimeOfDay, 1, false},
		{model.CriteriaComeback, 1, false},
		{model.CriteriaType("unknown"), 0, false},
	}
	for _, tc := range cases {
		def := &model.BadgeDefinition{CriteriaType: tc.criteria, CriteriaValue: tc.value}
		if got := criteriaSatisfied(def, stats); got != tc.want {
			t.Fatalf("criteria %s value %d: expected %v got %v", tc.criteria, tc.value, tc.want, got)
		}
	}
}
