package service

import (
	"time"

	"jazzedu_backend/internal/model"
	"jazzedu_backend/internal/repository"
	"jazzedu_backend/internal/util"
	"jazzedu_backend/pkg/logger"
	"jazzedu_backend/pkg/monitoring"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// BadgeService 徽章对账引擎：从累计统计推导"应持有"集合，与"已持有"
// 做差，逐个幂等发放并应用XP/宝石/计数增量。
type BadgeService struct {
	BadgeRepo  *repository.BadgeRepository
	StatsRepo  *repository.UserStatsRepository
	LedgerRepo *repository.LedgerRepository
	AuditRepo  *repository.AuditRepository
	Events     EventEmitter
	Locks      *util.KeyedMutex
	DB         *gorm.DB
}

func NewBadgeService(
	badgeRepo *repository.BadgeRepository,
	statsRepo *repository.UserStatsRepository,
	ledgerRepo *repository.LedgerRepository,
	auditRepo *repository.AuditRepository,
	events EventEmitter,
	locks *util.KeyedMutex,
	db *gorm.DB,
) *BadgeService {
	return &BadgeService{
		BadgeRepo:  badgeRepo,
		StatsRepo:  statsRepo,
		LedgerRepo: ledgerRepo,
		AuditRepo:  auditRepo,
		Events:     events,
		Locks:      locks,
		DB:         db,
	}
}

// criteriaSatisfied 封闭的条件分派。需要逐条会话历史分析的类型
// （long_session_count / time_of_day / comeback）不自动判定，未知类型
// 同样永远不满足。
func criteriaSatisfied(def *model.BadgeDefinition, stats *model.UserStats) bool {
	switch def.CriteriaType {
	case model.CriteriaPracticeSessions:
		return stats.TotalSessions >= def.CriteriaValue
	case model.CriteriaTotalXP:
		return stats.TotalXP >= def.CriteriaValue
	case model.CriteriaStreak:
		return stats.CurrentStreak >= def.CriteriaValue
	default:
		return false
	}
}

// CheckAndAwardBadges 判定并发放全部新达成的徽章。同一次调用内
// 顺序评估：前一个徽章的XP奖励会计入后续条件判断，一次发放可能连锁
// 解锁下一个。空结果是正常成功，不是错误。
// 加用户锁避免并发重复计入统计，(user, badge_key) 唯一约束兜底防重。
func (s *BadgeService) CheckAndAwardBadges(userID uint) ([]string, error) {
	unlock := s.Locks.Lock(userID)
	defer unlock()

	return s.checkAndAwardLocked(userID)
}

// checkAndAwardLocked 调用方已持有该用户的锁
func (s *BadgeService) checkAndAwardLocked(userID uint) ([]string, error) {
	defs, err := s.BadgeRepo.ListActiveDefinitions()
	if err != nil {
		return nil, err
	}

	awarded := []string{}
	for i := range defs {
		def := &defs[i]

		has, err := s.BadgeRepo.HasBadge(nil, userID, def.BadgeKey)
		if err != nil {
			return awarded, err
		}
		if has {
			continue
		}

		// 每轮重读统计，让本次已发放的奖励参与后续判定
		stats, err := s.StatsRepo.GetOrCreate(nil, userID)
		if err != nil {
			return awarded, err
		}
		if !criteriaSatisfied(def, stats) {
			continue
		}

		if err := s.applyAward(userID, def); err != nil {
			return awarded, err
		}
		awarded = append(awarded, def.BadgeKey)
	}

	return awarded, nil
}

// applyAward 插入持有记录 + 统计增量 + 宝石流水，单事务；随后
// fire-and-forget 外部事件，事件失败只记日志，不影响发放结果。
func (s *BadgeService) applyAward(userID uint, def *model.BadgeDefinition) error {
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		badge := model.UserBadge{
			UserID:   userID,
			BadgeKey: def.BadgeKey,
			EarnedAt: time.Now(),
		}
		if err := s.BadgeRepo.CreateUserBadge(tx, &badge); err != nil {
			return err
		}

		delta := repository.StatsDelta{XP: def.XPReward, Gems: def.GemReward, Badges: 1}
		if err := s.StatsRepo.ApplyDelta(tx, userID, delta); err != nil {
			return err
		}

		if def.GemReward != 0 {
			entry := model.GemTransaction{
				UserID:    userID,
				Kind:      model.GemEarned,
				Amount:    def.GemReward,
				Reason:    "badge earned",
				Reference: def.BadgeKey,
			}
			if err := s.LedgerRepo.Append(tx, &entry); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	monitoring.BadgesAwarded.WithLabelValues(def.BadgeKey).Inc()
	s.AuditRepo.Record("badge.awarded", userID, map[string]interface{}{
		"badgeKey": def.BadgeKey,
		"xp":       def.XPReward,
		"gems":     def.GemReward,
	})

	if def.ExternalEventEnabled && s.Events != nil {
		eventKey := def.ExternalEventKey
		if eventKey == "" {
			eventKey = "badge." + def.BadgeKey
		}
		go func() {
			if ok := s.Events.Emit(eventKey, map[string]interface{}{
				"userId":   userID,
				"badgeKey": def.BadgeKey,
			}); !ok {
				logger.Log.Warn("badge event emission failed",
					zap.String("badgeKey", def.BadgeKey), zap.Uint("userId", userID))
			}
		}()
	}

	return nil
}

// AwardBadge 管理员手工发放，不做条件判定。已持有时返回false。
func (s *BadgeService) AwardBadge(actorID, userID uint, badgeKey string) (bool, error) {
	def, err := s.BadgeRepo.FindDefinitionByKey(badgeKey)
	if err != nil {
		return false, util.ErrBadgeNotFound
	}

	unlock := s.Locks.Lock(userID)
	defer unlock()

	has, err := s.BadgeRepo.HasBadge(nil, userID, badgeKey)
	if err != nil {
		return false, err
	}
	if has {
		return false, nil
	}

	if err := s.applyAward(userID, def); err != nil {
		return false, err
	}

	s.AuditRepo.Record("badge.manual_award", actorID, map[string]interface{}{
		"userId":   userID,
		"badgeKey": badgeKey,
	})
	return true, nil
}

// RemoveBadge 删除持有记录并回退其统计贡献，统计在SQL层截断不为负。
// 宝石流水只追加，移除徽章不会补写一条负账，审计轨迹不可逆。
func (s *BadgeService) RemoveBadge(actorID, userID uint, badgeKey string) (bool, error) {
	def, err := s.BadgeRepo.FindDefinitionByKey(badgeKey)
	if err != nil {
		return false, util.ErrBadgeNotFound
	}

	unlock := s.Locks.Lock(userID)
	defer unlock()

	has, err := s.BadgeRepo.HasBadge(nil, userID, badgeKey)
	if err != nil {
		return false, err
	}
	if !has {
		return false, nil
	}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		if err := s.BadgeRepo.DeleteUserBadge(tx, userID, badgeKey); err != nil {
			return err
		}
		delta := repository.StatsDelta{XP: -def.XPReward, Gems: -def.GemReward, Badges: -1}
		return s.StatsRepo.ApplyDelta(tx, userID, delta)
	})
	if err != nil {
		return false, err
	}

	s.AuditRepo.Record("badge.removed", actorID, map[string]interface{}{
		"userId":   userID,
		"badgeKey": badgeKey,
	})
	return true, nil
}

func (s *BadgeService) ListUserBadges(userID uint) ([]model.UserBadge, error) {
	return s.BadgeRepo.ListUserBadges(userID)
}

func (s *BadgeService) ListDefinitions() ([]model.BadgeDefinition, error) {
	return s.BadgeRepo.ListDefinitions()
}

func (s *BadgeService) CreateDefinition(def *model.BadgeDefinition) error {
	if def.BadgeKey == "" || def.Name == "" {
		return util.ErrInvalidInput
	}
	return s.BadgeRepo.CreateDefinition(def)
}

func (s *BadgeService) UpdateDefinition(def *model.BadgeDefinition) error {
	existing, err := s.BadgeRepo.FindDefinitionByKey(def.BadgeKey)
	if err != nil {
		return util.ErrBadgeNotFound
	}
	def.ID = existing.ID
	def.CreatedAt = existing.CreatedAt
	return s.BadgeRepo.UpdateDefinition(def)
}
