package service

import (
	"time"

	"jazzedu_backend/internal/config"
	"jazzedu_backend/internal/model"
	"jazzedu_backend/internal/repository"
	"jazzedu_backend/internal/util"
	"jazzedu_backend/pkg/logger"
	"jazzedu_backend/pkg/monitoring"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PracticeService 练习记录及其连带效应。一次记录固定按
// XP入账 → 连击更新 → 徽章判定 的顺序执行，徽章条件必须能看到
// 本次会话带来的最新XP和连击。
type PracticeService struct {
	PracticeRepo *repository.PracticeRepository
	StatsRepo    *repository.UserStatsRepository
	UserRepo     *repository.UserRepository
	Badge        *BadgeService
	Locks        *util.KeyedMutex
	Cfg          config.GamificationConfig
	DB           *gorm.DB

	location *time.Location
	now      func() time.Time
}

func NewPracticeService(
	practiceRepo *repository.PracticeRepository,
	statsRepo *repository.UserStatsRepository,
	userRepo *repository.UserRepository,
	badge *BadgeService,
	locks *util.KeyedMutex,
	cfg config.GamificationConfig,
	db *gorm.DB,
) *PracticeService {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Log.Warn("invalid practice timezone, falling back to UTC",
			zap.String("timezone", cfg.Timezone), zap.Error(err))
		loc = time.UTC
	}
	return &PracticeService{
		PracticeRepo: practiceRepo,
		StatsRepo:    statsRepo,
		UserRepo:     userRepo,
		Badge:        badge,
		Locks:        locks,
		Cfg:          cfg,
		DB:           db,
		location:     loc,
		now:          time.Now,
	}
}

type SessionResult struct {
	SessionID     uint     `json:"sessionId"`
	XPEarned      int      `json:"xpEarned"`
	CurrentStreak int      `json:"currentStreak"`
	AwardedBadges []string `json:"awardedBadges"`
}

// sessionXP 确定性的会话XP规则：分钟数（封顶）+ 情绪权重 + 进步加成
func (s *PracticeService) sessionXP(durationMinutes, sentiment int, improved bool) int {
	minutes := durationMinutes
	if minutes > s.Cfg.SessionXPCapMinutes {
		minutes = s.Cfg.SessionXPCapMinutes
	}
	xp := minutes + sentiment*s.Cfg.SentimentXPWeight
	if improved {
		xp += s.Cfg.ImprovementBonusXP
	}
	return xp
}

// nextStreak 连击转移：同一天不变，昨天+1，断档归1。天的边界按配置时区算。
func nextStreak(stats *model.UserStats, now time.Time, loc *time.Location) (int, int) {
	current := stats.CurrentStreak

	if stats.LastPracticeDate == nil {
		current = 1
	} else {
		last := stats.LastPracticeDate.In(loc)
		today := now.In(loc)
		lastDay := time.Date(last.Year(), last.Month(), last.Day(), 0, 0, 0, 0, loc)
		thisDay := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, loc)

		switch int(thisDay.Sub(lastDay).Hours() / 24) {
		case 0:
			// 同一天再练不加连击
		case 1:
			current++
		default:
			current = 1
		}
	}

	longest := stats.LongestStreak
	if current > longest {
		longest = current
	}
	return current, longest
}

// LogPracticeSession 持久化会话并依次触发XP、连击、徽章判定。
// 情绪分越界时截断到[1,5]而不是拒绝。
func (s *PracticeService) LogPracticeSession(userID, itemID uint, durationMinutes, sentimentScore int, improvementDetected bool, notes string) (*SessionResult, error) {
	exists, err := s.UserRepo.Exists(userID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, util.ErrUserNotFound
	}
	if durationMinutes <= 0 {
		return nil, util.ErrInvalidInput
	}
	if itemID != 0 {
		if _, err := s.PracticeRepo.FindItemByID(itemID); err != nil {
			return nil, util.ErrItemNotFound
		}
	}

	if sentimentScore < 1 {
		sentimentScore = 1
	}
	if sentimentScore > 5 {
		sentimentScore = 5
	}

	unlock := s.Locks.Lock(userID)
	defer unlock()

	now := s.now()
	xp := s.sessionXP(durationMinutes, sentimentScore, improvementDetected)
	result := &SessionResult{XPEarned: xp}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		session := model.PracticeSession{
			UserID:              userID,
			ItemID:              itemID,
			DurationMinutes:     durationMinutes,
			SentimentScore:      sentimentScore,
			ImprovementDetected: improvementDetected,
			Notes:               notes,
			XPEarned:            xp,
			PracticedAt:         now,
		}
		if err := s.PracticeRepo.CreateSession(tx, &session); err != nil {
			return err
		}
		result.SessionID = session.ID

		stats, err := s.StatsRepo.GetOrCreate(tx, userID)
		if err != nil {
			return err
		}

		delta := repository.StatsDelta{XP: xp, Sessions: 1, Minutes: durationMinutes}
		if err := s.StatsRepo.ApplyDelta(tx, userID, delta); err != nil {
			return err
		}

		current, longest := nextStreak(stats, now, s.location)
		result.CurrentStreak = current
		return s.StatsRepo.UpdateStreak(tx, userID, current, longest, now)
	})
	if err != nil {
		return nil, err
	}

	monitoring.SessionsLogged.Inc()

	// 锁已持有，走免锁入口；徽章判定失败不回滚会话
	awarded, err := s.Badge.checkAndAwardLocked(userID)
	if err != nil {
		logger.Log.Error("badge check after session failed",
			zap.Uint("userId", userID), zap.Error(err))
	}
	result.AwardedBadges = awarded

	return result, nil
}

func (s *PracticeService) GetSessionHistory(userID uint, limit, offset int) ([]model.PracticeSession, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.PracticeRepo.ListSessionsByUser(userID, limit, offset)
}

func (s *PracticeService) CreateItem(userID uint, title, category string) (*model.PracticeItem, error) {
	if title == "" {
		return nil, util.ErrInvalidInput
	}
	item := &model.PracticeItem{UserID: userID, Title: title, Category: category}
	if err := s.PracticeRepo.CreateItem(item); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *PracticeService) ListItems(userID uint) ([]model.PracticeItem, error) {
	return s.PracticeRepo.ListItemsByUser(userID)
}

func (s *PracticeService) UpdateItem(userID, itemID uint, title, category string, archived bool) (*model.PracticeItem, error) {
	item, err := s.PracticeRepo.FindItemByID(itemID)
	if err != nil {
		return nil, util.ErrItemNotFound
	}
	if item.UserID != userID {
		return nil, util.ErrPermissionDenied
	}
	if title != "" {
		item.Title = title
	}
	if category != "" {
		item.Category = category
	}
	item.Archived = archived
	if err := s.PracticeRepo.UpdateItem(item); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *PracticeService) DeleteItem(userID, itemID uint) error {
	item, err := s.PracticeRepo.FindItemByID(itemID)
	if err != nil {
		return util.ErrItemNotFound
	}
	if item.UserID != userID {
		return util.ErrPermissionDenied
	}
	return s.PracticeRepo.DeleteItem(itemID)
}
