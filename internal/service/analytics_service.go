package service

import (
	"context"
	"fmt"
	"strings"

	"jazzedu_backend/internal/config"
	"jazzedu_backend/internal/repository"
	"jazzedu_backend/internal/util"
	"jazzedu_backend/pkg/logger"

	"go.uber.org/zap"
)

// AnalyticsService 练习数据汇总和AI教练总结。AI不可用或超时一律
// 落回本地确定性文案，绝不把失败传给调用方。
type AnalyticsService struct {
	PracticeRepo *repository.PracticeRepository
	StatsRepo    *repository.UserStatsRepository
	BadgeRepo    *repository.BadgeRepository
	AI           *AIService
	Cfg          config.AIConfig
}

func NewAnalyticsService(
	practiceRepo *repository.PracticeRepository,
	statsRepo *repository.UserStatsRepository,
	badgeRepo *repository.BadgeRepository,
	ai *AIService,
	cfg config.AIConfig,
) *AnalyticsService {
	return &AnalyticsService{
		PracticeRepo: practiceRepo,
		StatsRepo:    statsRepo,
		BadgeRepo:    badgeRepo,
		AI:           ai,
		Cfg:          cfg,
	}
}

type PracticeSummary struct {
	TotalSessions   int    `json:"totalSessions"`
	TotalMinutes    int    `json:"totalMinutes"`
	TotalXP         int    `json:"totalXp"`
	CurrentLevel    int    `json:"currentLevel"`
	CurrentStreak   int    `json:"currentStreak"`
	LongestStreak   int    `json:"longestStreak"`
	BadgesEarned    int    `json:"badgesEarned"`
	GemsBalance     int    `json:"gemsBalance"`
	CoachingSummary string `json:"coachingSummary"`
}

func (s *AnalyticsService) GetPracticeSummary(ctx context.Context, userID uint) (*PracticeSummary, error) {
	stats, err := s.StatsRepo.FindByUserID(userID)
	if err != nil {
		return nil, util.ErrUserNotFound
	}

	summary := &PracticeSummary{
		TotalSessions: stats.TotalSessions,
		TotalMinutes:  stats.TotalMinutes,
		TotalXP:       stats.TotalXP,
		CurrentLevel:  stats.CurrentLevel,
		CurrentStreak: stats.CurrentStreak,
		LongestStreak: stats.LongestStreak,
		BadgesEarned:  stats.BadgesEarned,
		GemsBalance:   stats.GemsBalance,
	}
	summary.CoachingSummary = s.coachingSummary(ctx, summary)
	return summary, nil
}

func (s *AnalyticsService) coachingSummary(ctx context.Context, summary *PracticeSummary) string {
	fallback := localCoachingSummary(summary)
	if s.AI == nil {
		return fallback
	}

	prompt := fmt.Sprintf(
		"The student has logged %d practice sessions totalling %d minutes, earned %d XP (level %d), holds a %d-day streak (longest %d) and %d badges.",
		summary.TotalSessions, summary.TotalMinutes, summary.TotalXP,
		summary.CurrentLevel, summary.CurrentStreak, summary.LongestStreak, summary.BadgesEarned,
	)

	text, err := s.AI.Complete(ctx, s.Cfg.SystemPrompt, prompt, 0.7)
	if err != nil {
		logger.Log.Warn("AI coaching summary unavailable, using local fallback", zap.Error(err))
		return fallback
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return fallback
	}
	return text
}

// localCoachingSummary 确定性的兜底文案，相同输入产出相同文本
func localCoachingSummary(s *PracticeSummary) string {
	if s.TotalSessions == 0 {
		return "No practice logged yet. Pick one focus, set a timer for 20 minutes, and get started."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You have logged %d sessions and %d minutes of practice, reaching level %d.",
		s.TotalSessions, s.TotalMinutes, s.CurrentLevel)
	if s.CurrentStreak > 1 {
		fmt.Fprintf(&b, " Your %d-day streak is alive, keep it going today.", s.CurrentStreak)
	} else {
		b.WriteString(" Practice today to start a new streak.")
	}
	return b.String()
}
