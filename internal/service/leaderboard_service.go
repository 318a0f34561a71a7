package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"jazzedu_backend/internal/repository"
	"jazzedu_backend/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// Cache 排行榜用的键值缓存能力接口
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Invalidate(ctx context.Context, pattern string) error
}

// RedisCache Cache 的Redis实现
type RedisCache struct {
	Client *redis.Client
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{Client: client}
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := c.Client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	return c.Client.Set(ctx, key, value, ttl).Err()
}

func (c *RedisCache) Invalidate(ctx context.Context, pattern string) error {
	keys, err := c.Client.Keys(ctx, pattern).Result()
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.Client.Del(ctx, keys...).Err()
}

const leaderboardKeyPrefix = "leaderboard:"

// 允许的排序列是封闭集合，防止把请求参数拼进ORDER BY
var leaderboardSortColumns = map[string]string{
	"xp":       "total_xp",
	"level":    "current_level",
	"streak":   "current_streak",
	"badges":   "badges_earned",
	"sessions": "total_sessions",
}

type LeaderboardEntry struct {
	Rank          int    `json:"rank"`
	UserID        uint   `json:"userId"`
	Name          string `json:"name"`
	TotalXP       int    `json:"totalXp"`
	CurrentLevel  int    `json:"currentLevel"`
	CurrentStreak int    `json:"currentStreak"`
	BadgesEarned  int    `json:"badgesEarned"`
	TotalSessions int    `json:"totalSessions"`
}

// LeaderboardService 缓存优先的排行榜：查缓存 → 未命中查库 → 回填，
// 缓存键带全部排序/分页参数。缓存故障时降级为直查，不报错。
type LeaderboardService struct {
	StatsRepo *repository.UserStatsRepository
	Cache     Cache
	TTL       time.Duration
}

func NewLeaderboardService(statsRepo *repository.UserStatsRepository, cache Cache, ttl time.Duration) *LeaderboardService {
	return &LeaderboardService{
		StatsRepo: statsRepo,
		Cache:     cache,
		TTL:       ttl,
	}
}

func (s *LeaderboardService) GetLeaderboard(ctx context.Context, limit, offset int, sortBy, sortOrder string) ([]LeaderboardEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}
	column, ok := leaderboardSortColumns[sortBy]
	if !ok {
		column = "total_xp"
		sortBy = "xp"
	}
	if sortOrder != "asc" {
		sortOrder = "desc"
	}

	cacheKey := fmt.Sprintf("%s%s:%s:%d:%d", leaderboardKeyPrefix, sortBy, sortOrder, limit, offset)

	if s.Cache != nil {
		if cached, hit, err := s.Cache.Get(ctx, cacheKey); err == nil && hit {
			var entries []LeaderboardEntry
			if err := json.Unmarshal([]byte(cached), &entries); err == nil {
				return entries, nil
			}
		} else if err != nil {
			logger.Log.Warn("leaderboard cache read failed", zap.Error(err))
		}
	}

	rows, err := s.StatsRepo.FindTopByXP(limit, offset, column, sortOrder)
	if err != nil {
		return nil, err
	}

	entries := make([]LeaderboardEntry, len(rows))
	for i, row := range rows {
		entries[i] = LeaderboardEntry{
			Rank:          offset + i + 1,
			UserID:        row.UserID,
			Name:          row.Name,
			TotalXP:       row.TotalXP,
			CurrentLevel:  row.CurrentLevel,
			CurrentStreak: row.CurrentStreak,
			BadgesEarned:  row.BadgesEarned,
			TotalSessions: row.TotalSessions,
		}
	}

	if s.Cache != nil {
		if raw, err := json.Marshal(entries); err == nil {
			if err := s.Cache.Set(ctx, cacheKey, string(raw), s.TTL); err != nil {
				logger.Log.Warn("leaderboard cache write failed", zap.Error(err))
			}
		}
	}

	return entries, nil
}

// InvalidateCache 统计有写入后调用，清掉全部排行榜键
func (s *LeaderboardService) InvalidateCache(ctx context.Context) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.Invalidate(ctx, leaderboardKeyPrefix+"*"); err != nil {
		logger.Log.Warn("leaderboard cache invalidation failed", zap.Error(err))
	}
}
