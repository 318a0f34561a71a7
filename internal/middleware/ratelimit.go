package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"jazzedu_backend/internal/config"
	"jazzedu_backend/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
)

// UserRateLimiter 按 (路由, 用户) 的细粒度限流，Redis计数器加TTL窗口。
// 未登录请求退回按IP计数。Redis不可用时放行，限流只是保护不是门禁。
func UserRateLimiter(rdb *redis.Client, cfg config.RateLimitConfig) gin.HandlerFunc {
	maxRequests := cfg.UserMaxRequests
	if maxRequests <= 0 {
		maxRequests = 60
	}
	window := time.Duration(cfg.UserWindowSeconds) * time.Second
	if window <= 0 {
		window = time.Minute
	}

	return func(c *gin.Context) {
		if rdb == nil {
			c.Next()
			return
		}

		subject := c.ClientIP()
		if claims := util.GetUserFromContext(c); claims != nil {
			subject = fmt.Sprintf("u:%d", claims.UserID)
		}
		key := fmt.Sprintf("ratelimit:%s:%s", c.FullPath(), subject)

		ctx := c.Request.Context()
		count, err := rdb.Incr(ctx, key).Result()
		if err != nil {
			c.Next()
			return
		}
		if count == 1 {
			rdb.Expire(ctx, key, window)
		}

		if count > int64(maxRequests) {
			ttl, err := rdb.TTL(ctx, key).Result()
			retryAfter := int(window.Seconds())
			if err == nil && ttl > 0 {
				retryAfter = int(ttl.Seconds())
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}

		c.Next()
	}
}
