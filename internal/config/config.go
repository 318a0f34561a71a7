package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	JWT          JWTConfig
	Storage      StorageConfig
	Tracing      TracingConfig `mapstructure:"tracing"`
	Redis        RedisConfig
	AI           AIConfig
	CORS         CORSConfig         `mapstructure:"cors"`
	RateLimit    RateLimitConfig    `mapstructure:"rate_limit"`
	Gamification GamificationConfig `mapstructure:"gamification"`
	Events       EventsConfig       `mapstructure:"events"`
	Leaderboard  LeaderboardConfig  `mapstructure:"leaderboard"`

	// 运行时标志（非配置文件，通过命令行参数设置）
	ForceMigrate bool `mapstructure:"-"`
	MigrateOnly  bool `mapstructure:"-"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type RateLimitConfig struct {
	MaxRequests   int `mapstructure:"max_requests"`
	WindowMinutes int `mapstructure:"window_minutes"`
	// 按 (route, user) 的细粒度限流，基于Redis计数器
	UserMaxRequests   int `mapstructure:"user_max_requests"`
	UserWindowSeconds int `mapstructure:"user_window_seconds"`
}

type AIConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	APIKey         string `mapstructure:"api_key"`
	Model          string `mapstructure:"model"`
	MaxTokens      int    `mapstructure:"max_tokens"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	SystemPrompt   string `mapstructure:"system_prompt"`
}

// GamificationConfig XP/宝石/连击的全部发放策略。规则必须是确定性的，
// 相同输入永远得到相同奖励。
type GamificationConfig struct {
	KeyXP               int    `mapstructure:"key_xp"`                // 每完成一个调
	KeyGems             int    `mapstructure:"key_gems"`              // 每完成一个调
	FocusBonusXP        int    `mapstructure:"focus_bonus_xp"`        // 12/12完成时追加
	FocusBonusGems      int    `mapstructure:"focus_bonus_gems"`      // 12/12完成时追加
	SessionXPCapMinutes int    `mapstructure:"session_xp_cap_minutes"`
	SentimentXPWeight   int    `mapstructure:"sentiment_xp_weight"`
	ImprovementBonusXP  int    `mapstructure:"improvement_bonus_xp"`
	Timezone            string `mapstructure:"timezone"` // 连击判定"昨天/今天"的时区
}

type EventsConfig struct {
	WebhookURL     string `mapstructure:"webhook_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

type LeaderboardConfig struct {
	CacheTTLMinutes int `mapstructure:"cache_ttl_minutes"`
}

type ServerConfig struct {
	Port string
	Mode string
}

type DatabaseConfig struct {
	Host      string
	Port      int
	User      string
	Password  string
	DBName    string
	Charset   string
	ParseTime bool
}

type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	ExpireTime time.Duration `mapstructure:"expire_hours"`
}

type StorageConfig struct {
	Type          string `mapstructure:"type"`
	LocalPath     string `mapstructure:"local_path"`
	MinioEndpoint string `mapstructure:"minio_endpoint"`
	MinioAccessID string `mapstructure:"minio_access_key"`
	MinioSecret   string `mapstructure:"minio_secret_key"`
	MinioBucket   string `mapstructure:"minio_bucket"`
}

type TracingConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	CollectorEndpoint string `mapstructure:"collector_endpoint"`
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

func LoadConfig(path string) (*Config, error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetEnvPrefix("JAZZEDU")
	viper.AutomaticEnv()

	// Database
	viper.BindEnv("database.host", "DATABASE_HOST")
	viper.BindEnv("database.port", "DATABASE_PORT")
	viper.BindEnv("database.user", "DATABASE_USER")
	viper.BindEnv("database.password", "DATABASE_PASSWORD")
	viper.BindEnv("database.dbname", "DATABASE_NAME")

	// JWT
	viper.BindEnv("jwt.secret", "JWT_SECRET")

	// Redis
	viper.BindEnv("redis.host", "REDIS_HOST")
	viper.BindEnv("redis.port", "REDIS_PORT")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")

	// Server
	viper.BindEnv("server.mode", "SERVER_MODE")

	// AI
	viper.BindEnv("ai.base_url", "AI_BASE_URL")
	viper.BindEnv("ai.api_key", "AI_API_KEY")
	viper.BindEnv("ai.model", "AI_MODEL")

	// Storage / MinIO
	viper.BindEnv("storage.type", "STORAGE_TYPE")
	viper.BindEnv("storage.minio_endpoint", "MINIO_ENDPOINT")
	viper.BindEnv("storage.minio_access_key", "MINIO_ACCESS_KEY")
	viper.BindEnv("storage.minio_secret_key", "MINIO_SECRET_KEY")
	viper.BindEnv("storage.minio_bucket", "MINIO_BUCKET")

	// Tracing
	viper.BindEnv("tracing.enabled", "TRACING_ENABLED")
	viper.BindEnv("tracing.collector_endpoint", "TRACING_COLLECTOR_ENDPOINT")

	// Events
	viper.BindEnv("events.webhook_url", "EVENTS_WEBHOOK_URL")

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	cfg.JWT.ExpireTime = cfg.JWT.ExpireTime * time.Hour
	applyGamificationDefaults(&cfg.Gamification)

	if cfg.AI.TimeoutSeconds <= 0 {
		cfg.AI.TimeoutSeconds = 10
	}
	if cfg.AI.MaxTokens <= 0 {
		cfg.AI.MaxTokens = 400
	}
	if cfg.Events.TimeoutSeconds <= 0 {
		cfg.Events.TimeoutSeconds = 5
	}
	if cfg.Leaderboard.CacheTTLMinutes <= 0 {
		cfg.Leaderboard.CacheTTLMinutes = 5
	}

	// 生产环境校验 JWT Secret 强度
	if cfg.Server.Mode == "release" && len(cfg.JWT.Secret) < 32 {
		return nil, fmt.Errorf("JWT secret is too short (%d chars), must be at least 32 characters in release mode", len(cfg.JWT.Secret))
	}

	if cfg.Storage.Type == "local" {
		if _, err := os.Stat(cfg.Storage.LocalPath); os.IsNotExist(err) {
			os.MkdirAll(cfg.Storage.LocalPath, 0755)
		}
	}

	return &cfg, nil
}

func applyGamificationDefaults(g *GamificationConfig) {
	if g.KeyXP <= 0 {
		g.KeyXP = 25
	}
	if g.KeyGems <= 0 {
		g.KeyGems = 5
	}
	if g.FocusBonusXP <= 0 {
		g.FocusBonusXP = 100
	}
	if g.FocusBonusGems <= 0 {
		g.FocusBonusGems = 25
	}
	if g.SessionXPCapMinutes <= 0 {
		g.SessionXPCapMinutes = 60
	}
	if g.SentimentXPWeight <= 0 {
		g.SentimentXPWeight = 2
	}
	if g.ImprovementBonusXP <= 0 {
		g.ImprovementBonusXP = 10
	}
	if g.Timezone == "" {
		g.Timezone = "America/New_York"
	}
}
