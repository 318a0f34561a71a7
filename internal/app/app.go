package app

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"jazzedu_backend/internal/config"
	"jazzedu_backend/internal/controller"
	"jazzedu_backend/internal/repository"
	"jazzedu_backend/internal/service"
	"jazzedu_backend/internal/util"
	"jazzedu_backend/pkg/database"
	"jazzedu_backend/pkg/logger"
	"jazzedu_backend/pkg/monitoring"
	"jazzedu_backend/pkg/security"
	"jazzedu_backend/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config *config.Config
	Router *gin.Engine
	DB     *gorm.DB
	Redis  *redis.Client
}

type repositories struct {
	user       *repository.UserRepository
	stats      *repository.UserStatsRepository
	curriculum *repository.CurriculumRepository
	progress   *repository.ProgressRepository
	assignment *repository.AssignmentRepository
	badge      *repository.BadgeRepository
	practice   *repository.PracticeRepository
	milestone  *repository.MilestoneRepository
	ledger     *repository.LedgerRepository
	audit      *repository.AuditRepository
}

type services struct {
	auth        *service.AuthService
	storage     *service.StorageService
	curriculum  *service.CurriculumService
	badge       *service.BadgeService
	practice    *service.PracticeService
	leaderboard *service.LeaderboardService
	milestone   *service.MilestoneService
	analytics   *service.AnalyticsService
	user        *service.UserService
	ai          *service.AIService
}

type controllers struct {
	auth        *controller.AuthController
	curriculum  *controller.CurriculumController
	badge       *controller.BadgeController
	practice    *controller.PracticeController
	leaderboard *controller.LeaderboardController
	milestone   *controller.MilestoneController
	analytics   *controller.AnalyticsController
	user        *controller.UserController
	health      *controller.HealthController
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:       repository.NewUserRepository(db),
		stats:      repository.NewUserStatsRepository(db),
		curriculum: repository.NewCurriculumRepository(db),
		progress:   repository.NewProgressRepository(db),
		assignment: repository.NewAssignmentRepository(db),
		badge:      repository.NewBadgeRepository(db),
		practice:   repository.NewPracticeRepository(db),
		milestone:  repository.NewMilestoneRepository(db),
		ledger:     repository.NewLedgerRepository(db),
		audit:      repository.NewAuditRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, db *gorm.DB, rdb *redis.Client) *services {
	s := &services{}

	// 同一用户的所有游戏化写入走同一把锁，三个服务必须共享
	locks := util.NewKeyedMutex()

	var events service.EventEmitter = service.NoopEmitter{}
	if cfg.Events.WebhookURL != "" {
		events = service.NewWebhookEmitter(cfg.Events)
	}

	s.storage = service.NewStorageService(cfg)
	s.auth = service.NewAuthService(repos.user, cfg)
	s.ai = service.NewAIService(cfg.AI)

	s.badge = service.NewBadgeService(repos.badge, repos.stats, repos.ledger, repos.audit, events, locks, db)
	s.curriculum = service.NewCurriculumService(
		repos.curriculum,
		repos.progress,
		repos.assignment,
		repos.stats,
		repos.user,
		repos.ledger,
		repos.audit,
		locks,
		cfg.Gamification,
		db,
	)
	s.practice = service.NewPracticeService(repos.practice, repos.stats, repos.user, s.badge, locks, cfg.Gamification, db)

	var cache service.Cache
	if rdb != nil {
		cache = service.NewRedisCache(rdb)
	}
	ttl := time.Duration(cfg.Leaderboard.CacheTTLMinutes) * time.Minute
	s.leaderboard = service.NewLeaderboardService(repos.stats, cache, ttl)

	s.milestone = service.NewMilestoneService(repos.milestone, repos.curriculum, repos.audit, s.storage)
	s.analytics = service.NewAnalyticsService(repos.practice, repos.stats, repos.badge, s.ai, cfg.AI)
	s.user = service.NewUserService(repos.user, repos.stats, repos.badge, repos.ledger)

	return s
}

func (a *App) initControllers(s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		auth:        controller.NewAuthController(s.auth),
		curriculum:  controller.NewCurriculumController(s.curriculum, s.leaderboard),
		badge:       controller.NewBadgeController(s.badge, s.leaderboard),
		practice:    controller.NewPracticeController(s.practice, s.leaderboard),
		leaderboard: controller.NewLeaderboardController(s.leaderboard),
		milestone:   controller.NewMilestoneController(s.milestone),
		analytics:   controller.NewAnalyticsController(s.analytics),
		user:        controller.NewUserController(s.user),
		health:      controller.NewHealthController(db, rdb),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())
	router.Use(security.RateLimiter(cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute))

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)

	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		// Redis只承载缓存和限流，连不上时降级运行
		logger.Log.Warn("Redis unavailable, cache and per-user rate limiting disabled", zap.Error(err))
		rdb = nil
	}

	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
	}

	repos := app.initRepositories(db)
	services := app.initServices(repos, cfg, db, rdb)
	controllers := app.initControllers(services, db, rdb)

	// 监控初始化
	monitoring.Init()

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	app.Router = router

	app.setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		if _, err := tracing.InitTracer("jazzedu-backend", cfg.Tracing.CollectorEndpoint); err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
	}

	app.registerRoutes(router, controllers, repos, cfg)

	if cfg.Storage.Type == "local" {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	// 启动服务器
	go func() {
		log.Printf("Server running on port %s", a.Config.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}
