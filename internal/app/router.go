package app

import (
	"jazzedu_backend/docs"
	"jazzedu_backend/internal/config"
	"jazzedu_backend/internal/middleware"
	"jazzedu_backend/internal/model"

	"jazzedu_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, repos *repositories, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	a.registerPublicRoutes(router, c)

	// 2. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(
		middleware.AuthMiddleware(cfg),
		middleware.ActivityMiddleware(repos.user),
		middleware.UserRateLimiter(a.Redis, cfg.RateLimit),
	)
	{
		a.registerStudentRoutes(authGroup, c)
		a.registerTeacherRoutes(authGroup, c)
		a.registerAdminRoutes(authGroup, c)
	}
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)

		// 课程目录本身是公开内容
		public.GET("/curriculum/focuses", c.curriculum.ListFocuses)
		public.GET("/curriculum/focuses/:id/steps", c.curriculum.ListSteps)
	}
}

func (a *App) registerStudentRoutes(rg *gin.RouterGroup, c *controllers) {
	rg.GET("/users/profile", c.user.GetProfile)
	rg.GET("/users/gems", c.user.GetGemHistory)

	// 课程进度
	rg.POST("/curriculum/complete", c.curriculum.MarkStepComplete)
	rg.GET("/curriculum/progress/:focusId", c.curriculum.GetProgress)
	rg.GET("/curriculum/assignment", c.curriculum.GetAssignment)
	rg.POST("/curriculum/fix-my-progress", c.curriculum.FixMyProgress)

	// 练习
	rg.POST("/practice/sessions", c.practice.LogSession)
	rg.GET("/practice/sessions", c.practice.GetHistory)
	rg.POST("/practice/items", c.practice.CreateItem)
	rg.GET("/practice/items", c.practice.ListItems)
	rg.PUT("/practice/items/:id", c.practice.UpdateItem)
	rg.DELETE("/practice/items/:id", c.practice.DeleteItem)

	// 徽章
	rg.GET("/badges/mine", c.badge.GetMyBadges)
	rg.POST("/badges/check", c.badge.CheckBadges)

	// 排行榜与分析
	rg.GET("/leaderboard", c.leaderboard.GetLeaderboard)
	rg.GET("/analytics/summary", c.analytics.GetSummary)

	// 里程碑
	rg.POST("/milestones", c.milestone.Submit)
	rg.GET("/milestones", c.milestone.ListMine)
}

func (a *App) registerTeacherRoutes(rg *gin.RouterGroup, c *controllers) {
	teacher := rg.Group("")
	teacher.Use(middleware.RoleMiddleware(model.Teacher))
	{
		teacher.GET("/milestones/ungraded", c.milestone.ListUngraded)
		teacher.PUT("/milestones/:id/grade", c.milestone.Grade)
	}
}

func (a *App) registerAdminRoutes(rg *gin.RouterGroup, c *controllers) {
	admin := rg.Group("/admin")
	admin.Use(middleware.RoleMiddleware(model.Admin))
	{
		// 进度诊断与修复
		admin.GET("/curriculum/analyze", c.curriculum.AnalyzeProgress)
		admin.POST("/curriculum/fix", c.curriculum.FixAssignments)
		admin.POST("/curriculum/fix-student", c.curriculum.FixStudent)

		// 徽章管理
		admin.GET("/badges", c.badge.ListDefinitions)
		admin.POST("/badges", c.badge.CreateDefinition)
		admin.PUT("/badges", c.badge.UpdateDefinition)
		admin.POST("/badges/award", c.badge.AwardBadge)
		admin.POST("/badges/remove", c.badge.RemoveBadge)
	}
}
