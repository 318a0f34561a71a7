package controller

import (
	"errors"

	"jazzedu_backend/internal/model"
	"jazzedu_backend/internal/service"
	"jazzedu_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type BadgeController struct {
	BadgeService *service.BadgeService
	Leaderboard  *service.LeaderboardService
}

func NewBadgeController(badgeService *service.BadgeService, leaderboard *service.LeaderboardService) *BadgeController {
	return &BadgeController{
		BadgeService: badgeService,
		Leaderboard:  leaderboard,
	}
}

// @Summary 我的徽章
// @Tags 徽章
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response
// @Router /api/badges/mine [get]
func (c *BadgeController) GetMyBadges(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	badges, err := c.BadgeService.ListUserBadges(user.UserID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, badges)
}

// @Summary 触发徽章判定
// @Description 对当前用户重新评估全部徽章条件，返回新发放的徽章
// @Tags 徽章
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response
// @Router /api/badges/check [post]
func (c *BadgeController) CheckBadges(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	awarded, err := c.BadgeService.CheckAndAwardBadges(user.UserID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	if len(awarded) > 0 {
		c.Leaderboard.InvalidateCache(ctx.Request.Context())
	}
	util.Success(ctx, gin.H{"awarded": awarded})
}

// @Summary 徽章定义列表
// @Tags 徽章管理
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response
// @Router /api/admin/badges [get]
func (c *BadgeController) ListDefinitions(ctx *gin.Context) {
	defs, err := c.BadgeService.ListDefinitions()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, defs)
}

// @Summary 新建徽章定义
// @Tags 徽章管理
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param request body model.BadgeDefinition true "徽章定义"
// @Success 201 {object} util.Response
// @Router /api/admin/badges [post]
func (c *BadgeController) CreateDefinition(ctx *gin.Context) {
	var def model.BadgeDefinition
	if err := ctx.ShouldBindJSON(&def); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if err := c.BadgeService.CreateDefinition(&def); err != nil {
		if errors.Is(err, util.ErrInvalidInput) {
			util.BadRequest(ctx, err.Error())
			return
		}
		util.LogInternalError(ctx, err)
		return
	}
	util.Created(ctx, def)
}

// @Summary 更新徽章定义
// @Tags 徽章管理
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param request body model.BadgeDefinition true "徽章定义"
// @Success 200 {object} util.Response
// @Router /api/admin/badges [put]
func (c *BadgeController) UpdateDefinition(ctx *gin.Context) {
	var def model.BadgeDefinition
	if err := ctx.ShouldBindJSON(&def); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if err := c.BadgeService.UpdateDefinition(&def); err != nil {
		if errors.Is(err, util.ErrBadgeNotFound) {
			util.NotFound(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, def)
}

type BadgeGrantRequest struct {
	UserID   uint   `json:"userId" binding:"required"`
	BadgeKey string `json:"badgeKey" binding:"required"`
}

// @Summary 手工发放徽章
// @Tags 徽章管理
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param request body BadgeGrantRequest true "发放对象"
// @Success 200 {object} util.Response
// @Router /api/admin/badges/award [post]
func (c *BadgeController) AwardBadge(ctx *gin.Context) {
	actor := util.GetUserFromContext(ctx)
	if actor == nil {
		util.Unauthorized(ctx)
		return
	}

	var req BadgeGrantRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	granted, err := c.BadgeService.AwardBadge(actor.UserID, req.UserID, req.BadgeKey)
	if err != nil {
		if errors.Is(err, util.ErrBadgeNotFound) {
			util.NotFound(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}
	if granted {
		c.Leaderboard.InvalidateCache(ctx.Request.Context())
	}
	util.Success(ctx, gin.H{"granted": granted})
}

// @Summary 移除徽章
// @Description 删除持有记录并回退其统计贡献，统计不会变成负数
// @Tags 徽章管理
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param request body BadgeGrantRequest true "移除对象"
// @Success 200 {object} util.Response
// @Router /api/admin/badges/remove [post]
func (c *BadgeController) RemoveBadge(ctx *gin.Context) {
	actor := util.GetUserFromContext(ctx)
	if actor == nil {
		util.Unauthorized(ctx)
		return
	}

	var req BadgeGrantRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	removed, err := c.BadgeService.RemoveBadge(actor.UserID, req.UserID, req.BadgeKey)
	if err != nil {
		if errors.Is(err, util.ErrBadgeNotFound) {
			util.NotFound(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}
	if removed {
		c.Leaderboard.InvalidateCache(ctx.Request.Context())
	}
	util.Success(ctx, gin.H{"removed": removed})
}
