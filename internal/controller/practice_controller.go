package controller

import (
	"errors"
	"strconv"

	"jazzedu_backend/internal/service"
	"jazzedu_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type PracticeController struct {
	PracticeService *service.PracticeService
	Leaderboard     *service.LeaderboardService
}

func NewPracticeController(practiceService *service.PracticeService, leaderboard *service.LeaderboardService) *PracticeController {
	return &PracticeController{
		PracticeService: practiceService,
		Leaderboard:     leaderboard,
	}
}

type LogSessionRequest struct {
	ItemID              uint   `json:"itemId"`
	DurationMinutes     int    `json:"durationMinutes" binding:"required,min=1"`
	SentimentScore      int    `json:"sentimentScore"`
	ImprovementDetected bool   `json:"improvementDetected"`
	Notes               string `json:"notes"`
}

// @Summary 记录练习
// @Description 记录一次练习，按顺序触发XP、连击和徽章判定
// @Tags 练习
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param request body LogSessionRequest true "练习信息"
// @Success 201 {object} util.Response
// @Router /api/practice/sessions [post]
func (c *PracticeController) LogSession(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req LogSessionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.PracticeService.LogPracticeSession(
		user.UserID, req.ItemID, req.DurationMinutes, req.SentimentScore,
		req.ImprovementDetected, req.Notes)
	if err != nil {
		switch {
		case errors.Is(err, util.ErrUserNotFound), errors.Is(err, util.ErrItemNotFound):
			util.NotFound(ctx)
		case errors.Is(err, util.ErrInvalidInput):
			util.BadRequest(ctx, err.Error())
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}

	// 统计变了，排行榜缓存作废
	c.Leaderboard.InvalidateCache(ctx.Request.Context())

	util.Created(ctx, result)
}

// @Summary 练习历史
// @Tags 练习
// @Produce json
// @Security ApiKeyAuth
// @Param limit query int false "每页数量" default(20)
// @Param offset query int false "偏移" default(0)
// @Success 200 {object} util.Response
// @Router /api/practice/sessions [get]
func (c *PracticeController) GetHistory(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(ctx.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	sessions, total, err := c.PracticeService.GetSessionHistory(user.UserID, limit, offset)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, util.PageResponse{List: sessions, Total: total, Page: offset/limit + 1, Limit: limit})
}

type PracticeItemRequest struct {
	Title    string `json:"title" binding:"required"`
	Category string `json:"category"`
	Archived bool   `json:"archived"`
}

// @Summary 新建练习条目
// @Tags 练习
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param request body PracticeItemRequest true "条目信息"
// @Success 201 {object} util.Response
// @Router /api/practice/items [post]
func (c *PracticeController) CreateItem(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req PracticeItemRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	item, err := c.PracticeService.CreateItem(user.UserID, req.Title, req.Category)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Created(ctx, item)
}

// @Summary 练习条目列表
// @Tags 练习
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response
// @Router /api/practice/items [get]
func (c *PracticeController) ListItems(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	items, err := c.PracticeService.ListItems(user.UserID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, items)
}

// @Summary 更新练习条目
// @Tags 练习
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "条目ID"
// @Param request body PracticeItemRequest true "条目信息"
// @Success 200 {object} util.Response
// @Router /api/practice/items/{id} [put]
func (c *PracticeController) UpdateItem(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	itemID, err := strconv.ParseUint(ctx.Param("id"), 10, 32)
	if err != nil {
		util.BadRequest(ctx, "invalid item id")
		return
	}

	var req PracticeItemRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	item, err := c.PracticeService.UpdateItem(user.UserID, uint(itemID), req.Title, req.Category, req.Archived)
	if err != nil {
		switch {
		case errors.Is(err, util.ErrItemNotFound):
			util.NotFound(ctx)
		case errors.Is(err, util.ErrPermissionDenied):
			util.Forbidden(ctx)
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, item)
}

// @Summary 删除练习条目
// @Tags 练习
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "条目ID"
// @Success 200 {object} util.Response
// @Router /api/practice/items/{id} [delete]
func (c *PracticeController) DeleteItem(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	itemID, err := strconv.ParseUint(ctx.Param("id"), 10, 32)
	if err != nil {
		util.BadRequest(ctx, "invalid item id")
		return
	}

	if err := c.PracticeService.DeleteItem(user.UserID, uint(itemID)); err != nil {
		switch {
		case errors.Is(err, util.ErrItemNotFound):
			util.NotFound(ctx)
		case errors.Is(err, util.ErrPermissionDenied):
			util.Forbidden(ctx)
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, gin.H{"deleted": true})
}
