package controller

import (
	"errors"
	"strconv"

	"jazzedu_backend/internal/service"
	"jazzedu_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type CurriculumController struct {
	CurriculumService *service.CurriculumService
	Leaderboard       *service.LeaderboardService
}

func NewCurriculumController(curriculumService *service.CurriculumService, leaderboard *service.LeaderboardService) *CurriculumController {
	return &CurriculumController{
		CurriculumService: curriculumService,
		Leaderboard:       leaderboard,
	}
}

type MarkStepCompleteRequest struct {
	StepID  uint `json:"stepId" binding:"required"`
	FocusID uint `json:"focusId" binding:"required"`
}

// @Summary 标记步骤完成
// @Description 记录当前用户完成某个调，12/12时自动推进到下一个Focus
// @Tags 课程
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param request body MarkStepCompleteRequest true "步骤信息"
// @Success 200 {object} util.Response
// @Router /api/curriculum/complete [post]
func (c *CurriculumController) MarkStepComplete(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req MarkStepCompleteRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.CurriculumService.MarkStepComplete(user.UserID, req.StepID, req.FocusID)
	if err != nil {
		switch {
		case errors.Is(err, util.ErrFocusNotFound), errors.Is(err, util.ErrStepNotFound), errors.Is(err, util.ErrUserNotFound):
			util.NotFound(ctx)
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}

	// 完成调会动XP，排行榜缓存作废
	c.Leaderboard.InvalidateCache(ctx.Request.Context())

	util.Success(ctx, result)
}

// @Summary 获取进度
// @Description 当前用户在某个Focus下的12调完成情况
// @Tags 课程
// @Produce json
// @Security ApiKeyAuth
// @Param focusId path int true "Focus ID"
// @Success 200 {object} util.Response
// @Router /api/curriculum/progress/{focusId} [get]
func (c *CurriculumController) GetProgress(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	focusID, err := strconv.ParseUint(ctx.Param("focusId"), 10, 32)
	if err != nil {
		util.BadRequest(ctx, "invalid focus id")
		return
	}

	record, err := c.CurriculumService.GetUserProgress(user.UserID, uint(focusID))
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, record)
}

// @Summary 当前位置
// @Description 当前用户的active课程指针
// @Tags 课程
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response
// @Router /api/curriculum/assignment [get]
func (c *CurriculumController) GetAssignment(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	assignment, err := c.CurriculumService.GetCurrentAssignment(user.UserID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, assignment)
}

// @Summary 课程目录
// @Description 全部Focus，按顺序
// @Tags 课程
// @Produce json
// @Success 200 {object} util.Response
// @Router /api/curriculum/focuses [get]
func (c *CurriculumController) ListFocuses(ctx *gin.Context) {
	focuses, err := c.CurriculumService.ListFocuses()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, focuses)
}

// @Summary Focus下的步骤
// @Tags 课程
// @Produce json
// @Param focusId path int true "Focus ID"
// @Success 200 {object} util.Response
// @Router /api/curriculum/focuses/{focusId}/steps [get]
func (c *CurriculumController) ListSteps(ctx *gin.Context) {
	focusID, err := strconv.ParseUint(ctx.Param("focusId"), 10, 32)
	if err != nil {
		util.BadRequest(ctx, "invalid focus id")
		return
	}

	steps, err := c.CurriculumService.ListSteps(uint(focusID))
	if err != nil {
		if errors.Is(err, util.ErrFocusNotFound) {
			util.NotFound(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, steps)
}

// @Summary 自助修复进度
// @Description 把当前用户的指针拉回全局最早未完成的调，并清除超前进度
// @Tags 课程
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response
// @Router /api/curriculum/fix-my-progress [post]
func (c *CurriculumController) FixMyProgress(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	result, err := c.CurriculumService.FixMyProgress(user.UserID)
	if err != nil {
		if errors.Is(err, util.ErrUserNotFound) {
			util.NotFound(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, result)
}

// @Summary 诊断全量进度
// @Description 扫描所有学生，报告指针与实际进度不一致的情况，不做修改
// @Tags 课程管理
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response
// @Router /api/admin/curriculum/analyze [get]
func (c *CurriculumController) AnalyzeProgress(ctx *gin.Context) {
	report, err := c.CurriculumService.AnalyzeProgress()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, report)
}

// @Summary 修复全部指针
// @Description 把所有错位学生的指针改写到正确Focus的第1调，可重复执行
// @Tags 课程管理
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response
// @Router /api/admin/curriculum/fix [post]
func (c *CurriculumController) FixAssignments(ctx *gin.Context) {
	result, err := c.CurriculumService.FixAssignments()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

type FixStudentRequest struct {
	UserID     uint    `json:"userId" binding:"required"`
	FocusOrder float64 `json:"focusOrder" binding:"required"`
	KeyIndex   int     `json:"keyIndex" binding:"required,min=1,max=12"`
}

// @Summary 强制指定学生位置
// @Description 管理员把某个学生的指针直接定到 (focusOrder, keyIndex)
// @Tags 课程管理
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param request body FixStudentRequest true "目标位置"
// @Success 200 {object} util.Response
// @Router /api/admin/curriculum/fix-student [post]
func (c *CurriculumController) FixStudent(ctx *gin.Context) {
	actor := util.GetUserFromContext(ctx)
	if actor == nil {
		util.Unauthorized(ctx)
		return
	}

	var req FixStudentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	assignment, err := c.CurriculumService.FixSpecificStudent(actor.UserID, req.UserID, req.FocusOrder, req.KeyIndex)
	if err != nil {
		switch {
		case errors.Is(err, util.ErrFocusNotFound), errors.Is(err, util.ErrStepNotFound):
			util.NotFound(ctx)
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Success(ctx, assignment)
}
