package controller

import (
	"errors"
	"strconv"

	"jazzedu_backend/internal/service"
	"jazzedu_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type MilestoneController struct {
	MilestoneService *service.MilestoneService
}

func NewMilestoneController(milestoneService *service.MilestoneService) *MilestoneController {
	return &MilestoneController{MilestoneService: milestoneService}
}

// 视频上限 200MB
const maxMilestoneVideoSize = 200 << 20

// @Summary 提交里程碑视频
// @Description 上传某个练习重点的里程碑视频，已提交未评为redo时返回冲突
// @Tags 里程碑
// @Accept multipart/form-data
// @Produce json
// @Security ApiKeyAuth
// @Param focusId formData int true "重点ID"
// @Param video formData file true "视频文件"
// @Success 201 {object} util.Response
// @Router /api/milestones [post]
func (c *MilestoneController) Submit(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	focusID, err := strconv.ParseUint(ctx.PostForm("focusId"), 10, 32)
	if err != nil {
		util.BadRequest(ctx, "invalid focus id")
		return
	}

	file, err := ctx.FormFile("video")
	if err != nil {
		util.BadRequest(ctx, "video file is required")
		return
	}
	if file.Size > maxMilestoneVideoSize {
		util.BadRequest(ctx, "video file too large")
		return
	}

	src, err := file.Open()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	defer src.Close()

	submission, err := c.MilestoneService.Submit(ctx.Request.Context(), user.UserID, uint(focusID), file.Filename, src, file.Size)
	if err != nil {
		switch {
		case errors.Is(err, util.ErrFocusNotFound):
			util.NotFound(ctx)
		case errors.Is(err, util.ErrMilestoneSubmitted):
			util.Conflict(ctx, "milestone already submitted for this focus")
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Created(ctx, submission)
}

type GradeRequest struct {
	Grade string `json:"grade" binding:"required"`
	Notes string `json:"notes"`
}

// @Summary 评阅里程碑
// @Description 教师对提交打分，grade 取 pass/fail/redo
// @Tags 里程碑
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "提交ID"
// @Param request body GradeRequest true "评分"
// @Success 200 {object} util.Response
// @Router /api/milestones/{id}/grade [put]
func (c *MilestoneController) Grade(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	submissionID, err := strconv.ParseUint(ctx.Param("id"), 10, 32)
	if err != nil {
		util.BadRequest(ctx, "invalid submission id")
		return
	}

	var req GradeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	submission, err := c.MilestoneService.Grade(user.UserID, uint(submissionID), req.Grade, req.Notes)
	if err != nil {
		switch {
		case errors.Is(err, util.ErrMilestoneNotFound):
			util.NotFound(ctx)
		case errors.Is(err, util.ErrInvalidInput):
			util.BadRequest(ctx, "grade must be pass, fail or redo")
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, submission)
}

// @Summary 我的里程碑提交
// @Tags 里程碑
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response
// @Router /api/milestones [get]
func (c *MilestoneController) ListMine(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	submissions, err := c.MilestoneService.ListByUser(user.UserID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, submissions)
}

// @Summary 待评阅列表
// @Tags 里程碑
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response
// @Router /api/milestones/ungraded [get]
func (c *MilestoneController) ListUngraded(ctx *gin.Context) {
	submissions, err := c.MilestoneService.ListUngraded()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, submissions)
}
