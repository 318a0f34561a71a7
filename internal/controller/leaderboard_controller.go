package controller

import (
	"strconv"

	"jazzedu_backend/internal/service"
	"jazzedu_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type LeaderboardController struct {
	LeaderboardService *service.LeaderboardService
}

func NewLeaderboardController(leaderboardService *service.LeaderboardService) *LeaderboardController {
	return &LeaderboardController{LeaderboardService: leaderboardService}
}

// @Summary 排行榜
// @Description 按指定维度排序的学员排行榜，结果短时缓存
// @Tags 排行榜
// @Produce json
// @Security ApiKeyAuth
// @Param limit query int false "条数" default(10)
// @Param offset query int false "偏移" default(0)
// @Param sortBy query string false "排序维度 xp/level/streak/badges/sessions" default(xp)
// @Param sortOrder query string false "排序方向 asc/desc" default(desc)
// @Success 200 {object} util.Response
// @Router /api/leaderboard [get]
func (c *LeaderboardController) GetLeaderboard(ctx *gin.Context) {
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "10"))
	offset, _ := strconv.Atoi(ctx.DefaultQuery("offset", "0"))
	sortBy := ctx.DefaultQuery("sortBy", "xp")
	sortOrder := ctx.DefaultQuery("sortOrder", "desc")

	entries, err := c.LeaderboardService.GetLeaderboard(ctx.Request.Context(), limit, offset, sortBy, sortOrder)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, entries)
}
