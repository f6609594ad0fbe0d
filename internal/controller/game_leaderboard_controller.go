package controller

import (
	"memeup_backend/internal/service"
	"memeup_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type LeaderboardController struct {
	Service *service.LeaderboardService
}

func NewLeaderboardController(s *service.LeaderboardService) *LeaderboardController {
	return &LeaderboardController{Service: s}
}

// @Summary 排行榜
// @Description 只支持 AllTime；levelId 优先于 sectionId
// @Tags 游戏
// @Produce json
// @Security BearerAuth
// @Param period query string false "统计周期" default(AllTime)
// @Param sectionId query string false "分区ID"
// @Param levelId query string false "关卡ID"
// @Success 200 {object} util.Response{data=[]service.LeaderboardEntryDTO}
// @Failure 400 {object} util.Response
// @Router /api/game/leaderboard [get]
func (c *LeaderboardController) Leaderboard(ctx *gin.Context) {
	if _, ok := currentUserID(ctx); !ok {
		return
	}

	var q service.LeaderboardQuery
	if err := ctx.ShouldBindQuery(&q); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	for _, id := range []*string{&q.SectionID, &q.LevelID} {
		if *id == "" {
			continue
		}
		parsed, ok := util.ParseID(*id)
		if !ok {
			util.BadRequest(ctx, "invalid id filter")
			return
		}
		*id = parsed
	}

	entries, err := c.Service.Leaderboard(ctx.Request.Context(), q)
	if err != nil {
		respondGameError(ctx, err)
		return
	}
	util.Success(ctx, entries)
}
