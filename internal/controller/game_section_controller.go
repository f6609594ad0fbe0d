package controller

import (
	"memeup_backend/internal/service"
	"memeup_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type GameSectionController struct {
	Service *service.GameSectionService
}

func NewGameSectionController(s *service.GameSectionService) *GameSectionController {
	return &GameSectionController{Service: s}
}

// @Summary 分区列表
// @Tags 游戏
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=[]service.GameSectionDTO}
// @Router /api/game/sections [get]
func (c *GameSectionController) Sections(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	sections, err := c.Service.Sections(ctx.Request.Context(), userID)
	if err != nil {
		respondGameError(ctx, err)
		return
	}
	util.Success(ctx, sections)
}

// @Summary 分区下的关卡
// @Description id 也可以是关卡ID，此时返回该关卡所在分区
// @Tags 游戏
// @Produce json
// @Security BearerAuth
// @Param id path string true "分区ID"
// @Success 200 {object} util.Response{data=[]service.GameLevelDTO}
// @Failure 404 {object} util.Response
// @Router /api/game/sections/{id}/levels [get]
func (c *GameSectionController) SectionLevels(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, util.ErrSectionNotFound)
	if !ok {
		return
	}
	levels, err := c.Service.SectionLevels(ctx.Request.Context(), userID, id)
	if err != nil {
		respondGameError(ctx, err)
		return
	}
	util.Success(ctx, levels)
}
