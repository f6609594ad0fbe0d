package controller

import (
	"context"

	"memeup_backend/internal/service"
	"memeup_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type GameLevelController struct {
	Service *service.GameLevelService
}

func NewGameLevelController(s *service.GameLevelService) *GameLevelController {
	return &GameLevelController{Service: s}
}

// @Summary 关卡介绍
// @Tags 游戏
// @Produce json
// @Security BearerAuth
// @Param id path string true "关卡ID"
// @Success 200 {object} util.Response{data=service.LevelIntroDTO}
// @Failure 404 {object} util.Response
// @Router /api/game/levels/{id}/intro [get]
func (c *GameLevelController) Intro(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	levelID, ok := pathID(ctx, util.ErrLevelNotFound)
	if !ok {
		return
	}
	dto, err := c.Service.Intro(ctx.Request.Context(), userID, levelID)
	if err != nil {
		respondGameError(ctx, err)
		return
	}
	util.Success(ctx, dto)
}

// @Summary 开始或继续关卡
// @Tags 游戏
// @Produce json
// @Security BearerAuth
// @Param id path string true "关卡ID"
// @Success 200 {object} util.Response{data=service.TaskDeliveryResponse}
// @Failure 403 {object} util.Response
// @Failure 429 {object} util.Response
// @Router /api/game/levels/{id}/start [post]
func (c *GameLevelController) Start(ctx *gin.Context) {
	c.deliver(ctx, c.Service.Start)
}

// @Summary 获取下一题
// @Tags 游戏
// @Produce json
// @Security BearerAuth
// @Param id path string true "关卡ID"
// @Success 200 {object} util.Response{data=service.TaskDeliveryResponse}
// @Failure 403 {object} util.Response
// @Router /api/game/levels/{id}/next [get]
func (c *GameLevelController) Next(ctx *gin.Context) {
	c.deliver(ctx, c.Service.Next)
}

// @Summary 重玩已完成的关卡
// @Tags 游戏
// @Produce json
// @Security BearerAuth
// @Param id path string true "关卡ID"
// @Success 200 {object} util.Response{data=service.TaskDeliveryResponse}
// @Failure 400 {object} util.Response
// @Failure 429 {object} util.Response
// @Router /api/game/levels/{id}/replay [post]
func (c *GameLevelController) Replay(ctx *gin.Context) {
	c.deliver(ctx, c.Service.Replay)
}

type deliverFunc func(ctx context.Context, userID, levelID string) (*service.TaskDeliveryResponse, error)

func (c *GameLevelController) deliver(ctx *gin.Context, fn deliverFunc) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	levelID, ok := pathID(ctx, util.ErrLevelNotFound)
	if !ok {
		return
	}
	resp, err := fn(ctx.Request.Context(), userID, levelID)
	if err != nil {
		respondGameError(ctx, err)
		return
	}
	util.Success(ctx, resp)
}
