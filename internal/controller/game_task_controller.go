package controller

import (
	"memeup_backend/internal/service"
	"memeup_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type GameTaskController struct {
	Service *service.GameTaskService
}

func NewGameTaskController(s *service.GameTaskService) *GameTaskController {
	return &GameTaskController{Service: s}
}

// @Summary 提交答案
// @Tags 游戏
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "题目ID"
// @Param X-Timezone header string false "客户端时区"
// @Param body body service.TaskSubmitRequest true "作答内容"
// @Success 200 {object} util.Response{data=service.TaskSubmitResponse}
// @Failure 404 {object} util.Response
// @Failure 409 {object} util.Response
// @Failure 422 {object} util.Response
// @Router /api/game/tasks/{id}/submit [post]
func (c *GameTaskController) Submit(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	taskID, ok := pathID(ctx, util.ErrTaskNotFound)
	if !ok {
		return
	}

	var req service.TaskSubmitRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	meta := service.SubmitMeta{
		UserAgent: ctx.Request.UserAgent(),
		Timezone:  ctx.GetHeader(util.HeaderTimezone),
		ClientIP:  ctx.ClientIP(),
	}
	resp, err := c.Service.Submit(ctx.Request.Context(), userID, taskID, req, meta)
	if err != nil {
		respondGameError(ctx, err)
		return
	}
	util.Success(ctx, resp)
}
