package controller

import (
	"errors"
	"net/http"
	"strconv"

	"memeup_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type errorKind struct {
	err    error
	status int
	kind   string
}

var gameErrorKinds = []errorKind{
	{util.ErrLevelNotFound, http.StatusNotFound, "NotFound"},
	{util.ErrTaskNotFound, http.StatusNotFound, "NotFound"},
	{util.ErrSectionNotFound, http.StatusNotFound, "NotFound"},
	{util.ErrAttemptNotFound, http.StatusNotFound, "NotFound"},
	{util.ErrLevelLocked, http.StatusForbidden, "LevelLocked"},
	{util.ErrAttemptForbidden, http.StatusForbidden, "Forbidden"},
	{util.ErrAttemptMismatch, http.StatusBadRequest, "Mismatch"},
	{util.ErrLevelNotCompleted, http.StatusBadRequest, "LevelNotCompleted"},
	{util.ErrNoPublishedTasks, http.StatusBadRequest, "BadRequest"},
	{util.ErrUnsupportedPeriod, http.StatusBadRequest, "BadRequest"},
	{util.ErrAttemptFinalized, http.StatusConflict, "AlreadyFinalized"},
	{util.ErrConcurrencyConflict, http.StatusConflict, "Conflict"},
	{util.ErrInvalidSelection, http.StatusUnprocessableEntity, "InvalidSelection"},
	{util.ErrMissingIdentity, http.StatusPreconditionFailed, "PreconditionFailed"},
}

// respondGameError 引擎错误到 HTTP 状态码的唯一映射
func respondGameError(c *gin.Context, err error) {
	var cooldown *util.CooldownError
	if errors.As(err, &cooldown) {
		c.Header(util.HeaderRetryAfter, strconv.Itoa(cooldown.RetryAfterSeconds))
		util.ErrorWithKind(c, http.StatusTooManyRequests, "CooldownActive", cooldown.Error())
		return
	}
	for _, k := range gameErrorKinds {
		if errors.Is(err, k.err) {
			util.ErrorWithKind(c, k.status, k.kind, k.err.Error())
			return
		}
	}
	util.LogInternalError(c, err)
}

func currentUserID(c *gin.Context) (string, bool) {
	userID, err := util.CurrentUserID(c)
	if err != nil {
		respondGameError(c, err)
		return "", false
	}
	return userID, true
}

// pathID 非法的 id 按资源不存在处理
func pathID(c *gin.Context, notFound error) (string, bool) {
	id, ok := util.ParseID(c.Param("id"))
	if !ok {
		respondGameError(c, notFound)
		return "", false
	}
	return id, true
}
