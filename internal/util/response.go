package util

import (
	"memeup_backend/pkg/logger"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Response 统一响应结构，Kind 为机器可读的错误类别
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Kind    string      `json:"kind,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    http.StatusOK,
		Message: "success",
		Data:    data,
	})
}

func Error(c *gin.Context, code int, message string) {
	c.JSON(code, Response{
		Code:    code,
		Message: message,
	})
}

func ErrorWithKind(c *gin.Context, code int, kind, message string) {
	c.JSON(code, Response{
		Code:    code,
		Message: message,
		Kind:    kind,
	})
}

func Unauthorized(c *gin.Context) {
	ErrorWithKind(c, http.StatusUnauthorized, "Unauthorized", "Unauthorized")
}

func BadRequest(c *gin.Context, message string) {
	ErrorWithKind(c, http.StatusBadRequest, "BadRequest", message)
}

func NotFound(c *gin.Context) {
	ErrorWithKind(c, http.StatusNotFound, "NotFound", "Resource not found")
}

func InternalServerError(c *gin.Context) {
	ErrorWithKind(c, http.StatusInternalServerError, "Internal", "Internal server error")
}

func LogInternalError(c *gin.Context, err error) {
	logger.Log.Error("Internal server error",
		zap.String("path", c.FullPath()),
		zap.Error(err),
	)
	InternalServerError(c)
}
