package middleware

import (
	"memeup_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// NoCache 游戏接口按用户返回且随时间变化
func NoCache() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set(util.HeaderCacheControl, "no-store, no-cache, must-revalidate")
		h.Set(util.HeaderPragma, "no-cache")
		h.Add(util.HeaderVary, "Authorization")
		c.Next()
	}
}
