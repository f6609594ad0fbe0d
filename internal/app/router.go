package app

import (
	"memeup_backend/docs"
	"memeup_backend/internal/config"
	"memeup_backend/internal/middleware"
	"memeup_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())
	router.GET("/health", c.health.HealthCheck)

	// 游戏接口全部需要登录，且禁止缓存
	game := router.Group("/api/game")
	game.Use(middleware.NoCache(), middleware.AuthMiddleware(cfg.JWT.Secret))
	{
		game.GET("/sections", c.section.Sections)
		game.GET("/sections/:id/levels", c.section.SectionLevels)

		game.GET("/levels/:id/intro", c.level.Intro)
		game.POST("/levels/:id/start", c.level.Start)
		game.GET("/levels/:id/next", c.level.Next)
		game.POST("/levels/:id/replay", c.level.Replay)

		game.POST("/tasks/:id/submit", c.task.Submit)

		game.GET("/leaderboard", c.leaderboard.Leaderboard)
	}
}
