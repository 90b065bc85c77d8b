package app

import (
	"progression_backend/internal/config"
	"progression_backend/internal/middleware"
	"progression_backend/internal/model"
	"progression_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	router.Use(middleware.RequestID(), middleware.Config(cfg))

	router.GET("/metrics", monitoring.PrometheusHandler())
	router.GET("/api/health", c.health.HealthCheck)

	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg))
	{
		a.registerStudentRoutes(authGroup, c)
	}

	a.registerAdminRoutes(router, c, cfg)
}

func (a *App) registerStudentRoutes(group *gin.RouterGroup, c *controllers) {
	group.POST("/exercises/:exerciseId/attempts", c.attempt.StartAttempt)

	attempts := group.Group("/attempts")
	{
		attempts.POST("/:attemptId/answers", c.attempt.SubmitAnswer)
		attempts.POST("/:attemptId/finish", c.attempt.FinishAttempt)
	}

	badges := group.Group("/badges")
	{
		badges.GET("", c.badge.GetUserBadges)
		badges.POST("/check", c.badge.CheckBadges)
		badges.GET("/notifications", c.badge.GetNotifications)
		badges.POST("/notifications/shown", c.badge.MarkShown)
		badges.GET("/notifications/poll", c.badge.PollNotifications)
	}

	group.GET("/progression", c.progression.GetLevelInfo)
}

func (a *App) registerAdminRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	admin := router.Group("/api/admin")
	admin.Use(middleware.AuthMiddleware(cfg), middleware.RoleMiddleware(model.Admin))
	{
		admin.POST("/users/:id/recalculate-level", c.progression.RecalculateLevel)
	}
}
