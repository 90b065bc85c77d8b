package middleware

import (
	"progression_backend/internal/config"
	"progression_backend/internal/model"
	"progression_backend/internal/service"
	"progression_backend/internal/util"
	"progression_backend/pkg/logger"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const contextKeyActor = "actor"

// RequestID tags every request with an id, reusing the caller's if present.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(util.HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(util.ContextKeyRequestID, id)
		c.Header(util.HeaderRequestID, id)
		c.Next()
	}
}

// Config exposes cfg to handlers under util.ContextKeyConfig.
func Config(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(util.ContextKeyConfig, cfg)
		c.Next()
	}
}

func AuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := ""
		authHeader := c.GetHeader("Authorization")
		if authHeader != "" {
			tokenString = strings.TrimPrefix(authHeader, "Bearer ")
		}

		if tokenString == "" {
			tokenString = c.Query("token")
		}

		if tokenString == "" {
			util.Unauthorized(c)
			c.Abort()
			return
		}

		claims, err := util.ParseJWT(tokenString, cfg.JWT.Secret)
		if err != nil {
			logger.Log.Debug("jwt rejected",
				zap.Error(err),
				zap.String("request_id", c.GetString(util.ContextKeyRequestID)))
			util.Unauthorized(c)
			c.Abort()
			return
		}

		c.Set(util.ContextKeyUser, claims)
		c.Set(contextKeyActor, service.NewActor(claims.UserID, claims.Role, c.GetString(util.ContextKeyRequestID)))
		c.Next()
	}
}

// CurrentActor returns the actor set by AuthMiddleware.
func CurrentActor(c *gin.Context) (service.Actor, bool) {
	v, ok := c.Get(contextKeyActor)
	if !ok {
		return service.Actor{}, false
	}
	actor, ok := v.(service.Actor)
	return actor, ok
}

// RoleMiddleware lets admins through unconditionally.
func RoleMiddleware(roles ...model.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := util.GetUserFromContext(c)
		if user == nil {
			util.Unauthorized(c)
			c.Abort()
			return
		}

		hasRole := user.Role == model.Admin
		for _, role := range roles {
			if user.Role == role {
				hasRole = true
				break
			}
		}

		if !hasRole {
			util.Forbidden(c)
			c.Abort()
			return
		}
		c.Next()
	}
}
