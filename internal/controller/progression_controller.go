package controller

import (
	"progression_backend/internal/middleware"
	"progression_backend/internal/service"
	"progression_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ProgressionController struct {
	LevelService *service.LevelService
}

func NewProgressionController(levelService *service.LevelService) *ProgressionController {
	return &ProgressionController{LevelService: levelService}
}

// @Summary 获取等级信息
// @Tags 等级
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/progression [get]
func (c *ProgressionController) GetLevelInfo(ctx *gin.Context) {
	actor, ok := middleware.CurrentActor(ctx)
	if !ok {
		util.Unauthorized(ctx)
		return
	}

	info, err := c.LevelService.GetUserLevelInfo(ctx.Request.Context(), actor.UserID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, info)
}

// @Summary 重新计算等级
// @Description 按当前经验值重新计算用户等级（管理员）
// @Tags 等级
// @Produce json
// @Security BearerAuth
// @Param id path int true "用户ID"
// @Success 200 {object} util.Response
// @Router /api/admin/users/{id}/recalculate-level [post]
func (c *ProgressionController) RecalculateLevel(ctx *gin.Context) {
	actor, ok := middleware.CurrentActor(ctx)
	if !ok {
		util.Unauthorized(ctx)
		return
	}
	userID, ok := paramID(ctx, "id")
	if !ok {
		return
	}

	update, err := c.LevelService.RecalculateLevel(ctx.Request.Context(), actor, userID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, update)
}
