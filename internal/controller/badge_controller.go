package controller

import (
	"progression_backend/internal/middleware"
	"progression_backend/internal/service"
	"progression_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type BadgeController struct {
	BadgeService *service.BadgeService
}

func NewBadgeController(badgeService *service.BadgeService) *BadgeController {
	return &BadgeController{BadgeService: badgeService}
}

type MarkShownRequest struct {
	IDs []uint `json:"ids" binding:"required"`
}

// @Summary 检查徽章
// @Description 评估当前用户的全部徽章条件并授予新解锁的徽章
// @Tags 徽章
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/badges/check [post]
func (c *BadgeController) CheckBadges(ctx *gin.Context) {
	actor, ok := middleware.CurrentActor(ctx)
	if !ok {
		util.Unauthorized(ctx)
		return
	}

	awarded, err := c.BadgeService.CheckAndAwardBadges(ctx.Request.Context(), actor)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"newBadges": awarded})
}

// @Summary 获取徽章列表
// @Tags 徽章
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/badges [get]
func (c *BadgeController) GetUserBadges(ctx *gin.Context) {
	actor, ok := middleware.CurrentActor(ctx)
	if !ok {
		util.Unauthorized(ctx)
		return
	}

	badges, err := c.BadgeService.GetUserBadges(ctx.Request.Context(), actor)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, badges)
}

// @Summary 获取未展示的徽章通知
// @Tags 徽章
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/badges/notifications [get]
func (c *BadgeController) GetNotifications(ctx *gin.Context) {
	actor, ok := middleware.CurrentActor(ctx)
	if !ok {
		util.Unauthorized(ctx)
		return
	}

	views, err := c.BadgeService.GetUnshownNotifications(ctx.Request.Context(), actor)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, views)
}

// @Summary 标记通知为已展示
// @Tags 徽章
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body MarkShownRequest true "通知ID列表"
// @Success 200 {object} util.Response
// @Router /api/badges/notifications/shown [post]
func (c *BadgeController) MarkShown(ctx *gin.Context) {
	actor, ok := middleware.CurrentActor(ctx)
	if !ok {
		util.Unauthorized(ctx)
		return
	}

	var req MarkShownRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	updated, err := c.BadgeService.MarkNotificationsShown(ctx.Request.Context(), actor, req.IDs)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"updated": updated})
}

// @Summary 拉取并标记通知
// @Description 返回未展示的通知并同时标记为已展示
// @Tags 徽章
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/badges/notifications/poll [get]
func (c *BadgeController) PollNotifications(ctx *gin.Context) {
	actor, ok := middleware.CurrentActor(ctx)
	if !ok {
		util.Unauthorized(ctx)
		return
	}

	views, err := c.BadgeService.PollNotifications(ctx.Request.Context(), actor)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, views)
}
