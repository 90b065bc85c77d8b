package controller

import (
	"progression_backend/internal/middleware"
	"progression_backend/internal/service"
	"progression_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AttemptController struct {
	AttemptService *service.AttemptService
}

func NewAttemptController(attemptService *service.AttemptService) *AttemptController {
	return &AttemptController{AttemptService: attemptService}
}

type FinishAttemptRequest struct {
	ElapsedSeconds int `json:"elapsedSeconds" binding:"min=0"`
}

// @Summary 开始练习
// @Description 为当前用户创建一次新的练习尝试
// @Tags 练习
// @Produce json
// @Security BearerAuth
// @Param exerciseId path int true "练习ID"
// @Success 201 {object} util.Response
// @Router /api/exercises/{exerciseId}/attempts [post]
func (c *AttemptController) StartAttempt(ctx *gin.Context) {
	actor, ok := middleware.CurrentActor(ctx)
	if !ok {
		util.Unauthorized(ctx)
		return
	}
	exerciseID, ok := paramID(ctx, "exerciseId")
	if !ok {
		return
	}

	attempt, err := c.AttemptService.StartAttempt(ctx.Request.Context(), actor, exerciseID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Created(ctx, attempt)
}

// @Summary 提交答案
// @Description 评分并保存一道题的答案，重复提交会覆盖之前的答案
// @Tags 练习
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param attemptId path int true "尝试ID"
// @Param request body service.SubmitAnswerRequest true "答案"
// @Success 200 {object} util.Response
// @Router /api/attempts/{attemptId}/answers [post]
func (c *AttemptController) SubmitAnswer(ctx *gin.Context) {
	actor, ok := middleware.CurrentActor(ctx)
	if !ok {
		util.Unauthorized(ctx)
		return
	}
	attemptID, ok := paramID(ctx, "attemptId")
	if !ok {
		return
	}

	var req service.SubmitAnswerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.AttemptService.SubmitAnswer(ctx.Request.Context(), actor, attemptID, req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// @Summary 完成练习
// @Description 结算得分、奖励、经验值，并检查新解锁的徽章
// @Tags 练习
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param attemptId path int true "尝试ID"
// @Param request body FinishAttemptRequest true "用时"
// @Success 200 {object} util.Response
// @Router /api/attempts/{attemptId}/finish [post]
func (c *AttemptController) FinishAttempt(ctx *gin.Context) {
	actor, ok := middleware.CurrentActor(ctx)
	if !ok {
		util.Unauthorized(ctx)
		return
	}
	attemptID, ok := paramID(ctx, "attemptId")
	if !ok {
		return
	}

	var req FinishAttemptRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.AttemptService.FinishAttempt(ctx.Request.Context(), actor, attemptID, req.ElapsedSeconds)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, result)
}
