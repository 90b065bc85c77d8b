package controller

import (
	"errors"
	"progression_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// respondError maps engine errors onto HTTP statuses.
func respondError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, util.ErrUserNotFound),
		errors.Is(err, util.ErrExerciseNotFound),
		errors.Is(err, util.ErrQuestionNotFound),
		errors.Is(err, util.ErrAttemptNotFound):
		util.NotFoundMessage(ctx, err.Error())
	case errors.Is(err, util.ErrAttemptFinished):
		util.Conflict(ctx, err.Error())
	case errors.Is(err, util.ErrInvalidAnswer):
		util.BadRequest(ctx, err.Error())
	case errors.Is(err, util.ErrPermissionDenied):
		util.Forbidden(ctx)
	default:
		util.LogInternalError(ctx, err)
	}
}

// paramID reads a positive numeric path parameter.
func paramID(ctx *gin.Context, name string) (uint, bool) {
	id := util.MustParseUint(ctx.Param(name))
	if id == 0 {
		util.BadRequest(ctx, "invalid "+name)
		return 0, false
	}
	return id, true
}
