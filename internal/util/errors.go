package util

import "errors"

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrExerciseNotFound = errors.New("exercise not found")
	ErrQuestionNotFound = errors.New("question not found")
	ErrAttemptNotFound  = errors.New("attempt not found")
	ErrAttemptFinished  = errors.New("attempt already finished")
	ErrInvalidAnswer    = errors.New("invalid answer payload")
)
