package service

import (
	"progression_backend/internal/model"

	"github.com/google/uuid"
)

// Actor is the authenticated caller of an engine operation. It replaces any
// ambient session state: every call names its user explicitly.
type Actor struct {
	UserID    uint
	Role      model.UserRole
	RequestID string
}

func NewActor(userID uint, role model.UserRole, requestID string) Actor {
	if requestID == "" {
		requestID = uuid.NewString()
	}
	return Actor{UserID: userID, Role: role, RequestID: requestID}
}

func (a Actor) IsAdmin() bool {
	return a.Role == model.Admin
}
