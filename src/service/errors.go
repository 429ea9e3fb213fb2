package service

import "errors"

// Error taxonomy shared by the HTTP layer. Handlers map these onto status
// codes; anything else is a 500.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrRateLimited  = errors.New("rate limited")
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("invalid payload")
)

// ForbiddenError carries the authorization policy's denial reason.
type ForbiddenError struct {
	Reason string
}

func (e *ForbiddenError) Error() string {
	return "forbidden: " + e.Reason
}
