package domain

import "errors"

var (
	ErrNotFound        = errors.New("Not found")
	ErrInvalidState    = errors.New("Invalid listing state for this action")
	ErrAccountInactive = errors.New("Account is not active")
	ErrQuotaExceeded   = errors.New("Monthly listing quota exceeded")
	ErrPlanNotFound    = errors.New("No active plan for account")
	ErrInvalidReason   = errors.New("Invalid report reason")
	ErrRateLimited     = errors.New("Too many reports in the last 24 hours")
	ErrUnauthorized    = errors.New("Not allowed to act on this listing")
	ErrValidation      = errors.New("Validation failed")
	// ErrStorage marks transient persistence failures; callers may retry.
	ErrStorage = errors.New("Storage failure")
)
