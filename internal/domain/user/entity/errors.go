package entity

import "errors"

// Domain errors for users
var (
	ErrUserNotFound = errors.New("user not found")
	ErrMissingUID   = errors.New("principal uid is required")
)
