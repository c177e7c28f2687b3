package entity

import "errors"

// Domain errors for threads
var (
	ErrThreadNotFound  = errors.New("thread not found")
	ErrNotThreadOwner  = errors.New("not the owner of this thread")
	ErrMissingCampaign = errors.New("campaign id is required")
)
