package repository

import "errors"

// Sentinel kinds for repository errors.
var (
	ErrNotFound        = errors.New("profile not found")
	ErrProfileRequired = errors.New("profile id is required for writes")
	ErrUnknownDriver   = errors.New("unknown store driver")
	ErrClosed          = errors.New("store is closed")
)
