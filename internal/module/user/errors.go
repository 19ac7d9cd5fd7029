package user

import "errors"

// Module errors.
var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrInvalidUserID   = errors.New("user id must not be empty")
)
