package common

import "errors"

// Sentinel errors shared by repositories, services and handlers.
var (
	ErrNotFound         = errors.New("record not found")
	ErrConflict         = errors.New("record already exists")
	ErrInvalidReference = errors.New("referenced record does not exist")
	ErrInvalidInput     = errors.New("invalid input")
	ErrForbidden        = errors.New("operation not permitted")
)
