package tasks

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrTitleRequired   = errors.New("title required")
	ErrTitleTooLong    = errors.New("title too long")
	ErrIDPresent       = errors.New("id must not be set")
	ErrIDRequired      = errors.New("id required")
	ErrIDMismatch      = errors.New("id does not match path")
	ErrInvalidPriority = errors.New("invalid priority")
	ErrInvalidStatus   = errors.New("invalid status")
)
