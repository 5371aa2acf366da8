package repository

import "errors"

// Sentinel kinds for registry errors.
var (
	ErrNotFound     = errors.New("server not found")
	ErrInvalidLimit = errors.New("invalid ranking limit")
)
