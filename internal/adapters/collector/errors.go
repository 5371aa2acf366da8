package collector

import "errors"

// Sentinel kinds for collector client errors.
var (
	ErrNotFound    = errors.New("collector: not found")
	ErrUnavailable = errors.New("collector: request failed")
	ErrBadResponse = errors.New("collector: malformed response")
)
