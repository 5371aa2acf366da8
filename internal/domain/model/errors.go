package model

import (
	"errors"
)

// Sentinel kinds for report parsing.
var (
	ErrMalformedReport = errors.New("malformed report")
)
