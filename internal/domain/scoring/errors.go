package scoring

import "errors"

var (
	// ErrNilContext is returned when Score is called without a miner context.
	ErrNilContext = errors.New("nil miner context")

	// ErrScorePanic wraps a panic recovered at the engine boundary.
	ErrScorePanic = errors.New("scoring panic")
)
