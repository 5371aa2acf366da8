package queue

import "errors"

// ErrQueueClosed reports an operation on a closed queue.
var ErrQueueClosed = errors.New("queue closed")
