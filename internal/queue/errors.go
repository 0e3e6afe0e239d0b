package queue

import "errors"

var (
	ErrNotFound     = errors.New("job not found")
	ErrNotCompleted = errors.New("job has not completed")
	ErrNoHandler    = errors.New("no handler registered")
	ErrQueueClosed  = errors.New("queue is closed")
)
