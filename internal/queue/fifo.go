package queue

import (
	"sync"

	"github.com/google/uuid"
)

// fifo is an unbounded first-in-first-out list of job ids. push never
// blocks; pop waits on a signal channel so the wait can be interrupted.
type fifo struct {
	mu    sync.Mutex
	ids   []uuid.UUID
	ready chan struct{}
}

func newFIFO() *fifo {
	return &fifo{ready: make(chan struct{}, 1)}
}

func (f *fifo) push(id uuid.UUID) {
	f.mu.Lock()
	f.ids = append(f.ids, id)
	f.mu.Unlock()

	select {
	case f.ready <- struct{}{}:
	default:
	}
}

// pop returns the oldest id, waiting until one is available or stop is
// closed. The second return value is false only when stop fired.
func (f *fifo) pop(stop <-chan struct{}) (uuid.UUID, bool) {
	for {
		if id, ok := f.tryPop(); ok {
			return id, true
		}
		select {
		case <-f.ready:
		case <-stop:
			return uuid.Nil, false
		}
	}
}

func (f *fifo) tryPop() (uuid.UUID, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.ids) == 0 {
		return uuid.Nil, false
	}
	id := f.ids[0]
	f.ids[0] = uuid.Nil
	f.ids = f.ids[1:]
	return id, true
}

func (f *fifo) len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.ids)
}
