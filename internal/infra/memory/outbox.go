package memory

import (
	"context"
	"sync"

	"medprep-exam-service/internal/app"
)

// Outbox is an in-memory FIFO queue of pending writes.
type Outbox struct {
	mu      sync.Mutex
	pending []app.PendingWrite
}

func NewOutbox() *Outbox {
	return &Outbox{}
}

func (o *Outbox) Enqueue(_ context.Context, write app.PendingWrite) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.pending = append(o.pending, write)
	return nil
}

func (o *Outbox) Dequeue(_ context.Context) (app.PendingWrite, bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.pending) == 0 {
		return app.PendingWrite{}, false, nil
	}
	write := o.pending[0]
	o.pending = o.pending[1:]
	return write, true, nil
}

// Len is a test helper reporting queued writes.
func (o *Outbox) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.pending)
}
