package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"medprep-exam-service/internal/app"
)

const outboxKey = "outbox:pending"

// Outbox is a Redis-backed FIFO queue of pending writes. Entries survive a
// process restart, so a crash between a failed write and its replay does not
// lose the attempt record.
type Outbox struct {
	client *redis.Client
}

func NewOutbox(client *redis.Client) *Outbox {
	return &Outbox{client: client}
}

func (o *Outbox) Enqueue(ctx context.Context, write app.PendingWrite) error {
	data, err := json.Marshal(write)
	if err != nil {
		return fmt.Errorf("marshal pending write: %w", err)
	}
	if err := o.client.RPush(ctx, outboxKey, data).Err(); err != nil {
		return fmt.Errorf("enqueue pending write: %w", err)
	}
	return nil
}

func (o *Outbox) Dequeue(ctx context.Context) (app.PendingWrite, bool, error) {
	raw, err := o.client.LPop(ctx, outboxKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return app.PendingWrite{}, false, nil
	}
	if err != nil {
		return app.PendingWrite{}, false, fmt.Errorf("dequeue pending write: %w", err)
	}
	var write app.PendingWrite
	if err := json.Unmarshal(raw, &write); err != nil {
		return app.PendingWrite{}, false, fmt.Errorf("unmarshal pending write: %w", err)
	}
	return write, true, nil
}
