package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"medprep-exam-service/internal/domain"
)

// PendingWrite kinds.
const (
	WriteExamResult   = "exam_result"
	WriteBattleResult = "battle_result"
)

// PendingWrite is a persistence operation that failed and is waiting to be
// replayed. Exactly one of the payload fields is set, according to Kind.
type PendingWrite struct {
	Kind         string               `json:"kind"`
	ExamResult   *domain.ExamResult   `json:"examResult,omitempty"`
	BattleResult *domain.BattleResult `json:"battleResult,omitempty"`
}

// Outbox is a durable queue of pending writes. Implementations must preserve
// FIFO order so replays stay append-only.
type Outbox interface {
	Enqueue(ctx context.Context, write PendingWrite) error
	Dequeue(ctx context.Context) (PendingWrite, bool, error)
}

// Flusher drains the outbox in the background, replaying failed writes with
// exponential backoff instead of dropping them.
type Flusher struct {
	outbox   Outbox
	results  ResultStore
	scores   ScoreStore
	interval time.Duration
}

func NewFlusher(outbox Outbox, results ResultStore, scores ScoreStore, interval time.Duration) *Flusher {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Flusher{outbox: outbox, results: results, scores: scores, interval: interval}
}

// Run blocks until ctx is canceled, flushing the queue periodically.
func (f *Flusher) Run(ctx context.Context) {
	delay := f.interval
	ticker := time.NewTicker(delay)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := f.FlushOnce(ctx); err != nil {
				log.Printf("outbox flush: %v", err)
				if delay < 8*f.interval {
					delay *= 2
					ticker.Reset(delay)
				}
				continue
			}
			if delay != f.interval {
				delay = f.interval
				ticker.Reset(delay)
			}
		}
	}
}

// FlushOnce drains the queue until it is empty or a write fails. A failed
// write goes back on the queue and stops the pass.
func (f *Flusher) FlushOnce(ctx context.Context) error {
	for {
		write, ok, err := f.outbox.Dequeue(ctx)
		if err != nil {
			return fmt.Errorf("dequeue: %w", err)
		}
		if !ok {
			return nil
		}
		if err := f.apply(ctx, write); err != nil {
			if qerr := f.outbox.Enqueue(ctx, write); qerr != nil {
				return fmt.Errorf("requeue after failed replay: %w", qerr)
			}
			return fmt.Errorf("replay %s: %w", write.Kind, err)
		}
	}
}

func (f *Flusher) apply(ctx context.Context, write PendingWrite) error {
	switch write.Kind {
	case WriteExamResult:
		if write.ExamResult == nil {
			log.Printf("dropping malformed outbox entry: %s without payload", write.Kind)
			return nil
		}
		return f.results.RecordFinalResult(ctx, *write.ExamResult)
	case WriteBattleResult:
		if write.BattleResult == nil {
			log.Printf("dropping malformed outbox entry: %s without payload", write.Kind)
			return nil
		}
		return f.scores.UpsertParticipantResult(ctx, *write.BattleResult)
	default:
		log.Printf("dropping outbox entry of unknown kind %q", write.Kind)
		return nil
	}
}
