package redis

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"

	"medprep-exam-service/internal/app"
	"medprep-exam-service/internal/domain"
)

func TestOutboxFIFO(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	outbox := NewOutbox(newClient(mr))
	ctx := context.Background()

	first := app.PendingWrite{
		Kind:       app.WriteExamResult,
		ExamResult: &domain.ExamResult{ID: "exam-1", UserID: "u1", Score: 500},
	}
	second := app.PendingWrite{
		Kind:         app.WriteBattleResult,
		BattleResult: &domain.BattleResult{RoomID: "room-1", UserID: "u1", FinalScore: 300, Rank: 2},
	}
	if err := outbox.Enqueue(ctx, first); err != nil {
		t.Fatalf("enqueue first: %v", err)
	}
	if err := outbox.Enqueue(ctx, second); err != nil {
		t.Fatalf("enqueue second: %v", err)
	}

	got, ok, err := outbox.Dequeue(ctx)
	if err != nil || !ok {
		t.Fatalf("dequeue first: ok=%v err=%v", ok, err)
	}
	if got.Kind != app.WriteExamResult || got.ExamResult == nil || got.ExamResult.ID != "exam-1" {
		t.Fatalf("unexpected first write: %+v", got)
	}

	got, ok, err = outbox.Dequeue(ctx)
	if err != nil || !ok {
		t.Fatalf("dequeue second: ok=%v err=%v", ok, err)
	}
	if got.Kind != app.WriteBattleResult || got.BattleResult == nil || got.BattleResult.Rank != 2 {
		t.Fatalf("unexpected second write: %+v", got)
	}

	_, ok, err = outbox.Dequeue(ctx)
	if err != nil {
		t.Fatalf("dequeue empty: %v", err)
	}
	if ok {
		t.Fatal("expected empty outbox")
	}
}
