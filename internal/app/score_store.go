package app

import (
	"context"
	"fmt"

	"medprep-exam-service/internal/domain"
)

// BattleResultWriter durably records final battle rows (e.g. in Postgres).
type BattleResultWriter interface {
	UpsertBattleResult(ctx context.Context, result domain.BattleResult) error
}

// DurableScoreStore layers a durable writer under a hot score store: running
// scores and fetches go to the hot store, final rows land in both.
type DurableScoreStore struct {
	hot     ScoreStore
	durable BattleResultWriter
}

func NewDurableScoreStore(hot ScoreStore, durable BattleResultWriter) *DurableScoreStore {
	return &DurableScoreStore{hot: hot, durable: durable}
}

func (s *DurableScoreStore) SetScore(ctx context.Context, roomID string, score domain.ParticipantScore) error {
	return s.hot.SetScore(ctx, roomID, score)
}

func (s *DurableScoreStore) FetchParticipantScores(ctx context.Context, roomID string) ([]domain.ParticipantScore, error) {
	return s.hot.FetchParticipantScores(ctx, roomID)
}

func (s *DurableScoreStore) UpsertParticipantResult(ctx context.Context, result domain.BattleResult) error {
	if err := s.hot.UpsertParticipantResult(ctx, result); err != nil {
		return fmt.Errorf("hot store upsert: %w", err)
	}
	if err := s.durable.UpsertBattleResult(ctx, result); err != nil {
		return fmt.Errorf("durable store upsert: %w", err)
	}
	return nil
}
