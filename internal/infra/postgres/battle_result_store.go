package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"medprep-exam-service/internal/domain"
)

// BattleResultStore persists final battle rows in Postgres. Running scores
// stay in the hot store; only the terminal per-participant record lands here.
type BattleResultStore struct {
	pool *pgxpool.Pool
}

func NewBattleResultStore(pool *pgxpool.Pool) *BattleResultStore {
	return &BattleResultStore{pool: pool}
}

func (s *BattleResultStore) UpsertBattleResult(ctx context.Context, result domain.BattleResult) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO battle_results (room_id, user_id, final_score, rank, correct_count, total_questions, accuracy, completed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (room_id, user_id) DO UPDATE SET
		   final_score=EXCLUDED.final_score, rank=EXCLUDED.rank, correct_count=EXCLUDED.correct_count,
		   total_questions=EXCLUDED.total_questions, accuracy=EXCLUDED.accuracy, completed_at=EXCLUDED.completed_at`,
		result.RoomID, result.UserID, result.FinalScore, result.Rank, result.CorrectCount, result.TotalQuestions, result.Accuracy, result.CompletedAt)
	if err != nil {
		return fmt.Errorf("upsert battle result: %w", err)
	}
	return nil
}
