package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"medprep-exam-service/internal/domain"
)

// ResultStore persists exam results in Postgres: one exam_results row plus
// append-only exam_attempts rows, written in a single transaction.
type ResultStore struct {
	pool *pgxpool.Pool
}

func NewResultStore(pool *pgxpool.Pool) *ResultStore {
	return &ResultStore{pool: pool}
}

func (s *ResultStore) RecordFinalResult(ctx context.Context, result domain.ExamResult) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin record result: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO exam_results (id, user_id, score, correct_count, total_questions, accuracy, completed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (id) DO NOTHING`,
		result.ID, result.UserID, result.Score, result.CorrectCount, result.TotalQuestions, result.Accuracy, result.CompletedAt)
	if err != nil {
		return fmt.Errorf("insert exam result: %w", err)
	}

	for i, attempt := range result.Attempts {
		_, err = tx.Exec(ctx,
			`INSERT INTO exam_attempts (result_id, position, question_id, selected_answer, is_correct, time_taken)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 ON CONFLICT (result_id, position) DO NOTHING`,
			result.ID, i, attempt.QuestionID, attempt.SelectedAnswer, attempt.IsCorrect, attempt.TimeTaken)
		if err != nil {
			return fmt.Errorf("insert attempt %d: %w", i, err)
		}
	}

	return tx.Commit(ctx)
}

func (s *ResultStore) GetResult(ctx context.Context, resultID string) (domain.ExamResult, error) {
	var result domain.ExamResult
	err := s.pool.QueryRow(ctx,
		`SELECT id, user_id, score, correct_count, total_questions, accuracy, completed_at
		 FROM exam_results WHERE id=$1`, resultID).
		Scan(&result.ID, &result.UserID, &result.Score, &result.CorrectCount, &result.TotalQuestions, &result.Accuracy, &result.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ExamResult{}, domain.ErrResultNotFound
	}
	if err != nil {
		return domain.ExamResult{}, fmt.Errorf("load exam result: %w", err)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT question_id, selected_answer, is_correct, time_taken
		 FROM exam_attempts WHERE result_id=$1 ORDER BY position`, resultID)
	if err != nil {
		return domain.ExamResult{}, fmt.Errorf("load attempts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var attempt domain.AttemptRecord
		if err := rows.Scan(&attempt.QuestionID, &attempt.SelectedAnswer, &attempt.IsCorrect, &attempt.TimeTaken); err != nil {
			return domain.ExamResult{}, fmt.Errorf("scan attempt: %w", err)
		}
		result.Attempts = append(result.Attempts, attempt)
	}
	if err := rows.Err(); err != nil {
		return domain.ExamResult{}, fmt.Errorf("iterate attempts: %w", err)
	}
	return result, nil
}
