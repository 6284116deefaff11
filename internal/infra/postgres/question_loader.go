package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v4/pgxpool"

	"medprep-exam-service/internal/domain"
)

// QuestionLoader loads the question bank from Postgres. Options are stored
// as a JSONB array per row.
type QuestionLoader struct {
	pool *pgxpool.Pool
}

func NewQuestionLoader(pool *pgxpool.Pool) *QuestionLoader {
	return &QuestionLoader{pool: pool}
}

func (l *QuestionLoader) LoadQuestions(ctx context.Context, filter domain.QuestionFilter) ([]domain.Question, error) {
	query := `SELECT id, text, options, correct_option, explanation, subject_id, chapter_id FROM questions`
	var (
		conds []string
		args  []interface{}
	)
	if len(filter.SubjectIDs) > 0 {
		args = append(args, filter.SubjectIDs)
		conds = append(conds, fmt.Sprintf("subject_id = ANY($%d)", len(args)))
	}
	if len(filter.ChapterIDs) > 0 {
		args = append(args, filter.ChapterIDs)
		conds = append(conds, fmt.Sprintf("chapter_id = ANY($%d)", len(args)))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY id"

	rows, err := l.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	var questions []domain.Question
	for rows.Next() {
		var (
			q       domain.Question
			rawOpts []byte
		)
		if err := rows.Scan(&q.ID, &q.Text, &rawOpts, &q.CorrectOption, &q.Explanation, &q.SubjectID, &q.ChapterID); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		if err := json.Unmarshal(rawOpts, &q.Options); err != nil {
			return nil, fmt.Errorf("unmarshal options for %s: %w", q.ID, err)
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate questions: %w", err)
	}
	return questions, nil
}
