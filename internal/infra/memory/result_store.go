package memory

import (
	"context"
	"sync"

	"medprep-exam-service/internal/domain"
)

// ResultStore is an in-memory implementation of app.ResultStore.
type ResultStore struct {
	mu      sync.RWMutex
	results map[string]domain.ExamResult
}

func NewResultStore() *ResultStore {
	return &ResultStore{results: make(map[string]domain.ExamResult)}
}

func (s *ResultStore) RecordFinalResult(_ context.Context, result domain.ExamResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[result.ID] = result
	return nil
}

func (s *ResultStore) GetResult(_ context.Context, resultID string) (domain.ExamResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result, ok := s.results[resultID]
	if !ok {
		return domain.ExamResult{}, domain.ErrResultNotFound
	}
	return result, nil
}
