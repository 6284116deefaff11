package memory

import (
	"context"
	"sync"

	"medprep-exam-service/internal/domain"
)

// ScoreStore is an in-memory implementation of app.ScoreStore. Fetch order
// is join order, matching what the Redis-backed store reports.
type ScoreStore struct {
	mu      sync.RWMutex
	scores  map[string]map[string]domain.ParticipantScore
	order   map[string][]string
	results map[string]map[string]domain.BattleResult
}

func NewScoreStore() *ScoreStore {
	return &ScoreStore{
		scores:  make(map[string]map[string]domain.ParticipantScore),
		order:   make(map[string][]string),
		results: make(map[string]map[string]domain.BattleResult),
	}
}

func (s *ScoreStore) SetScore(_ context.Context, roomID string, score domain.ParticipantScore) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.scores[roomID]
	if !ok {
		room = make(map[string]domain.ParticipantScore)
		s.scores[roomID] = room
	}
	if existing, ok := room[score.UserID]; ok {
		if score.Username == "" {
			score.Username = existing.Username
		}
	} else {
		s.order[roomID] = append(s.order[roomID], score.UserID)
	}
	room[score.UserID] = score
	return nil
}

func (s *ScoreStore) FetchParticipantScores(_ context.Context, roomID string) ([]domain.ParticipantScore, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room := s.scores[roomID]
	out := make([]domain.ParticipantScore, 0, len(room))
	for _, userID := range s.order[roomID] {
		out = append(out, room[userID])
	}
	return out, nil
}

func (s *ScoreStore) UpsertParticipantResult(_ context.Context, result domain.BattleResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.results[result.RoomID]
	if !ok {
		room = make(map[string]domain.BattleResult)
		s.results[result.RoomID] = room
	}
	room[result.UserID] = result
	return nil
}

// GetResult is a test helper for asserting persisted battle rows.
func (s *ScoreStore) GetResult(roomID, userID string) (domain.BattleResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result, ok := s.results[roomID][userID]
	return result, ok
}
