package app

import (
	"sort"
	"sync"
	"time"

	"medprep-exam-service/internal/domain"
)

// Room is the in-memory state of one battle: a shared paper, the
// participants with their running scores, and the leaderboard subscribers.
type Room struct {
	id  string
	now func() time.Time

	mu           sync.RWMutex
	paper        []domain.ShuffledQuestion
	questionByID map[string]domain.ShuffledQuestion
	participants map[string]*battleParticipant
	joinOrder    []string
	subscribers  map[chan domain.Leaderboard]struct{}
}

type battleParticipant struct {
	userID       string
	username     string
	score        int
	correctCount int
	answered     map[string]struct{}
	finished     bool
}

// NewRoom is exported for infrastructure layers that need to seed rooms.
func NewRoom(id string) *Room {
	return NewRoomWithClock(id, time.Now)
}

// NewRoomWithClock allows deterministic timestamps in tests.
func NewRoomWithClock(id string, now func() time.Time) *Room {
	return &Room{
		id:           id,
		now:          now,
		questionByID: make(map[string]domain.ShuffledQuestion),
		participants: make(map[string]*battleParticipant),
		subscribers:  make(map[chan domain.Leaderboard]struct{}),
	}
}

// SetPaper installs the shared question list, once, when the room opens.
func (r *Room) SetPaper(paper []domain.ShuffledQuestion) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.paper != nil {
		return
	}
	r.paper = paper
	for _, q := range paper {
		r.questionByID[q.ID] = q
	}
}

// Paper returns the shared question list.
func (r *Room) Paper() []domain.ShuffledQuestion {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.ShuffledQuestion, len(r.paper))
	copy(out, r.paper)
	return out
}

func (r *Room) join(userID, username string) (domain.Leaderboard, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	created := false
	if p, ok := r.participants[userID]; ok {
		p.username = username
	} else {
		r.participants[userID] = &battleParticipant{
			userID:   userID,
			username: username,
			answered: make(map[string]struct{}),
		}
		r.joinOrder = append(r.joinOrder, userID)
		created = true
	}
	return r.broadcastLocked(), created
}

// applyAnswer scores one answer for a participant. Each question can be
// answered once; the awarded points and the new total come back with the
// refreshed leaderboard.
func (r *Room) applyAnswer(userID, questionID, selected string, secondsRemaining int) (domain.Leaderboard, int, int, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.participants[userID]
	if !ok {
		return domain.Leaderboard{}, 0, 0, false, domain.ErrParticipantNotFound
	}
	q, ok := r.questionByID[questionID]
	if !ok {
		return domain.Leaderboard{}, 0, 0, false, domain.ErrQuestionNotFound
	}
	if _, dup := p.answered[questionID]; dup {
		return domain.Leaderboard{}, 0, p.score, false, domain.ErrAlreadyAnswered
	}
	p.answered[questionID] = struct{}{}

	correct := selected == q.ShuffledOptions[q.CorrectIndex]
	awarded := ScoreAnswer(correct, secondsRemaining)
	p.score += awarded
	if correct {
		p.correctCount++
	}
	return r.broadcastLocked(), awarded, p.score, correct, nil
}

// finish freezes a participant and returns their final tallies.
func (r *Room) finish(userID string) (score, correctCount, totalQuestions int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.participants[userID]
	if !ok {
		return 0, 0, 0, domain.ErrParticipantNotFound
	}
	p.finished = true
	return p.score, p.correctCount, len(r.paper), nil
}

func (r *Room) leave(userID string) domain.Leaderboard {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.participants[userID]; ok {
		delete(r.participants, userID)
		for i, id := range r.joinOrder {
			if id == userID {
				r.joinOrder = append(r.joinOrder[:i], r.joinOrder[i+1:]...)
				break
			}
		}
	}
	return r.broadcastLocked()
}

func (r *Room) isEmpty() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.participants) == 0
}

// IsEmpty reports whether the room has no participants.
func (r *Room) IsEmpty() bool {
	return r.isEmpty()
}

func (r *Room) subscribe() (<-chan domain.Leaderboard, func()) {
	ch := make(chan domain.Leaderboard, 8)

	r.mu.Lock()
	r.subscribers[ch] = struct{}{}
	initial := r.snapshotLocked()
	r.mu.Unlock()

	ch <- initial

	cancel := func() {
		r.mu.Lock()
		if _, ok := r.subscribers[ch]; ok {
			delete(r.subscribers, ch)
			close(ch)
		}
		r.mu.Unlock()
	}
	return ch, cancel
}

func (r *Room) broadcastLocked() domain.Leaderboard {
	lb := r.snapshotLocked()
	for ch := range r.subscribers {
		select {
		case ch <- lb:
		default:
			// Slow subscribers get the oldest update evicted so broadcast
			// never blocks the scoring path.
			select {
			case <-ch:
			default:
			}
			ch <- lb
		}
	}
	return lb
}

// snapshotForRank returns the participants in join order, unsorted, for use
// as a rank input when the score store is unreachable.
func (r *Room) snapshotForRank() []domain.ParticipantScore {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.ParticipantScore, 0, len(r.participants))
	for _, userID := range r.joinOrder {
		p := r.participants[userID]
		out = append(out, domain.ParticipantScore{UserID: p.userID, Username: p.username, Score: p.score})
	}
	return out
}

// snapshotLocked orders entries by score descending. The stable sort keeps
// ties in join order, which is also the order the score store reports.
func (r *Room) snapshotLocked() domain.Leaderboard {
	entries := make([]domain.ParticipantScore, 0, len(r.participants))
	for _, userID := range r.joinOrder {
		p := r.participants[userID]
		entries = append(entries, domain.ParticipantScore{
			UserID:   p.userID,
			Username: p.username,
			Score:    p.score,
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Score > entries[j].Score
	})
	return domain.Leaderboard{
		RoomID:    r.id,
		Entries:   entries,
		UpdatedAt: r.now(),
	}
}
