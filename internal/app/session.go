package app

import (
	"sync"
	"time"

	"medprep-exam-service/internal/domain"
)

// SessionState tracks the countdown state machine:
// Idle -> Running -> {Expired, Stopped}. There is no pause.
type SessionState int

const (
	StateIdle SessionState = iota
	StateRunning
	StateExpired
	StateStopped
)

func (s SessionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateExpired:
		return "expired"
	case StateStopped:
		return "stopped"
	}
	return "unknown"
}

// SessionSummary is the terminal snapshot of an exam session.
type SessionSummary struct {
	SessionID      string
	UserID         string
	Score          int
	CorrectCount   int
	TotalQuestions int
	Accuracy       float64
	Attempts       []domain.AttemptRecord
	EndedBy        SessionState
	CompletedAt    time.Time
}

// ExamSession owns all mutable state of one running paper: the answer map,
// the current question index, and the remaining seconds. No other actor
// mutates these; battle rank computation only ever reads scores.
type ExamSession struct {
	id     string
	userID string
	now    func() time.Time

	mu               sync.Mutex
	questions        []domain.ShuffledQuestion
	position         map[string]int
	answers          map[string]string
	answeredAt       map[string]time.Time
	currentIndex     int
	remainingSeconds int
	state            SessionState
	score            int
	correctCount     int
	lastAnswerAt     time.Time

	// done is closed exactly once when the session ends, releasing the
	// countdown goroutine so no tick fires after teardown.
	done chan struct{}
}

func newExamSession(id, userID string, questions []domain.ShuffledQuestion, durationSeconds int, now func() time.Time) *ExamSession {
	position := make(map[string]int, len(questions))
	for i, q := range questions {
		position[q.ID] = i
	}
	started := now()
	return &ExamSession{
		id:               id,
		userID:           userID,
		now:              now,
		questions:        questions,
		position:         position,
		answers:          make(map[string]string, len(questions)),
		answeredAt:       make(map[string]time.Time, len(questions)),
		remainingSeconds: durationSeconds,
		state:            StateRunning,
		lastAnswerAt:     started,
		done:             make(chan struct{}),
	}
}

// ID returns the session identifier.
func (s *ExamSession) ID() string { return s.id }

// Done is closed when the session ends, by expiry or submission.
func (s *ExamSession) Done() <-chan struct{} { return s.done }

// Questions returns the paper in presentation order.
func (s *ExamSession) Questions() []domain.ShuffledQuestion {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.ShuffledQuestion, len(s.questions))
	copy(out, s.questions)
	return out
}

// State reports the current countdown state.
func (s *ExamSession) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// RemainingSeconds reports the seconds left on the countdown.
func (s *ExamSession) RemainingSeconds() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remainingSeconds
}

// CurrentIndex reports the question the user is positioned on.
func (s *ExamSession) CurrentIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentIndex
}

// Answer records the selected option for a question. The score and correct
// counter are updated before the index advances, so the running score always
// reflects the just-answered question. Re-answering a question replaces the
// earlier selection and adjusts the running totals.
func (s *ExamSession) Answer(questionID, selected string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateRunning {
		return domain.ErrSessionEnded
	}
	pos, ok := s.position[questionID]
	if !ok {
		return domain.ErrQuestionNotFound
	}
	question := s.questions[pos]

	if prev, answered := s.answers[questionID]; answered {
		if wasCorrect := prev == question.ShuffledOptions[question.CorrectIndex]; wasCorrect {
			s.score -= ScoreAnswer(true, 0)
			s.correctCount--
		}
	}

	correct := selected == question.ShuffledOptions[question.CorrectIndex]
	if correct {
		s.score += ScoreAnswer(true, 0)
		s.correctCount++
	}
	s.answers[questionID] = selected
	s.answeredAt[questionID] = s.now()

	if pos == s.currentIndex && s.currentIndex < len(s.questions)-1 {
		s.currentIndex++
	}
	return nil
}

// Navigate moves the current position without recording an answer.
func (s *ExamSession) Navigate(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateRunning {
		return domain.ErrSessionEnded
	}
	if index < 0 || index >= len(s.questions) {
		return domain.ErrQuestionNotFound
	}
	s.currentIndex = index
	return nil
}

// Tick decrements the countdown by one second and reports whether it just
// expired. Ticks against an ended session are no-ops: the guard here is what
// makes a late-firing timer harmless.
func (s *ExamSession) Tick() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateRunning {
		return false
	}
	if s.remainingSeconds > 0 {
		s.remainingSeconds--
	}
	return s.remainingSeconds == 0
}

// Submit ends the session by explicit user action.
func (s *ExamSession) Submit() (SessionSummary, error) {
	return s.finish(StateStopped)
}

// Expire ends the session because the countdown ran out; unanswered
// questions are recorded as null attempts.
func (s *ExamSession) Expire() (SessionSummary, error) {
	return s.finish(StateExpired)
}

// finish is the single finalize path. The state guard makes submission
// idempotent: when expiry races a manual submit, exactly one wins.
func (s *ExamSession) finish(terminal SessionState) (SessionSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateRunning {
		return SessionSummary{}, domain.ErrSessionEnded
	}
	s.state = terminal
	close(s.done)

	completed := s.now()
	attempts := make([]domain.AttemptRecord, 0, len(s.questions))
	prev := s.lastAnswerAt
	for _, q := range s.questions {
		selected, answered := s.answers[q.ID]
		record := domain.AttemptRecord{QuestionID: q.ID}
		if answered {
			record.SelectedAnswer = selected
			record.IsCorrect = selected == q.ShuffledOptions[q.CorrectIndex]
			at := s.answeredAt[q.ID]
			if taken := int(at.Sub(prev).Seconds()); taken > 0 {
				record.TimeTaken = taken
			}
			prev = at
		}
		attempts = append(attempts, record)
	}

	return SessionSummary{
		SessionID:      s.id,
		UserID:         s.userID,
		Score:          s.score,
		CorrectCount:   s.correctCount,
		TotalQuestions: len(s.questions),
		Accuracy:       Accuracy(s.correctCount, len(s.questions)),
		Attempts:       attempts,
		EndedBy:        terminal,
		CompletedAt:    completed,
	}, nil
}
