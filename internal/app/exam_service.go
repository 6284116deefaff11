package app

import (
	"context"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"medprep-exam-service/internal/domain"
)

// QuestionRepository loads question bank content (from cache/backing store).
type QuestionRepository interface {
	FetchQuestions(ctx context.Context, filter domain.QuestionFilter) ([]domain.Question, error)
}

// ResultStore persists final exam results together with their attempt
// records (one batched, append-only write per paper).
type ResultStore interface {
	RecordFinalResult(ctx context.Context, result domain.ExamResult) error
	GetResult(ctx context.Context, resultID string) (domain.ExamResult, error)
}

// ExamConfig carries the paper-assembly defaults.
type ExamConfig struct {
	TargetCount     int
	DurationSeconds int
	Weights         []domain.SubjectWeight
}

// StartOptions lets a caller override the configured paper shape.
type StartOptions struct {
	TargetCount     int
	DurationSeconds int
	Filter          domain.QuestionFilter
}

// ExamService runs full-length papers: assembly, countdown, scoring, and
// result persistence.
type ExamService struct {
	questions QuestionRepository
	results   ResultStore
	outbox    Outbox
	cfg       ExamConfig

	now          func() time.Time
	tickInterval time.Duration

	rndMu sync.Mutex
	rnd   *rand.Rand

	mu       sync.RWMutex
	sessions map[string]*ExamSession
}

func NewExamService(questions QuestionRepository, results ResultStore, outbox Outbox, cfg ExamConfig) *ExamService {
	return &ExamService{
		questions:    questions,
		results:      results,
		outbox:       outbox,
		cfg:          cfg,
		now:          time.Now,
		tickInterval: time.Second,
		rnd:          rand.New(rand.NewSource(time.Now().UnixNano())),
		sessions:     make(map[string]*ExamSession),
	}
}

// NewExamServiceWithClock is test-only: it pins timestamps and the countdown
// tick interval for deterministic runs.
func NewExamServiceWithClock(questions QuestionRepository, results ResultStore, outbox Outbox, cfg ExamConfig, now func() time.Time, tick time.Duration) *ExamService {
	s := NewExamService(questions, results, outbox, cfg)
	s.now = now
	s.tickInterval = tick
	return s
}

// StartExam assembles a paper and opens a running session with its countdown.
// An *domain.InventoryError is returned untouched so transports can offer the
// caller a smaller paper; a short selection is never served as complete.
func (s *ExamService) StartExam(ctx context.Context, userID string, opts StartOptions) (*ExamSession, error) {
	target := opts.TargetCount
	if target <= 0 {
		target = s.cfg.TargetCount
	}
	duration := opts.DurationSeconds
	if duration <= 0 {
		duration = s.cfg.DurationSeconds
	}

	pool, err := s.questions.FetchQuestions(ctx, opts.Filter)
	if err != nil {
		return nil, err
	}

	s.rndMu.Lock()
	selected, err := SampleExam(pool, s.cfg.Weights, target, s.rnd)
	s.rndMu.Unlock()
	if err != nil {
		return nil, err
	}

	paper := make([]domain.ShuffledQuestion, 0, len(selected))
	for _, q := range selected {
		s.rndMu.Lock()
		sq, err := ShuffleOptions(q, s.rnd)
		s.rndMu.Unlock()
		if err != nil {
			log.Printf("skipping inconsistent question %s: %v", q.ID, err)
			continue
		}
		paper = append(paper, sq)
	}
	if len(paper) < target {
		// Inconsistent questions were dropped after sampling; report the
		// shortfall instead of serving a short paper.
		return nil, &domain.InventoryError{Requested: target, Available: len(paper)}
	}

	session := newExamSession(uuid.NewString(), userID, paper, duration, s.now)
	s.mu.Lock()
	s.sessions[session.ID()] = session
	s.mu.Unlock()

	go s.runCountdown(session)
	return session, nil
}

// GetSession looks up a running session.
func (s *ExamService) GetSession(sessionID string) (*ExamSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

// Answer records a selection on a running session.
func (s *ExamService) Answer(sessionID, questionID, selected string) error {
	session, err := s.GetSession(sessionID)
	if err != nil {
		return err
	}
	return session.Answer(questionID, selected)
}

// Navigate moves the current question pointer of a running session.
func (s *ExamService) Navigate(sessionID string, index int) error {
	session, err := s.GetSession(sessionID)
	if err != nil {
		return err
	}
	return session.Navigate(index)
}

// Submit ends the session on explicit user action and persists the result.
func (s *ExamService) Submit(ctx context.Context, sessionID string) (domain.ExamResult, error) {
	session, err := s.GetSession(sessionID)
	if err != nil {
		return domain.ExamResult{}, err
	}
	summary, err := session.Submit()
	if err != nil {
		return domain.ExamResult{}, err
	}
	return s.finalize(ctx, session, summary), nil
}

// GetResult fetches a persisted exam result.
func (s *ExamService) GetResult(ctx context.Context, resultID string) (domain.ExamResult, error) {
	return s.results.GetResult(ctx, resultID)
}

func (s *ExamService) runCountdown(session *ExamSession) {
	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-session.Done():
			return
		case <-ticker.C:
			if session.Tick() {
				summary, err := session.Expire()
				if err != nil {
					// A manual submit won the race; nothing left to do.
					return
				}
				s.finalize(context.Background(), session, summary)
				return
			}
		}
	}
}

// finalize converts the terminal summary into a result and persists it.
// A failed write is queued on the outbox rather than dropped.
func (s *ExamService) finalize(ctx context.Context, session *ExamSession, summary SessionSummary) domain.ExamResult {
	s.mu.Lock()
	delete(s.sessions, session.ID())
	s.mu.Unlock()

	result := domain.ExamResult{
		ID:             summary.SessionID,
		UserID:         summary.UserID,
		Score:          summary.Score,
		CorrectCount:   summary.CorrectCount,
		TotalQuestions: summary.TotalQuestions,
		Accuracy:       summary.Accuracy,
		CompletedAt:    summary.CompletedAt,
		Attempts:       summary.Attempts,
	}
	if err := s.results.RecordFinalResult(ctx, result); err != nil {
		log.Printf("record result %s failed, queueing for retry: %v", result.ID, err)
		if qerr := s.outbox.Enqueue(ctx, PendingWrite{Kind: WriteExamResult, ExamResult: &result}); qerr != nil {
			log.Printf("outbox enqueue for result %s failed: %v", result.ID, qerr)
		}
	}
	return result
}
