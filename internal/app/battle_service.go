package app

import (
	"context"
	"log"
	"math/rand"
	"sort"
	"sync"
	"time"

	"medprep-exam-service/internal/domain"
)

// RoomRepository abstracts how battle rooms are stored (in-memory, Redis, etc).
type RoomRepository interface {
	GetOrCreate(roomID string) *Room
	Get(roomID string) (*Room, bool)
	DeleteIfEmpty(roomID string)
}

// ScoreStore is the authoritative record of battle scores. Fetch order must
// be the participants' join order so rank tie-breaks are reproducible.
type ScoreStore interface {
	SetScore(ctx context.Context, roomID string, score domain.ParticipantScore) error
	FetchParticipantScores(ctx context.Context, roomID string) ([]domain.ParticipantScore, error)
	UpsertParticipantResult(ctx context.Context, result domain.BattleResult) error
}

// BattleConfig shapes the shared paper a room opens with.
type BattleConfig struct {
	QuestionCount int
	Weights       []domain.SubjectWeight
}

// BattleService runs multiplayer battles: shared paper assembly, per-answer
// scoring with time bonus, leaderboard fan-out, and final rank computation.
type BattleService struct {
	rooms     RoomRepository
	scores    ScoreStore
	questions QuestionRepository
	outbox    Outbox
	cfg       BattleConfig
	now       func() time.Time

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewBattleService(rooms RoomRepository, scores ScoreStore, questions QuestionRepository, outbox Outbox, cfg BattleConfig) *BattleService {
	return &BattleService{
		rooms:     rooms,
		scores:    scores,
		questions: questions,
		outbox:    outbox,
		cfg:       cfg,
		now:       time.Now,
		rnd:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Join registers a participant, assembling the room's shared paper on first
// join. Everyone in a room answers the same questions in the same order.
func (s *BattleService) Join(ctx context.Context, roomID, userID, username string) (domain.Leaderboard, []domain.ShuffledQuestion, error) {
	room := s.rooms.GetOrCreate(roomID)
	if len(room.Paper()) == 0 {
		paper, err := s.assemblePaper(ctx)
		if err != nil {
			return domain.Leaderboard{}, nil, err
		}
		room.SetPaper(paper)
	}

	lb, created := room.join(userID, username)
	if created {
		// Register the participant in join order; a rejoin must not reset
		// a running score.
		if err := s.scores.SetScore(ctx, roomID, domain.ParticipantScore{UserID: userID, Username: username}); err != nil {
			log.Printf("sync join score for %s in room %s: %v", userID, roomID, err)
		}
	}
	return lb, room.Paper(), nil
}

// SubmitAnswer scores one answer and pushes the participant's running score
// to the authoritative store.
func (s *BattleService) SubmitAnswer(ctx context.Context, roomID, userID, questionID, selected string, secondsRemaining int) (domain.Leaderboard, int, int, bool, error) {
	room, ok := s.rooms.Get(roomID)
	if !ok {
		return domain.Leaderboard{}, 0, 0, false, domain.ErrRoomNotFound
	}
	lb, awarded, total, correct, err := room.applyAnswer(userID, questionID, selected, secondsRemaining)
	if err != nil {
		return domain.Leaderboard{}, 0, 0, false, err
	}
	if err := s.scores.SetScore(ctx, roomID, domain.ParticipantScore{UserID: userID, Score: total}); err != nil {
		log.Printf("sync score for %s in room %s: %v", userID, roomID, err)
	}
	return lb, awarded, total, correct, nil
}

// Finish computes the participant's rank and persists their final row.
// The stored scores for the room are fetched and the current user's entry is
// overridden with the freshly computed final score, so a not-yet-flushed
// write of their own score can never produce a stale rank.
func (s *BattleService) Finish(ctx context.Context, roomID, userID string) (domain.BattleResult, error) {
	room, ok := s.rooms.Get(roomID)
	if !ok {
		return domain.BattleResult{}, domain.ErrRoomNotFound
	}
	score, correctCount, totalQuestions, err := room.finish(userID)
	if err != nil {
		return domain.BattleResult{}, err
	}

	fetched, err := s.scores.FetchParticipantScores(ctx, roomID)
	if err != nil {
		log.Printf("fetch scores for room %s: %v, ranking from local snapshot", roomID, err)
		fetched = room.snapshotForRank()
	}
	rank, _ := ComputeRank(fetched, userID, score)

	result := domain.BattleResult{
		RoomID:         roomID,
		UserID:         userID,
		FinalScore:     score,
		Rank:           rank,
		CorrectCount:   correctCount,
		TotalQuestions: totalQuestions,
		Accuracy:       Accuracy(correctCount, totalQuestions),
		CompletedAt:    s.now(),
	}
	if err := s.scores.UpsertParticipantResult(ctx, result); err != nil {
		log.Printf("record battle result for %s in room %s failed, queueing for retry: %v", userID, roomID, err)
		if qerr := s.outbox.Enqueue(ctx, PendingWrite{Kind: WriteBattleResult, BattleResult: &result}); qerr != nil {
			log.Printf("outbox enqueue for battle result failed: %v", qerr)
		}
	}
	return result, nil
}

// Subscribe returns a channel that receives leaderboard updates for a room.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *BattleService) Subscribe(_ context.Context, roomID string) (<-chan domain.Leaderboard, func(), error) {
	room, ok := s.rooms.Get(roomID)
	if !ok {
		return nil, nil, domain.ErrRoomNotFound
	}
	ch, cancel := room.subscribe()
	return ch, cancel, nil
}

// Leave removes a participant and drops the room once it is empty.
func (s *BattleService) Leave(_ context.Context, roomID, userID string) {
	room, ok := s.rooms.Get(roomID)
	if !ok {
		return
	}
	room.leave(userID)
	if room.isEmpty() {
		s.rooms.DeleteIfEmpty(roomID)
	}
}

func (s *BattleService) assemblePaper(ctx context.Context) ([]domain.ShuffledQuestion, error) {
	pool, err := s.questions.FetchQuestions(ctx, domain.QuestionFilter{})
	if err != nil {
		return nil, err
	}
	s.rndMu.Lock()
	defer s.rndMu.Unlock()
	selected, err := SampleExam(pool, s.cfg.Weights, s.cfg.QuestionCount, s.rnd)
	if err != nil {
		return nil, err
	}
	paper := make([]domain.ShuffledQuestion, 0, len(selected))
	for _, q := range selected {
		sq, err := ShuffleOptions(q, s.rnd)
		if err != nil {
			log.Printf("skipping inconsistent question %s: %v", q.ID, err)
			continue
		}
		paper = append(paper, sq)
	}
	if len(paper) < s.cfg.QuestionCount {
		return nil, &domain.InventoryError{Requested: s.cfg.QuestionCount, Available: len(paper)}
	}
	return paper, nil
}

// ComputeRank overrides the user's entry in the fetched scores with their
// fresh final score, sorts descending with a stable sort (ties keep fetch
// order), and returns the user's 1-based position plus the sorted board.
func ComputeRank(scores []domain.ParticipantScore, userID string, finalScore int) (int, []domain.ParticipantScore) {
	out := make([]domain.ParticipantScore, len(scores))
	copy(out, scores)

	found := false
	for i := range out {
		if out[i].UserID == userID {
			out[i].Score = finalScore
			found = true
			break
		}
	}
	if !found {
		out = append(out, domain.ParticipantScore{UserID: userID, Score: finalScore})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	for i := range out {
		if out[i].UserID == userID {
			return i + 1, out
		}
	}
	return len(out), out
}
