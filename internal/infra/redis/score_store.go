package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"medprep-exam-service/internal/domain"
)

// ScoreStore keeps battle scores in Redis:
//
//	RPUSH battle:{roomID}:members   {userID}            (join order)
//	HSET  battle:{roomID}:scores    {userID} {score}
//	HSET  battle:{roomID}:usernames {userID} {username}
//	HSET  battle:{roomID}:results   {userID} <json BattleResult>
//
// The members list preserves join order so FetchParticipantScores returns a
// reproducible order for rank tie-breaks.
type ScoreStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewScoreStore(client *redis.Client, ttl time.Duration) *ScoreStore {
	return &ScoreStore{client: client, ttl: ttl}
}

func (s *ScoreStore) SetScore(ctx context.Context, roomID string, score domain.ParticipantScore) error {
	memberKey := s.key(roomID, "members")
	scoreKey := s.key(roomID, "scores")
	nameKey := s.key(roomID, "usernames")

	joined, err := s.client.HExists(ctx, scoreKey, score.UserID).Result()
	if err != nil {
		return fmt.Errorf("check membership: %w", err)
	}

	pipe := s.client.TxPipeline()
	if !joined {
		pipe.RPush(ctx, memberKey, score.UserID)
	}
	pipe.HSet(ctx, scoreKey, score.UserID, score.Score)
	if score.Username != "" {
		pipe.HSet(ctx, nameKey, score.UserID, score.Username)
	}
	if s.ttl > 0 {
		pipe.Expire(ctx, memberKey, s.ttl)
		pipe.Expire(ctx, scoreKey, s.ttl)
		pipe.Expire(ctx, nameKey, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("set score: %w", err)
	}
	return nil
}

func (s *ScoreStore) FetchParticipantScores(ctx context.Context, roomID string) ([]domain.ParticipantScore, error) {
	members, err := s.client.LRange(ctx, s.key(roomID, "members"), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("fetch members: %w", err)
	}
	scores, err := s.client.HGetAll(ctx, s.key(roomID, "scores")).Result()
	if err != nil {
		return nil, fmt.Errorf("fetch scores: %w", err)
	}
	usernames, err := s.client.HGetAll(ctx, s.key(roomID, "usernames")).Result()
	if err != nil {
		return nil, fmt.Errorf("fetch usernames: %w", err)
	}

	out := make([]domain.ParticipantScore, 0, len(members))
	for _, userID := range members {
		score := 0
		if raw, ok := scores[userID]; ok {
			if parsed, err := strconv.Atoi(raw); err == nil {
				score = parsed
			}
		}
		out = append(out, domain.ParticipantScore{
			UserID:   userID,
			Username: usernames[userID],
			Score:    score,
		})
	}
	return out, nil
}

func (s *ScoreStore) UpsertParticipantResult(ctx context.Context, result domain.BattleResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal battle result: %w", err)
	}
	resultKey := s.key(result.RoomID, "results")
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, resultKey, result.UserID, data)
	if s.ttl > 0 {
		pipe.Expire(ctx, resultKey, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("upsert battle result: %w", err)
	}
	return nil
}

func (s *ScoreStore) key(roomID, suffix string) string {
	return "battle:" + roomID + ":" + suffix
}
