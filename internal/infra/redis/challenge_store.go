package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"trivia-duel-service/internal/domain"
)

const challengeIndexKey = "challenge:index"

// ChallengeStore keeps AI challenges as JSON strings with a Redis TTL, plus a
// sorted index scored by expiry so sweeps can report what expired.
type ChallengeStore struct {
	client *redis.Client
	clock  func() time.Time
}

func NewChallengeStore(client *redis.Client) *ChallengeStore {
	return &ChallengeStore{client: client, clock: time.Now}
}

func (s *ChallengeStore) Create(ctx context.Context, id string, c domain.AIChallenge, ttl time.Duration) error {
	raw, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode challenge: %w", err)
	}
	expiresAt := s.clock().Add(ttl)
	ok, err := s.client.SetNX(ctx, s.key(id), raw, ttl).Result()
	if err != nil {
		return fmt.Errorf("store challenge: %w", err)
	}
	if !ok {
		return domain.ErrChallengeIDTaken
	}
	if err := s.client.ZAdd(ctx, challengeIndexKey, redis.Z{Score: float64(expiresAt.UnixMilli()), Member: id}).Err(); err != nil {
		return fmt.Errorf("index challenge: %w", err)
	}
	return nil
}

func (s *ChallengeStore) Get(ctx context.Context, id string) (domain.AIChallenge, error) {
	raw, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.AIChallenge{}, domain.ErrChallengeNotFound
	}
	if err != nil {
		return domain.AIChallenge{}, fmt.Errorf("load challenge: %w", err)
	}
	var c domain.AIChallenge
	if err := json.Unmarshal(raw, &c); err != nil {
		return domain.AIChallenge{}, fmt.Errorf("decode challenge: %w", err)
	}
	return c, nil
}

// SweepExpired drops index entries whose expiry has passed and deletes any
// payload Redis has not evicted yet.
func (s *ChallengeStore) SweepExpired(ctx context.Context) (int, error) {
	cutoff := strconv.FormatInt(s.clock().UnixMilli(), 10)
	ids, err := s.client.ZRangeByScore(ctx, challengeIndexKey, &redis.ZRangeBy{Min: "-inf", Max: cutoff}).Result()
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}
	keys := make([]string, len(ids))
	members := make([]interface{}, len(ids))
	for i, id := range ids {
		keys[i] = s.key(id)
		members[i] = id
	}
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, keys...)
	pipe.ZRem(ctx, challengeIndexKey, members...)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return len(ids), nil
}

func (s *ChallengeStore) key(id string) string {
	return "challenge:" + id
}
