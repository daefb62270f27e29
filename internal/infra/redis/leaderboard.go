package redis

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"

	"trivia-duel-service/internal/domain"
)

const leaderboardKey = "leaderboard:total"

// Leaderboard keeps total scores in a Redis sorted set.
type Leaderboard struct {
	client *redis.Client
}

func NewLeaderboard(client *redis.Client) *Leaderboard {
	return &Leaderboard{client: client}
}

func (l *Leaderboard) Upsert(ctx context.Context, playerID string, totalScore int) error {
	return l.client.ZAdd(ctx, leaderboardKey, redis.Z{
		Score:  float64(totalScore),
		Member: playerID,
	}).Err()
}

// Rank is 1-based; -1 means the player has no entry.
func (l *Leaderboard) Rank(ctx context.Context, playerID string) (int, error) {
	rank, err := l.client.ZRevRank(ctx, leaderboardKey, playerID).Result()
	if errors.Is(err, redis.Nil) {
		return -1, nil
	}
	if err != nil {
		return -1, err
	}
	return int(rank) + 1, nil
}

func (l *Leaderboard) Top(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}
	results, err := l.client.ZRevRangeWithScores(ctx, leaderboardKey, 0, stop).Result()
	if err != nil {
		return nil, err
	}
	entries := make([]domain.LeaderboardEntry, len(results))
	for i, z := range results {
		member, _ := z.Member.(string)
		entries[i] = domain.LeaderboardEntry{
			PlayerID:   member,
			TotalScore: int(z.Score),
			Rank:       i + 1,
		}
	}
	return entries, nil
}
