package memory

import (
	"context"
	"sort"
	"sync"

	"trivia-duel-service/internal/domain"
)

// Leaderboard ranks players by total score, highest first. Ties go to the
// player who reached the score first.
type Leaderboard struct {
	mu     sync.RWMutex
	seq    int
	scores map[string]leaderboardEntry
}

type leaderboardEntry struct {
	score int
	seq   int
}

func NewLeaderboard() *Leaderboard {
	return &Leaderboard{scores: make(map[string]leaderboardEntry)}
}

func (l *Leaderboard) Upsert(_ context.Context, playerID string, totalScore int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if cur, ok := l.scores[playerID]; ok && cur.score == totalScore {
		return nil
	}
	l.seq++
	l.scores[playerID] = leaderboardEntry{score: totalScore, seq: l.seq}
	return nil
}

// Rank is 1-based; -1 means the player has no entry.
func (l *Leaderboard) Rank(_ context.Context, playerID string) (int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if _, ok := l.scores[playerID]; !ok {
		return -1, nil
	}
	for i, e := range l.sortedLocked() {
		if e.PlayerID == playerID {
			return i + 1, nil
		}
	}
	return -1, nil
}

func (l *Leaderboard) Top(_ context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	entries := l.sortedLocked()
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (l *Leaderboard) sortedLocked() []domain.LeaderboardEntry {
	ids := make([]string, 0, len(l.scores))
	for id := range l.scores {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := l.scores[ids[i]], l.scores[ids[j]]
		if a.score != b.score {
			return a.score > b.score
		}
		return a.seq < b.seq
	})
	out := make([]domain.LeaderboardEntry, len(ids))
	for i, id := range ids {
		out[i] = domain.LeaderboardEntry{PlayerID: id, TotalScore: l.scores[id].score, Rank: i + 1}
	}
	return out
}
