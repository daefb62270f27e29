package progression

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"trivia-duel-service/internal/domain"
)

// XPPerLevel is the size of one level bucket.
const XPPerLevel = 1000

// KeyValueStore is the persistence capability progression writes through.
// Get reports ok=false for a missing key.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// Update is the outcome of applying one game result.
type Update struct {
	Stats    domain.PlayerStats `json:"stats"`
	Unlocked []string           `json:"unlocked"`
	LevelUps []int              `json:"levelUps"`
}

// Store keeps player stats in memory and writes them through to a KeyValueStore.
// Persistence failures are logged; the in-memory record stays authoritative.
type Store struct {
	kv       KeyValueStore
	registry *Registry

	mu    sync.Mutex
	stats map[string]domain.PlayerStats
}

func NewStore(kv KeyValueStore) *Store {
	return &Store{
		kv:       kv,
		registry: NewRegistry(),
		stats:    make(map[string]domain.PlayerStats),
	}
}

// DefaultStats is the record of a player who has never finished a game.
func DefaultStats() domain.PlayerStats {
	return domain.PlayerStats{
		Accuracy:             "0%",
		Level:                1,
		UnlockedAchievements: []string{},
	}
}

// Stats returns the current record of a player.
func (s *Store) Stats(ctx context.Context, playerID string) domain.PlayerStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneStats(s.loadLocked(ctx, playerID))
}

// Apply folds a finished game into the player's record, persists it and reports
// the achievements unlocked and levels reached by this game.
func (s *Store) Apply(ctx context.Context, playerID string, result domain.GameResult) Update {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := cloneStats(s.loadLocked(ctx, playerID))

	stats.TotalScore += result.Score
	stats.GamesPlayed++
	stats.QuestionsAnswered += result.QuestionsAnswered
	stats.CorrectAnswers += result.CorrectAnswers
	stats.Accuracy = FormatAccuracy(stats.CorrectAnswers, stats.QuestionsAnswered)

	stats.ConsecutiveCorrectRecord = max(stats.ConsecutiveCorrectRecord, result.ConsecutiveCorrect)
	if result.AIGame {
		stats.AIGamesPlayed++
	}
	stats.PowerupsUsedTotal += result.PowerupsUsed
	if result.WonChallenge {
		stats.ChallengesWon++
	}

	var levelUps []int
	stats.XP += result.Score
	for stats.XP >= XPPerLevel {
		stats.XP -= XPPerLevel
		stats.Level++
		levelUps = append(levelUps, stats.Level)
	}

	unlocked := s.registry.Evaluate(stats, result)
	stats.UnlockedAchievements = append(stats.UnlockedAchievements, unlocked...)

	s.storeLocked(ctx, playerID, stats)
	return Update{Stats: cloneStats(stats), Unlocked: unlocked, LevelUps: levelUps}
}

// UpdateRank records rank as the player's best rank when it improves on the
// stored one. It reports whether the record changed.
func (s *Store) UpdateRank(ctx context.Context, playerID string, rank int) (domain.PlayerStats, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := cloneStats(s.loadLocked(ctx, playerID))
	if rank < 1 || (stats.TopRank != nil && *stats.TopRank <= rank) {
		return stats, false
	}
	r := rank
	stats.TopRank = &r
	s.storeLocked(ctx, playerID, stats)
	return cloneStats(stats), true
}

// CheckTopPlayerAchievement unlocks top-player once the best rank is 1.
func (s *Store) CheckTopPlayerAchievement(ctx context.Context, playerID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := cloneStats(s.loadLocked(ctx, playerID))
	if stats.TopRank == nil || *stats.TopRank != 1 || stats.HasAchievement(TopPlayer) {
		return false
	}
	stats.UnlockedAchievements = append(stats.UnlockedAchievements, TopPlayer)
	s.storeLocked(ctx, playerID, stats)
	return true
}

// FormatAccuracy renders correct/answered as a percentage with two decimals.
func FormatAccuracy(correct, answered int) string {
	if answered <= 0 {
		return "0%"
	}
	return fmt.Sprintf("%.2f%%", float64(correct)/float64(answered)*100)
}

// StatsKey is the storage key of a player's record.
func StatsKey(playerID string) string {
	return "user_stats_" + playerID
}

func (s *Store) loadLocked(ctx context.Context, playerID string) domain.PlayerStats {
	if stats, ok := s.stats[playerID]; ok {
		return stats
	}
	stats := DefaultStats()
	raw, ok, err := s.kv.Get(ctx, StatsKey(playerID))
	switch {
	case err != nil:
		log.Printf("progression: load stats for %s: %v", playerID, err)
	case ok:
		var stored domain.PlayerStats
		if err := json.Unmarshal([]byte(raw), &stored); err != nil {
			log.Printf("progression: decode stats for %s: %v", playerID, err)
			break
		}
		stats = normalize(stored)
	}
	s.stats[playerID] = stats
	return stats
}

func (s *Store) storeLocked(ctx context.Context, playerID string, stats domain.PlayerStats) {
	s.stats[playerID] = stats
	raw, err := json.Marshal(stats)
	if err != nil {
		log.Printf("progression: encode stats for %s: %v", playerID, err)
		return
	}
	if err := s.kv.Set(ctx, StatsKey(playerID), string(raw)); err != nil {
		log.Printf("progression: save stats for %s: %v", playerID, err)
	}
}

// normalize fills fields missing from records written by older clients.
func normalize(stats domain.PlayerStats) domain.PlayerStats {
	if stats.Level < 1 {
		stats.Level = 1
	}
	if stats.Accuracy == "" {
		stats.Accuracy = FormatAccuracy(stats.CorrectAnswers, stats.QuestionsAnswered)
	}
	if stats.UnlockedAchievements == nil {
		stats.UnlockedAchievements = []string{}
	}
	return stats
}

func cloneStats(stats domain.PlayerStats) domain.PlayerStats {
	out := stats
	out.UnlockedAchievements = append([]string{}, stats.UnlockedAchievements...)
	if stats.TopRank != nil {
		r := *stats.TopRank
		out.TopRank = &r
	}
	return out
}
