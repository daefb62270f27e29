package progression_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"trivia-duel-service/internal/domain"
	"trivia-duel-service/internal/progression"
)

type mapKV struct {
	mu   sync.Mutex
	data map[string]string
	fail bool
}

func newMapKV() *mapKV {
	return &mapKV{data: make(map[string]string)}
}

func (m *mapKV) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return "", false, errors.New("storage unavailable")
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *mapKV) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("storage unavailable")
	}
	m.data[key] = value
	return nil
}

func TestApplyXPRollover(t *testing.T) {
	kv := newMapKV()
	seed, _ := json.Marshal(domain.PlayerStats{Level: 1, XP: 800, Accuracy: "0%"})
	kv.data[progression.StatsKey("42")] = string(seed)

	store := progression.NewStore(kv)
	up := store.Apply(context.Background(), "42", domain.GameResult{Score: 2500, QuestionsAnswered: 25, CorrectAnswers: 25})

	if up.Stats.Level != 3 || up.Stats.XP != 300 {
		t.Fatalf("expected level 3 xp 300, got level %d xp %d", up.Stats.Level, up.Stats.XP)
	}
	if len(up.LevelUps) != 2 || up.LevelUps[0] != 2 || up.LevelUps[1] != 3 {
		t.Fatalf("expected level-ups [2 3], got %v", up.LevelUps)
	}
}

func TestAccuracyWithoutAnswers(t *testing.T) {
	store := progression.NewStore(newMapKV())
	up := store.Apply(context.Background(), "1", domain.GameResult{})
	if up.Stats.Accuracy != "0%" {
		t.Fatalf("expected 0%%, got %q", up.Stats.Accuracy)
	}
	for _, id := range up.Unlocked {
		if id == progression.Brainiac || id == progression.NearPerfect {
			t.Fatalf("accuracy achievement %s unlocked with no answers", id)
		}
	}
}

func TestAccuracyFormatting(t *testing.T) {
	cases := []struct {
		correct, answered int
		want              string
	}{
		{0, 0, "0%"},
		{1, 3, "33.33%"},
		{2, 3, "66.67%"},
		{10, 10, "100.00%"},
	}
	for _, c := range cases {
		if got := progression.FormatAccuracy(c.correct, c.answered); got != c.want {
			t.Fatalf("FormatAccuracy(%d, %d) = %q, want %q", c.correct, c.answered, got, c.want)
		}
	}
}

func TestFirstGameUnlocks(t *testing.T) {
	store := progression.NewStore(newMapKV())
	up := store.Apply(context.Background(), "7", domain.GameResult{
		Score: 900, QuestionsAnswered: 10, CorrectAnswers: 9, PowerupsUsed: 1, AIGame: true,
	})

	want := map[string]bool{
		progression.FirstGame:   true,
		progression.AIPioneer:   true,
		progression.PowerUpUser: true,
		progression.Brainiac:    true,
	}
	if len(up.Unlocked) != len(want) {
		t.Fatalf("expected %d unlocks, got %v", len(want), up.Unlocked)
	}
	for _, id := range up.Unlocked {
		if !want[id] {
			t.Fatalf("unexpected unlock %s", id)
		}
	}
}

func TestAchievementsAreMonotonic(t *testing.T) {
	ctx := context.Background()
	store := progression.NewStore(newMapKV())
	perfect := domain.GameResult{Score: 1000, QuestionsAnswered: 10, CorrectAnswers: 10, ConsecutiveCorrect: 10}

	first := store.Apply(ctx, "9", perfect)
	if !contains(first.Unlocked, progression.HotStreak) || !contains(first.Unlocked, progression.NearPerfect) {
		t.Fatalf("expected hot-streak and near-perfect, got %v", first.Unlocked)
	}

	second := store.Apply(ctx, "9", perfect)
	if len(second.Unlocked) != 0 {
		t.Fatalf("re-triggered predicates must not re-signal, got %v", second.Unlocked)
	}

	third := store.Apply(ctx, "9", domain.GameResult{QuestionsAnswered: 5})
	for _, id := range first.Unlocked {
		if !contains(third.Stats.UnlockedAchievements, id) {
			t.Fatalf("achievement %s was removed", id)
		}
	}
	seen := map[string]bool{}
	for _, id := range third.Stats.UnlockedAchievements {
		if seen[id] {
			t.Fatalf("duplicate achievement %s", id)
		}
		seen[id] = true
	}
}

func TestApplyPersistsRecord(t *testing.T) {
	kv := newMapKV()
	store := progression.NewStore(kv)
	store.Apply(context.Background(), "5", domain.GameResult{Score: 300, QuestionsAnswered: 4, CorrectAnswers: 3, WonChallenge: true})

	raw, ok := kv.data[progression.StatsKey("5")]
	if !ok {
		t.Fatalf("expected stats under %s", progression.StatsKey("5"))
	}
	var stored domain.PlayerStats
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stored.TotalScore != 300 || stored.ChallengesWon != 1 || stored.Accuracy != "75.00%" {
		t.Fatalf("unexpected stored record %+v", stored)
	}

	reloaded := progression.NewStore(kv).Stats(context.Background(), "5")
	if reloaded.TotalScore != 300 || !contains(reloaded.UnlockedAchievements, progression.Duelist) {
		t.Fatalf("expected record to survive reload, got %+v", reloaded)
	}
}

func TestPersistenceFailureKeepsInMemoryState(t *testing.T) {
	kv := newMapKV()
	kv.fail = true
	store := progression.NewStore(kv)
	ctx := context.Background()

	store.Apply(ctx, "3", domain.GameResult{Score: 400, QuestionsAnswered: 4, CorrectAnswers: 4})
	up := store.Apply(ctx, "3", domain.GameResult{Score: 700, QuestionsAnswered: 7, CorrectAnswers: 7})

	if up.Stats.TotalScore != 1100 || up.Stats.GamesPlayed != 2 || up.Stats.Level != 2 {
		t.Fatalf("expected in-memory accumulation, got %+v", up.Stats)
	}
}

func TestUpdateRankOnlyImproves(t *testing.T) {
	ctx := context.Background()
	store := progression.NewStore(newMapKV())

	if _, changed := store.UpdateRank(ctx, "8", 5); !changed {
		t.Fatalf("first rank must be recorded")
	}
	if stats, changed := store.UpdateRank(ctx, "8", 7); changed || *stats.TopRank != 5 {
		t.Fatalf("worse rank must not replace 5, got %v changed=%v", *stats.TopRank, changed)
	}
	if store.CheckTopPlayerAchievement(ctx, "8") {
		t.Fatalf("top-player needs rank 1")
	}
	if stats, changed := store.UpdateRank(ctx, "8", 1); !changed || *stats.TopRank != 1 {
		t.Fatalf("expected rank 1 recorded")
	}
	if !store.CheckTopPlayerAchievement(ctx, "8") {
		t.Fatalf("expected top-player unlock")
	}
	if store.CheckTopPlayerAchievement(ctx, "8") {
		t.Fatalf("top-player must unlock once")
	}
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
