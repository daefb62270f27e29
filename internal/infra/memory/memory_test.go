package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"trivia-duel-service/internal/domain"
)

func TestBankRepositoryCaches(t *testing.T) {
	loader := &countingLoader{
		BankLoader: NewStaticBankLoader(map[string][]domain.Question{
			"en": sampleBank(),
		}),
	}
	repo := NewBankRepository(loader, time.Minute)

	bank, err := repo.Bank(context.Background(), "en")
	if err != nil {
		t.Fatalf("get bank: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls)
	}

	bank[0].Text = "mutated"
	again, err := repo.Bank(context.Background(), "en")
	if err != nil {
		t.Fatalf("get bank 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls)
	}
	if again[0].Text != "What is 2 + 2?" {
		t.Fatalf("cached bank must not be shared with callers, got %q", again[0].Text)
	}
}

func TestBankRepositoryExpires(t *testing.T) {
	loader := &countingLoader{BankLoader: NewStaticBankLoader(map[string][]domain.Question{"en": sampleBank()})}
	repo := NewBankRepository(loader, time.Minute)
	now := time.Unix(1000, 0)
	repo.clock = func() time.Time { return now }

	_, _ = repo.Bank(context.Background(), "en")
	now = now.Add(2 * time.Minute)
	_, _ = repo.Bank(context.Background(), "en")
	if loader.calls != 2 {
		t.Fatalf("expected reload after ttl, loader calls %d", loader.calls)
	}

	if _, err := repo.Bank(context.Background(), "xx"); !domain.IsValidation(err) {
		t.Fatalf("expected loader error to surface, got %v", err)
	}
}

func TestChallengeStoreExpiry(t *testing.T) {
	now := time.Unix(0, 0)
	store := NewChallengeStoreWithClock(func() time.Time { return now })
	ctx := context.Background()

	if err := store.Create(ctx, "a", domain.AIChallenge{Challenger: "x"}, time.Hour); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.Create(ctx, "a", domain.AIChallenge{Challenger: "intruder"}, time.Hour); !errors.Is(err, domain.ErrChallengeIDTaken) {
		t.Fatalf("expected live id to be refused, got %v", err)
	}
	now = now.Add(30 * time.Minute)
	if err := store.Create(ctx, "b", domain.AIChallenge{Challenger: "y"}, time.Hour); err != nil {
		t.Fatalf("create: %v", err)
	}

	for i := 0; i < 2; i++ {
		if c, err := store.Get(ctx, "a"); err != nil || c.Challenger != "x" {
			t.Fatalf("read %d: expected entry, got %+v %v", i, c, err)
		}
	}

	now = now.Add(31 * time.Minute)
	if _, err := store.Get(ctx, "a"); !errors.Is(err, domain.ErrChallengeNotFound) {
		t.Fatalf("expected expired entry hidden, got %v", err)
	}
	if store.Len() != 2 {
		t.Fatalf("Get must not evict, have %d entries", store.Len())
	}

	removed, err := store.SweepExpired(ctx)
	if err != nil || removed != 1 {
		t.Fatalf("expected one swept entry, got %d %v", removed, err)
	}
	if _, err := store.Get(ctx, "b"); err != nil {
		t.Fatalf("live entry must survive sweep: %v", err)
	}
	if err := store.Create(ctx, "a", domain.AIChallenge{Challenger: "z"}, time.Hour); err != nil {
		t.Fatalf("expired id must be reusable: %v", err)
	}
}

func TestLeaderboardRanks(t *testing.T) {
	lb := NewLeaderboard()
	ctx := context.Background()

	_ = lb.Upsert(ctx, "alice", 500)
	_ = lb.Upsert(ctx, "bob", 900)
	_ = lb.Upsert(ctx, "carol", 500)

	if r, _ := lb.Rank(ctx, "bob"); r != 1 {
		t.Fatalf("expected bob first, got %d", r)
	}
	if r, _ := lb.Rank(ctx, "alice"); r != 2 {
		t.Fatalf("expected alice second on tie by arrival, got %d", r)
	}
	if r, _ := lb.Rank(ctx, "nobody"); r != -1 {
		t.Fatalf("expected -1 for unknown player, got %d", r)
	}

	top, _ := lb.Top(ctx, 2)
	if len(top) != 2 || top[0].PlayerID != "bob" || top[1].Rank != 2 {
		t.Fatalf("unexpected top %+v", top)
	}
}

func TestKVStore(t *testing.T) {
	kv := NewKVStore()
	ctx := context.Background()
	if _, ok, _ := kv.Get(ctx, "k"); ok {
		t.Fatalf("expected missing key")
	}
	_ = kv.Set(ctx, "k", "v")
	if v, ok, _ := kv.Get(ctx, "k"); !ok || v != "v" {
		t.Fatalf("expected stored value, got %q %v", v, ok)
	}
}

type countingLoader struct {
	BankLoader
	calls int
}

func (l *countingLoader) LoadBank(ctx context.Context, locale string) ([]domain.Question, error) {
	l.calls++
	return l.BankLoader.LoadBank(ctx, locale)
}

func sampleBank() []domain.Question {
	return []domain.Question{
		{Text: "What is 2 + 2?", CorrectAnswer: "4", Options: []string{"3", "4", "5", "6"}},
	}
}
