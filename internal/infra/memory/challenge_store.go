package memory

import (
	"context"
	"sync"
	"time"

	"trivia-duel-service/internal/domain"
)

// ChallengeStore keeps AI challenges in process memory. Expired entries are
// invisible to Get and removed by SweepExpired.
type ChallengeStore struct {
	clock func() time.Time

	mu      sync.RWMutex
	entries map[string]storedChallenge
}

type storedChallenge struct {
	challenge domain.AIChallenge
	expiresAt time.Time
}

func NewChallengeStore() *ChallengeStore {
	return NewChallengeStoreWithClock(time.Now)
}

// NewChallengeStoreWithClock is test-only for deterministic expiry.
func NewChallengeStoreWithClock(now func() time.Time) *ChallengeStore {
	return &ChallengeStore{clock: now, entries: make(map[string]storedChallenge)}
}

func (s *ChallengeStore) Create(_ context.Context, id string, c domain.AIChallenge, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock()
	if entry, ok := s.entries[id]; ok && !now.After(entry.expiresAt) {
		return domain.ErrChallengeIDTaken
	}
	s.entries[id] = storedChallenge{challenge: c, expiresAt: now.Add(ttl)}
	return nil
}

func (s *ChallengeStore) Get(_ context.Context, id string) (domain.AIChallenge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[id]
	if !ok || s.clock().After(entry.expiresAt) {
		return domain.AIChallenge{}, domain.ErrChallengeNotFound
	}
	return entry.challenge, nil
}

func (s *ChallengeStore) SweepExpired(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock()
	removed := 0
	for id, entry := range s.entries {
		if now.After(entry.expiresAt) {
			delete(s.entries, id)
			removed++
		}
	}
	return removed, nil
}

// Len reports how many entries are held, expired or not.
func (s *ChallengeStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
