package challenge

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"trivia-duel-service/internal/domain"
	"trivia-duel-service/internal/questions"
)

// DefaultTTL is how long an AI challenge stays retrievable after creation.
const DefaultTTL = time.Hour

const maxIDAttempts = 5

// Store holds AI challenges server-side. Create must return
// ErrChallengeIDTaken instead of overwriting a live entry. Get must return
// ErrChallengeNotFound for unknown or expired ids and must not consume the entry.
type Store interface {
	Create(ctx context.Context, id string, c domain.AIChallenge, ttl time.Duration) error
	Get(ctx context.Context, id string) (domain.AIChallenge, error)
	SweepExpired(ctx context.Context) (int, error)
}

// CreateRequest is the body of an AI challenge creation call.
type CreateRequest struct {
	Game        *domain.AIGame `json:"game"`
	ScoreToBeat *int           `json:"scoreToBeat"`
	Wager       float64        `json:"wager"`
	Challenger  string         `json:"challenger"`
}

// Service creates and fetches AI challenges.
type Service struct {
	store Store
	ttl   time.Duration
	clock func() time.Time
	newID func() string
}

func NewService(store Store, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{store: store, ttl: ttl, clock: time.Now, newID: shortID}
}

// NewServiceWithClock is test-only for deterministic timestamps and ids.
func NewServiceWithClock(store Store, ttl time.Duration, now func() time.Time, newID func() string) *Service {
	s := NewService(store, ttl)
	s.clock = now
	if newID != nil {
		s.newID = newID
	}
	return s
}

// CreateAI validates the request, purges expired entries and stores the challenge.
func (s *Service) CreateAI(ctx context.Context, req CreateRequest) (string, error) {
	if req.Game == nil || len(req.Game.Questions) == 0 {
		return "", domain.Invalid("game", "invalid game data provided")
	}
	if err := questions.ValidateAIGame(*req.Game); err != nil {
		return "", err
	}
	if req.ScoreToBeat == nil || strings.TrimSpace(req.Challenger) == "" {
		return "", domain.Invalid("challenger", "score to beat and challenger name are required")
	}
	if req.Wager < 0 {
		return "", domain.Invalid("wager", "must not be negative")
	}

	if n, err := s.store.SweepExpired(ctx); err != nil {
		log.Printf("challenge sweep failed: %v", err)
	} else if n > 0 {
		log.Printf("challenge sweep removed %d expired entries", n)
	}

	c := domain.AIChallenge{
		Game:        *req.Game,
		ScoreToBeat: *req.ScoreToBeat,
		Wager:       req.Wager,
		Challenger:  req.Challenger,
		CreatedAt:   s.clock().UTC(),
	}
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		id := s.newID()
		err := s.store.Create(ctx, id, c, s.ttl)
		if errors.Is(err, domain.ErrChallengeIDTaken) {
			log.Printf("challenge id %s already in use, retrying", id)
			continue
		}
		if err != nil {
			return "", err
		}
		return id, nil
	}
	return "", fmt.Errorf("allocate challenge id: %w", domain.ErrChallengeIDTaken)
}

// GetAI returns a stored challenge; repeated reads see the same entry until it expires.
func (s *Service) GetAI(ctx context.Context, id string) (domain.AIChallenge, error) {
	if strings.TrimSpace(id) == "" {
		return domain.AIChallenge{}, domain.Invalid("id", "challenge id is required")
	}
	c, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrChallengeNotFound) {
			return domain.AIChallenge{}, domain.ErrChallengeNotFound
		}
		return domain.AIChallenge{}, err
	}
	return c, nil
}

// AsChallenge converts a stored AI challenge into a playable challenge.
func AsChallenge(id string, c domain.AIChallenge) domain.Challenge {
	qs := make([]domain.Question, len(c.Game.Questions))
	for i, q := range c.Game.Questions {
		qs[i] = q.Clone()
	}
	return domain.Challenge{
		ID:          id,
		AIGame:      true,
		Topic:       c.Game.Topic,
		Questions:   qs,
		ScoreToBeat: c.ScoreToBeat,
		Wager:       c.Wager,
		Challenger:  c.Challenger,
	}
}

func shortID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:10]
}
