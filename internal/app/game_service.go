package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"trivia-duel-service/internal/auth"
	"trivia-duel-service/internal/challenge"
	"trivia-duel-service/internal/domain"
	"trivia-duel-service/internal/game"
	"trivia-duel-service/internal/i18n"
	"trivia-duel-service/internal/notifications"
	"trivia-duel-service/internal/progression"
	"trivia-duel-service/internal/questions"
)

var (
	// ErrGeneratorUnavailable is returned when no question generator is configured.
	ErrGeneratorUnavailable = errors.New("question generator is not configured")
	// ErrMalformedGeneration wraps generator output that failed validation.
	ErrMalformedGeneration = errors.New("generator returned an unusable question set")
	// ErrUpstream wraps failures of the generator or identity provider.
	ErrUpstream = errors.New("upstream service failed")
)

// KeyValueStore backs player stats and notification inboxes.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// Leaderboard ranks players by total score, highest first. Rank is 1-based
// and -1 for an unknown player.
type Leaderboard interface {
	Upsert(ctx context.Context, playerID string, totalScore int) error
	Rank(ctx context.Context, playerID string) (int, error)
	Top(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error)
}

// IdentityProvider resolves a session handle to a profile.
type IdentityProvider interface {
	LookupBySigner(ctx context.Context, signerUUID string) (domain.Profile, error)
}

// Deps are the adapters a GameService is assembled from. Generator and
// Identity may be nil; the features that need them then report an error.
type Deps struct {
	Banks         questions.BankRepository
	Generator     questions.Generator
	Challenges    challenge.Store
	KV            KeyValueStore
	Leaderboard   Leaderboard
	Identity      IdentityProvider
	Tokens        *auth.TokenService
	Catalog       *i18n.Catalog
	ChallengeTTL  time.Duration
	PublicBaseURL string
}

// GameService contains the trivia use cases shared by the REST and websocket transports.
type GameService struct {
	pool        *questions.Pool
	generator   questions.Generator
	challenges  *challenge.Service
	progression *progression.Store
	inbox       *notifications.Center
	leaderboard Leaderboard
	identity    IdentityProvider
	tokens      *auth.TokenService
	catalog     *i18n.Catalog
	baseURL     string
}

func NewGameService(d Deps) *GameService {
	return newGameService(d, questions.NewPool(d.Banks), challenge.NewService(d.Challenges, d.ChallengeTTL), notifications.NewCenter(d.KV))
}

// NewGameServiceWithClock is test-only for deterministic ids, timestamps and question order.
func NewGameServiceWithClock(d Deps, pool *questions.Pool, now func() time.Time, newID func() string) *GameService {
	return newGameService(d, pool, challenge.NewServiceWithClock(d.Challenges, d.ChallengeTTL, now, newID), notifications.NewCenterWithClock(d.KV, now))
}

func newGameService(d Deps, pool *questions.Pool, challenges *challenge.Service, inbox *notifications.Center) *GameService {
	catalog := d.Catalog
	if catalog == nil {
		catalog = i18n.MustLoad()
	}
	return &GameService{
		pool:        pool,
		generator:   d.Generator,
		challenges:  challenges,
		progression: progression.NewStore(d.KV),
		inbox:       inbox,
		leaderboard: d.Leaderboard,
		identity:    d.Identity,
		tokens:      d.Tokens,
		catalog:     catalog,
		baseURL:     strings.TrimRight(d.PublicBaseURL, "/"),
	}
}

// Catalog exposes the translation catalog to transports.
func (s *GameService) Catalog() *i18n.Catalog {
	return s.catalog
}

// GenerateTrivia asks the generator for a question set and rejects malformed output.
func (s *GameService) GenerateTrivia(ctx context.Context, req domain.GenerateRequest) (domain.AIGame, error) {
	if s.generator == nil {
		return domain.AIGame{}, ErrGeneratorUnavailable
	}
	req, err := questions.ValidateRequest(req)
	if err != nil {
		return domain.AIGame{}, err
	}
	g, err := s.generator.Generate(ctx, req)
	if err == nil {
		err = questions.ValidateGame(req, g)
	}
	switch {
	case err == nil:
		return g, nil
	case errors.Is(err, domain.ErrContentBlocked):
		return domain.AIGame{}, err
	case domain.IsValidation(err):
		log.Printf("generator returned unusable game for %q: %v", req.Topic, err)
		return domain.AIGame{}, fmt.Errorf("%w: %v", ErrMalformedGeneration, err)
	default:
		return domain.AIGame{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
}

// ClassicQuestions draws a classic game from the locale's bank.
func (s *GameService) ClassicQuestions(ctx context.Context, locale string) ([]domain.Question, error) {
	return s.pool.Classic(ctx, s.catalog.Resolve(locale), questions.ClassicGameSize)
}

// ShareLink is what a player sends to a friend.
type ShareLink struct {
	ID    string `json:"challengeId,omitempty"`
	Token string `json:"token,omitempty"`
	URL   string `json:"url"`
}

// CreateAIChallenge stores an AI game challenge and returns its share link.
func (s *GameService) CreateAIChallenge(ctx context.Context, req challenge.CreateRequest) (ShareLink, error) {
	id, err := s.challenges.CreateAI(ctx, req)
	if err != nil {
		return ShareLink{}, err
	}
	return ShareLink{ID: id, URL: s.shareURL("ai", id)}, nil
}

// GetAIChallenge returns a stored AI challenge.
func (s *GameService) GetAIChallenge(ctx context.Context, id string) (domain.AIChallenge, error) {
	return s.challenges.GetAI(ctx, id)
}

// CreateClassicChallenge encodes a classic challenge token. Indices must exist in the bank.
func (s *GameService) CreateClassicChallenge(ctx context.Context, c domain.ClassicChallenge) (ShareLink, error) {
	bank, err := s.pool.Bank(ctx, i18n.DefaultLocale)
	if err != nil {
		return ShareLink{}, err
	}
	for _, idx := range c.QuestionIndices {
		if idx >= len(bank) {
			return ShareLink{}, domain.Invalid("questionIndices", "index %d is out of range", idx)
		}
	}
	token, err := challenge.EncodeClassic(c)
	if err != nil {
		return ShareLink{}, err
	}
	return ShareLink{Token: token, URL: s.shareURL("classic", token)}, nil
}

// ResolveClassic decodes a classic token against the locale's bank.
func (s *GameService) ResolveClassic(ctx context.Context, token, locale string) (domain.Challenge, error) {
	bank, err := s.pool.Bank(ctx, s.catalog.Resolve(locale))
	if err != nil {
		return domain.Challenge{}, err
	}
	return challenge.ResolveClassic(token, bank)
}

// ChallengeFor loads a playable challenge of either kind: "ai" by id, "classic" by token.
func (s *GameService) ChallengeFor(ctx context.Context, kind, ref, locale string) (domain.Challenge, error) {
	switch kind {
	case "ai":
		c, err := s.challenges.GetAI(ctx, ref)
		if err != nil {
			return domain.Challenge{}, err
		}
		return challenge.AsChallenge(ref, c), nil
	case "classic":
		return s.ResolveClassic(ctx, ref, locale)
	default:
		return domain.Challenge{}, domain.Invalid("kind", "unknown challenge kind %q", kind)
	}
}

// ResultRecord is everything a finished game changed for a player.
type ResultRecord struct {
	Update        progression.Update    `json:"update"`
	Rank          int                   `json:"rank"`
	Notifications []domain.Notification `json:"notifications"`
}

// RecordResult applies a finished game to the player's progression, posts the
// resulting notifications and refreshes the leaderboard rank.
func (s *GameService) RecordResult(ctx context.Context, playerID, locale string, sum game.Summary) ResultRecord {
	locale = s.catalog.Resolve(locale)
	rec := ResultRecord{Rank: -1}
	rec.Update = s.progression.Apply(ctx, playerID, sum.Result)

	for _, level := range rec.Update.LevelUps {
		params := map[string]any{"level": level}
		rec.Notifications = append(rec.Notifications, s.inbox.Add(ctx, playerID, notifications.Draft{
			Type:        domain.NotificationAchievement,
			Title:       s.catalog.T(locale, "notifications.level_up.title", params),
			Description: s.catalog.T(locale, "notifications.level_up.description", params),
		}))
	}
	for _, id := range rec.Update.Unlocked {
		rec.Notifications = append(rec.Notifications, s.achievementNotice(ctx, playerID, locale, id))
	}
	if sum.Challenge {
		rec.Notifications = append(rec.Notifications, s.challengeNotice(ctx, playerID, locale, sum))
	}

	if s.leaderboard == nil {
		return rec
	}
	if err := s.leaderboard.Upsert(ctx, playerID, rec.Update.Stats.TotalScore); err != nil {
		log.Printf("leaderboard upsert failed for %s: %v", playerID, err)
		return rec
	}
	rank, err := s.leaderboard.Rank(ctx, playerID)
	if err != nil {
		log.Printf("leaderboard rank failed for %s: %v", playerID, err)
		return rec
	}
	rec.Rank = rank
	if stats, changed := s.progression.UpdateRank(ctx, playerID, rank); changed {
		rec.Update.Stats = stats
	}
	if s.progression.CheckTopPlayerAchievement(ctx, playerID) {
		rec.Update.Unlocked = append(rec.Update.Unlocked, progression.TopPlayer)
		rec.Update.Stats = s.progression.Stats(ctx, playerID)
		rec.Notifications = append(rec.Notifications, s.achievementNotice(ctx, playerID, locale, progression.TopPlayer))
	}
	return rec
}

func (s *GameService) achievementNotice(ctx context.Context, playerID, locale, id string) domain.Notification {
	params := map[string]any{"achievement": s.catalog.T(locale, "achievements.items."+id+".name", nil)}
	return s.inbox.Add(ctx, playerID, notifications.Draft{
		Type:        domain.NotificationAchievement,
		Title:       s.catalog.T(locale, "achievement_unlocked.title", params),
		Description: s.catalog.T(locale, "achievement_unlocked.description", params),
	})
}

func (s *GameService) challengeNotice(ctx context.Context, playerID, locale string, sum game.Summary) domain.Notification {
	challenger := sum.Challenger
	if challenger == "" {
		challenger = "a friend"
	}
	key := "notifications.challenge_lost"
	if sum.Result.WonChallenge {
		key = "notifications.challenge_won"
	}
	params := map[string]any{"challenger": challenger}
	return s.inbox.Add(ctx, playerID, notifications.Draft{
		Type:        domain.NotificationChallenge,
		Title:       s.catalog.T(locale, key+".title", params),
		Description: s.catalog.T(locale, key+".description", params),
	})
}

// Stats returns a player's progression record.
func (s *GameService) Stats(ctx context.Context, playerID string) domain.PlayerStats {
	return s.progression.Stats(ctx, playerID)
}

// Inbox is a player's notification list with its unread count.
type Inbox struct {
	Notifications []domain.Notification `json:"notifications"`
	Unread        int                   `json:"unread"`
}

func (s *GameService) Notifications(ctx context.Context, playerID string) Inbox {
	return Inbox{
		Notifications: s.inbox.List(ctx, playerID),
		Unread:        s.inbox.UnreadCount(ctx, playerID),
	}
}

func (s *GameService) MarkNotificationsRead(ctx context.Context, playerID string) {
	s.inbox.MarkAllRead(ctx, playerID)
}

func (s *GameService) ClearNotifications(ctx context.Context, playerID string) {
	s.inbox.Clear(ctx, playerID)
}

// Leaderboard returns the top players.
func (s *GameService) Leaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	if s.leaderboard == nil {
		return []domain.LeaderboardEntry{}, nil
	}
	return s.leaderboard.Top(ctx, limit)
}

// SignIn resolves a profile through the identity provider and issues a player token.
func (s *GameService) SignIn(ctx context.Context, signerUUID string) (domain.Profile, string, error) {
	if strings.TrimSpace(signerUUID) == "" {
		return domain.Profile{}, "", domain.Invalid("signer_uuid", "signer_uuid is required")
	}
	if s.identity == nil || s.tokens == nil {
		return domain.Profile{}, "", errors.New("sign-in is not configured")
	}
	p, err := s.identity.LookupBySigner(ctx, signerUUID)
	if err != nil {
		if errors.Is(err, domain.ErrProfileNotFound) || domain.IsValidation(err) {
			return domain.Profile{}, "", err
		}
		return domain.Profile{}, "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	token, err := s.tokens.Issue(p)
	if err != nil {
		return domain.Profile{}, "", err
	}
	return p, token, nil
}

// Authenticate validates a player token.
func (s *GameService) Authenticate(token string) (*auth.PlayerClaims, error) {
	if s.tokens == nil {
		return nil, domain.ErrUnauthenticated
	}
	return s.tokens.Validate(token)
}

// SummaryTitle is the localized heading of the summary screen.
func (s *GameService) SummaryTitle(locale string, outcome game.Outcome) string {
	switch outcome {
	case game.OutcomeWon, game.OutcomeTie, game.OutcomeLost:
		return s.catalog.T(locale, "summary.title."+string(outcome), nil)
	default:
		return s.catalog.T(locale, "summary.title.default", nil)
	}
}

// ShareText is the localized brag line posted with a share link.
func (s *GameService) ShareText(locale string, sum game.Summary) string {
	params := map[string]any{"score": sum.Result.Score, "topic": sum.Topic}
	if sum.Result.AIGame {
		return s.catalog.T(locale, "share.ai_text", params)
	}
	return s.catalog.T(locale, "share.classic_text", params)
}

func (s *GameService) shareURL(kind, ref string) string {
	return s.baseURL + "/challenge/" + kind + "/" + url.PathEscape(ref)
}
