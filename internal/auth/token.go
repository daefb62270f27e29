package auth

import (
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"trivia-duel-service/internal/domain"
)

// DefaultTokenTTL bounds how long a player token is accepted.
const DefaultTokenTTL = 24 * time.Hour

// PlayerClaims identifies a signed-in player.
type PlayerClaims struct {
	PlayerID    string `json:"pid"`
	DisplayName string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// TokenService issues and validates HS256 player tokens.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenService(secret string, ttl time.Duration) *TokenService {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue signs a token for a resolved profile; the subject is the fid.
func (s *TokenService) Issue(p domain.Profile) (string, error) {
	now := s.now()
	id := strconv.FormatInt(p.FID, 10)
	claims := &PlayerClaims{
		PlayerID:    id,
		DisplayName: p.Name(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Validate parses a token and returns its claims, or ErrUnauthenticated.
func (s *TokenService) Validate(tokenString string) (*PlayerClaims, error) {
	if tokenString == "" {
		return nil, domain.ErrUnauthenticated
	}
	token, err := jwt.ParseWithClaims(tokenString, &PlayerClaims{}, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, domain.ErrUnauthenticated
	}
	claims, ok := token.Claims.(*PlayerClaims)
	if !ok || !token.Valid || claims.PlayerID == "" {
		return nil, domain.ErrUnauthenticated
	}
	return claims, nil
}
