package challenge

import (
	"encoding/base64"
	"net/url"
	"strconv"
	"strings"

	"trivia-duel-service/internal/domain"
)

const classicTag = "classic"

// EncodeClassic packs a classic challenge into a URL-safe token:
// base64url("classic|i,j,k|score|wager|challenger|escaped message") without padding.
func EncodeClassic(c domain.ClassicChallenge) (string, error) {
	if len(c.QuestionIndices) == 0 {
		return "", domain.Invalid("questionIndices", "no original indices found")
	}
	if strings.Contains(c.Challenger, "|") {
		return "", domain.Invalid("challenger", "must not contain '|'")
	}
	indices := make([]string, len(c.QuestionIndices))
	for i, idx := range c.QuestionIndices {
		if idx < 0 {
			return "", domain.Invalid("questionIndices", "index %d is negative", idx)
		}
		indices[i] = strconv.Itoa(idx)
	}

	segment := strings.Join([]string{
		classicTag,
		strings.Join(indices, ","),
		strconv.Itoa(c.ScoreToBeat),
		strconv.FormatFloat(c.Wager, 'f', -1, 64),
		c.Challenger,
		url.PathEscape(c.Message),
	}, "|")
	return base64.RawURLEncoding.EncodeToString([]byte(segment)), nil
}

// DecodeClassic reverses EncodeClassic. Any malformed input yields ErrChallengeNotFound.
func DecodeClassic(token string) (domain.ClassicChallenge, error) {
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(token, "="))
	if err != nil {
		return domain.ClassicChallenge{}, domain.ErrChallengeNotFound
	}
	parts := strings.Split(string(raw), "|")
	if len(parts) < 3 || parts[0] != classicTag || parts[1] == "" || parts[2] == "" {
		return domain.ClassicChallenge{}, domain.ErrChallengeNotFound
	}

	var c domain.ClassicChallenge
	for _, s := range strings.Split(parts[1], ",") {
		idx, err := strconv.Atoi(s)
		if err != nil {
			return domain.ClassicChallenge{}, domain.ErrChallengeNotFound
		}
		c.QuestionIndices = append(c.QuestionIndices, idx)
	}
	if c.ScoreToBeat, err = strconv.Atoi(parts[2]); err != nil {
		return domain.ClassicChallenge{}, domain.ErrChallengeNotFound
	}
	if len(parts) > 3 && parts[3] != "" {
		if c.Wager, err = strconv.ParseFloat(parts[3], 64); err != nil {
			return domain.ClassicChallenge{}, domain.ErrChallengeNotFound
		}
	}
	if len(parts) > 4 {
		c.Challenger = parts[4]
	}
	if len(parts) > 5 && parts[5] != "" {
		if c.Message, err = url.PathUnescape(parts[5]); err != nil {
			return domain.ClassicChallenge{}, domain.ErrChallengeNotFound
		}
	}
	return c, nil
}

// ResolveClassic decodes a token and looks its indices up in the classic bank.
// One unresolvable index rejects the whole challenge.
func ResolveClassic(token string, bank []domain.Question) (domain.Challenge, error) {
	c, err := DecodeClassic(token)
	if err != nil {
		return domain.Challenge{}, err
	}
	questions := make([]domain.Question, 0, len(c.QuestionIndices))
	for _, idx := range c.QuestionIndices {
		if idx < 0 || idx >= len(bank) {
			return domain.Challenge{}, domain.ErrChallengeNotFound
		}
		questions = append(questions, bank[idx].WithIndex(idx))
	}
	return domain.Challenge{
		Questions:   questions,
		ScoreToBeat: c.ScoreToBeat,
		Wager:       c.Wager,
		Challenger:  c.Challenger,
		Message:     c.Message,
	}, nil
}

// IndicesOf collects the original bank indices of a played question list,
// skipping questions that did not come from the bank.
func IndicesOf(questions []domain.Question) []int {
	var out []int
	for _, q := range questions {
		if q.OriginalIndex != nil {
			out = append(out, *q.OriginalIndex)
		}
	}
	return out
}
