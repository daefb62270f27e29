package questions

import (
	"context"
	"strings"

	"trivia-duel-service/internal/domain"
)

const (
	MinQuestions = 5
	MaxQuestions = 50
	OptionCount  = 4
)

// Generator produces an AI question set. Implementations return the raw
// decoded game; callers run ValidateGame before using it.
type Generator interface {
	Generate(ctx context.Context, req domain.GenerateRequest) (domain.AIGame, error)
}

// ValidateRequest checks a generation request and normalizes difficulty casing.
func ValidateRequest(req domain.GenerateRequest) (domain.GenerateRequest, error) {
	req.Topic = strings.TrimSpace(req.Topic)
	req.Language = strings.TrimSpace(req.Language)
	if req.Topic == "" {
		return req, domain.Invalid("topic", "topic is required")
	}
	if req.NumQuestions == 0 {
		return req, domain.Invalid("numQuestions", "number of questions is required")
	}
	if req.NumQuestions < MinQuestions || req.NumQuestions > MaxQuestions {
		return req, domain.Invalid("numQuestions", "must be between %d and %d", MinQuestions, MaxQuestions)
	}
	if req.Difficulty == "" {
		return req, domain.Invalid("difficulty", "difficulty is required")
	}
	switch strings.ToLower(string(req.Difficulty)) {
	case "easy":
		req.Difficulty = domain.DifficultyEasy
	case "medium":
		req.Difficulty = domain.DifficultyMedium
	case "hard":
		req.Difficulty = domain.DifficultyHard
	default:
		return req, domain.Invalid("difficulty", "must be Easy, Medium or Hard")
	}
	if req.Language == "" {
		return req, domain.Invalid("language", "language is required")
	}
	return req, nil
}

// ValidateGame rejects generated sets that do not have exactly the requested
// number of questions, each with four distinct options and the answer among them once.
func ValidateGame(req domain.GenerateRequest, game domain.AIGame) error {
	if strings.TrimSpace(game.Topic) == "" {
		return domain.Invalid("topic", "generated game has no topic")
	}
	if len(game.Questions) != req.NumQuestions {
		return domain.Invalid("questions", "expected %d questions, got %d", req.NumQuestions, len(game.Questions))
	}
	return validateQuestions(game.Questions)
}

// ValidateAIGame checks a client-supplied question set before it is shared or
// played: between MinQuestions and MaxQuestions entries, each with four
// distinct options holding the answer once.
func ValidateAIGame(game domain.AIGame) error {
	if n := len(game.Questions); n < MinQuestions || n > MaxQuestions {
		return domain.Invalid("questions", "must have between %d and %d questions, got %d", MinQuestions, MaxQuestions, n)
	}
	return validateQuestions(game.Questions)
}

func validateQuestions(qs []domain.Question) error {
	for i, q := range qs {
		if err := validateQuestion(q); err != nil {
			return domain.Invalid("questions", "question %d: %s", i+1, err.Error())
		}
	}
	return nil
}

func validateQuestion(q domain.Question) error {
	if strings.TrimSpace(q.Text) == "" {
		return domain.Invalid("question", "empty text")
	}
	if len(q.Options) != OptionCount {
		return domain.Invalid("options", "expected %d options, got %d", OptionCount, len(q.Options))
	}
	seen := make(map[string]bool, len(q.Options))
	matches := 0
	for _, opt := range q.Options {
		if strings.TrimSpace(opt) == "" {
			return domain.Invalid("options", "empty option")
		}
		if seen[opt] {
			return domain.Invalid("options", "duplicate option %q", opt)
		}
		seen[opt] = true
		if opt == q.CorrectAnswer {
			matches++
		}
	}
	if matches != 1 {
		return domain.Invalid("answer", "answer %q is not among the options", q.CorrectAnswer)
	}
	return nil
}
