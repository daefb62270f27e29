package questions

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"trivia-duel-service/internal/domain"
)

// ClassicGameSize is how many bank questions a classic game draws.
const ClassicGameSize = 10

// BankRepository returns the classic question bank of a locale. Indices must
// line up across locales so classic challenge tokens resolve in any of them.
type BankRepository interface {
	Bank(ctx context.Context, locale string) ([]domain.Question, error)
}

// Pool draws classic games from the bank.
type Pool struct {
	banks BankRepository

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewPool(banks BankRepository) *Pool {
	return NewPoolWithRand(banks, rand.New(rand.NewSource(time.Now().UnixNano())))
}

// NewPoolWithRand fixes the draw order for tests.
func NewPoolWithRand(banks BankRepository, rnd *rand.Rand) *Pool {
	return &Pool{banks: banks, rnd: rnd}
}

// Bank returns the full bank of a locale.
func (p *Pool) Bank(ctx context.Context, locale string) ([]domain.Question, error) {
	return p.banks.Bank(ctx, locale)
}

// Classic draws up to n distinct bank questions, each tagged with its bank index.
func (p *Pool) Classic(ctx context.Context, locale string, n int) ([]domain.Question, error) {
	bank, err := p.banks.Bank(ctx, locale)
	if err != nil {
		return nil, err
	}
	if len(bank) == 0 {
		return nil, domain.Invalid("bank", "no classic questions for locale %q", locale)
	}
	return p.Pick(bank, n), nil
}

// Pick returns up to n distinct questions from bank in random order.
func (p *Pool) Pick(bank []domain.Question, n int) []domain.Question {
	p.mu.Lock()
	order := p.rnd.Perm(len(bank))
	p.mu.Unlock()

	if n <= 0 || n > len(order) {
		n = len(order)
	}
	out := make([]domain.Question, n)
	for i := 0; i < n; i++ {
		idx := order[i]
		out[i] = bank[idx].WithIndex(idx)
	}
	return out
}
