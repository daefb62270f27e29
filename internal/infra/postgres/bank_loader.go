package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"trivia-duel-service/internal/domain"
)

// Fallback serves banks for locales that have no row.
type Fallback interface {
	LoadBank(ctx context.Context, locale string) ([]domain.Question, error)
}

// BankLoader loads question bank JSONB from Postgres, deferring to a fallback
// for locales without a row.
type BankLoader struct {
	pool     *pgxpool.Pool
	fallback Fallback
}

func NewBankLoader(pool *pgxpool.Pool, fallback Fallback) *BankLoader {
	return &BankLoader{pool: pool, fallback: fallback}
}

func (l *BankLoader) LoadBank(ctx context.Context, locale string) ([]domain.Question, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `SELECT questions FROM question_banks WHERE locale=$1`, locale).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) && l.fallback != nil {
		return l.fallback.LoadBank(ctx, locale)
	}
	if err != nil {
		return nil, fmt.Errorf("load bank: %w", err)
	}
	var bank []domain.Question
	if err := json.Unmarshal(raw, &bank); err != nil {
		return nil, fmt.Errorf("unmarshal bank: %w", err)
	}
	return bank, nil
}

// SaveBank stores a locale's bank, replacing any previous one.
func (l *BankLoader) SaveBank(ctx context.Context, locale string, bank []domain.Question) error {
	raw, err := json.Marshal(bank)
	if err != nil {
		return fmt.Errorf("marshal bank: %w", err)
	}
	_, err = l.pool.Exec(ctx, `
		INSERT INTO question_banks (locale, questions, updated_at) VALUES ($1, $2, now())
		ON CONFLICT (locale) DO UPDATE SET questions = EXCLUDED.questions, updated_at = now()`, locale, raw)
	if err != nil {
		return fmt.Errorf("save bank: %w", err)
	}
	return nil
}
