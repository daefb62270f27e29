package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"trivia-duel-service/internal/domain"
)

// BankLoader fetches a locale's classic question bank from a backing store.
type BankLoader interface {
	LoadBank(ctx context.Context, locale string) ([]domain.Question, error)
}

// BankRepository caches question banks in Redis (hash per locale) and falls back to a loader on cache miss.
// Questions are stored as: HSET bank:{locale} {index} {question json}
type BankRepository struct {
	client *redis.Client
	loader BankLoader
	ttl    time.Duration
	sf     singleflight.Group

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewBankRepository(client *redis.Client, loader BankLoader, ttl time.Duration) *BankRepository {
	return &BankRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *BankRepository) Bank(ctx context.Context, locale string) ([]domain.Question, error) {
	key := r.bankKey(locale)

	cached, err := r.client.HGetAll(ctx, key).Result()
	if err == nil && len(cached) > 0 {
		if bank, ok := buildBankFromCache(cached); ok {
			return bank, nil
		}
	}

	result, err, _ := r.sf.Do(locale, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		cached, err := r.client.HGetAll(ctx, key).Result()
		if err == nil && len(cached) > 0 {
			if bank, ok := buildBankFromCache(cached); ok {
				return bank, nil
			}
		}

		bank, err := r.loader.LoadBank(ctx, locale)
		if err != nil {
			return nil, err
		}

		ttl := r.ttlWithJitter()
		pipe := r.client.Pipeline()
		pipe.Del(ctx, key)
		for i, q := range bank {
			raw, err := json.Marshal(q)
			if err != nil {
				return nil, err
			}
			pipe.HSet(ctx, key, strconv.Itoa(i), raw)
		}
		if ttl > 0 {
			pipe.Expire(ctx, key, ttl)
		}
		_, _ = pipe.Exec(ctx)

		return bank, nil
	})
	if err != nil {
		return nil, err
	}
	return cloneBank(result.([]domain.Question)), nil
}

func (r *BankRepository) bankKey(locale string) string {
	return "bank:" + locale
}

// buildBankFromCache restores bank order from the hash fields. A gap or an
// undecodable entry counts as a miss.
func buildBankFromCache(cached map[string]string) ([]domain.Question, bool) {
	indices := make([]int, 0, len(cached))
	for field := range cached {
		idx, err := strconv.Atoi(field)
		if err != nil {
			return nil, false
		}
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	bank := make([]domain.Question, 0, len(indices))
	for i, idx := range indices {
		if idx != i {
			return nil, false
		}
		var q domain.Question
		if err := json.Unmarshal([]byte(cached[strconv.Itoa(idx)]), &q); err != nil {
			return nil, false
		}
		bank = append(bank, q)
	}
	return bank, true
}

func cloneBank(in []domain.Question) []domain.Question {
	out := make([]domain.Question, len(in))
	for i, q := range in {
		out[i] = q.Clone()
	}
	return out
}

func (r *BankRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
