package notifications

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"trivia-duel-service/internal/domain"
)

// MaxEntries caps each inbox; older entries fall off the end.
const MaxEntries = 50

// KeyValueStore is the persistence capability the inbox writes through.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// Draft is a notification before it gets an id, timestamp and read flag.
type Draft struct {
	Type        domain.NotificationType
	Title       string
	Description string
	Href        string
}

// Center is a per-player inbox, newest first. Storage errors are logged and
// the in-memory inbox keeps serving.
type Center struct {
	kv    KeyValueStore
	clock func() time.Time

	mu    sync.Mutex
	inbox map[string][]domain.Notification
}

func NewCenter(kv KeyValueStore) *Center {
	return NewCenterWithClock(kv, time.Now)
}

// NewCenterWithClock is test-only for deterministic timestamps.
func NewCenterWithClock(kv KeyValueStore, now func() time.Time) *Center {
	return &Center{kv: kv, clock: now, inbox: make(map[string][]domain.Notification)}
}

// Key is the storage key of a player's inbox.
func Key(playerID string) string {
	return "notifications_" + playerID
}

// Add prepends a notification and trims the inbox to MaxEntries.
func (c *Center) Add(ctx context.Context, playerID string, d Draft) domain.Notification {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := domain.Notification{
		ID:          uuid.NewString(),
		Type:        d.Type,
		Title:       d.Title,
		Description: d.Description,
		Timestamp:   c.clock().UnixMilli(),
		Href:        d.Href,
	}
	list := append([]domain.Notification{n}, c.loadLocked(ctx, playerID)...)
	if len(list) > MaxEntries {
		list = list[:MaxEntries]
	}
	c.storeLocked(ctx, playerID, list)
	return n
}

// List returns the inbox, newest first.
func (c *Center) List(ctx context.Context, playerID string) []domain.Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.Notification{}, c.loadLocked(ctx, playerID)...)
}

// UnreadCount counts entries not yet marked read.
func (c *Center) UnreadCount(ctx context.Context, playerID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, item := range c.loadLocked(ctx, playerID) {
		if !item.Read {
			n++
		}
	}
	return n
}

// MarkAllRead flags every entry as read.
func (c *Center) MarkAllRead(ctx context.Context, playerID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	list := append([]domain.Notification{}, c.loadLocked(ctx, playerID)...)
	for i := range list {
		list[i].Read = true
	}
	c.storeLocked(ctx, playerID, list)
}

// Clear empties the inbox.
func (c *Center) Clear(ctx context.Context, playerID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.storeLocked(ctx, playerID, []domain.Notification{})
}

func (c *Center) loadLocked(ctx context.Context, playerID string) []domain.Notification {
	if list, ok := c.inbox[playerID]; ok {
		return list
	}
	list := []domain.Notification{}
	raw, ok, err := c.kv.Get(ctx, Key(playerID))
	switch {
	case err != nil:
		log.Printf("notifications: load inbox for %s: %v", playerID, err)
	case ok:
		if err := json.Unmarshal([]byte(raw), &list); err != nil {
			log.Printf("notifications: decode inbox for %s: %v", playerID, err)
			list = []domain.Notification{}
		}
	}
	c.inbox[playerID] = list
	return list
}

func (c *Center) storeLocked(ctx context.Context, playerID string, list []domain.Notification) {
	c.inbox[playerID] = list
	raw, err := json.Marshal(list)
	if err != nil {
		log.Printf("notifications: encode inbox for %s: %v", playerID, err)
		return
	}
	if err := c.kv.Set(ctx, Key(playerID), string(raw)); err != nil {
		log.Printf("notifications: save inbox for %s: %v", playerID, err)
	}
}
