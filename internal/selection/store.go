package selection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/certprep/backend/internal/models"
	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix    = "selection:user:"
	selectionTTL = 180 * 24 * time.Hour
)

// Store keeps each user's current exam selection between launches.
type Store interface {
	Get(ctx context.Context, userID string) (*models.Selection, error)
	Save(ctx context.Context, userID string, sel models.Selection) error
}

// RedisStore keeps selections in Redis as JSON with a sliding TTL.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Get returns the saved selection, or (nil, nil) if there is none.
func (r *RedisStore) Get(ctx context.Context, userID string) (*models.Selection, error) {
	data, err := r.client.Get(ctx, keyPrefix+userID).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get selection: %w", err)
	}
	var sel models.Selection
	if err := json.Unmarshal([]byte(data), &sel); err != nil {
		return nil, fmt.Errorf("decode selection: %w", err)
	}
	return &sel, nil
}

func (r *RedisStore) Save(ctx context.Context, userID string, sel models.Selection) error {
	data, err := json.Marshal(sel)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, keyPrefix+userID, data, selectionTTL).Err(); err != nil {
		return fmt.Errorf("save selection: %w", err)
	}
	return nil
}

// MemoryStore is the in-process fallback used when no Redis is configured.
type MemoryStore struct {
	mu         sync.RWMutex
	selections map[string]models.Selection
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{selections: make(map[string]models.Selection)}
}

func (m *MemoryStore) Get(ctx context.Context, userID string) (*models.Selection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sel, ok := m.selections[userID]
	if !ok {
		return nil, nil
	}
	return &sel, nil
}

func (m *MemoryStore) Save(ctx context.Context, userID string, sel models.Selection) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.selections[userID] = sel
	return nil
}
