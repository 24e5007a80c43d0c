package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/teresa-solution/housezen-portal/internal/model"
)

// SessionStore persists sessions by id.
type SessionStore interface {
	Get(ctx context.Context, id string) (*model.Session, error)
	Put(ctx context.Context, s *model.Session) error
	Delete(ctx context.Context, id string) error
}

// RedisClient is the subset of the go-redis client used by RedisSessions
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	SetEx(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// DefaultSessionTTL bounds sessions whose token carries no expiry.
const DefaultSessionTTL = 12 * time.Hour

// RedisSessions keeps sessions in Redis until their token expires.
type RedisSessions struct {
	client RedisClient
	prefix string
}

func NewRedisSessions(client RedisClient, prefix string) *RedisSessions {
	return &RedisSessions{client: client, prefix: prefix}
}

func (r *RedisSessions) key(id string) string {
	return fmt.Sprintf("%s:session:%s", r.prefix, id)
}

// Get returns the session, or nil when it does not exist.
func (r *RedisSessions) Get(ctx context.Context, id string) (*model.Session, error) {
	data, err := r.client.Get(ctx, r.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	s := &model.Session{}
	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return s, nil
}

func (r *RedisSessions) Put(ctx context.Context, s *model.Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	ttl := DefaultSessionTTL
	if !s.ExpiresAt.IsZero() {
		ttl = time.Until(s.ExpiresAt)
	}
	if ttl <= 0 {
		return fmt.Errorf("session %s already expired", s.ID)
	}
	if err := r.client.SetEx(ctx, r.key(s.ID), data, ttl).Err(); err != nil {
		return fmt.Errorf("put session: %w", err)
	}
	return nil
}

func (r *RedisSessions) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, r.key(id)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// MemorySessions is an in-process SessionStore.
type MemorySessions struct {
	mu       sync.Mutex
	sessions map[string]model.Session
}

func NewMemorySessions() *MemorySessions {
	return &MemorySessions{sessions: make(map[string]model.Session)}
}

func (m *MemorySessions) Get(_ context.Context, id string) (*model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *MemorySessions) Put(_ context.Context, s *model.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = *s
	return nil
}

func (m *MemorySessions) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}
