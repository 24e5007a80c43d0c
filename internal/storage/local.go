// Package storage provides the client-scoped durable key/value storage the
// list views keep their last-fetched snapshots in.
package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/teresa-solution/housezen-portal/internal/crypto"
)

// Local is durable storage scoped to one client (browser), not to a user.
type Local interface {
	// Get returns the stored value and whether it was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	// Clear removes every key of the client.
	Clear(ctx context.Context) error
}

// RedisClient is the subset of the go-redis client used by Redis
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Redis stores one client's keys under a common namespace. Values are sealed
// when a Sealer is configured.
type Redis struct {
	client    RedisClient
	namespace string
	sealer    *crypto.Sealer
}

// NewRedis returns the storage of the client identified by namespace.
func NewRedis(client RedisClient, namespace string, sealer *crypto.Sealer) *Redis {
	return &Redis{client: client, namespace: namespace, sealer: sealer}
}

func (r *Redis) key(key string) string {
	return r.namespace + ":" + key
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %s: %w", key, err)
	}
	if r.sealer != nil {
		if data, err = r.sealer.Open(data); err != nil {
			return nil, false, fmt.Errorf("open %s: %w", key, err)
		}
	}
	return data, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, value []byte) error {
	if r.sealer != nil {
		sealed, err := r.sealer.Seal(value)
		if err != nil {
			return fmt.Errorf("seal %s: %w", key, err)
		}
		value = sealed
	}
	if err := r.client.Set(ctx, r.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func (r *Redis) Clear(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, r.namespace+":*", 100).Result()
		if err != nil {
			return fmt.Errorf("scan %s: %w", r.namespace, err)
		}
		if len(keys) > 0 {
			if err := r.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("clear %s: %w", r.namespace, err)
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// Memory is an in-process Local used when no Redis is configured.
type Memory struct {
	mu     sync.Mutex
	values map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{values: make(map[string][]byte)}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = append([]byte(nil), value...)
	return nil
}

func (m *Memory) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values = make(map[string][]byte)
	return nil
}

// Provider hands out the Local of a given client.
type Provider interface {
	ForClient(clientID string) Local
}

// RedisProvider namespaces every client under prefix.
type RedisProvider struct {
	Client RedisClient
	Prefix string
	Sealer *crypto.Sealer
}

func (p *RedisProvider) ForClient(clientID string) Local {
	return NewRedis(p.Client, p.Prefix+":client:"+clientID, p.Sealer)
}

// MemoryProvider keeps one Memory per client.
type MemoryProvider struct {
	mu      sync.Mutex
	clients map[string]*Memory
}

func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{clients: make(map[string]*Memory)}
}

func (p *MemoryProvider) ForClient(clientID string) Local {
	p.mu.Lock()
	defer p.mu.Unlock()
	m, ok := p.clients[clientID]
	if !ok {
		m = NewMemory()
		p.clients[clientID] = m
	}
	return m
}
