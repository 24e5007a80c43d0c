package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teresa-solution/housezen-portal/internal/model"
)

type fakeRedis struct {
	values map[string]string
	ttls   map[string]time.Duration
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	v, ok := f.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) SetEx(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	f.values[key] = string(value.([]byte))
	f.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	for _, k := range keys {
		delete(f.values, k)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

func TestRedisSessions(t *testing.T) {
	ctx := context.Background()
	rdb := &fakeRedis{values: map[string]string{}, ttls: map[string]time.Duration{}}
	sessions := NewRedisSessions(rdb, "housezen:tenant")

	missing, err := sessions.Get(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	s := &model.Session{
		ID:        "abc",
		User:      model.User{ID: uuid.New(), Email: "ana@example.com"},
		ExpiresAt: time.Now().Add(time.Hour),
	}
	require.NoError(t, sessions.Put(ctx, s))
	assert.InDelta(t, time.Hour.Seconds(), rdb.ttls["housezen:tenant:session:abc"].Seconds(), 5)
	assert.NotContains(t, rdb.values["housezen:tenant:session:abc"], "token")

	found, err := sessions.Get(ctx, "abc")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, s.User, found.User)

	require.NoError(t, sessions.Delete(ctx, "abc"))
	found, err = sessions.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestRedisSessions_ExpiredToken(t *testing.T) {
	rdb := &fakeRedis{values: map[string]string{}, ttls: map[string]time.Duration{}}
	sessions := NewRedisSessions(rdb, "housezen:tenant")

	err := sessions.Put(context.Background(), &model.Session{ID: "old", ExpiresAt: time.Now().Add(-time.Minute)})
	assert.Error(t, err)
}
