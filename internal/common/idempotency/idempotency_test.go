package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRedis keeps values in a map and answers with pre-built go-redis results.
type fakeRedis struct {
	values map[string]string
	err    error
}

func newFakeRedis() *fakeRedis { return &fakeRedis{values: map[string]string{}} }

func (f *fakeRedis) SetNX(_ context.Context, key string, value interface{}, _ time.Duration) *redis.BoolCmd {
	if f.err != nil {
		return redis.NewBoolResult(false, f.err)
	}
	if _, ok := f.values[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	f.values[key] = value.(string)
	return redis.NewBoolResult(true, nil)
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	v, ok := f.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value interface{}, _ time.Duration) *redis.StatusCmd {
	f.values[key] = string(value.([]byte))
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	for _, k := range keys {
		delete(f.values, k)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

func TestRedisStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	fake := newFakeRedis()
	s := NewRedisStore(fake, "rpos:idem", time.Hour)

	_, found, err := s.Begin(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, "pending", fake.values["rpos:idem:abc"])

	_, _, err = s.Begin(ctx, "abc")
	require.ErrorIs(t, err, ErrInFlight)

	rec := Record{Status: 201, ContentType: "application/json", Body: []byte(`{"id":"o-1"}`)}
	require.NoError(t, s.Complete(ctx, "abc", rec))

	got, found, err := s.Begin(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, rec, got)

	var stored Record
	require.NoError(t, json.Unmarshal([]byte(fake.values["rpos:idem:abc"]), &stored))
	assert.Equal(t, 201, stored.Status)
}

func TestRedisStoreAbandonFreesKey(t *testing.T) {
	ctx := context.Background()
	s := NewRedisStore(newFakeRedis(), "p", 0)

	_, _, err := s.Begin(ctx, "k")
	require.NoError(t, err)
	require.NoError(t, s.Abandon(ctx, "k"))

	_, found, err := s.Begin(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRedisStoreWrapsClientErrors(t *testing.T) {
	fake := newFakeRedis()
	fake.err = errors.New("connection refused")

	_, _, err := NewRedisStore(fake, "p", time.Minute).Begin(context.Background(), "k")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "claim idempotency key")
}

func TestMemoryStoreExpires(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(time.Minute)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	_, _, err := s.Begin(ctx, "k")
	require.NoError(t, err)
	require.NoError(t, s.Complete(ctx, "k", Record{Status: 201}))

	rec, found, err := s.Begin(ctx, "k")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 201, rec.Status)

	now = now.Add(2 * time.Minute)
	_, found, err = s.Begin(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)
}
