// Package idempotency remembers the response of a request keyed by its Idempotency-Key,
// so a retried order creation replays the first answer instead of reserving stock again.
package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrInFlight means another request with the same key has not finished yet.
var ErrInFlight = errors.New("request with this idempotency key is still in progress")

const pendingMarker = "pending"

// Record is a stored response.
type Record struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// Store claims keys and keeps completed responses.
type Store interface {
	// Begin claims key. It returns the stored record and true when the key already completed,
	// ErrInFlight while another holder runs, or (Record{}, false, nil) when the caller now owns the key.
	Begin(ctx context.Context, key string) (Record, bool, error)
	Complete(ctx context.Context, key string, rec Record) error
	// Abandon releases a claimed key so the request can be retried.
	Abandon(ctx context.Context, key string) error
}

// redisCmds is the part of redis.Cmdable the store uses.
type redisCmds interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

type RedisStore struct {
	client redisCmds
	prefix string
	ttl    time.Duration
}

func NewRedisStore(client redisCmds, prefix string, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *RedisStore) key(k string) string {
	return fmt.Sprintf("%s:%s", s.prefix, k)
}

func (s *RedisStore) Begin(ctx context.Context, key string) (Record, bool, error) {
	ok, err := s.client.SetNX(ctx, s.key(key), pendingMarker, s.ttl).Result()
	if err != nil {
		return Record{}, false, fmt.Errorf("claim idempotency key: %w", err)
	}
	if ok {
		return Record{}, false, nil
	}

	raw, err := s.client.Get(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		// Expired between the two calls; let the caller retry the claim.
		return Record{}, false, ErrInFlight
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("read idempotency key: %w", err)
	}
	if raw == pendingMarker {
		return Record{}, false, ErrInFlight
	}
	var rec Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return Record{}, false, fmt.Errorf("decode idempotency record: %w", err)
	}
	return rec, true, nil
}

func (s *RedisStore) Complete(ctx context.Context, key string, rec Record) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key(key), b, s.ttl).Err(); err != nil {
		return fmt.Errorf("store idempotency record: %w", err)
	}
	return nil
}

func (s *RedisStore) Abandon(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("release idempotency key: %w", err)
	}
	return nil
}

// MemoryStore is the single-process Store used when no Redis address is configured.
type MemoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]memoryEntry
}

type memoryEntry struct {
	done    bool
	rec     Record
	expires time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &MemoryStore{ttl: ttl, now: time.Now, entries: map[string]memoryEntry{}}
}

func (s *MemoryStore) Begin(_ context.Context, key string) (Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if e, ok := s.entries[key]; ok && now.Before(e.expires) {
		if !e.done {
			return Record{}, false, ErrInFlight
		}
		return e.rec, true, nil
	}
	s.entries[key] = memoryEntry{expires: now.Add(s.ttl)}
	return Record{}, false, nil
}

func (s *MemoryStore) Complete(_ context.Context, key string, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = memoryEntry{done: true, rec: rec, expires: s.now().Add(s.ttl)}
	return nil
}

func (s *MemoryStore) Abandon(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}
