// Package cache persists AI match analyses keyed by user and grant. Entries
// carry the profile version and grant revision they were computed against;
// lookups treat a mismatch as a miss instead of deleting the entry.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"grant-workers/internal/models"
)

const (
	KeyPrefix  = "match:cache:"
	DefaultTTL = 7 * 24 * time.Hour
)

var (
	ErrCacheUnavailable = errors.New("CACHE_UNAVAILABLE")
	ErrCorruptEntry     = errors.New("CACHE_ENTRY_CORRUPT")
)

// Key returns the storage key for a (user, grant) pair.
func Key(userID, grantID string) string {
	return KeyPrefix + userID + ":" + grantID
}

// ParseKey splits a storage key back into its user and grant IDs.
func ParseKey(key string) (userID, grantID string, ok bool) {
	rest, found := strings.CutPrefix(key, KeyPrefix)
	if !found {
		return "", "", false
	}
	userID, grantID, ok = strings.Cut(rest, ":")
	if !ok || userID == "" || grantID == "" {
		return "", "", false
	}
	return userID, grantID, true
}

// Store is the persistence contract used by the pipeline. Get returns nil
// without error when nothing is stored for the pair.
type Store interface {
	Get(ctx context.Context, userID, grantID string) (*models.MatchCacheEntry, error)
	Put(ctx context.Context, entry *models.MatchCacheEntry) error
}

type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	now    func() time.Time
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{client: client, ttl: ttl, now: time.Now}
}

// WithClock replaces the store's clock; used by tests and the sweeper.
func (s *RedisStore) WithClock(now func() time.Time) *RedisStore {
	s.now = now
	return s
}

func (s *RedisStore) TTL() time.Duration {
	return s.ttl
}

func (s *RedisStore) Get(ctx context.Context, userID, grantID string) (*models.MatchCacheEntry, error) {
	key := Key(userID, grantID)
	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get %s: %v", ErrCacheUnavailable, key, err)
	}
	return decodeEntry(key, data)
}

// Put upserts entry. The Redis expiry follows entry.ExpiresAt, which is
// filled from the store TTL when unset. Already expired entries are not written.
func (s *RedisStore) Put(ctx context.Context, entry *models.MatchCacheEntry) error {
	now := s.now()
	if entry.ExpiresAt.IsZero() {
		entry.ExpiresAt = now.Add(s.ttl)
	}
	ttl := entry.ExpiresAt.Sub(now)
	if ttl <= 0 {
		return nil
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	key := Key(entry.UserID, entry.GrantID)
	if err := s.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("%w: set %s: %v", ErrCacheUnavailable, key, err)
	}
	return nil
}

// Delete removes the given storage keys and returns how many existed.
func (s *RedisStore) Delete(ctx context.Context, keys ...string) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	n, err := s.client.Del(ctx, keys...).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: del: %v", ErrCacheUnavailable, err)
	}
	return n, nil
}

// Ping checks that Redis is reachable.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	return nil
}

func decodeEntry(key string, data []byte) (*models.MatchCacheEntry, error) {
	var entry models.MatchCacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptEntry, key, err)
	}
	if entry.UserID == "" || entry.GrantID == "" {
		return nil, fmt.Errorf("%w: %s: missing identifiers", ErrCorruptEntry, key)
	}
	return &entry, nil
}
