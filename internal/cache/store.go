// Package cache is a generic, TTL-aware key/value layer over redis.
// Entries are addressed by a two-part key: an explicit type tag plus an
// instance suffix. Values are opaque serialized blobs from the store's
// point of view; callers own (de)serialization, usually through Typed.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jointrip/companion-service/internal/config"
)

// ErrCacheMiss is returned by point lookups when the key is absent.
var ErrCacheMiss = errors.New("cache miss")

// KeepTTL makes Upsert preserve the remaining TTL of an existing entry.
const KeepTTL = redis.KeepTTL

// Wildcard is the glob segment used in pattern suffixes, e.g.
// Key(TagRoomState, Wildcard) addresses every room state entry.
const Wildcard = "*"

// Type tags for every cached entity. These are explicit, stable
// constants rather than names derived from Go types, so refactoring
// never silently breaks the key scheme.
const (
	TagRoomState   = "RoomState"
	TagUserSession = "UserSession"
)

// Key builds the persisted key layout "<typeTag>:<suffix>", with multi
// part suffixes chained by ":".
func Key(tag string, parts ...string) string {
	return tag + ":" + strings.Join(parts, ":")
}

// mgetPattern atomically resolves a glob pattern to its values on the
// server side. The client cannot efficiently enumerate keys with point
// operations alone, so this is the one place the store depends on a
// server-executed scan primitive.
var mgetPattern = redis.NewScript(`
local keys = redis.call('KEYS', ARGV[1])
if #keys == 0 then
    return {}
end
return redis.call('MGET', unpack(keys))
`)

// Store is the redis-backed cache store.
type Store struct {
	client *redis.Client
}

// NewStore connects to redis and verifies the connection.
func NewStore(cfg config.RedisConfig) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Store{client: client}, nil
}

// NewStoreWithClient wraps an existing client. Used by tests.
func NewStoreWithClient(client *redis.Client) *Store {
	return &Store{client: client}
}

// Insert stores a value under (tag, suffix). A TTL is applied only when
// ttl > 0; an entry without a TTL never auto-expires.
func (s *Store) Insert(ctx context.Context, tag, suffix string, val []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if err := s.client.Set(ctx, Key(tag, suffix), val, ttl).Err(); err != nil {
		return fmt.Errorf("failed to insert %s: %w", Key(tag, suffix), err)
	}
	return nil
}

// Get is a point lookup. A miss returns ErrCacheMiss, never a hard error.
func (s *Store) Get(ctx context.Context, tag, suffix string) ([]byte, error) {
	data, err := s.client.Get(ctx, Key(tag, suffix)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to get %s: %w", Key(tag, suffix), err)
	}
	return data, nil
}

// Upsert overwrites the value under (tag, suffix), creating it when
// absent. ttl > 0 sets a fresh TTL, KeepTTL preserves the remaining TTL
// of an existing entry, and 0 leaves the entry TTL-less.
func (s *Store) Upsert(ctx context.Context, tag, suffix string, val []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, Key(tag, suffix), val, ttl).Err(); err != nil {
		return fmt.Errorf("failed to upsert %s: %w", Key(tag, suffix), err)
	}
	return nil
}

// Delete removes the entry and reports whether it existed.
func (s *Store) Delete(ctx context.Context, tag, suffix string) (bool, error) {
	n, err := s.client.Del(ctx, Key(tag, suffix)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to delete %s: %w", Key(tag, suffix), err)
	}
	return n > 0, nil
}

// Has reports whether the entry exists.
func (s *Store) Has(ctx context.Context, tag, suffix string) (bool, error) {
	n, err := s.client.Exists(ctx, Key(tag, suffix)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check %s: %w", Key(tag, suffix), err)
	}
	return n > 0, nil
}

// MGet resolves full keys to values. Absent keys are skipped.
func (s *Store) MGet(ctx context.Context, keys ...string) ([][]byte, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to mget: %w", err)
	}
	return collectValues(vals), nil
}

// MGetPattern resolves a glob key pattern to its values in one atomic
// server-side operation.
func (s *Store) MGetPattern(ctx context.Context, pattern string) ([][]byte, error) {
	res, err := mgetPattern.Run(ctx, s.client, nil, pattern).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to scan pattern %s: %w", pattern, err)
	}
	vals, ok := res.([]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected scan result type %T", res)
	}
	return collectValues(vals), nil
}

// Close releases the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

func collectValues(vals []interface{}) [][]byte {
	out := make([][]byte, 0, len(vals))
	for _, v := range vals {
		switch data := v.(type) {
		case string:
			out = append(out, []byte(data))
		case []byte:
			out = append(out, data)
		}
	}
	return out
}
