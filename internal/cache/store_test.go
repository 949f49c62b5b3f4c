package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewStoreWithClient(client), mr
}

func TestKey(t *testing.T) {
	assert.Equal(t, "RoomState:123", Key(TagRoomState, "123"))
	assert.Equal(t, "RoomState:1:2:3", Key(TagRoomState, "1", "2", "3"))
	assert.Equal(t, "RoomState:1:*:3", Key(TagRoomState, "1", Wildcard, "3"))
}

func TestInsertGet(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, "Thing", "1", []byte("hello"), 0))

	got, err := store.Get(ctx, "Thing", "1")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), got)
}

func TestGetMiss(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.Get(context.Background(), "Thing", "absent")
	require.ErrorIs(t, err, ErrCacheMiss)
}

func TestInsertTTL(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, "Thing", "ttl", []byte("x"), time.Minute))
	assert.Equal(t, time.Minute, mr.TTL("Thing:ttl"))

	// ttl <= 0 means no expiry
	require.NoError(t, store.Insert(ctx, "Thing", "forever", []byte("x"), 0))
	assert.Zero(t, mr.TTL("Thing:forever"))
}

func TestUpsertTTLSemantics(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, "Thing", "1", []byte("v1"), time.Minute))

	// KeepTTL preserves the remaining TTL.
	require.NoError(t, store.Upsert(ctx, "Thing", "1", []byte("v2"), KeepTTL))
	got, err := store.Get(ctx, "Thing", "1")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), got)
	assert.Equal(t, time.Minute, mr.TTL("Thing:1"))

	// A positive ttl resets it.
	require.NoError(t, store.Upsert(ctx, "Thing", "1", []byte("v3"), time.Hour))
	assert.Equal(t, time.Hour, mr.TTL("Thing:1"))

	// Zero leaves the entry TTL-less.
	require.NoError(t, store.Upsert(ctx, "Thing", "1", []byte("v4"), 0))
	assert.Zero(t, mr.TTL("Thing:1"))

	// Upsert on an absent key behaves as insert.
	require.NoError(t, store.Upsert(ctx, "Thing", "2", []byte("new"), 0))
	got, err = store.Get(ctx, "Thing", "2")
	require.NoError(t, err)
	assert.Equal(t, []byte("new"), got)
}

func TestDelete(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, "Thing", "1", []byte("x"), 0))

	existed, err := store.Delete(ctx, "Thing", "1")
	require.NoError(t, err)
	assert.True(t, existed)

	existed, err = store.Delete(ctx, "Thing", "1")
	require.NoError(t, err)
	assert.False(t, existed)
}

func TestHas(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	ok, err := store.Has(ctx, "Thing", "1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Insert(ctx, "Thing", "1", []byte("x"), 0))

	ok, err = store.Has(ctx, "Thing", "1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMGet(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, "Thing", "1", []byte("a"), 0))
	require.NoError(t, store.Insert(ctx, "Thing", "2", []byte("b"), 0))

	vals, err := store.MGet(ctx, "Thing:1", "Thing:2", "Thing:absent")
	require.NoError(t, err)
	assert.Len(t, vals, 2)
}

func TestMGetPattern(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, "Thing", "1:a", []byte("a"), 0))
	require.NoError(t, store.Insert(ctx, "Thing", "1:b", []byte("b"), 0))
	require.NoError(t, store.Insert(ctx, "Thing", "2:c", []byte("c"), 0))
	require.NoError(t, store.Insert(ctx, "Other", "1:d", []byte("d"), 0))

	vals, err := store.MGetPattern(ctx, Key("Thing", "1", Wildcard))
	require.NoError(t, err)
	assert.ElementsMatch(t, [][]byte{[]byte("a"), []byte("b")}, vals)

	vals, err = store.MGetPattern(ctx, Key("Thing", Wildcard))
	require.NoError(t, err)
	assert.Len(t, vals, 3)

	vals, err = store.MGetPattern(ctx, Key("Nothing", Wildcard))
	require.NoError(t, err)
	assert.Empty(t, vals)
}

type testEntry struct {
	ID    string `json:"id"`
	Count int    `json:"count"`
}

func TestTypedRoundTrip(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	typed := NewTyped[testEntry](store, "TestEntry")

	require.NoError(t, typed.Insert(ctx, "1", &testEntry{ID: "1", Count: 3}, 0))

	got, err := typed.Get(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, &testEntry{ID: "1", Count: 3}, got)

	_, err = typed.Get(ctx, "absent")
	require.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, typed.Upsert(ctx, "1", &testEntry{ID: "1", Count: 4}, KeepTTL))
	got, err = typed.Get(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, 4, got.Count)
}

func TestTypedScanPattern(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	typed := NewTyped[testEntry](store, "TestEntry")
	require.NoError(t, typed.Insert(ctx, "1", &testEntry{ID: "1"}, 0))
	require.NoError(t, typed.Insert(ctx, "2", &testEntry{ID: "2"}, 0))

	all, err := typed.ScanPattern(ctx, Wildcard)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
