package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Typed binds one type tag to a Store and handles JSON
// (de)serialization, so the rest of the code works with structs rather
// than raw blobs.
type Typed[T any] struct {
	store *Store
	tag   string
}

// NewTyped creates a typed view of the store under the given type tag.
func NewTyped[T any](store *Store, tag string) *Typed[T] {
	return &Typed[T]{store: store, tag: tag}
}

func (t *Typed[T]) Insert(ctx context.Context, suffix string, v *T, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s entry: %w", t.tag, err)
	}
	return t.store.Insert(ctx, t.tag, suffix, data, ttl)
}

func (t *Typed[T]) Get(ctx context.Context, suffix string) (*T, error) {
	data, err := t.store.Get(ctx, t.tag, suffix)
	if err != nil {
		return nil, err
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s entry: %w", t.tag, err)
	}
	return &v, nil
}

func (t *Typed[T]) Upsert(ctx context.Context, suffix string, v *T, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s entry: %w", t.tag, err)
	}
	return t.store.Upsert(ctx, t.tag, suffix, data, ttl)
}

func (t *Typed[T]) Delete(ctx context.Context, suffix string) (bool, error) {
	return t.store.Delete(ctx, t.tag, suffix)
}

func (t *Typed[T]) Has(ctx context.Context, suffix string) (bool, error) {
	return t.store.Has(ctx, t.tag, suffix)
}

// ScanPattern returns every entry whose suffix matches the glob
// pattern, e.g. ScanPattern(ctx, Wildcard) for all entries of the tag.
func (t *Typed[T]) ScanPattern(ctx context.Context, suffixPattern string) ([]T, error) {
	blobs, err := t.store.MGetPattern(ctx, Key(t.tag, suffixPattern))
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(blobs))
	for _, data := range blobs {
		var v T
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s entry: %w", t.tag, err)
		}
		out = append(out, v)
	}
	return out, nil
}
