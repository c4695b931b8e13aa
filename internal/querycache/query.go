package querycache

import (
	"context"
	"fmt"
)

// Query is a typed handle on one key of a Cache.
type Query[T any] struct {
	cache *Cache
	key   Key
}

// NewQuery registers fetch for key and returns a typed handle on it.
func NewQuery[T any](c *Cache, key Key, fetch func(ctx context.Context) (T, error)) *Query[T] {
	c.Register(key, func(ctx context.Context) (any, error) {
		return fetch(ctx)
	})
	return &Query[T]{cache: c, key: key}
}

func (q *Query[T]) Key() Key {
	return q.key
}

func (q *Query[T]) Snapshot() Snapshot {
	snap, _ := q.cache.Get(q.key)
	return snap
}

// Data returns the cached value. ok is false until a fetch or a patch has
// produced one.
func (q *Query[T]) Data() (data T, ok bool) {
	snap, found := q.cache.Get(q.key)
	if !found || (snap.Status != StatusSuccess && snap.Data == nil) {
		return data, false
	}
	return cast[T](snap.Data), true
}

// Ensure returns fresh cached data, fetching when there is none or it is
// stale.
func (q *Query[T]) Ensure(ctx context.Context) (T, error) {
	snap, _ := q.cache.Get(q.key)
	if snap.Status == StatusSuccess && !snap.Stale {
		return cast[T](snap.Data), nil
	}
	return q.Fetch(ctx)
}

func (q *Query[T]) Fetch(ctx context.Context) (T, error) {
	snap, err := q.cache.Fetch(ctx, q.key)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("fetch %s: %w", q.key, err)
	}
	return cast[T](snap.Data), nil
}

func (q *Query[T]) Set(v T) {
	q.cache.SetData(q.key, v)
}

func (q *Query[T]) Update(fn func(old T) T) {
	q.cache.Update(q.key, func(old any) any {
		return fn(cast[T](old))
	})
}

func (q *Query[T]) Cancel() {
	q.cache.Cancel(q.key)
}

func (q *Query[T]) Invalidate(ctx context.Context) error {
	return q.cache.Invalidate(ctx, q.key)
}

func (q *Query[T]) Subscribe(fn func(Snapshot)) func() {
	return q.cache.Subscribe(q.key, fn)
}

func cast[T any](v any) T {
	if t, ok := v.(T); ok {
		return t
	}
	var zero T
	return zero
}
