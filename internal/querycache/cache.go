// Package querycache is a keyed store of remote query results. Each entry
// holds the last data, a status and the last error; entries can be fetched,
// patched, cancelled and invalidated, and subscribers are told about every
// change. One Cache is owned by one session.
package querycache

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

var (
	ErrNoFetcher = errors.New("querycache: no fetcher registered for key")
	ErrCancelled = errors.New("querycache: fetch cancelled")
)

type Key string

// KeyOf builds a key from its parts, e.g. KeyOf("product-reviews", id).
func KeyOf(parts ...string) Key {
	return Key(strings.Join(parts, "/"))
}

type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Snapshot is a copy of an entry's state at one point in time.
type Snapshot struct {
	Data      any
	Status    Status
	Err       error
	UpdatedAt time.Time
	Stale     bool
	Fetching  bool
}

type Fetcher func(ctx context.Context) (any, error)

type entry struct {
	snap    Snapshot
	fetcher Fetcher
	gen     uint64
	cancel  context.CancelFunc
	subs    map[uint64]func(Snapshot)
}

type Cache struct {
	mu      sync.Mutex
	entries map[Key]*entry
	sfg     singleflight.Group
	nextSub uint64
}

func New() *Cache {
	return &Cache{entries: make(map[Key]*entry)}
}

type fetchResult struct {
	snap Snapshot
	err  error
}

// entryLocked returns the entry for key, creating a pending one. c.mu must be
// held.
func (c *Cache) entryLocked(key Key) *entry {
	e, ok := c.entries[key]
	if !ok {
		e = &entry{snap: Snapshot{Status: StatusPending}}
		c.entries[key] = e
	}
	return e
}

// Register sets the function used to (re)fetch key.
func (c *Cache) Register(key Key, fetcher Fetcher) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entryLocked(key).fetcher = fetcher
}

func (c *Cache) Get(key Key) (Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return Snapshot{}, false
	}
	return e.snap, true
}

// Fetch runs the registered fetcher for key. Concurrent fetches of the same
// key share one call. A fetch that is cancelled, or overtaken by Cancel,
// never writes its result; its callers get the entry's current data, or
// ErrCancelled when there is none.
func (c *Cache) Fetch(ctx context.Context, key Key) (Snapshot, error) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok || e.fetcher == nil {
		c.mu.Unlock()
		return Snapshot{}, ErrNoFetcher
	}
	c.mu.Unlock()

	ch := c.sfg.DoChan(string(key), func() (any, error) {
		return c.run(ctx, key), nil
	})
	select {
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	case res := <-ch:
		r := res.Val.(fetchResult)
		return r.snap, r.err
	}
}

func (c *Cache) run(parent context.Context, key Key) fetchResult {
	c.mu.Lock()
	e := c.entryLocked(key)
	e.gen++
	gen := e.gen
	// The fetch outlives the first caller; only Cancel stops it.
	fctx, cancel := context.WithCancel(context.WithoutCancel(parent))
	e.cancel = cancel
	e.snap.Fetching = true
	fetcher := e.fetcher
	notify := c.collectLocked(e)
	c.mu.Unlock()
	notify()

	data, err := fetcher(fctx)
	cancel()

	c.mu.Lock()
	if e.gen != gen || c.entries[key] != e {
		snap := e.snap
		c.mu.Unlock()
		// Callers that joined the overtaken fetch read whatever replaced it.
		if snap.Status == StatusSuccess {
			return fetchResult{snap: snap}
		}
		return fetchResult{snap: snap, err: ErrCancelled}
	}
	e.cancel = nil
	e.snap.Fetching = false
	if err != nil {
		// Previous data stays visible next to the error.
		e.snap.Status = StatusError
		e.snap.Err = err
	} else {
		e.snap = Snapshot{Data: data, Status: StatusSuccess, UpdatedAt: time.Now()}
	}
	snap := e.snap
	notify = c.collectLocked(e)
	c.mu.Unlock()
	notify()

	return fetchResult{snap: snap, err: err}
}

// Cancel stops an in-flight fetch of key. Its result, if it still arrives, is
// discarded.
func (c *Cache) Cancel(key Key) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok || e.cancel == nil {
		c.mu.Unlock()
		return
	}
	e.gen++
	e.cancel()
	e.cancel = nil
	e.snap.Fetching = false
	c.sfg.Forget(string(key))
	notify := c.collectLocked(e)
	c.mu.Unlock()
	notify()
}

// SetData replaces the data of key and marks it successful. In-flight fetches
// are not cancelled; callers that need that call Cancel first.
func (c *Cache) SetData(key Key, data any) {
	c.Update(key, func(any) any { return data })
}

// Update replaces the data of key with fn(old) atomically.
func (c *Cache) Update(key Key, fn func(old any) any) {
	c.mu.Lock()
	e := c.entryLocked(key)
	e.snap.Data = fn(e.snap.Data)
	e.snap.Status = StatusSuccess
	e.snap.Err = nil
	e.snap.Stale = false
	e.snap.UpdatedAt = time.Now()
	notify := c.collectLocked(e)
	c.mu.Unlock()
	notify()
}

// Invalidate marks key stale and refetches it when a fetcher is registered.
func (c *Cache) Invalidate(ctx context.Context, key Key) error {
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok {
		c.mu.Unlock()
		return nil
	}
	e.snap.Stale = true
	hasFetcher := e.fetcher != nil
	notify := c.collectLocked(e)
	c.mu.Unlock()
	notify()

	if !hasFetcher {
		return nil
	}
	_, err := c.Fetch(ctx, key)
	return err
}

// Remove cancels and drops key together with its subscribers.
func (c *Cache) Remove(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return
	}
	if e.cancel != nil {
		e.cancel()
	}
	c.sfg.Forget(string(key))
	delete(c.entries, key)
}

// Subscribe calls fn with a snapshot after every change of key. The returned
// function removes the subscription.
func (c *Cache) Subscribe(key Key, fn func(Snapshot)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.entryLocked(key)
	c.nextSub++
	id := c.nextSub
	if e.subs == nil {
		e.subs = make(map[uint64]func(Snapshot))
	}
	e.subs[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(e.subs, id)
	}
}

// Clear drops every entry, cancelling in-flight fetches.
func (c *Cache) Clear() {
	c.mu.Lock()
	keys := make([]Key, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	c.mu.Unlock()
	for _, k := range keys {
		c.Remove(k)
	}
}

func (c *Cache) collectLocked(e *entry) func() {
	if len(e.subs) == 0 {
		return func() {}
	}
	snap := e.snap
	fns := make([]func(Snapshot), 0, len(e.subs))
	for _, fn := range e.subs {
		fns = append(fns, fn)
	}
	return func() {
		for _, fn := range fns {
			fn(snap)
		}
	}
}
