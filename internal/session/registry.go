package session

import (
	"sync"
	"time"

	"github.com/fjod/storefront/internal/domain"
)

const (
	// IdleTimeout is how long an untouched session is kept.
	IdleTimeout = 30 * time.Minute

	// CleanupInterval is how often idle sessions are swept.
	CleanupInterval = time.Minute
)

// Registry holds the live sessions of this process.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	build    Factory
	idle     time.Duration
	now      func() time.Time

	stopCleanup chan struct{}
	wg          sync.WaitGroup
}

// NewRegistry starts a registry that expires sessions idle for longer than
// idle, checking every interval.
func NewRegistry(build Factory, idle, interval time.Duration) *Registry {
	if idle <= 0 {
		idle = IdleTimeout
	}
	if interval <= 0 {
		interval = CleanupInterval
	}
	r := &Registry{
		sessions:    make(map[string]*Session),
		build:       build,
		idle:        idle,
		now:         time.Now,
		stopCleanup: make(chan struct{}),
	}

	r.wg.Add(1)
	go r.cleanupLoop(interval)

	return r
}

func (r *Registry) cleanupLoop(interval time.Duration) {
	defer r.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.expire()
		case <-r.stopCleanup:
			return
		}
	}
}

func (r *Registry) expire() {
	now := r.now()
	var expired []*Session

	r.mu.Lock()
	for id, s := range r.sessions {
		if s.idleSince(now) > r.idle {
			expired = append(expired, s)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, s := range expired {
		s.close()
	}
}

// Get returns the session for tokens, creating it on first use, and marks it
// as seen.
func (r *Registry) Get(tokens domain.Tokens) *Session {
	id := IDFor(tokens)
	now := r.now()

	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if ok {
		s.touch(now)
		return s
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok {
		s.touch(now)
		return s
	}
	s = r.build(id, tokens)
	s.touch(now)
	r.sessions[id] = s
	return s
}

// Lookup finds a live session by id without touching it.
func (r *Registry) Lookup(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// ByCart returns the live sessions whose cached cart has the given id.
func (r *Registry) ByCart(cartID string) []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Session
	for _, s := range r.sessions {
		if s.Cart == nil {
			continue
		}
		if c, ok := s.Cart.Snapshot().Data.(*domain.Cart); ok && c != nil && c.ID == cartID {
			out = append(out, s)
		}
	}
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Close stops the background cleanup and waits for it to finish
func (r *Registry) Close() error {
	close(r.stopCleanup)
	r.wg.Wait()
	return nil
}
