// Package cartsync keeps a session's cached cart responsive to quantity
// changes and removals before the platform confirms them, and reconciles it
// with the platform once each change settles.
package cartsync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fjod/storefront/internal/commerce"
	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/logger"
	"github.com/fjod/storefront/internal/notify"
	"github.com/fjod/storefront/internal/querycache"
)

// CartKey is the query key of the cart inside a session cache.
const CartKey querycache.Key = "cart"

const (
	MsgSomethingWrong = "Something went wrong"
	MsgItemAdded      = "Item added to cart"
	MsgAddFailed      = "Failed to add item to cart. Please, try again later"
)

var (
	ErrQuantityUnavailable = errors.New("requested quantity exceeds availability")
	ErrStopped             = errors.New("cart synchronizer stopped")
)

const defaultClearRetries = 3

type Option func(*Synchronizer)

// WithClearRetries sets how many times Clear retries after the first failed
// attempt.
func WithClearRetries(n int) Option {
	return func(s *Synchronizer) { s.clearRetries = n }
}

// WithRetryDelay replaces the backoff between Clear attempts. attempt starts
// at 0 for the first retry.
func WithRetryDelay(fn func(attempt int) time.Duration) Option {
	return func(s *Synchronizer) { s.retryDelay = fn }
}

// DefaultRetryDelay doubles from one second and caps at thirty.
func DefaultRetryDelay(attempt int) time.Duration {
	d := time.Second << attempt
	if d > 30*time.Second || d <= 0 {
		return 30 * time.Second
	}
	return d
}

type Synchronizer struct {
	api      commerce.CartAPI
	cart     *querycache.Query[*domain.Cart]
	notifier notify.Notifier

	clearRetries int
	retryDelay   func(attempt int) time.Duration

	// mu serialises cancel, snapshot and patch so no two optimistic
	// patches interleave.
	mu sync.Mutex
	wg sync.WaitGroup

	stop     chan struct{}
	stopOnce sync.Once
}

func New(cache *querycache.Cache, api commerce.CartAPI, notifier notify.Notifier, opts ...Option) *Synchronizer {
	s := &Synchronizer{
		api:          api,
		notifier:     notifier,
		clearRetries: defaultClearRetries,
		retryDelay:   DefaultRetryDelay,
		stop:         make(chan struct{}),
	}
	s.cart = querycache.NewQuery(cache, CartKey, api.GetCart)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Cart returns the cached cart, fetching it on first use. A nil cart means
// the session has none.
func (s *Synchronizer) Cart(ctx context.Context) (*domain.Cart, error) {
	return s.cart.Ensure(ctx)
}

// Snapshot exposes the cache entry so callers can render loading and error
// states.
func (s *Synchronizer) Snapshot() querycache.Snapshot {
	return s.cart.Snapshot()
}

// ChangeQuantity sets a line item's quantity optimistically. A quantity of
// zero or less removes the item.
func (s *Synchronizer) ChangeQuantity(ctx context.Context, lineItemID string, quantity int) (*Mutation, error) {
	if quantity <= 0 {
		return s.RemoveItem(ctx, lineItemID), nil
	}

	s.mu.Lock()
	s.cart.Cancel()
	current, _ := s.cart.Data()
	if li, ok := current.LineItem(lineItemID); ok {
		if limit, bounded := li.MaxQuantity(); bounded && quantity > limit {
			s.mu.Unlock()
			return nil, ErrQuantityUnavailable
		}
	}
	previous := current.Clone()
	s.patch(current, func(patched *domain.Cart) {
		for i := range patched.LineItems {
			if patched.LineItems[i].ID == lineItemID {
				patched.LineItems[i].Quantity = quantity
			}
		}
	})
	m := newMutation(StatePatched)
	s.mu.Unlock()

	s.settle(ctx, m, previous, func(ctx context.Context) error {
		_, err := s.api.UpdateLineItemQuantity(ctx, lineItemID, quantity)
		return err
	})
	return m, nil
}

// RemoveItem drops a line item optimistically.
func (s *Synchronizer) RemoveItem(ctx context.Context, lineItemID string) *Mutation {
	s.mu.Lock()
	s.cart.Cancel()
	current, _ := s.cart.Data()
	previous := current.Clone()
	s.patch(current, func(patched *domain.Cart) {
		kept := make([]domain.LineItem, 0, len(patched.LineItems))
		for _, li := range patched.LineItems {
			if li.ID != lineItemID {
				kept = append(kept, li)
			}
		}
		patched.LineItems = kept
	})
	m := newMutation(StatePatched)
	s.mu.Unlock()

	s.settle(ctx, m, previous, func(ctx context.Context) error {
		_, err := s.api.RemoveLineItem(ctx, lineItemID)
		return err
	})
	return m
}

// patch writes a modified copy of current with a provisional subtotal. Nothing
// is written while no cart is cached. Callers hold s.mu.
func (s *Synchronizer) patch(current *domain.Cart, edit func(*domain.Cart)) {
	if current == nil {
		return
	}
	patched := current.Clone()
	edit(patched)
	patched.Subtotal = domain.ProvisionalSubtotal()
	s.cart.Set(patched)
}

// settle runs the remote call, rolls back to previous on failure and refetches
// the cart either way.
func (s *Synchronizer) settle(ctx context.Context, m *Mutation, previous *domain.Cart, call func(context.Context) error) {
	rctx := context.WithoutCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		err := call(rctx)
		if err != nil {
			s.mu.Lock()
			s.cart.Cancel()
			s.cart.Set(previous)
			s.mu.Unlock()
			logger.Printf(rctx, "cart mutation failed, rolled back: %v", err)
			s.notifier.Notify(rctx, notify.Error(MsgSomethingWrong))
		}

		s.reconcile(rctx)

		if err != nil {
			m.finish(StateRolledBack, err)
			return
		}
		m.finish(StateReconciled, nil)
	}()
}

// AddItem adds a product without patching the cache; the cart is refetched
// once the platform accepts it.
func (s *Synchronizer) AddItem(ctx context.Context, input domain.AddToCartInput) *Mutation {
	m := newMutation(StateIdle)
	rctx := context.WithoutCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if _, err := s.api.AddToCart(rctx, input); err != nil {
			logger.Printf(rctx, "add to cart failed: %v", err)
			s.notifier.Notify(rctx, notify.Error(MsgAddFailed))
			m.finish(StateFailed, err)
			return
		}
		s.notifier.Notify(rctx, notify.Info(MsgItemAdded))
		s.reconcile(rctx)
		m.finish(StateReconciled, nil)
	}()
	return m
}

// Clear empties the cart after checkout. The remote call is retried; the
// cache is only emptied once the platform has confirmed. On final failure the
// cached cart is left as it was and the mutation ends in StateFailed.
func (s *Synchronizer) Clear(ctx context.Context) *Mutation {
	m := newMutation(StateIdle)
	rctx := context.WithoutCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		var err error
		for attempt := 0; attempt <= s.clearRetries; attempt++ {
			if attempt > 0 && !s.backoff(attempt-1) {
				err = fmt.Errorf("%w after %d clear attempts: %v", ErrStopped, attempt, err)
				break
			}
			if err = s.api.ClearCart(rctx); err == nil {
				break
			}
			logger.Printf(rctx, "clear cart attempt %d failed: %v", attempt+1, err)
		}
		if err != nil {
			m.finish(StateFailed, err)
			return
		}

		s.mu.Lock()
		s.cart.Cancel()
		s.cart.Set(nil)
		s.mu.Unlock()
		s.reconcile(rctx)
		m.finish(StateReconciled, nil)
	}()
	return m
}

// backoff waits before retry attempt. It returns false when Stop cut the wait
// short.
func (s *Synchronizer) backoff(attempt int) bool {
	t := time.NewTimer(s.retryDelay(attempt))
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-s.stop:
		return false
	}
}

// Stop abandons pending Clear retries. Calls already sent to the platform
// still settle.
func (s *Synchronizer) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
}

func (s *Synchronizer) reconcile(ctx context.Context) {
	if err := s.cart.Invalidate(ctx); err != nil && !errors.Is(err, querycache.ErrCancelled) {
		logger.Printf(ctx, "cart refetch failed: %v", err)
	}
}

// Wait blocks until every mutation started so far has settled.
func (s *Synchronizer) Wait() {
	s.wg.Wait()
}
