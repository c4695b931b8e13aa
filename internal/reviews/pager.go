// Package reviews loads a product's reviews page by page into the session
// query cache and submits new reviews.
package reviews

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/fjod/storefront/internal/commerce"
	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/querycache"
)

// PageSize is how many reviews one page request asks for.
const PageSize = 2

var ErrNoMorePages = errors.New("reviews: no more pages")

// KeyFor is the cache key of a product's review pages.
func KeyFor(productID string) querycache.Key {
	return querycache.KeyOf("product-reviews", productID)
}

// Sequence is the ordered, append-only list of pages fetched so far. A
// Sequence stored in the cache is never modified; appending builds a new one.
type Sequence struct {
	Pages []domain.ReviewPage
}

func (s *Sequence) with(page domain.ReviewPage) *Sequence {
	out := &Sequence{}
	if s != nil {
		out.Pages = make([]domain.ReviewPage, 0, len(s.Pages)+1)
		out.Pages = append(out.Pages, s.Pages...)
	}
	out.Pages = append(out.Pages, page)
	return out
}

// nextCursor returns the cursor of the following page. done is true once the
// last fetched page had no cursor.
func (s *Sequence) nextCursor() (cursor *string, done bool) {
	if s == nil || len(s.Pages) == 0 {
		return nil, false
	}
	last := s.Pages[len(s.Pages)-1]
	return last.NextCursor, last.NextCursor == nil
}

// Pager walks one product's reviews.
type Pager struct {
	api       commerce.ReviewsAPI
	cache     *querycache.Cache
	productID string
	key       querycache.Key

	mu       sync.Mutex
	gen      uint64
	fetching bool
	err      error
}

func NewPager(cache *querycache.Cache, api commerce.ReviewsAPI, productID string) *Pager {
	return &Pager{
		api:       api,
		cache:     cache,
		productID: productID,
		key:       KeyFor(productID),
	}
}

func (p *Pager) ProductID() string {
	return p.productID
}

func (p *Pager) sequence() *Sequence {
	snap, ok := p.cache.Get(p.key)
	if !ok {
		return nil
	}
	seq, _ := snap.Data.(*Sequence)
	return seq
}

// FetchNext loads the page after the last one fetched. It does nothing while
// another page is loading. Once a page fetch has failed the pager stays in
// the error state until Reset.
func (p *Pager) FetchNext(ctx context.Context) error {
	p.mu.Lock()
	if p.err != nil {
		err := p.err
		p.mu.Unlock()
		return err
	}
	if p.fetching {
		p.mu.Unlock()
		return nil
	}
	cursor, done := p.sequence().nextCursor()
	if done {
		p.mu.Unlock()
		return ErrNoMorePages
	}
	p.fetching = true
	gen := p.gen
	p.mu.Unlock()

	page, err := p.api.QueryReviews(ctx, domain.ReviewsQuery{
		ProductID: p.productID,
		Limit:     PageSize,
		Cursor:    cursor,
	})

	p.mu.Lock()
	defer p.mu.Unlock()
	if gen != p.gen {
		return querycache.ErrCancelled
	}
	p.fetching = false
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		p.err = fmt.Errorf("fetch reviews of %s: %w", p.productID, err)
		return p.err
	}
	if page == nil {
		page = &domain.ReviewPage{}
	}
	p.cache.Update(p.key, func(old any) any {
		seq, _ := old.(*Sequence)
		return seq.with(*page)
	})
	return nil
}

// HasNext is true until a page without a next cursor has been fetched.
func (p *Pager) HasNext() bool {
	_, done := p.sequence().nextCursor()
	return !done
}

func (p *Pager) IsFetchingNext() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fetching
}

// Status is pending before the first page, error after a failed fetch and
// success otherwise.
func (p *Pager) Status() querycache.Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch {
	case p.err != nil:
		return querycache.StatusError
	case p.sequence() == nil:
		return querycache.StatusPending
	default:
		return querycache.StatusSuccess
	}
}

func (p *Pager) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Pages returns the fetched pages unfiltered.
func (p *Pager) Pages() []domain.ReviewPage {
	seq := p.sequence()
	if seq == nil {
		return nil
	}
	return append([]domain.ReviewPage(nil), seq.Pages...)
}

// Items returns the approved reviews of every fetched page in order.
func (p *Pager) Items() []domain.Review {
	var out []domain.Review
	for _, page := range p.Pages() {
		for _, r := range page.Items {
			if r.Approved() {
				out = append(out, r)
			}
		}
	}
	return out
}

// Reset drops every fetched page and any error, so the next FetchNext starts
// from the first page. A page still loading is discarded.
func (p *Pager) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.gen++
	p.fetching = false
	p.err = nil
	p.cache.Remove(p.key)
}

// Loader hands out the pager of the product currently being viewed.
type Loader struct {
	api   commerce.ReviewsAPI
	cache *querycache.Cache

	mu      sync.Mutex
	current *Pager
}

func NewLoader(cache *querycache.Cache, api commerce.ReviewsAPI) *Loader {
	return &Loader{api: api, cache: cache}
}

// For returns the pager of productID. Asking for a different product than
// last time discards the previous product's pages.
func (l *Loader) For(productID string) *Pager {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.current != nil {
		if l.current.productID == productID {
			return l.current
		}
		l.current.Reset()
	}
	l.current = NewPager(l.cache, l.api, productID)
	return l.current
}
