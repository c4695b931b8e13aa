package reviews

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"

	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/querycache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockReviewsAPI pages through a fixed list using the index as cursor.
type mockReviewsAPI struct {
	m       sync.RWMutex
	reviews map[string][]domain.Review
	err     error
	queries []domain.ReviewsQuery
	created []domain.CreateReviewInput
}

func (m *mockReviewsAPI) QueryReviews(_ context.Context, q domain.ReviewsQuery) (*domain.ReviewPage, error) {
	m.m.Lock()
	defer m.m.Unlock()
	m.queries = append(m.queries, q)
	if m.err != nil {
		return nil, m.err
	}
	all := m.reviews[q.ProductID]
	start := 0
	if q.Cursor != nil {
		start, _ = strconv.Atoi(*q.Cursor)
	}
	end := min(start+q.Limit, len(all))
	page := &domain.ReviewPage{Items: append([]domain.Review(nil), all[start:end]...)}
	if end < len(all) {
		next := strconv.Itoa(end)
		page.NextCursor = &next
	}
	return page, nil
}

func (m *mockReviewsAPI) CreateReview(_ context.Context, in domain.CreateReviewInput) (*domain.Review, error) {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	m.created = append(m.created, in)
	return &domain.Review{ID: "r-new", ProductID: in.ProductID, Rating: in.Rating, Moderation: domain.ModerationPending}, nil
}

func reviewsOf(productID string, statuses ...domain.ModerationStatus) []domain.Review {
	out := make([]domain.Review, len(statuses))
	for i, s := range statuses {
		out[i] = domain.Review{ID: productID + "-" + strconv.Itoa(i), ProductID: productID, Rating: 5, Moderation: s}
	}
	return out
}

func approved(n int) []domain.ModerationStatus {
	out := make([]domain.ModerationStatus, n)
	for i := range out {
		out[i] = domain.ModerationApproved
	}
	return out
}

func TestPager_FiveApprovedReviews(t *testing.T) {
	api := &mockReviewsAPI{reviews: map[string][]domain.Review{"p-1": reviewsOf("p-1", approved(5)...)}}
	p := NewPager(querycache.New(), api, "p-1")
	ctx := context.Background()

	assert.Equal(t, querycache.StatusPending, p.Status())
	assert.True(t, p.HasNext())

	for p.HasNext() {
		require.NoError(t, p.FetchNext(ctx))
	}

	pages := p.Pages()
	require.Len(t, pages, 3)
	assert.Len(t, pages[0].Items, 2)
	assert.Len(t, pages[1].Items, 2)
	assert.Len(t, pages[2].Items, 1)
	assert.NotNil(t, pages[0].NextCursor)
	assert.NotNil(t, pages[1].NextCursor)
	assert.Nil(t, pages[2].NextCursor)

	assert.Len(t, p.Items(), 5)
	assert.Equal(t, querycache.StatusSuccess, p.Status())
	assert.ErrorIs(t, p.FetchNext(ctx), ErrNoMorePages)

	require.Len(t, api.queries, 3)
	assert.Nil(t, api.queries[0].Cursor)
	for _, q := range api.queries {
		assert.Equal(t, PageSize, q.Limit)
	}
}

func TestPager_OnlyApprovedVisible(t *testing.T) {
	statuses := []domain.ModerationStatus{
		domain.ModerationApproved,
		domain.ModerationPending,
		domain.ModerationRejected,
		domain.ModerationInModeration,
		domain.ModerationApproved,
	}
	api := &mockReviewsAPI{reviews: map[string][]domain.Review{"p-1": reviewsOf("p-1", statuses...)}}
	p := NewPager(querycache.New(), api, "p-1")

	for p.HasNext() {
		require.NoError(t, p.FetchNext(context.Background()))
	}

	items := p.Items()
	require.Len(t, items, 2)
	for _, r := range items {
		assert.Equal(t, domain.ModerationApproved, r.Moderation)
	}
	// Filtering happens on read; the raw pages keep everything.
	total := 0
	for _, page := range p.Pages() {
		total += len(page.Items)
	}
	assert.Equal(t, 5, total)
}

func TestPager_ErrorIsTerminalUntilReset(t *testing.T) {
	api := &mockReviewsAPI{
		reviews: map[string][]domain.Review{"p-1": reviewsOf("p-1", approved(3)...)},
		err:     errors.New("unavailable"),
	}
	p := NewPager(querycache.New(), api, "p-1")
	ctx := context.Background()

	require.Error(t, p.FetchNext(ctx))
	assert.Equal(t, querycache.StatusError, p.Status())

	api.m.Lock()
	api.err = nil
	api.m.Unlock()

	require.Error(t, p.FetchNext(ctx))
	assert.Len(t, api.queries, 1)

	p.Reset()
	assert.Equal(t, querycache.StatusPending, p.Status())
	require.NoError(t, p.FetchNext(ctx))
	assert.Len(t, p.Items(), 2)
}

func TestPager_EmptyProduct(t *testing.T) {
	p := NewPager(querycache.New(), &mockReviewsAPI{}, "p-none")

	require.NoError(t, p.FetchNext(context.Background()))
	assert.False(t, p.HasNext())
	assert.Empty(t, p.Items())
	assert.Equal(t, querycache.StatusSuccess, p.Status())
}

func TestPager_StoredInSessionCache(t *testing.T) {
	cache := querycache.New()
	api := &mockReviewsAPI{reviews: map[string][]domain.Review{"p-1": reviewsOf("p-1", approved(1)...)}}
	p := NewPager(cache, api, "p-1")
	require.NoError(t, p.FetchNext(context.Background()))

	snap, ok := cache.Get(querycache.KeyOf("product-reviews", "p-1"))
	require.True(t, ok)
	seq, ok := snap.Data.(*Sequence)
	require.True(t, ok)
	assert.Len(t, seq.Pages, 1)
}

func TestLoader_SwitchingProductDiscardsPages(t *testing.T) {
	cache := querycache.New()
	api := &mockReviewsAPI{reviews: map[string][]domain.Review{
		"p-1": reviewsOf("p-1", approved(3)...),
		"p-2": reviewsOf("p-2", approved(1)...),
	}}
	l := NewLoader(cache, api)
	ctx := context.Background()

	first := l.For("p-1")
	require.NoError(t, first.FetchNext(ctx))
	assert.Same(t, first, l.For("p-1"))

	second := l.For("p-2")
	assert.NotSame(t, first, second)
	_, ok := cache.Get(KeyFor("p-1"))
	assert.False(t, ok)

	require.NoError(t, second.FetchNext(ctx))
	items := second.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "p-2", items[0].ProductID)
}
