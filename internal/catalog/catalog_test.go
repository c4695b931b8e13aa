package catalog

import (
	"context"
	"net/http"
	"net/url"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/fjod/storefront/internal/cache"
	"github.com/fjod/storefront/internal/commerce"
	"github.com/fjod/storefront/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockCatalogAPI struct {
	m           sync.RWMutex
	products    map[string]*domain.Product
	collections map[string]*domain.Collection
	page        *domain.ProductsPage
	related     map[string][]domain.Product
	lastQuery   domain.ProductsQuery
	slugCalls   int
}

func (m *mockCatalogAPI) QueryProducts(_ context.Context, q domain.ProductsQuery) (*domain.ProductsPage, error) {
	m.m.Lock()
	defer m.m.Unlock()
	m.lastQuery = q
	return m.page, nil
}

func (m *mockCatalogAPI) ProductBySlug(_ context.Context, slug string) (*domain.Product, error) {
	m.m.Lock()
	defer m.m.Unlock()
	m.slugCalls++
	p, ok := m.products[slug]
	if !ok {
		return nil, &commerce.RemoteError{Status: http.StatusNotFound}
	}
	return p, nil
}

func (m *mockCatalogAPI) RelatedProducts(_ context.Context, productID string) ([]domain.Product, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	return m.related[productID], nil
}

func (m *mockCatalogAPI) QueryCollections(context.Context) ([]domain.Collection, error) {
	var out []domain.Collection
	for _, c := range m.collections {
		out = append(out, *c)
	}
	return out, nil
}

func (m *mockCatalogAPI) CollectionBySlug(_ context.Context, slug string) (*domain.Collection, error) {
	c, ok := m.collections[slug]
	if !ok {
		return nil, &commerce.RemoteError{Status: http.StatusNotFound}
	}
	return c, nil
}

func TestParseFilter(t *testing.T) {
	v := url.Values{
		"page":       {"3"},
		"q":          {" shirt "},
		"collection": {"c-1", "c-2", ""},
		"price_min":  {"10"},
		"price_max":  {"abc"},
		"sort":       {"price_desc"},
	}
	f := ParseFilter(v)
	assert.Equal(t, 3, f.Page)
	assert.Equal(t, "shirt", f.Search)
	assert.Equal(t, []string{"c-1", "c-2"}, f.CollectionIDs)
	require.NotNil(t, f.PriceMin)
	assert.Equal(t, int64(10), *f.PriceMin)
	assert.Nil(t, f.PriceMax)
	assert.Equal(t, domain.SortPriceDesc, f.Sort)

	q := f.Query(PageSize)
	assert.Equal(t, 16, q.Skip)
	assert.Equal(t, PageSize, q.Limit)
}

func TestParseFilter_Defaults(t *testing.T) {
	for _, page := range []string{"", "0", "-4", "x"} {
		f := ParseFilter(url.Values{"page": {page}, "sort": {"bogus"}})
		assert.Equal(t, 1, f.Page, page)
		assert.Equal(t, domain.SortLastUpdated, f.Sort)
	}
}

func TestProducts(t *testing.T) {
	api := &mockCatalogAPI{page: &domain.ProductsPage{Items: []domain.Product{{ID: "p-1"}}, TotalCount: 17, TotalPages: 3}}
	s := NewService(api, nil)
	ctx := context.Background()

	res, err := s.Products(ctx, Filter{Page: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, res.TotalPages)
	assert.Equal(t, 8, api.lastQuery.Skip)
	require.NotNil(t, res.Pagination)
	assert.Equal(t, 1, res.Pagination.Previous)
	assert.Equal(t, 3, res.Pagination.Next)

	_, err = s.Products(ctx, Filter{Page: 4})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestProducts_EmptyCatalogHasOnePage(t *testing.T) {
	s := NewService(&mockCatalogAPI{page: &domain.ProductsPage{}}, nil)

	res, err := s.Products(context.Background(), Filter{Page: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, res.TotalPages)
	assert.Nil(t, res.Pagination)
}

func TestProductBySlug_ReadThrough(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	api := &mockCatalogAPI{products: map[string]*domain.Product{
		"shirt":  {ID: "p-1", Slug: "shirt", Visible: true},
		"secret": {ID: "p-2", Slug: "secret", Visible: false},
	}}
	s := NewService(api, cache.NewRedisCache(client))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		p, err := s.ProductBySlug(ctx, "shirt")
		require.NoError(t, err)
		assert.Equal(t, "p-1", p.ID)
	}
	assert.Equal(t, 1, api.slugCalls)
	assert.True(t, mr.Exists("catalog:product:shirt"))

	_, err := s.ProductBySlug(ctx, "secret")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.ProductBySlug(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRelated(t *testing.T) {
	api := &mockCatalogAPI{
		products: map[string]*domain.Product{
			"shirt":  {ID: "p-1", Slug: "shirt", Visible: true},
			"secret": {ID: "p-2", Slug: "secret", Visible: false},
		},
		related: map[string][]domain.Product{
			"p-1": {
				{ID: "p-3", Visible: true},
				{ID: "p-2", Visible: false},
				{ID: "p-1", Visible: true},
				{ID: "p-4", Visible: true},
			},
		},
	}
	s := NewService(api, nil)
	ctx := context.Background()

	items, err := s.Related(ctx, "shirt")
	require.NoError(t, err)
	var ids []string
	for _, p := range items {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []string{"p-3", "p-4"}, ids)

	_, err = s.Related(ctx, "secret")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.Related(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCollectionProducts(t *testing.T) {
	api := &mockCatalogAPI{
		collections: map[string]*domain.Collection{"summer": {ID: "c-9", Slug: "summer"}},
		page:        &domain.ProductsPage{TotalPages: 1},
	}
	s := NewService(api, nil)

	col, _, err := s.CollectionProducts(context.Background(), "summer", Filter{Page: 1})
	require.NoError(t, err)
	assert.Equal(t, "c-9", col.ID)
	assert.Equal(t, []string{"c-9"}, api.lastQuery.CollectionIDs)

	_, _, err = s.CollectionProducts(context.Background(), "winter", Filter{Page: 1})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPaginate(t *testing.T) {
	assert.Nil(t, Paginate(1, 1))

	p := Paginate(5, 10)
	var got []any
	for _, l := range p.Links {
		if l.Ellipsis {
			got = append(got, "...")
		} else {
			got = append(got, l.Page)
		}
	}
	assert.Equal(t, []any{1, "...", 3, 4, 5, 6, 7, "...", 10}, got)
	assert.Equal(t, 4, p.Previous)
	assert.Equal(t, 6, p.Next)

	first := Paginate(1, 3)
	assert.Zero(t, first.Previous)
	assert.True(t, first.Links[0].Current)
	assert.Len(t, first.Links, 3)
}
