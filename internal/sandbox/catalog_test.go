package sandbox

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fjod/storefront/internal/domain"
)

func setupCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := NewCatalog(":memory:")
	require.NoError(t, err)
	require.NoError(t, c.RunMigrations())
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func productIDs(items []domain.Product) []string {
	ids := make([]string, 0, len(items))
	for _, p := range items {
		ids = append(ids, p.ID)
	}
	return ids
}

func TestCatalog_MigrationsAreIdempotent(t *testing.T) {
	c := setupCatalog(t)
	assert.NoError(t, c.RunMigrations())
}

func TestQueryProducts_VisibleOnlyNewestFirst(t *testing.T) {
	c := setupCatalog(t)

	page, err := c.QueryProducts(context.Background(), domain.ProductsQuery{Limit: 10})
	require.NoError(t, err)

	assert.Equal(t, 5, page.TotalCount)
	assert.Equal(t, 1, page.TotalPages)
	assert.Equal(t, []string{"prod-poster", "prod-hoodie", "prod-tee", "prod-travel-mug", "prod-mug"}, productIDs(page.Items))
}

func TestQueryProducts_Pages(t *testing.T) {
	c := setupCatalog(t)
	ctx := context.Background()

	first, err := c.QueryProducts(ctx, domain.ProductsQuery{Limit: 2})
	require.NoError(t, err)
	last, err := c.QueryProducts(ctx, domain.ProductsQuery{Limit: 2, Skip: 4})
	require.NoError(t, err)

	assert.Equal(t, 3, first.TotalPages)
	assert.Len(t, first.Items, 2)
	assert.Equal(t, []string{"prod-mug"}, productIDs(last.Items))
}

func TestQueryProducts_Filters(t *testing.T) {
	c := setupCatalog(t)
	ctx := context.Background()
	lo, hi := int64(20), int64(30)

	tests := []struct {
		name  string
		query domain.ProductsQuery
		want  []string
	}{
		{
			name:  "search is case insensitive",
			query: domain.ProductsQuery{Search: "MUG"},
			want:  []string{"prod-travel-mug", "prod-mug"},
		},
		{
			name:  "collection",
			query: domain.ProductsQuery{CollectionIDs: []string{"col-apparel"}},
			want:  []string{"prod-hoodie", "prod-tee"},
		},
		{
			name:  "price range uses discounted price",
			query: domain.ProductsQuery{PriceRange: domain.PriceRange{Min: &lo, Max: &hi}},
			want:  []string{"prod-tee", "prod-travel-mug"},
		},
		{
			name:  "price ascending",
			query: domain.ProductsQuery{Sort: domain.SortPriceAsc, CollectionIDs: []string{"col-mugs"}},
			want:  []string{"prod-mug", "prod-travel-mug"},
		},
		{
			name:  "price descending",
			query: domain.ProductsQuery{Sort: domain.SortPriceDesc},
			want:  []string{"prod-hoodie", "prod-travel-mug", "prod-tee", "prod-mug", "prod-poster"},
		},
		{
			name:  "like wildcards are literal",
			query: domain.ProductsQuery{Search: "%"},
			want:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := c.QueryProducts(ctx, tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, productIDs(page.Items))
		})
	}
}

func TestRelatedProducts(t *testing.T) {
	c := setupCatalog(t)
	ctx := context.Background()

	related, err := c.RelatedProducts(ctx, "prod-mug")
	require.NoError(t, err)
	assert.Equal(t, []string{"prod-travel-mug", "prod-poster", "prod-hoodie", "prod-tee"}, productIDs(related))

	none, err := c.RelatedProducts(ctx, "prod-prototype")
	require.NoError(t, err)
	assert.Empty(t, none)
	assert.NotNil(t, none)

	_, err = c.RelatedProducts(ctx, "prod-missing")
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestRelatedProducts_Limit(t *testing.T) {
	c := setupCatalog(t)
	ctx := context.Background()

	_, err := c.db.ExecContext(ctx, `INSERT INTO products (id, slug, name, description, price, currency, image_url, visible, stock, last_updated)
		VALUES ('prod-cap', 'cap', 'Cap', '', '12.00', 'USD', '', 1, NULL, 1717000000)`)
	require.NoError(t, err)
	_, err = c.db.ExecContext(ctx, "INSERT INTO product_collections (product_id, collection_id) VALUES ('prod-cap', 'col-all')")
	require.NoError(t, err)

	related, err := c.RelatedProducts(ctx, "prod-poster")
	require.NoError(t, err)
	assert.Len(t, related, RelatedLimit)
	assert.NotContains(t, productIDs(related), "prod-cap")
}

func TestProductBySlug(t *testing.T) {
	c := setupCatalog(t)
	ctx := context.Background()

	p, err := c.ProductBySlug(ctx, "travel-mug")
	require.NoError(t, err)
	assert.Equal(t, "Travel Mug", p.Name)
	assert.True(t, p.Price.Equal(decimal.RequireFromString("32")))
	assert.True(t, p.DiscountPrice.Equal(decimal.RequireFromString("27.5")))
	assert.True(t, p.InStock)
	assert.ElementsMatch(t, []string{"col-all", "col-mugs"}, p.CollectionIDs)

	hidden, err := c.ProductBySlug(ctx, "prototype-mug")
	require.NoError(t, err)
	assert.False(t, hidden.Visible)

	_, err = c.ProductBySlug(ctx, "nope")
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestProduct_Variants(t *testing.T) {
	c := setupCatalog(t)

	p, err := c.Product(context.Background(), "prod-tee")
	require.NoError(t, err)
	require.Len(t, p.Variants, 3)

	v, ok := p.FindVariant(map[string]string{"Size": "M"})
	require.True(t, ok)
	assert.Equal(t, "var-tee-m", v.ID)
	assert.False(t, v.InStock)
}

func TestStock(t *testing.T) {
	c := setupCatalog(t)
	ctx := context.Background()

	n, tracked, err := c.Stock(ctx, "prod-travel-mug", "")
	require.NoError(t, err)
	assert.True(t, tracked)
	assert.Equal(t, 3, n)

	_, tracked, err = c.Stock(ctx, "prod-tee", "var-tee-l")
	require.NoError(t, err)
	assert.False(t, tracked)

	_, _, err = c.Stock(ctx, "prod-tee", "var-mug-s")
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestCollections(t *testing.T) {
	c := setupCatalog(t)
	ctx := context.Background()

	cols, err := c.QueryCollections(ctx)
	require.NoError(t, err)
	assert.Len(t, cols, 3)
	assert.Equal(t, "All Products", cols[0].Name)

	col, err := c.CollectionBySlug(ctx, "mugs")
	require.NoError(t, err)
	assert.Equal(t, "col-mugs", col.ID)

	_, err = c.CollectionBySlug(ctx, "hats")
	assert.ErrorIs(t, err, ErrCollectionNotFound)
}
