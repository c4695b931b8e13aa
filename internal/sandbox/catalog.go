package sandbox

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/fjod/storefront/internal/domain"
)

//go:embed migrations/*.sql
var migrations embed.FS

var (
	ErrProductNotFound    = errors.New("product not found")
	ErrCollectionNotFound = errors.New("collection not found")
)

const (
	maxProductsLimit = 100
	// RelatedLimit caps the products suggested next to a product page.
	RelatedLimit = 4
)

// Catalog is the sandbox's product store, kept in SQLite.
type Catalog struct {
	db *sql.DB
}

// NewCatalog opens the SQLite database at dbPath. ":memory:" is allowed and
// keeps a single connection so every query sees the same database.
func NewCatalog(dbPath string) (*Catalog, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	return &Catalog{db: db}, nil
}

// RunMigrations creates the schema and seeds the demo catalog.
func (c *Catalog) RunMigrations() error {
	source, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("could not open migrations: %w", err)
	}

	driver, err := sqlite.WithInstance(c.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}

	return nil
}

func (c *Catalog) Close() error {
	return c.db.Close()
}

const productColumns = `p.id, p.slug, p.name, p.description, p.price, p.discounted_price,
	p.currency, p.image_url, p.visible, p.stock, p.last_updated`

// QueryProducts returns one page of visible products matching q.
func (c *Catalog) QueryProducts(ctx context.Context, q domain.ProductsQuery) (*domain.ProductsPage, error) {
	where := []string{"p.visible = 1"}
	var args []any

	if s := strings.TrimSpace(q.Search); s != "" {
		where = append(where, "p.name LIKE ? ESCAPE '\\'")
		args = append(args, "%"+escapeLike(s)+"%")
	}
	if len(q.CollectionIDs) > 0 {
		marks := strings.TrimSuffix(strings.Repeat("?,", len(q.CollectionIDs)), ",")
		where = append(where, "p.id IN (SELECT product_id FROM product_collections WHERE collection_id IN ("+marks+"))")
		for _, id := range q.CollectionIDs {
			args = append(args, id)
		}
	}
	const effectivePrice = "CAST(COALESCE(p.discounted_price, p.price) AS REAL)"
	if q.PriceRange.Min != nil {
		where = append(where, effectivePrice+" >= ?")
		args = append(args, *q.PriceRange.Min)
	}
	if q.PriceRange.Max != nil {
		where = append(where, effectivePrice+" <= ?")
		args = append(args, *q.PriceRange.Max)
	}

	order := "p.last_updated DESC, p.id"
	switch q.Sort {
	case domain.SortPriceAsc:
		order = effectivePrice + " ASC, p.id"
	case domain.SortPriceDesc:
		order = effectivePrice + " DESC, p.id"
	}

	limit := q.Limit
	if limit <= 0 || limit > maxProductsLimit {
		limit = maxProductsLimit
	}
	skip := max(q.Skip, 0)

	cond := strings.Join(where, " AND ")

	var total int
	if err := c.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM products p WHERE "+cond, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count products: %w", err)
	}

	query := "SELECT " + productColumns + " FROM products p WHERE " + cond +
		" ORDER BY " + order + " LIMIT ? OFFSET ?"
	rows, err := c.db.QueryContext(ctx, query, append(args, limit, skip)...)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	page := &domain.ProductsPage{Items: []domain.Product{}, TotalCount: total}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		page.Items = append(page.Items, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	if total > 0 {
		page.TotalPages = (total + limit - 1) / limit
	}

	for i := range page.Items {
		if err := c.loadRelations(ctx, &page.Items[i]); err != nil {
			return nil, err
		}
	}
	return page, nil
}

// ProductBySlug returns the product whether or not it is visible.
func (c *Catalog) ProductBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	return c.product(ctx, "p.slug = ?", slug)
}

func (c *Catalog) Product(ctx context.Context, id string) (*domain.Product, error) {
	return c.product(ctx, "p.id = ?", id)
}

func (c *Catalog) product(ctx context.Context, cond string, arg any) (*domain.Product, error) {
	row := c.db.QueryRowContext(ctx, "SELECT "+productColumns+" FROM products p WHERE "+cond, arg)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := c.loadRelations(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// RelatedProducts returns up to RelatedLimit visible products sharing a
// collection with productID, those sharing the most collections first.
func (c *Catalog) RelatedProducts(ctx context.Context, productID string) ([]domain.Product, error) {
	var exists int
	err := c.db.QueryRowContext(ctx, "SELECT 1 FROM products WHERE id = ?", productID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	query := "SELECT " + productColumns + ` FROM products p
		JOIN product_collections pc ON pc.product_id = p.id
		WHERE p.visible = 1 AND p.id <> ?
			AND pc.collection_id IN (SELECT collection_id FROM product_collections WHERE product_id = ?)
		GROUP BY p.id
		ORDER BY COUNT(*) DESC, p.last_updated DESC, p.id
		LIMIT ?`
	rows, err := c.db.QueryContext(ctx, query, productID, productID, RelatedLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to query related products: %w", err)
	}
	defer rows.Close()

	out := []domain.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	for i := range out {
		if err := c.loadRelations(ctx, &out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Stock returns the units left for a product or one of its variants. ok is
// false when stock is not tracked.
func (c *Catalog) Stock(ctx context.Context, productID, variantID string) (stock int, ok bool, err error) {
	var n sql.NullInt64
	if variantID != "" {
		err = c.db.QueryRowContext(ctx,
			"SELECT stock FROM product_variants WHERE id = ? AND product_id = ?", variantID, productID).Scan(&n)
	} else {
		err = c.db.QueryRowContext(ctx, "SELECT stock FROM products WHERE id = ?", productID).Scan(&n)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, ErrProductNotFound
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to read stock: %w", err)
	}
	return int(n.Int64), n.Valid, nil
}

func (c *Catalog) QueryCollections(ctx context.Context) ([]domain.Collection, error) {
	rows, err := c.db.QueryContext(ctx,
		"SELECT id, slug, name, description, image_url FROM collections ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to query collections: %w", err)
	}
	defer rows.Close()

	out := []domain.Collection{}
	for rows.Next() {
		var col domain.Collection
		if err := rows.Scan(&col.ID, &col.Slug, &col.Name, &col.Description, &col.ImageURL); err != nil {
			return nil, fmt.Errorf("failed to scan collection: %w", err)
		}
		out = append(out, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return out, nil
}

func (c *Catalog) CollectionBySlug(ctx context.Context, slug string) (*domain.Collection, error) {
	var col domain.Collection
	err := c.db.QueryRowContext(ctx,
		"SELECT id, slug, name, description, image_url FROM collections WHERE slug = ?", slug).
		Scan(&col.ID, &col.Slug, &col.Name, &col.Description, &col.ImageURL)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCollectionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get collection: %w", err)
	}
	return &col, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProduct(s scanner) (*domain.Product, error) {
	var (
		p          domain.Product
		price      string
		discounted sql.NullString
		visible    int
		stock      sql.NullInt64
		updated    int64
	)
	err := s.Scan(&p.ID, &p.Slug, &p.Name, &p.Description, &price, &discounted,
		&p.Currency, &p.ImageURL, &visible, &stock, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan product: %w", err)
	}

	if p.Price, err = decimal.NewFromString(price); err != nil {
		return nil, fmt.Errorf("product %s price %q: %w", p.ID, price, err)
	}
	if discounted.Valid {
		if p.DiscountPrice, err = decimal.NewFromString(discounted.String); err != nil {
			return nil, fmt.Errorf("product %s discounted price %q: %w", p.ID, discounted.String, err)
		}
	}
	p.Visible = visible == 1
	p.InStock = !stock.Valid || stock.Int64 > 0
	p.LastUpdated = time.Unix(updated, 0).UTC()
	return &p, nil
}

func (c *Catalog) loadRelations(ctx context.Context, p *domain.Product) error {
	rows, err := c.db.QueryContext(ctx,
		"SELECT id, choices, stock FROM product_variants WHERE product_id = ? ORDER BY id", p.ID)
	if err != nil {
		return fmt.Errorf("failed to query variants: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			v       domain.Variant
			choices string
			stock   sql.NullInt64
		)
		if err := rows.Scan(&v.ID, &choices, &stock); err != nil {
			return fmt.Errorf("failed to scan variant: %w", err)
		}
		if err := json.Unmarshal([]byte(choices), &v.Choices); err != nil {
			return fmt.Errorf("variant %s choices: %w", v.ID, err)
		}
		v.InStock = !stock.Valid || stock.Int64 > 0
		p.Variants = append(p.Variants, v)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("row iteration error: %w", err)
	}

	colRows, err := c.db.QueryContext(ctx,
		"SELECT collection_id FROM product_collections WHERE product_id = ? ORDER BY collection_id", p.ID)
	if err != nil {
		return fmt.Errorf("failed to query product collections: %w", err)
	}
	defer colRows.Close()

	for colRows.Next() {
		var id string
		if err := colRows.Scan(&id); err != nil {
			return fmt.Errorf("failed to scan product collection: %w", err)
		}
		p.CollectionIDs = append(p.CollectionIDs, id)
	}
	return colRows.Err()
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
