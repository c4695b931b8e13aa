package commerce

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/fjod/storefront/internal/domain"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const maxResponseBody = 4 << 20 // 4MB

type Config struct {
	BaseURL  string
	ClientID string
	APIKey   string
	Timeout  time.Duration
	Breaker  BreakerConfig
}

// HTTPClient talks to the platform's REST API. Instances are cheap to derive
// per session with WithTokens; the underlying transport and breaker are
// shared.
type HTTPClient struct {
	baseURL  *url.URL
	clientID string
	apiKey   string
	http     *http.Client
	breaker  *gobreaker.CircuitBreaker[*response]
	tokens   domain.Tokens
	admin    bool
}

var _ Client = (*HTTPClient)(nil)
var _ FilesAPI = (*HTTPClient)(nil)

type response struct {
	status int
	body   []byte
}

func NewHTTPClient(cfg Config) (*HTTPClient, error) {
	base, err := url.Parse(strings.TrimSuffix(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse commerce base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("commerce base url %q must be absolute", cfg.BaseURL)
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &HTTPClient{
		baseURL:  base,
		clientID: cfg.ClientID,
		apiKey:   cfg.APIKey,
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		breaker: newBreaker("commerce", cfg.Breaker),
	}, nil
}

// WithTokens returns a client acting on behalf of the session that owns
// tokens.
func (c *HTTPClient) WithTokens(tokens domain.Tokens) *HTTPClient {
	cp := *c
	cp.tokens = tokens
	cp.admin = false
	return &cp
}

// Admin returns a client authenticated with the site API key. Only media
// upload URLs need it.
func (c *HTTPClient) Admin() (*HTTPClient, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	cp := *c
	cp.tokens = domain.Tokens{}
	cp.admin = true
	return &cp, nil
}

func (c *HTTPClient) Tokens() domain.Tokens {
	return c.tokens
}

func (c *HTTPClient) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	var body []byte
	if in != nil {
		var err error
		body, err = json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal %s %s: %w", method, path, err)
		}
	}

	u := *c.baseURL
	u.Path = c.baseURL.Path + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	resp, err := c.breaker.Execute(func() (*response, error) {
		req, err := http.NewRequestWithContext(ctx, method, u.String(), bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		if in != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if c.clientID != "" {
			req.Header.Set("X-Client-Id", c.clientID)
		}
		switch {
		case c.admin:
			req.Header.Set("Authorization", c.apiKey)
		case c.tokens.AccessToken != "":
			req.Header.Set("Authorization", "Bearer "+c.tokens.AccessToken)
		}

		httpResp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer httpResp.Body.Close()

		data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBody))
		if err != nil {
			return nil, fmt.Errorf("read response: %w", err)
		}
		r := &response{status: httpResp.StatusCode, body: data}
		if r.status >= http.StatusInternalServerError {
			return r, remoteError(r)
		}
		return r, nil
	})
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}

	if resp.status >= http.StatusBadRequest {
		return fmt.Errorf("%s %s: %w", method, path, remoteError(resp))
	}
	if out == nil || resp.status == http.StatusNoContent || len(resp.body) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.body, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func remoteError(r *response) *RemoteError {
	e := &RemoteError{Status: r.status}
	if len(r.body) > 0 {
		// A non-JSON body still yields a usable error with the status only.
		_ = json.Unmarshal(r.body, &e.Body)
	}
	return e
}

// Cart

func (c *HTTPClient) GetCart(ctx context.Context) (*domain.Cart, error) {
	var cart domain.Cart
	err := c.do(ctx, http.MethodGet, "/v1/carts/current", nil, nil, &cart)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

func (c *HTTPClient) AddToCart(ctx context.Context, input domain.AddToCartInput) (*domain.Cart, error) {
	var cart domain.Cart
	if err := c.do(ctx, http.MethodPost, "/v1/carts/current/items", nil, input, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

func (c *HTTPClient) UpdateLineItemQuantity(ctx context.Context, lineItemID string, quantity int) (*domain.Cart, error) {
	var cart domain.Cart
	in := map[string]int{"quantity": quantity}
	if err := c.do(ctx, http.MethodPatch, "/v1/carts/current/items/"+url.PathEscape(lineItemID), nil, in, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

func (c *HTTPClient) RemoveLineItem(ctx context.Context, lineItemID string) (*domain.Cart, error) {
	var cart domain.Cart
	if err := c.do(ctx, http.MethodDelete, "/v1/carts/current/items/"+url.PathEscape(lineItemID), nil, nil, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

func (c *HTTPClient) ClearCart(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/v1/carts/current", nil, nil, nil)
}

// Catalog

func (c *HTTPClient) QueryProducts(ctx context.Context, query domain.ProductsQuery) (*domain.ProductsPage, error) {
	var page domain.ProductsPage
	if err := c.do(ctx, http.MethodPost, "/v1/products/query", nil, query, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *HTTPClient) ProductBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	var p domain.Product
	if err := c.do(ctx, http.MethodGet, "/v1/products/by-slug/"+url.PathEscape(slug), nil, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *HTTPClient) RelatedProducts(ctx context.Context, productID string) ([]domain.Product, error) {
	var out struct {
		Items []domain.Product `json:"items"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/products/"+url.PathEscape(productID)+"/related", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

func (c *HTTPClient) QueryCollections(ctx context.Context) ([]domain.Collection, error) {
	var out struct {
		Items []domain.Collection `json:"items"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/collections", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

func (c *HTTPClient) CollectionBySlug(ctx context.Context, slug string) (*domain.Collection, error) {
	var col domain.Collection
	if err := c.do(ctx, http.MethodGet, "/v1/collections/by-slug/"+url.PathEscape(slug), nil, nil, &col); err != nil {
		return nil, err
	}
	return &col, nil
}

// Reviews

func (c *HTTPClient) QueryReviews(ctx context.Context, query domain.ReviewsQuery) (*domain.ReviewPage, error) {
	q := url.Values{}
	q.Set("product_id", query.ProductID)
	if query.Limit > 0 {
		q.Set("limit", strconv.Itoa(query.Limit))
	}
	if query.Cursor != nil {
		q.Set("cursor", *query.Cursor)
	}
	var page domain.ReviewPage
	if err := c.do(ctx, http.MethodGet, "/v1/reviews", q, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *HTTPClient) CreateReview(ctx context.Context, input domain.CreateReviewInput) (*domain.Review, error) {
	var r domain.Review
	if err := c.do(ctx, http.MethodPost, "/v1/reviews", nil, input, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// Checkout

type checkoutURLResponse struct {
	CheckoutURL string `json:"checkout_url"`
}

func (c *HTTPClient) CheckoutURLForCart(ctx context.Context) (string, error) {
	var out checkoutURLResponse
	if err := c.do(ctx, http.MethodPost, "/v1/checkout/cart", nil, struct{}{}, &out); err != nil {
		return "", err
	}
	return out.CheckoutURL, nil
}

func (c *HTTPClient) CheckoutURLForProduct(ctx context.Context, input domain.ProductCheckoutInput) (string, error) {
	var out checkoutURLResponse
	if err := c.do(ctx, http.MethodPost, "/v1/checkout/product", nil, input, &out); err != nil {
		return "", err
	}
	return out.CheckoutURL, nil
}

// Orders and members

func (c *HTTPClient) ListOrders(ctx context.Context, limit int, cursor *string) ([]domain.Order, *string, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if cursor != nil {
		q.Set("cursor", *cursor)
	}
	var out struct {
		Items      []domain.Order `json:"items"`
		NextCursor *string        `json:"next_cursor"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/orders", q, nil, &out); err != nil {
		return nil, nil, err
	}
	return out.Items, out.NextCursor, nil
}

func (c *HTTPClient) CurrentMember(ctx context.Context) (*domain.Member, error) {
	if c.tokens.Role != domain.RoleMember {
		return nil, nil
	}
	var m domain.Member
	err := c.do(ctx, http.MethodGet, "/v1/members/current", nil, nil, &m)
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrUnauthorized) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (c *HTTPClient) CreateBackInStockRequest(ctx context.Context, req domain.BackInStockRequest) error {
	return c.do(ctx, http.MethodPost, "/v1/back-in-stock", nil, req, nil)
}

// Files

func (c *HTTPClient) GenerateUploadURL(ctx context.Context, mimeType string, opts UploadOptions) (string, error) {
	in := map[string]any{
		"mime_type": mimeType,
		"file_name": opts.FileName,
		"file_path": opts.FilePath,
		"private":   opts.Private,
	}
	var out struct {
		UploadURL string `json:"upload_url"`
	}
	if err := c.do(ctx, http.MethodPost, "/v1/files/upload-url", nil, in, &out); err != nil {
		return "", err
	}
	return out.UploadURL, nil
}
