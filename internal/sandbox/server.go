// Package sandbox is a local stand-in for the headless commerce platform. It
// serves the REST contract the storefront's commerce client consumes, backed
// by MongoDB (carts, reviews, orders, back-in-stock requests) and SQLite
// (catalog).
package sandbox

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/fjod/storefront/internal/commerce"
	"github.com/fjod/storefront/internal/logger"
)

// Application error codes returned in details.applicationError.code.
const (
	CodeInvalidClient        = "INVALID_CLIENT"
	CodeInvalidGrant         = "INVALID_GRANT"
	CodeUnsupportedGrantType = "UNSUPPORTED_GRANT_TYPE"
	CodeProductNotFound      = "PRODUCT_NOT_FOUND"
	CodeVariantNotFound      = "VARIANT_NOT_FOUND"
	CodeOutOfStock           = "PRODUCT_OUT_OF_STOCK"
	CodeInsufficientStock    = "INSUFFICIENT_INVENTORY"
	CodeLineItemNotFound     = "LINE_ITEM_NOT_FOUND"
	CodeInvalidCursor        = "INVALID_CURSOR"
	CodeCheckoutCompleted    = "CHECKOUT_ALREADY_COMPLETED"
	CodeEmptyCart            = "CART_IS_EMPTY"
)

const maxUploadSize = 100 << 20 // 100MB

var validate = validator.New(validator.WithRequiredStructEnabled())

type Options struct {
	Catalog     *Catalog
	Carts       CartRepository
	Reviews     ReviewRepository
	Orders      OrderRepository
	BackInStock BackInStockRepository
	Tokens      *TokenIssuer
	Codes       *AuthCodes
	Members     *Members
	Uploads     *Uploads
	Checkouts   *Checkouts
	Events      Publisher

	// PublicURL prefixes every URL the sandbox hands out.
	PublicURL string
	// APIKey authorizes admin calls. Empty rejects them all.
	APIKey string
	// ClientIDs lists the OAuth clients allowed to ask for tokens. Empty
	// allows any.
	ClientIDs []string
	// AutoApprove publishes new reviews without moderation.
	AutoApprove bool

	RequestTimeout time.Duration
}

type Server struct {
	catalog     *Catalog
	carts       CartRepository
	reviews     ReviewRepository
	orders      OrderRepository
	backInStock BackInStockRepository
	tokens      *TokenIssuer
	codes       *AuthCodes
	members     *Members
	uploads     *Uploads
	checkouts   *Checkouts
	events      Publisher

	publicURL   string
	apiKey      string
	clientIDs   map[string]bool
	autoApprove bool
	timeout     time.Duration
}

func NewServer(o Options) *Server {
	s := &Server{
		catalog:     o.Catalog,
		carts:       o.Carts,
		reviews:     o.Reviews,
		orders:      o.Orders,
		backInStock: o.BackInStock,
		tokens:      o.Tokens,
		codes:       o.Codes,
		members:     o.Members,
		uploads:     o.Uploads,
		checkouts:   o.Checkouts,
		events:      o.Events,
		publicURL:   strings.TrimSuffix(o.PublicURL, "/"),
		apiKey:      o.APIKey,
		clientIDs:   make(map[string]bool, len(o.ClientIDs)),
		autoApprove: o.AutoApprove,
		timeout:     o.RequestTimeout,
	}
	for _, id := range o.ClientIDs {
		s.clientIDs[id] = true
	}
	if s.members == nil {
		s.members = NewMembers()
	}
	if s.uploads == nil {
		s.uploads = NewUploads()
	}
	if s.checkouts == nil {
		s.checkouts = NewCheckouts()
	}
	if s.events == nil {
		s.events = nopPublisher{}
	}
	if s.timeout == 0 {
		s.timeout = 10 * time.Second
	}
	return s
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/oauth/token", s.Token)
	r.Get("/oauth/authorize", s.Authorize)
	r.Get("/oauth/logout", s.Logout)

	r.Put("/_upload/{uploadID}", s.ReceiveUpload)
	r.Get("/_files/{uploadID}/{name}", s.ServeFile)

	r.Get("/checkout/{checkoutID}", s.ShowCheckout)
	r.Post("/checkout/{checkoutID}/complete", s.CompleteCheckout)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/redirects/login", s.LoginRedirect)
		r.Post("/redirects/logout", s.LogoutRedirect)
		r.With(s.requireAdmin).Post("/files/upload-url", s.UploadURL)

		r.Group(func(r chi.Router) {
			r.Use(s.authenticate)

			r.Route("/carts/current", func(r chi.Router) {
				r.Get("/", s.GetCart)
				r.Delete("/", s.DeleteCart)
				r.Post("/items", s.AddItem)
				r.Patch("/items/{lineItemID}", s.UpdateItem)
				r.Delete("/items/{lineItemID}", s.RemoveItem)
			})

			r.Post("/products/query", s.QueryProducts)
			r.Get("/products/by-slug/{slug}", s.ProductBySlug)
			r.Get("/products/{productID}/related", s.RelatedProducts)
			r.Get("/collections", s.Collections)
			r.Get("/collections/by-slug/{slug}", s.CollectionBySlug)

			r.Get("/reviews", s.ListReviews)
			r.Post("/reviews", s.CreateReview)

			r.Post("/checkout/cart", s.CheckoutCart)
			r.Post("/checkout/product", s.CheckoutProduct)

			r.Get("/orders", s.ListOrders)
			r.Get("/members/current", s.CurrentMember)
			r.Post("/back-in-stock", s.CreateBackInStock)
		})
	})

	return otelhttp.NewHandler(r, "commerce-sandbox")
}

type claimsKey struct{}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || raw == "" {
			writeError(w, http.StatusUnauthorized, "missing access token", "")
			return
		}
		claims, err := s.tokens.Parse(raw)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid access token", "")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey{}, claims)))
	})
}

func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey == "" || r.Header.Get("Authorization") != s.apiKey {
			writeError(w, http.StatusUnauthorized, "admin api key required", "")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func claimsFrom(ctx context.Context) *Claims {
	c, _ := ctx.Value(claimsKey{}).(*Claims)
	return c
}

func (s *Server) allowedClient(id string) bool {
	if len(s.clientIDs) == 0 {
		return id != ""
	}
	return s.clientIDs[id]
}

func (s *Server) url(path string) string {
	return s.publicURL + path
}

func (s *Server) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), s.timeout)
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Printf(context.Background(), "Failed to encode JSON response: %v", err)
	}
}

// writeError answers with the platform's error envelope. code becomes
// details.applicationError.code when set.
func writeError(w http.ResponseWriter, status int, message, code string) {
	body := commerce.ErrorBody{Message: message}
	if code != "" {
		body.Details.ApplicationError = &commerce.ApplicationError{Code: code}
	}
	writeJSON(w, status, body)
}

func internalError(ctx context.Context, w http.ResponseWriter, op string, err error) {
	logger.Printf(ctx, "%s: %v", op, err)
	writeError(w, http.StatusInternalServerError, "internal error", "")
}
