package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/fjod/storefront/internal/catalog"
	"github.com/fjod/storefront/internal/commerce"
	"github.com/fjod/storefront/internal/media"
	"github.com/fjod/storefront/internal/session"
)

type Deps struct {
	Registry *session.Registry
	Auth     commerce.AuthAPI
	Issuer   media.URLIssuer
	Catalog  *catalog.Service
	Cookies  session.Cookies

	RequestTimeout time.Duration
}

// NewRouter builds the storefront's HTTP surface.
func NewRouter(d Deps) http.Handler {
	timeout := d.RequestTimeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	cartHandler := NewCartHandler(timeout)
	accountHandler := NewAccountHandler(timeout)
	authHandler := NewAuthHandler(d.Auth, d.Cookies, timeout)
	mediaHandler := NewMediaHandler(d.Issuer, timeout)
	catalogHandler := NewCatalogHandler(d.Catalog, timeout)
	reviewHandler := NewReviewHandler(timeout)
	checkoutHandler := NewCheckoutHandler(d.Catalog, d.Cookies, timeout)

	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.Compress(5))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/api/auth/callback/wix", authHandler.Callback)
	r.Get("/api/review/media/upload-url", mediaHandler.UploadURL)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(session.Middleware(d.Registry, d.Auth, d.Cookies))

		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartHandler.GetCart)
			r.Post("/items", cartHandler.AddItem)
			r.Patch("/items/{lineItemID}", cartHandler.UpdateQuantity)
			r.Delete("/items/{lineItemID}", cartHandler.RemoveItem)
			r.Post("/clear", cartHandler.ClearCart)
		})

		r.Get("/notifications", accountHandler.Notifications)
		r.Get("/me", accountHandler.Me)
		r.Get("/orders", accountHandler.Orders)
		r.Post("/logout", authHandler.Logout)

		r.Get("/products", catalogHandler.Products)
		r.Get("/products/{slug}", catalogHandler.Product)
		r.Get("/products/{slug}/related", catalogHandler.Related)
		r.Get("/collections", catalogHandler.Collections)
		r.Get("/collections/{slug}/products", catalogHandler.CollectionProducts)

		r.Get("/products/{productID}/reviews", reviewHandler.List)
		r.Post("/products/{productID}/reviews", reviewHandler.Create)

		r.Route("/review-media", func(r chi.Router) {
			r.Get("/", mediaHandler.List)
			r.Post("/", mediaHandler.Upload)
			r.Delete("/{attachmentID}", mediaHandler.Remove)
		})

		r.Post("/back-in-stock", checkoutHandler.BackInStock)
		r.Post("/checkout", checkoutHandler.Checkout)
		r.Post("/checkout/quick-buy", checkoutHandler.QuickBuy)
	})

	return otelhttp.NewHandler(r, "storefront")
}
