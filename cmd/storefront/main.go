package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fjod/storefront/internal/cache"
	"github.com/fjod/storefront/internal/cartsync"
	"github.com/fjod/storefront/internal/catalog"
	"github.com/fjod/storefront/internal/commerce"
	"github.com/fjod/storefront/internal/config"
	"github.com/fjod/storefront/internal/domain"
	h "github.com/fjod/storefront/internal/http"
	"github.com/fjod/storefront/internal/media"
	"github.com/fjod/storefront/internal/poller"
	"github.com/fjod/storefront/internal/session"
	"github.com/fjod/storefront/internal/telemetry"
)

func main() {
	cfg, err := config.LoadStorefront()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	shutdownTracing, err := telemetry.Setup(context.Background(), "storefront")
	if err != nil {
		log.Fatalf("Failed to set up tracing: %v", err)
	}

	platform, err := commerce.NewHTTPClient(commerce.Config{
		BaseURL:  cfg.CommerceURL,
		ClientID: cfg.ClientID,
		APIKey:   cfg.APIKey,
		Timeout:  cfg.CommerceTimeout,
	})
	if err != nil {
		log.Fatalf("Failed to create commerce client: %v", err)
	}

	var files commerce.FilesAPI = platform
	if admin, err := platform.Admin(); err != nil {
		log.Printf("upload urls will be refused by the platform: %v", err)
	} else {
		files = admin
	}
	issuer := media.NewFilesIssuer(files)

	var catalogCache cache.CatalogCache
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			log.Fatalf("Failed to connect to redis: %v", err)
		}
		catalogCache = cache.NewRedisCache(rdb)
	}

	bind := func(tokens domain.Tokens) commerce.Client {
		return platform.WithTokens(tokens)
	}
	factory := session.NewFactory(bind, issuer, cfg.CallbackURL, cartsync.WithClearRetries(cfg.ClearRetries))
	registry := session.NewRegistry(factory, cfg.SessionIdle, session.CleanupInterval)
	defer registry.Close()

	router := h.NewRouter(h.Deps{
		Registry:       registry,
		Auth:           platform,
		Issuer:         issuer,
		Catalog:        catalog.NewService(platform, catalogCache),
		Cookies:        session.Cookies{Secure: cfg.Production},
		RequestTimeout: cfg.RequestTimeout,
	})

	pollCtx, stopPolling := context.WithCancel(context.Background())
	defer stopPolling()
	if len(cfg.KafkaBrokers) > 0 {
		p := poller.NewPoller(registry, cfg.KafkaBrokers...)
		defer p.Close()
		go p.Run(pollCtx)
		log.Printf("consuming %s from %v", poller.Topic, cfg.KafkaBrokers)
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("Storefront starting on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	stopPolling()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("server forced to shutdown: %v", err)
	}
	if err := shutdownTracing(ctx); err != nil {
		log.Printf("tracing shutdown: %v", err)
	}

	log.Println("server exited")
}
