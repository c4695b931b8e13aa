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

	"github.com/fjod/storefront/internal/config"
	"github.com/fjod/storefront/internal/sandbox"
	"github.com/fjod/storefront/internal/telemetry"
)

func main() {
	log.Println("Commerce sandbox started")

	cfg, err := config.LoadSandbox()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	shutdownTracing, err := telemetry.Setup(context.Background(), "commerce-sandbox")
	if err != nil {
		log.Fatalf("Failed to set up tracing: %v", err)
	}

	catalog, err := sandbox.NewCatalog(cfg.SQLitePath)
	if err != nil {
		log.Fatal(err)
	}
	defer catalog.Close()

	if err := catalog.RunMigrations(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Migrations completed successfully")

	connectCtx, cancelConnect := context.WithTimeout(context.Background(), 15*time.Second)
	db, err := sandbox.ConnectMongoDB(connectCtx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	if err := sandbox.CreateIndexes(connectCtx, db, cfg.CartTTL); err != nil {
		log.Fatalf("Failed to create indexes: %v", err)
	}
	cancelConnect()
	defer db.Client().Disconnect(context.Background())

	codes := sandbox.NewAuthCodes(cfg.CodeTTL)
	defer codes.Close()

	var events sandbox.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		events = sandbox.NewKafkaPublisher(cfg.KafkaBrokers...)
		defer events.Close()
	}

	server := sandbox.NewServer(sandbox.Options{
		Catalog:     catalog,
		Carts:       sandbox.NewMongoCartRepository(db),
		Reviews:     sandbox.NewMongoReviewRepository(db),
		Orders:      sandbox.NewMongoOrderRepository(db),
		BackInStock: sandbox.NewMongoBackInStockRepository(db),
		Tokens:      sandbox.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL),
		Codes:       codes,
		Events:      events,
		PublicURL:   cfg.PublicURL,
		APIKey:      cfg.APIKey,
		ClientIDs:   cfg.ClientIDs,
		AutoApprove: cfg.AutoApprove,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("Commerce sandbox listening on %s", cfg.HTTPAddr)
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

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("server forced to shutdown: %v", err)
	}
	if err := shutdownTracing(ctx); err != nil {
		log.Printf("tracing shutdown: %v", err)
	}

	log.Println("server exited")
}
