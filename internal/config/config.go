// Package config loads process settings from the environment.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

var ErrMissingCommerceURL = errors.New("STOREFRONT_COMMERCE_URL is required")

// Storefront configures cmd/storefront.
type Storefront struct {
	HTTPAddr    string `env:"STOREFRONT_HTTP_ADDR" envDefault:":8080"`
	CommerceURL string `env:"STOREFRONT_COMMERCE_URL" envDefault:"http://localhost:8090"`
	ClientID    string `env:"STOREFRONT_CLIENT_ID" envDefault:"storefront"`
	APIKey      string `env:"STOREFRONT_API_KEY"`
	CallbackURL string `env:"STOREFRONT_CALLBACK_URL" envDefault:"http://localhost:8080/api/auth/callback/wix"`

	// Production marks cookies Secure.
	Production bool `env:"STOREFRONT_PRODUCTION" envDefault:"false"`

	// RedisAddr enables the catalog cache when set.
	RedisAddr string `env:"STOREFRONT_REDIS_ADDR"`
	// KafkaBrokers enables the checkout-completed consumer when set.
	KafkaBrokers []string `env:"STOREFRONT_KAFKA_BROKERS" envSeparator:","`

	RequestTimeout  time.Duration `env:"STOREFRONT_REQUEST_TIMEOUT" envDefault:"10s"`
	CommerceTimeout time.Duration `env:"STOREFRONT_COMMERCE_TIMEOUT" envDefault:"10s"`
	SessionIdle     time.Duration `env:"STOREFRONT_SESSION_IDLE" envDefault:"30m"`
	ClearRetries    int           `env:"STOREFRONT_CLEAR_RETRIES" envDefault:"3"`
	ShutdownTimeout time.Duration `env:"STOREFRONT_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Sandbox configures cmd/commerce-sandbox.
type Sandbox struct {
	HTTPAddr string `env:"SANDBOX_HTTP_ADDR" envDefault:":8090"`
	// PublicURL is the address browsers and the storefront use to reach the
	// sandbox; upload and checkout URLs are built from it.
	PublicURL string `env:"SANDBOX_PUBLIC_URL" envDefault:"http://localhost:8090"`

	MongoURI      string `env:"SANDBOX_MONGO_URI" envDefault:"mongodb://localhost:27017"`
	MongoDatabase string `env:"SANDBOX_MONGO_DB" envDefault:"commerce"`
	SQLitePath    string `env:"SANDBOX_SQLITE_PATH" envDefault:"./catalog.db"`

	JWTSecret string   `env:"SANDBOX_JWT_SECRET" envDefault:"sandbox-secret"`
	APIKey    string   `env:"SANDBOX_API_KEY"`
	ClientIDs []string `env:"SANDBOX_CLIENT_IDS" envSeparator:"," envDefault:"storefront"`

	KafkaBrokers []string `env:"SANDBOX_KAFKA_BROKERS" envSeparator:","`

	// AutoApprove publishes new reviews without moderation.
	AutoApprove bool `env:"SANDBOX_AUTO_APPROVE" envDefault:"true"`

	TokenTTL        time.Duration `env:"SANDBOX_TOKEN_TTL" envDefault:"24h"`
	CodeTTL         time.Duration `env:"SANDBOX_CODE_TTL" envDefault:"10m"`
	CartTTL         time.Duration `env:"SANDBOX_CART_TTL" envDefault:"2160h"`
	ShutdownTimeout time.Duration `env:"SANDBOX_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

func LoadStorefront() (Storefront, error) {
	var cfg Storefront
	if err := ParseEnv(&cfg); err != nil {
		return Storefront{}, err
	}
	if cfg.CommerceURL == "" {
		return Storefront{}, ErrMissingCommerceURL
	}
	if cfg.ClearRetries < 0 {
		return Storefront{}, fmt.Errorf("STOREFRONT_CLEAR_RETRIES must not be negative, got %d", cfg.ClearRetries)
	}
	return cfg, nil
}

func LoadSandbox() (Sandbox, error) {
	var cfg Sandbox
	if err := ParseEnv(&cfg); err != nil {
		return Sandbox{}, err
	}
	return cfg, nil
}
