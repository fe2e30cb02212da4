package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/abstore/internal/domain/order"
)

const defaultAddr = "0.0.0.0:5000"

// Config holds the complete application configuration, loadable from
// environment variables (ABSTORE_ prefix), flags, or YAML config files.
type Config struct {
	Addr         string `default:"0.0.0.0:5000" usage:"API server listen address"`
	DatabaseURL  string `usage:"PostgreSQL connection URL (ABSTORE_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	ImageBaseURL string `default:"" usage:"Base URL for product images (e.g. https://cdn.example.com/images)" flag:"image-base-url"`
	APIKeyPepper string `usage:"HMAC pepper for API key hashing (ABSTORE_API_KEY_PEPPER)" flag:"api-key-pepper"`
	Pricing      PricingConfig
	// RateLimit applies to every request; ApplyRateLimit only to coupon
	// previews.
	RateLimit      RateLimitConfig
	ApplyRateLimit ApplyRateLimitConfig
	CORS           CORSConfig
	Graceful       GracefulConfig
}

// PricingConfig controls order shipping.
type PricingConfig struct {
	FreeShippingThreshold string `default:"28000" usage:"Items subtotal above which shipping is free" flag:"free-shipping-threshold"`
	FlatShippingFee       string `default:"2800" usage:"Shipping fee at or below the threshold" flag:"flat-shipping-fee"`
}

// ShippingPolicy parses the configured amounts.
func (c PricingConfig) ShippingPolicy() (order.ShippingPolicy, error) {
	threshold, err := decimal.NewFromString(c.FreeShippingThreshold)
	if err != nil {
		return order.ShippingPolicy{}, errors.Wrap(err, "free shipping threshold")
	}
	fee, err := decimal.NewFromString(c.FlatShippingFee)
	if err != nil {
		return order.ShippingPolicy{}, errors.Wrap(err, "flat shipping fee")
	}
	if threshold.IsNegative() || fee.IsNegative() {
		return order.ShippingPolicy{}, errors.New("shipping amounts must not be negative")
	}
	return order.ShippingPolicy{FreeThreshold: threshold, FlatFee: fee}, nil
}

// RateLimitConfig controls a per-client sliding window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// ApplyRateLimitConfig is the stricter limiter in front of coupon previews.
type ApplyRateLimitConfig struct {
	Max    int           `default:"20" usage:"Max coupon previews per window"`
	Window time.Duration `default:"1m" usage:"Coupon preview rate limit window"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config files,
// and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "ABSTORE",
		Files:     []string{"config.yaml", "/etc/abstore/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if cfg.DatabaseURL == "" {
		return nil, errors.New("database URL is required: set ABSTORE_DATABASE_URL or DATABASE_URL")
	}
	if _, err := cfg.Pricing.ShippingPolicy(); err != nil {
		return nil, errors.Wrap(err, "pricing")
	}

	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL and PORT to the
// application's ABSTORE_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
}
