// Package config loads engine configuration from the environment, with a
// .env file picked up automatically in development.
package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds all runtime configuration for the pricing engine.
type Config struct {
	Port        string
	DatabaseURL string // empty = in-memory store
	RedisURL    string // empty = no cache layer

	// Accounts.
	Owner        string
	FeeRecipient string
	PoolAccount  string

	// Pool bootstrap.
	InitialPrice decimal.Decimal
	AnchorPrice  decimal.Decimal

	// Pricing surface.
	BandWidth       decimal.Decimal
	DepthMultiplier decimal.Decimal
	MinBaseDepth    decimal.Decimal

	// Risk parameters.
	DivergenceCeiling decimal.Decimal
	TimeCeiling       time.Duration
	LiquidityTarget   decimal.Decimal
	WDiv              decimal.Decimal
	WTime             decimal.Decimal
	WLiq              decimal.Decimal
	FeeMinBps         decimal.Decimal
	FeeMaxBps         decimal.Decimal
	BaseMaxTrade      decimal.Decimal
	DepthSensitivity  decimal.Decimal

	// Market lifecycle.
	MarketExpiry   time.Duration // from startup
	DisputeWindow  time.Duration
	TimeoutOutcome bool // outcome applied by the delayed fallback path
}

// Load reads configuration from the environment. Missing variables fall
// back to development defaults.
func Load() Config {
	// Best effort; absence of a .env file is normal in production.
	_ = godotenv.Load()

	return Config{
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		RedisURL:    getEnv("REDIS_URL", ""),

		Owner:        getEnv("OWNER_ACCOUNT", "owner"),
		FeeRecipient: getEnv("FEE_RECIPIENT", "treasury"),
		PoolAccount:  getEnv("POOL_ACCOUNT", "amm-pool"),

		InitialPrice: getDecimal("INITIAL_PRICE", "0.5"),
		AnchorPrice:  getDecimal("ANCHOR_PRICE", "0.5"),

		BandWidth:       getDecimal("BAND_WIDTH", "0.15"),
		DepthMultiplier: getDecimal("DEPTH_MULTIPLIER", "1000"),
		MinBaseDepth:    getDecimal("MIN_BASE_DEPTH", "100"),

		DivergenceCeiling: getDecimal("RISK_DIVERGENCE_CEILING", "0.5"),
		TimeCeiling:       getDuration("RISK_TIME_CEILING", 168*time.Hour),
		LiquidityTarget:   getDecimal("RISK_LIQUIDITY_TARGET", "10000"),
		WDiv:              getDecimal("RISK_WEIGHT_DIVERGENCE", "0.5"),
		WTime:             getDecimal("RISK_WEIGHT_TIME", "0.3"),
		WLiq:              getDecimal("RISK_WEIGHT_LIQUIDITY", "0.2"),
		FeeMinBps:         getDecimal("FEE_MIN_BPS", "30"),
		FeeMaxBps:         getDecimal("FEE_MAX_BPS", "300"),
		BaseMaxTrade:      getDecimal("BASE_MAX_TRADE", "5000"),
		DepthSensitivity:  getDecimal("DEPTH_SENSITIVITY", "0.8"),

		MarketExpiry:   getDuration("MARKET_EXPIRY", 720*time.Hour),
		DisputeWindow:  getDuration("DISPUTE_WINDOW", 48*time.Hour),
		TimeoutOutcome: getEnv("TIMEOUT_OUTCOME", "false") == "true",
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDecimal(key, fallback string) decimal.Decimal {
	if v := os.Getenv(key); v != "" {
		if d, err := decimal.NewFromString(v); err == nil {
			return d
		}
	}
	d, _ := decimal.NewFromString(fallback)
	return d
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
