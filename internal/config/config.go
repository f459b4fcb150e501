package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ayo6706/moneybank/internal/bank"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all runtime configuration derived from environment variables.
type Config struct {
	HTTPPort            string
	DatabaseURL         string
	DatabaseMaxConns    int32
	RedisURL            string
	JWTSecret           string
	JWTIssuer           string
	JWTAudience         string
	PublicRateLimitRPS  int
	LogLevel            string
	IdempotencyTTL      time.Duration
	RateRefreshInterval time.Duration
	SeedRates           []bank.Rate
}

// Load reads environment variables using viper and returns a typed config.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	bindEnv(v, "port", "PORT", "MONEYBANK_PORT")
	bindEnv(v, "database_url", "DATABASE_URL", "MONEYBANK_DATABASE_URL")
	bindEnv(v, "db_max_conns", "DB_MAX_CONNS", "MONEYBANK_DB_MAX_CONNS")
	bindEnv(v, "redis_url", "REDIS_URL", "MONEYBANK_REDIS_URL")
	bindEnv(v, "jwt_secret", "JWT_SECRET", "MONEYBANK_JWT_SECRET")
	bindEnv(v, "jwt_issuer", "JWT_ISSUER", "MONEYBANK_JWT_ISSUER")
	bindEnv(v, "jwt_audience", "JWT_AUDIENCE", "MONEYBANK_JWT_AUDIENCE")
	bindEnv(v, "public_rate_limit_rps", "PUBLIC_RATE_LIMIT_RPS", "MONEYBANK_PUBLIC_RATE_LIMIT_RPS")
	bindEnv(v, "log_level", "LOG_LEVEL", "MONEYBANK_LOG_LEVEL")
	bindEnv(v, "idempotency_ttl", "IDEMPOTENCY_TTL", "MONEYBANK_IDEMPOTENCY_TTL")
	bindEnv(v, "rate_refresh_interval", "RATE_REFRESH_INTERVAL", "MONEYBANK_RATE_REFRESH_INTERVAL")
	bindEnv(v, "seed_rates", "SEED_RATES", "MONEYBANK_SEED_RATES")

	v.SetDefault("port", "8080")
	v.SetDefault("database_url", "")
	v.SetDefault("db_max_conns", 10)
	v.SetDefault("redis_url", "")
	v.SetDefault("jwt_secret", "")
	v.SetDefault("jwt_issuer", "moneybank")
	v.SetDefault("jwt_audience", "moneybank-api")
	v.SetDefault("public_rate_limit_rps", 50)
	v.SetDefault("log_level", "info")
	v.SetDefault("idempotency_ttl", "24h")
	v.SetDefault("rate_refresh_interval", "1m")
	v.SetDefault("seed_rates", "")

	ttl, err := time.ParseDuration(v.GetString("idempotency_ttl"))
	if err != nil {
		return nil, fmt.Errorf("invalid IDEMPOTENCY_TTL: %w", err)
	}
	refreshInterval, err := time.ParseDuration(v.GetString("rate_refresh_interval"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_REFRESH_INTERVAL: %w", err)
	}
	if refreshInterval <= 0 {
		return nil, fmt.Errorf("RATE_REFRESH_INTERVAL must be positive")
	}
	seeds, err := bank.ParseRates(v.GetString("seed_rates"))
	if err != nil {
		return nil, fmt.Errorf("invalid SEED_RATES: %w", err)
	}

	cfg := &Config{
		HTTPPort:            v.GetString("port"),
		DatabaseURL:         strings.TrimSpace(v.GetString("database_url")),
		DatabaseMaxConns:    int32(max(v.GetInt("db_max_conns"), 1)),
		RedisURL:            strings.TrimSpace(v.GetString("redis_url")),
		JWTSecret:           v.GetString("jwt_secret"),
		JWTIssuer:           v.GetString("jwt_issuer"),
		JWTAudience:         v.GetString("jwt_audience"),
		PublicRateLimitRPS:  max(v.GetInt("public_rate_limit_rps"), 1),
		LogLevel:            v.GetString("log_level"),
		IdempotencyTTL:      ttl,
		RateRefreshInterval: refreshInterval,
		SeedRates:           seeds,
	}

	if cfg.JWTSecret != "" && len(cfg.JWTSecret) < 32 {
		return nil, fmt.Errorf("JWT_SECRET must be at least 32 characters")
	}
	if cfg.JWTSecret != "" && strings.TrimSpace(cfg.JWTIssuer) == "" {
		return nil, fmt.Errorf("JWT_ISSUER is required when JWT_SECRET is set")
	}
	if cfg.JWTSecret != "" && strings.TrimSpace(cfg.JWTAudience) == "" {
		return nil, fmt.Errorf("JWT_AUDIENCE is required when JWT_SECRET is set")
	}

	return cfg, nil
}

// AuthEnabled reports whether rate registration requires a bearer token.
func (c *Config) AuthEnabled() bool {
	return c.JWTSecret != ""
}

func bindEnv(v *viper.Viper, key string, names ...string) {
	args := append([]string{key}, names...)
	_ = v.BindEnv(args...)
}
