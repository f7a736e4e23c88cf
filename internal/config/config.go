package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string   `mapstructure:"PORT"`
	Env         string   `mapstructure:"ENV"`
	DatabaseURL string   `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns  int32    `mapstructure:"DB_MIN_CONNS"`
	RedisURL    string   `mapstructure:"REDIS_URL"`
	CORSOrigins []string `mapstructure:"CORS_ORIGINS"`

	RateLimitRPS   float64 `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int     `mapstructure:"RATE_LIMIT_BURST"`

	MatchMinScore      int     `mapstructure:"MATCH_MIN_SCORE"`
	MatchMaxDistanceKm float64 `mapstructure:"MATCH_MAX_DISTANCE_KM"`
	MatchDefaultLimit  int     `mapstructure:"MATCH_DEFAULT_LIMIT"`

	ExpiryLookaheadHours  float64 `mapstructure:"EXPIRY_LOOKAHEAD_HOURS"`
	ExpiryScanInterval    string  `mapstructure:"EXPIRY_SCAN_INTERVAL"`
	UtilizationAtRiskPct  float64 `mapstructure:"UTILIZATION_AT_RISK_PCT"`
	DistanceCacheTTLHours float64 `mapstructure:"DISTANCE_CACHE_TTL_HOURS"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)
	v.SetDefault("MATCH_MIN_SCORE", 40)
	v.SetDefault("MATCH_MAX_DISTANCE_KM", 500)
	v.SetDefault("MATCH_DEFAULT_LIMIT", 3)
	v.SetDefault("EXPIRY_LOOKAHEAD_HOURS", 2)
	v.SetDefault("EXPIRY_SCAN_INTERVAL", "5m")
	v.SetDefault("UTILIZATION_AT_RISK_PCT", 70)
	v.SetDefault("DISTANCE_CACHE_TTL_HOURS", 24)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("REDIS_URL")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("RATE_LIMIT_RPS")
	v.BindEnv("RATE_LIMIT_BURST")
	v.BindEnv("MATCH_MIN_SCORE")
	v.BindEnv("MATCH_MAX_DISTANCE_KM")
	v.BindEnv("MATCH_DEFAULT_LIMIT")
	v.BindEnv("EXPIRY_LOOKAHEAD_HOURS")
	v.BindEnv("EXPIRY_SCAN_INTERVAL")
	v.BindEnv("UTILIZATION_AT_RISK_PCT")
	v.BindEnv("DISTANCE_CACHE_TTL_HOURS")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks that the configuration is safe to run.
func (c *Config) Validate() error {
	if c.MatchMinScore < 0 || c.MatchMinScore > 100 {
		return fmt.Errorf("MATCH_MIN_SCORE must be in [0,100], got %d", c.MatchMinScore)
	}
	if c.MatchMaxDistanceKm <= 0 {
		return fmt.Errorf("MATCH_MAX_DISTANCE_KM must be positive, got %v", c.MatchMaxDistanceKm)
	}
	if c.MatchDefaultLimit <= 0 {
		return fmt.Errorf("MATCH_DEFAULT_LIMIT must be positive, got %d", c.MatchDefaultLimit)
	}
	if c.ExpiryLookaheadHours <= 0 {
		return fmt.Errorf("EXPIRY_LOOKAHEAD_HOURS must be positive, got %v", c.ExpiryLookaheadHours)
	}
	if c.UtilizationAtRiskPct < 0 || c.UtilizationAtRiskPct > 100 {
		return fmt.Errorf("UTILIZATION_AT_RISK_PCT must be in [0,100], got %v", c.UtilizationAtRiskPct)
	}
	return nil
}
