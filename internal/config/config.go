package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Tradier  TradierConfig  `mapstructure:"tradier"`
	Market   MarketConfig   `mapstructure:"market"`
	Cache    CacheConfig    `mapstructure:"cache"`
	WS       WSConfig       `mapstructure:"ws"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

type ServerConfig struct {
	Port           string `mapstructure:"port"`
	AllowedOrigins string `mapstructure:"allowed_origins"`
}

type TradierConfig struct {
	BaseURL       string `mapstructure:"base_url"`
	Token         string `mapstructure:"token"`
	TimeoutSec    int    `mapstructure:"timeout_sec"`
	RetryCount    int    `mapstructure:"retry_count"`
	RetryDelaySec int    `mapstructure:"retry_delay_sec"`
	RatePerSecond int    `mapstructure:"rate_per_second"`
}

type MarketConfig struct {
	Symbol           string  `mapstructure:"symbol"`
	RiskFreeRate     float64 `mapstructure:"risk_free_rate"`
	DividendYield    float64 `mapstructure:"dividend_yield"`
	StrikeWindowPct  float64 `mapstructure:"strike_window_pct"`
	MaxExpirations   int     `mapstructure:"max_expirations"`
	MaxMatrixExpiry  int     `mapstructure:"max_matrix_expirations"`
	MaxMatrixStrikes int     `mapstructure:"max_matrix_strikes"`
	DefaultVIXRegime string  `mapstructure:"default_vix_regime"`
}

type CacheConfig struct {
	TTLSec           int  `mapstructure:"ttl_sec"`
	ServeStaleOnErr  bool `mapstructure:"serve_stale_on_error"`
	StaleCeilingSec  int  `mapstructure:"stale_ceiling_sec"`
}

type WSConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	StreamInterval string `mapstructure:"stream_interval"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// Interval parses the configured stream interval.
func (w *WSConfig) Interval() (time.Duration, error) {
	return time.ParseDuration(w.StreamInterval)
}

// TTL returns the cache TTL as a duration.
func (c *CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSec) * time.Second
}

// StaleCeiling returns the hard staleness ceiling as a duration.
func (c *CacheConfig) StaleCeiling() time.Duration {
	return time.Duration(c.StaleCeilingSec) * time.Second
}

func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("server.port", "8000")
	v.SetDefault("server.allowed_origins", "http://localhost:5173")
	v.SetDefault("tradier.base_url", "https://api.tradier.com/v1")
	v.SetDefault("tradier.timeout_sec", 30)
	v.SetDefault("tradier.retry_count", 3)
	v.SetDefault("tradier.retry_delay_sec", 2)
	v.SetDefault("tradier.rate_per_second", 2)
	v.SetDefault("market.symbol", "SPX")
	v.SetDefault("market.risk_free_rate", 0.045)
	v.SetDefault("market.dividend_yield", 0.0)
	v.SetDefault("market.strike_window_pct", 0.30)
	v.SetDefault("market.max_expirations", 5)
	v.SetDefault("market.max_matrix_expirations", 8)
	v.SetDefault("market.max_matrix_strikes", 25)
	v.SetDefault("market.default_vix_regime", "FALLING")
	v.SetDefault("cache.ttl_sec", 60)
	v.SetDefault("cache.serve_stale_on_error", false)
	v.SetDefault("cache.stale_ceiling_sec", 300)
	v.SetDefault("ws.enabled", true)
	v.SetDefault("ws.stream_interval", "5s")
	v.SetDefault("logging.level", "info")

	// Environment variable support
	v.SetEnvPrefix("SPXGREEKS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// Explicitly bind nested keys to env vars
	_ = v.BindEnv("tradier.token", "SPXGREEKS_TRADIER_TOKEN")

	// Load config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("default")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Tradier.Token == "" {
		return fmt.Errorf("tradier token is required (set SPXGREEKS_TRADIER_TOKEN env var)")
	}
	if c.Cache.TTLSec < 1 {
		return fmt.Errorf("cache ttl_sec must be >= 1")
	}
	if c.Cache.ServeStaleOnErr && c.Cache.StaleCeilingSec < c.Cache.TTLSec {
		return fmt.Errorf("stale_ceiling_sec must be >= ttl_sec when serve_stale_on_error is set")
	}
	if c.Market.StrikeWindowPct <= 0 || c.Market.StrikeWindowPct >= 1 {
		return fmt.Errorf("strike_window_pct must be in (0, 1)")
	}
	switch c.Market.DefaultVIXRegime {
	case "RISING", "FALLING":
	default:
		return fmt.Errorf("default_vix_regime must be RISING or FALLING, got %q", c.Market.DefaultVIXRegime)
	}
	if _, err := c.WS.Interval(); err != nil {
		return fmt.Errorf("ws stream_interval: %w", err)
	}
	return nil
}
