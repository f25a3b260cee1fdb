package config

import (
	"os"
	"testing"
)

func TestLoadWithToken(t *testing.T) {
	_ = os.Setenv("SPXGREEKS_TRADIER_TOKEN", "test-token-123")
	defer func() { _ = os.Unsetenv("SPXGREEKS_TRADIER_TOKEN") }()

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("expected config to load with token, got error: %v", err)
	}

	if cfg.Tradier.Token != "test-token-123" {
		t.Errorf("expected token 'test-token-123', got '%s'", cfg.Tradier.Token)
	}

	if cfg.Tradier.BaseURL != "https://api.tradier.com/v1" {
		t.Errorf("expected default base URL, got '%s'", cfg.Tradier.BaseURL)
	}

	if cfg.Cache.TTLSec != 60 {
		t.Errorf("expected 60s cache ttl by default, got %d", cfg.Cache.TTLSec)
	}

	if cfg.Market.DefaultVIXRegime != "FALLING" {
		t.Errorf("expected FALLING default vix regime, got '%s'", cfg.Market.DefaultVIXRegime)
	}
}

func TestLoadWithoutToken(t *testing.T) {
	_ = os.Unsetenv("SPXGREEKS_TRADIER_TOKEN")

	_, err := Load("")
	if err == nil {
		t.Fatal("expected error when tradier token is missing")
	}
}

func TestValidateStaleCeiling(t *testing.T) {
	cfg := &Config{
		Tradier: TradierConfig{Token: "x"},
		Market:  MarketConfig{StrikeWindowPct: 0.3, DefaultVIXRegime: "FALLING"},
		Cache:   CacheConfig{TTLSec: 60, ServeStaleOnErr: true, StaleCeilingSec: 30},
		WS:      WSConfig{StreamInterval: "5s"},
	}

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when stale ceiling is below ttl")
	}

	cfg.Cache.StaleCeilingSec = 300
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got: %v", err)
	}
}
