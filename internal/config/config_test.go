package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"CHECKOUT_CLIENT_TIMEOUT", "SLOT_HORIZON_DAYS", "MAX_FILE_SIZE",
		"WS_HEARTBEAT_INTERVAL", "CORS_ALLOWED_ORIGINS",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.CheckoutClientTimeout != 20*time.Second {
		t.Fatalf("expected 20s checkout client timeout, got %s", cfg.CheckoutClientTimeout)
	}
	if cfg.SlotHorizonDays != 14 {
		t.Fatalf("expected 14 day slot horizon, got %d", cfg.SlotHorizonDays)
	}
	if cfg.MaxFileSizeBytes != 5*1024*1024 {
		t.Fatalf("expected 5MiB upload limit, got %d", cfg.MaxFileSizeBytes)
	}
	if cfg.WSHeartbeatInterval != 30*time.Second {
		t.Fatalf("expected 30s heartbeat, got %s", cfg.WSHeartbeatInterval)
	}
	if cfg.CorsAllowedOrigins != nil {
		t.Fatalf("expected no CORS origins, got %v", cfg.CorsAllowedOrigins)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("CHECKOUT_CLIENT_TIMEOUT", "10s")
	t.Setenv("SLOT_HORIZON_DAYS", "7")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example,")

	cfg := Load()
	if cfg.CheckoutClientTimeout != 10*time.Second {
		t.Fatalf("expected 10s checkout client timeout, got %s", cfg.CheckoutClientTimeout)
	}
	if cfg.SlotHorizonDays != 7 {
		t.Fatalf("expected 7 day slot horizon, got %d", cfg.SlotHorizonDays)
	}
	if len(cfg.CorsAllowedOrigins) != 2 || cfg.CorsAllowedOrigins[1] != "https://b.example" {
		t.Fatalf("unexpected CORS origins: %v", cfg.CorsAllowedOrigins)
	}
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("CHECKOUT_CLIENT_TIMEOUT", "soon")
	t.Setenv("SLOT_HORIZON_DAYS", "-3")
	t.Setenv("MAX_FILE_SIZE", "0")

	cfg := Load()
	if cfg.CheckoutClientTimeout != 20*time.Second {
		t.Fatalf("malformed duration must fall back to default, got %s", cfg.CheckoutClientTimeout)
	}
	if cfg.SlotHorizonDays != 14 {
		t.Fatalf("non-positive horizon must fall back to default, got %d", cfg.SlotHorizonDays)
	}
	if cfg.MaxFileSizeBytes != 5*1024*1024 {
		t.Fatalf("non-positive size must fall back to default, got %d", cfg.MaxFileSizeBytes)
	}
}
