package config

import (
	"testing"
	"time"
)

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when DATABASE_URL is empty")
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "sqlite::memory:")
	t.Setenv("CORS_ORIGINS", "https://a.example.com, https://b.example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.GetVoiceVendorName() != "Retell" {
		t.Fatalf("expected default vendor Retell, got %q", cfg.GetVoiceVendorName())
	}
	if cfg.GetStoreTimeout() != 10*time.Second {
		t.Fatalf("expected 10s store timeout, got %s", cfg.GetStoreTimeout())
	}
	if cfg.GetCORSAllowAll() {
		t.Fatal("expected explicit origins to disable allow-all")
	}
	if len(cfg.GetCORSOrigins()) != 2 {
		t.Fatalf("expected 2 CORS origins, got %v", cfg.GetCORSOrigins())
	}
	if cfg.IsMinIOEnabled() {
		t.Fatal("expected MinIO to be disabled without endpoint")
	}
}

func TestLoadRejectsInvalidStoreTimeout(t *testing.T) {
	t.Setenv("DATABASE_URL", "sqlite::memory:")
	t.Setenv("STORE_TIMEOUT", "soon")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for unparseable STORE_TIMEOUT")
	}
}
