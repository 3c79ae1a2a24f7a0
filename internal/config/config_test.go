package config

import (
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.PsqlIndexThreshold != DefaultIndexThreshold {
		t.Errorf("PsqlIndexThreshold = %d, want %d", cfg.PsqlIndexThreshold, DefaultIndexThreshold)
	}
	if cfg.WebserverThreadPoolSize != 4 {
		t.Errorf("WebserverThreadPoolSize = %d, want 4", cfg.WebserverThreadPoolSize)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %s, want info", cfg.Logging.Level)
	}
}

func TestValidateRequiresURLs(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing psql-url")
	}

	cfg.PsqlURL = "postgresql://localhost/chain"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing ahsql-url")
	}

	cfg.AhsqlURL = "postgresql://localhost/chain"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateAllowsZeroPoolSizeAsAuto(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PsqlURL = "x"
	cfg.AhsqlURL = "x"
	cfg.WebserverThreadPoolSize = 0

	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected zero pool size (auto-detect) to be valid, got: %v", err)
	}
}

func TestValidateRejectsNegativePoolSize(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PsqlURL = "x"
	cfg.AhsqlURL = "x"
	cfg.WebserverThreadPoolSize = -1

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for negative pool size")
	}
}

func TestLoadCreatesDefaultAndRoundTrips(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.PsqlIndexThreshold != DefaultIndexThreshold {
		t.Errorf("fresh config threshold = %d, want %d", cfg.PsqlIndexThreshold, DefaultIndexThreshold)
	}

	path := filepath.Join(dir, ConfigFileName)
	cfg.PsqlURL = "postgresql://localhost/chain"
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reloaded, err := Load(dir)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.PsqlURL != cfg.PsqlURL {
		t.Errorf("reloaded PsqlURL = %s, want %s", reloaded.PsqlURL, cfg.PsqlURL)
	}
}
