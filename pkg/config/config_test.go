package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("GIN_MODE", "debug")
	t.Setenv("SYNC_EMAIL_INTERVAL", "")
	t.Setenv("SYNC_MAX_RESULTS", "")
	t.Setenv("IMAP_ENCRYPTION_KEY", "")
	t.Setenv("DIGEST_HOUR", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.SyncEmailInterval != 7*time.Second {
		t.Errorf("SyncEmailInterval = %v, want 7s", cfg.SyncEmailInterval)
	}
	if cfg.SyncMaxResults != 100 {
		t.Errorf("SyncMaxResults = %d, want 100", cfg.SyncMaxResults)
	}
	if cfg.JWTSecret == "" {
		t.Error("JWTSecret should fall back to a development default")
	}
	if cfg.IMAPEncryptionKey != cfg.JWTSecret {
		t.Errorf("IMAPEncryptionKey = %q, want the JWT secret fallback", cfg.IMAPEncryptionKey)
	}
	if cfg.DigestHour != 8 {
		t.Errorf("DigestHour = %d, want 8", cfg.DigestHour)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("GIN_MODE", "debug")
	t.Setenv("SYNC_EMAIL_INTERVAL", "2s")
	t.Setenv("SYNC_MAX_RESULTS", "500")
	t.Setenv("SYNC_LOOKBACK_DAYS", "14")
	t.Setenv("JWT_ACCESS_EXPIRY", "not-a-duration")
	t.Setenv("DIGEST_HOUR", "25")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.SyncEmailInterval != 2*time.Second {
		t.Errorf("SyncEmailInterval = %v, want 2s", cfg.SyncEmailInterval)
	}
	if cfg.SyncMaxResults != 100 {
		t.Errorf("SyncMaxResults = %d, want clamp to 100", cfg.SyncMaxResults)
	}
	if cfg.SyncLookbackDays != 14 {
		t.Errorf("SyncLookbackDays = %d, want 14", cfg.SyncLookbackDays)
	}
	if cfg.JWTAccessExpiry != 15*time.Minute {
		t.Errorf("JWTAccessExpiry = %v, want default on parse failure", cfg.JWTAccessExpiry)
	}
	if cfg.DigestHour != 8 {
		t.Errorf("DigestHour = %d, want default for an out-of-range hour", cfg.DigestHour)
	}
}

func TestLoadReleaseRequiresSecrets(t *testing.T) {
	t.Setenv("GIN_MODE", "release")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_SECRET", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when DATABASE_URL is missing in release mode")
	}

	t.Setenv("DATABASE_URL", "postgres://localhost/navigator")
	if _, err := Load(); err == nil {
		t.Fatal("expected error when JWT_SECRET is missing in release mode")
	}
}
