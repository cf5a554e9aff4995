package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("UPLOAD_DIR", "")
	t.Setenv("CATALOG_TTL_SECONDS", "")

	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("port %q", cfg.Port)
	}
	if cfg.UploadDir != "uploads" {
		t.Fatalf("upload dir %q", cfg.UploadDir)
	}
	if cfg.CatalogTTLSeconds != 300 {
		t.Fatalf("catalog ttl %d", cfg.CatalogTTLSeconds)
	}
	if cfg.Address() != ":8080" {
		t.Fatalf("address %q", cfg.Address())
	}
}

func TestLoadDoesNotInjectWeakAuthDefault(t *testing.T) {
	t.Setenv("AUTH_SECRET", "")

	cfg := Load()
	if cfg.AuthSecret != "" {
		t.Fatalf("expected empty AUTH_SECRET when unset, got %q", cfg.AuthSecret)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("CATALOG_TTL_SECONDS", "45")
	t.Setenv("ACCESS_TOKEN_TTL_MINUTES", "60")

	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("port %q", cfg.Port)
	}
	if cfg.CatalogTTLSeconds != 45 {
		t.Fatalf("catalog ttl %d", cfg.CatalogTTLSeconds)
	}
	if cfg.AccessTokenTTLMinutes != 60 {
		t.Fatalf("token ttl %d", cfg.AccessTokenTTLMinutes)
	}
}

func TestLoadRejectsBadTTL(t *testing.T) {
	t.Setenv("CATALOG_TTL_SECONDS", "not-a-number")

	cfg := Load()
	if cfg.CatalogTTLSeconds != 300 {
		t.Fatalf("expected fallback ttl, got %d", cfg.CatalogTTLSeconds)
	}
}
