package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadUsesDefaultsAndYAMLOverrides(t *testing.T) {
	clearConfigEnv(t)

	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.yaml")
	yaml := `
http:
  addr: ":9090"
postgres:
  dsn: postgres://app:app@db:5432/matchflow?sslmode=disable
  migrate_on_start: false
chat:
  idempotency_ttl: 1h
  page_size: 25
discovery:
  pool_size: 80
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.HTTP.Addr != ":9090" {
		t.Fatalf("unexpected http addr: %s", cfg.HTTP.Addr)
	}
	if cfg.Postgres.DSN != "postgres://app:app@db:5432/matchflow?sslmode=disable" {
		t.Fatalf("unexpected postgres dsn: %s", cfg.Postgres.DSN)
	}
	if cfg.Postgres.MigrateOnStart {
		t.Fatalf("migrate_on_start override lost")
	}
	if cfg.Chat.IdempotencyTTL != time.Hour {
		t.Fatalf("unexpected chat idempotency ttl: %s", cfg.Chat.IdempotencyTTL)
	}
	if cfg.Chat.PageSize != 25 {
		t.Fatalf("unexpected chat page size: %d", cfg.Chat.PageSize)
	}
	if cfg.Discovery.PoolSize != 80 {
		t.Fatalf("unexpected discovery pool size: %d", cfg.Discovery.PoolSize)
	}

	if cfg.Chat.MaxPageSize != 200 {
		t.Fatalf("chat max_page_size default should stay 200")
	}
	if cfg.Auth.JWTAccessTTL != 15*time.Minute {
		t.Fatalf("jwt access ttl default should stay 15m")
	}
	if cfg.HTTP.ReadTimeout != 5*time.Second {
		t.Fatalf("http read timeout default should stay 5s")
	}
}

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	clearConfigEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load config with missing file: %v", err)
	}

	if cfg.HTTP.Addr != ":8080" {
		t.Fatalf("unexpected default http addr: %s", cfg.HTTP.Addr)
	}
	if !cfg.Postgres.MigrateOnStart {
		t.Fatalf("migrate_on_start should default to true")
	}
	if cfg.Chat.IdempotencyTTL != 24*time.Hour {
		t.Fatalf("unexpected default idempotency ttl: %s", cfg.Chat.IdempotencyTTL)
	}
	if cfg.Discovery.PoolSize != 50 {
		t.Fatalf("unexpected default pool size: %d", cfg.Discovery.PoolSize)
	}
	if cfg.Auth.SessionTTL != 720*time.Hour {
		t.Fatalf("unexpected default session ttl: %s", cfg.Auth.SessionTTL)
	}
}

func TestEnvOverridesBeatYAML(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("HTTP_ADDR", ":7070")
	t.Setenv("JWT_SECRET", "env-secret")
	t.Setenv("CHAT_PAGE_SIZE", "10")

	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(path, []byte("http:\n  addr: \":9090\"\n"), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.HTTP.Addr != ":7070" {
		t.Fatalf("env override lost: %s", cfg.HTTP.Addr)
	}
	if cfg.Auth.JWTSecret != "env-secret" {
		t.Fatalf("jwt secret override lost")
	}
	if cfg.Chat.PageSize != 10 {
		t.Fatalf("chat page size override lost: %d", cfg.Chat.PageSize)
	}
}

func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"APP_ENV",
		"HTTP_ADDR",
		"HTTP_READ_TIMEOUT",
		"HTTP_WRITE_TIMEOUT",
		"HTTP_IDLE_TIMEOUT",
		"LOG_LEVEL",
		"POSTGRES_DSN",
		"POSTGRES_MIGRATE_ON_START",
		"REDIS_ADDR",
		"REDIS_PASSWORD",
		"REDIS_DB",
		"JWT_SECRET",
		"JWT_ACCESS_TTL",
		"SESSION_TTL",
		"CHAT_IDEMPOTENCY_TTL",
		"CHAT_PAGE_SIZE",
		"CHAT_MAX_PAGE_SIZE",
		"DISCOVERY_POOL_SIZE",
	} {
		t.Setenv(key, "")
	}
}
