package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/boddenberg/spendlog/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"PORT", "LOG_LEVEL", "DATABASE_PATH", "CORS_ORIGINS", "HTTP_TIMEOUT", "SPENDLOG_API_URL", "AMQP_URL"} {
		t.Setenv(k, "")
	}

	cfg := config.Load()
	if cfg.Port != 8000 {
		t.Errorf("expected port 8000, got %d", cfg.Port)
	}
	if cfg.HTTPTimeout != 10*time.Second {
		t.Errorf("expected 10s timeout, got %v", cfg.HTTPTimeout)
	}
	if cfg.APIURL != "http://localhost:8000" {
		t.Errorf("unexpected API URL %q", cfg.APIURL)
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "http://localhost:5173" {
		t.Errorf("unexpected CORS origins %v", cfg.CORSOrigins)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate, got %v", err)
	}
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("HTTP_TIMEOUT", "3s")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("MAX_RETRIES", "not-a-number")

	cfg := config.Load()
	if cfg.Port != 9090 {
		t.Errorf("expected 9090, got %d", cfg.Port)
	}
	if cfg.HTTPTimeout != 3*time.Second {
		t.Errorf("expected 3s, got %v", cfg.HTTPTimeout)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.example" {
		t.Errorf("unexpected origins %v", cfg.CORSOrigins)
	}
	if cfg.MaxRetries != 3 {
		t.Errorf("malformed MAX_RETRIES should fall back to 3, got %d", cfg.MaxRetries)
	}
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	cfg := config.Load()
	cfg.Port = 0
	cfg.LogLevel = "loud"
	cfg.DatabasePath = ""
	cfg.APIURL = "ftp://example.com"
	cfg.AMQPURL = "amqp://localhost"
	cfg.AMQPQueue = ""

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"PORT", "LOG_LEVEL", "DATABASE_PATH", "SPENDLOG_API_URL", "AMQP_QUEUE"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected error to mention %s, got %v", want, err)
		}
	}
}

func TestAuthConfigured(t *testing.T) {
	cfg := &config.Config{}
	if cfg.AuthConfigured() {
		t.Error("empty config should not be auth-configured")
	}
	cfg.SupabaseJWTSecret = "secret"
	if !cfg.AuthConfigured() {
		t.Error("JWT secret alone should be enough")
	}
	cfg = &config.Config{SupabaseURL: "https://x.supabase.co", SupabaseAnonKey: "anon"}
	if !cfg.AuthConfigured() {
		t.Error("URL and anon key should be enough")
	}
}

func TestLoadDotEnv_DoesNotOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "SPENDLOG_TEST_KEPT=from-file\nSPENDLOG_TEST_NEW=\"quoted value\"\n# comment\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SPENDLOG_TEST_KEPT", "from-env")
	t.Setenv("SPENDLOG_TEST_NEW", "")
	os.Unsetenv("SPENDLOG_TEST_NEW")

	if err := config.LoadDotEnv(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := os.Getenv("SPENDLOG_TEST_KEPT"); got != "from-env" {
		t.Errorf("existing env was overridden: %q", got)
	}
	if got := os.Getenv("SPENDLOG_TEST_NEW"); got != "quoted value" {
		t.Errorf("expected value from file, got %q", got)
	}
}
