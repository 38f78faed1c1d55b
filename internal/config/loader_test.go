package config

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestExpandEnvVars(t *testing.T) {
	os.Setenv("TEST_VAR", "hello")
	defer os.Unsetenv("TEST_VAR")

	tests := []struct {
		input    string
		expected string
	}{
		{"${TEST_VAR}", "hello"},
		{"${TEST_VAR:default}", "hello"},
		{"${UNSET_VAR:fallback}", "fallback"},
		{"${UNSET_VAR}", ""},
		{"no vars here", "no vars here"},
		{"prefix-${TEST_VAR}-suffix", "prefix-hello-suffix"},
	}

	for _, tt := range tests {
		got := expandEnvVars(tt.input)
		if got != tt.expected {
			t.Errorf("expandEnvVars(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestLoadFile(t *testing.T) {
	// Create a temp YAML file
	tmpFile, err := os.CreateTemp("", "test-config-*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(tmpFile.Name())

	content := `
server:
  host: "0.0.0.0"
  port: 9999
`
	if _, err := tmpFile.WriteString(content); err != nil {
		t.Fatal(err)
	}
	tmpFile.Close()

	var cfg Config
	if err := LoadFile(tmpFile.Name(), &cfg); err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if cfg.Server.Port != 9999 {
		t.Errorf("expected port 9999, got %d", cfg.Server.Port)
	}
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("expected host 0.0.0.0, got %s", cfg.Server.Host)
	}
}

func TestLoadFile_WithEnvVars(t *testing.T) {
	os.Setenv("TEST_PORT", "7777")
	defer os.Unsetenv("TEST_PORT")

	tmpFile, err := os.CreateTemp("", "test-config-env-*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(tmpFile.Name())

	content := `
server:
  host: "${TEST_HOST:127.0.0.1}"
  port: ${TEST_PORT}
`
	if _, err := tmpFile.WriteString(content); err != nil {
		t.Fatal(err)
	}
	tmpFile.Close()

	var cfg Config
	if err := LoadFile(tmpFile.Name(), &cfg); err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("expected host 127.0.0.1 (default), got %s", cfg.Server.Host)
	}
	if cfg.Server.Port != 7777 {
		t.Errorf("expected port 7777, got %d", cfg.Server.Port)
	}
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoader_Load(t *testing.T) {
	dir := t.TempDir()
	os.Setenv("TEST_FIREFLY_SECRET", "s3cret")
	defer os.Unsetenv("TEST_FIREFLY_SECRET")

	writeFile(t, dir, "gateway.yaml", `
server:
  port: 9090
generation:
  concurrency: 3
records:
  backend: mongo
`)
	writeFile(t, dir, "providers.yaml", `
providers:
  firefly:
    type: firefly
    base_url: https://firefly-api.adobe.io
    client_id: abc
    client_secret: ${TEST_FIREFLY_SECRET}
    scopes: [openid, firefly_api]
    timeout: 45s
`)
	writeFile(t, dir, "routes.yaml", `
routes:
  image:
    primary: firefly
    fallback: [dalle]
`)

	l := NewLoader(dir, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err := l.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	cfg := l.Config()
	if cfg.Server.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Server.Port)
	}
	// Defaults survive partial files.
	if cfg.Generation.MaxAttempts != 2 {
		t.Errorf("expected default max_attempts 2, got %d", cfg.Generation.MaxAttempts)
	}
	if cfg.Generation.Concurrency != 3 {
		t.Errorf("expected concurrency 3, got %d", cfg.Generation.Concurrency)
	}
	if cfg.Records.UserName != "AI Showcase" {
		t.Errorf("expected default user name, got %q", cfg.Records.UserName)
	}

	p, ok := l.Providers().Providers["firefly"]
	if !ok {
		t.Fatal("expected firefly provider")
	}
	if p.ClientSecret != "s3cret" {
		t.Errorf("expected expanded secret, got %q", p.ClientSecret)
	}
	if p.Timeout != 45*time.Second {
		t.Errorf("expected 45s timeout, got %v", p.Timeout)
	}

	cands := l.Routes().Routes["image"].Candidates()
	if len(cands) != 2 || cands[0] != "firefly" || cands[1] != "dalle" {
		t.Errorf("unexpected candidates: %v", cands)
	}
}

func TestLoader_MissingFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "gateway.yaml", "server:\n  port: 1\n")

	l := NewLoader(dir, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err := l.Load(); err == nil {
		t.Fatal("expected error when routes.yaml is missing")
	}
}

func TestRoute_Candidates_SkipsBlank(t *testing.T) {
	r := Route{Primary: "", Fallback: []string{"a", "", "b"}}
	got := r.Candidates()
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("unexpected candidates: %v", got)
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5432, Name: "showcase", User: "u", Password: "p", MaxOpenConns: 4}
	want := "postgres://u:p@db:5432/showcase?sslmode=disable&pool_max_conns=4"
	if got := d.DSN(); got != want {
		t.Errorf("DSN() = %q, want %q", got, want)
	}
}

func TestDatabaseConfig_URLEscapesCredentials(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5432, Name: "showcase", User: "svc", Password: "p@ss/word"}
	want := "postgres://svc:p%40ss%2Fword@db:5432/showcase?sslmode=disable"
	if got := d.URL(); got != want {
		t.Errorf("URL() = %q, want %q", got, want)
	}
}
