package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadYAML(t *testing.T) {
	t.Parallel()
	path := writeFile(t, "offlinehook.yaml", `
webhook:
  auth_token: tok123
  post_url: "https://hooks.example.com/offline"
  confidential: true
  timeout: "3s"
  workers: 4
logging:
  level: debug
  console: true
heartbeat:
  enabled: true
  schedule: "@every 30s"
`)

	m := NewConfigManager(path)
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Webhook.AuthToken != "tok123" {
		t.Fatalf("auth_token = %q", cfg.Webhook.AuthToken)
	}
	if cfg.Webhook.PostURL != "https://hooks.example.com/offline" {
		t.Fatalf("post_url = %q", cfg.Webhook.PostURL)
	}
	if !cfg.Webhook.Confidential || cfg.Webhook.Workers != 4 {
		t.Fatalf("webhook = %+v", cfg.Webhook)
	}
	if cfg.Logging.Level != "debug" || !cfg.Logging.Console {
		t.Fatalf("logging = %+v", cfg.Logging)
	}
	if !cfg.Heartbeat.Enabled || cfg.Heartbeat.Schedule != "@every 30s" {
		t.Fatalf("heartbeat = %+v", cfg.Heartbeat)
	}
	if m.Get() != cfg {
		t.Fatal("Get should return the committed config")
	}
}

func TestLoadJSON(t *testing.T) {
	t.Parallel()
	path := writeFile(t, "offlinehook.json",
		`{"webhook":{"auth_token":"s","post_url":"http://localhost:5000/notify"},"logging":{"level":"info","console":true,"file":{"enabled":false,"path":""}}}`)

	m := NewConfigManager(path)
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Webhook.AuthToken != "s" {
		t.Fatalf("auth_token = %q", cfg.Webhook.AuthToken)
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	t.Parallel()
	path := writeFile(t, "offlinehook.yaml", `
webhook:
  auth_token: s
  retry_max: 3
`)
	if _, err := NewConfigManager(path).Load(); err == nil {
		t.Fatal("expected error for unknown field retry_max")
	}
}

func TestLoadRejectsTrailingData(t *testing.T) {
	t.Parallel()
	path := writeFile(t, "offlinehook.json", `{"webhook":{}}{"webhook":{}}`)
	if _, err := NewConfigManager(path).Load(); err == nil {
		t.Fatal("expected error for trailing data")
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()
	m := NewConfigManager(filepath.Join(t.TempDir(), "nope.yaml"))
	if _, err := m.Load(); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestParseDurationField(t *testing.T) {
	t.Parallel()
	tests := []struct {
		raw     string
		want    time.Duration
		wantErr bool
	}{
		{raw: "10s", want: 10 * time.Second},
		{raw: " 1m ", want: time.Minute},
		{raw: "", want: 0},
		{raw: "-5s", wantErr: true},
		{raw: "abc", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseDurationField("webhook.timeout", tt.raw)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("ParseDurationField(%q): expected error", tt.raw)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseDurationField(%q): %v", tt.raw, err)
		}
		if got != tt.want {
			t.Fatalf("ParseDurationField(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestParseDurationOrDefault(t *testing.T) {
	t.Parallel()
	got, err := ParseDurationOrDefault("webhook.timeout", "", 10*time.Second)
	if err != nil || got != 10*time.Second {
		t.Fatalf("got %v, %v", got, err)
	}
	got, err = ParseDurationOrDefault("webhook.timeout", "3s", 10*time.Second)
	if err != nil || got != 3*time.Second {
		t.Fatalf("got %v, %v", got, err)
	}
}
