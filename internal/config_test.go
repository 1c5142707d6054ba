package internal

import (
	"os"
	"path/filepath"
	"testing"
)

// TestLoadConfigDefaults tests that default values are applied when loading
// an empty config.
func TestLoadConfigDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.yaml")
	if err := os.WriteFile(path, []byte("{}\n"), 0o600); err != nil {
		t.Fatalf("write app config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Fatalf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Database.Driver != "postgres" {
		t.Fatalf("expected default driver postgres, got %q", cfg.Database.Driver)
	}
	if cfg.Database.GitHubTable != "github_events" {
		t.Fatalf("expected default github table, got %q", cfg.Database.GitHubTable)
	}
	if cfg.Webhook.GitHubPath != "/api/github/webhook" {
		t.Fatalf("expected default github path, got %q", cfg.Webhook.GitHubPath)
	}
	if cfg.Webhook.GenericPath != "/api/webhooks/generic" {
		t.Fatalf("expected default generic path, got %q", cfg.Webhook.GenericPath)
	}
	if cfg.Poll.IntervalMS != 15000 {
		t.Fatalf("expected default poll interval, got %d", cfg.Poll.IntervalMS)
	}
	if cfg.Dispatch.Driver != "gochannel" {
		t.Fatalf("expected default dispatch driver, got %q", cfg.Dispatch.Driver)
	}
	if cfg.Dispatch.GoChannel.OutputChannelBuffer != 64 {
		t.Fatalf("expected default gochannel output buffer, got %d", cfg.Dispatch.GoChannel.OutputChannelBuffer)
	}
}

// TestLoadConfigExpandsEnv tests that environment variables referenced in
// the config file are expanded.
func TestLoadConfigExpandsEnv(t *testing.T) {
	t.Setenv("HOOKBOARD_TEST_DSN", "postgres://localhost/hookboard")
	t.Setenv("HOOKBOARD_TEST_SECRET", "s3cr3t")

	dir := t.TempDir()
	path := filepath.Join(dir, "app.yaml")
	content := "database:\n  dsn: ${HOOKBOARD_TEST_DSN}\nwebhook:\n  secret: ${HOOKBOARD_TEST_SECRET}\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write app config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Database.DSN != "postgres://localhost/hookboard" {
		t.Fatalf("expected expanded dsn, got %q", cfg.Database.DSN)
	}
	if cfg.Webhook.Secret != "s3cr3t" {
		t.Fatalf("expected expanded secret, got %q", cfg.Webhook.Secret)
	}
}

// TestLoadConfigInvalidRule tests that a rule missing its emit topic is
// rejected.
func TestLoadConfigInvalidRule(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "rules:\n  - when: event == \"push\"\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := LoadConfig(path); err == nil {
		t.Fatalf("expected error for missing emit")
	}
}

// TestLoadConfigTrimsRuleFields tests that rule fields are trimmed.
func TestLoadConfigTrimsRuleFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "rules:\n  - when: \"  event == \\\"push\\\"  \"\n    emit: \"  pushes  \"\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Rules[0].When != "event == \"push\"" {
		t.Fatalf("expected trimmed when, got %q", cfg.Rules[0].When)
	}
	if cfg.Rules[0].Emit != "pushes" {
		t.Fatalf("expected trimmed emit, got %q", cfg.Rules[0].Emit)
	}
}
