package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/eventup/live/go/internal/live"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv(FileEnv, "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.MaxReconnectAttempts != 5 {
		t.Errorf("MaxReconnectAttempts = %d, want 5", cfg.MaxReconnectAttempts)
	}
	if cfg.ReconnectDelay != 5*time.Second {
		t.Errorf("ReconnectDelay = %s, want 5s", cfg.ReconnectDelay)
	}
	if cfg.MergePolicy != string(live.MergeAppend) {
		t.Errorf("MergePolicy = %q, want %q", cfg.MergePolicy, live.MergeAppend)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "live.yaml")
	content := `
api_url: https://api.example.com
ws_url: wss://api.example.com/
max_reconnect_attempts: 3
reconnect_delay: 2s
merge_policy: in_place
nats:
  url: nats://nats:4222
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(FileEnv, path)
	t.Setenv("EVENTUP_MAX_RECONNECT_ATTEMPTS", "7")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.APIURL != "https://api.example.com" {
		t.Errorf("APIURL = %q", cfg.APIURL)
	}
	if cfg.MaxReconnectAttempts != 7 {
		t.Errorf("MaxReconnectAttempts = %d, want env override 7", cfg.MaxReconnectAttempts)
	}
	if cfg.NATS.URL != "nats://nats:4222" {
		t.Errorf("NATS.URL = %q", cfg.NATS.URL)
	}

	cc := cfg.ControllerConfig()
	if cc.Connection.BaseURL != "wss://api.example.com" {
		t.Errorf("BaseURL = %q, want trailing slash trimmed", cc.Connection.BaseURL)
	}
	if cc.Connection.Retry.Delay != 2*time.Second {
		t.Errorf("Retry.Delay = %s, want 2s", cc.Connection.Retry.Delay)
	}
	if cc.MergePolicy != live.MergeInPlace {
		t.Errorf("MergePolicy = %q, want in_place", cc.MergePolicy)
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv(FileEnv, filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{name: "defaults", modify: func(*Config) {}},
		{name: "no api url", modify: func(c *Config) { c.APIURL = "" }, wantErr: true},
		{name: "negative attempts", modify: func(c *Config) { c.MaxReconnectAttempts = -1 }, wantErr: true},
		{name: "zero delay", modify: func(c *Config) { c.ReconnectDelay = 0 }, wantErr: true},
		{name: "unknown merge policy", modify: func(c *Config) { c.MergePolicy = "sorted" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCredentials(t *testing.T) {
	cfg := Default()
	cfg.AccessToken = "abc"
	if _, ok := cfg.Credentials().(live.StaticCredentials); !ok {
		t.Errorf("expected static credentials")
	}

	cfg.TokenFile = "/run/eventup/token"
	if fc, ok := cfg.Credentials().(live.FileCredentials); !ok || fc.Path != cfg.TokenFile {
		t.Errorf("expected file credentials for %s", cfg.TokenFile)
	}
}
