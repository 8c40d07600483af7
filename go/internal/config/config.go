// Package config loads the live client configuration from defaults, an optional YAML
// file and EVENTUP_* environment variables, in that order of precedence.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/eventup/live/go/internal/live"
	"github.com/eventup/live/go/internal/notify"
)

// FileEnv names the variable holding the optional YAML config path
const FileEnv = "EVENTUP_CONFIG"

// Config holds the live client settings
type Config struct {
	APIURL      string        `yaml:"api_url"`
	WSURL       string        `yaml:"ws_url"`
	HTTPTimeout time.Duration `yaml:"http_timeout"`

	AccessToken string `yaml:"access_token"`
	TokenFile   string `yaml:"token_file"`

	MaxReconnectAttempts int           `yaml:"max_reconnect_attempts"`
	ReconnectDelay       time.Duration `yaml:"reconnect_delay"`
	DialTimeout          time.Duration `yaml:"dial_timeout"`

	MergePolicy  string `yaml:"merge_policy"`
	RelatedLimit int    `yaml:"related_limit"`

	NATS NATSConfig `yaml:"nats"`

	ViewAddr string `yaml:"view_addr"`
	LogLevel string `yaml:"log_level"`
}

// NATSConfig configures the optional notification publisher. An empty URL disables it.
type NATSConfig struct {
	URL           string `yaml:"url"`
	SubjectPrefix string `yaml:"subject_prefix"`
}

// Default returns the built-in configuration
func Default() Config {
	retry := live.DefaultRetryPolicy()
	conn := live.DefaultConnectionConfig()
	return Config{
		APIURL:               "http://localhost:8000",
		WSURL:                conn.BaseURL,
		HTTPTimeout:          30 * time.Second,
		MaxReconnectAttempts: retry.MaxAttempts,
		ReconnectDelay:       retry.Delay,
		DialTimeout:          conn.DialTimeout,
		MergePolicy:          string(live.MergeAppend),
		RelatedLimit:         live.DefaultControllerConfig().RelatedLimit,
		NATS: NATSConfig{
			SubjectPrefix: notify.DefaultNATSConfig().SubjectPrefix,
		},
		LogLevel: "info",
	}
}

// Load builds the configuration from defaults, the file named by EVENTUP_CONFIG and the
// environment
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv(FileEnv); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.APIURL = getEnv("EVENTUP_API_URL", cfg.APIURL)
	cfg.WSURL = getEnv("EVENTUP_WS_URL", cfg.WSURL)
	cfg.HTTPTimeout = getEnvAsDuration("EVENTUP_HTTP_TIMEOUT", cfg.HTTPTimeout)
	cfg.AccessToken = getEnv("EVENTUP_ACCESS_TOKEN", cfg.AccessToken)
	cfg.TokenFile = getEnv("EVENTUP_TOKEN_FILE", cfg.TokenFile)
	cfg.MaxReconnectAttempts = getEnvAsInt("EVENTUP_MAX_RECONNECT_ATTEMPTS", cfg.MaxReconnectAttempts)
	cfg.ReconnectDelay = getEnvAsDuration("EVENTUP_RECONNECT_DELAY", cfg.ReconnectDelay)
	cfg.DialTimeout = getEnvAsDuration("EVENTUP_DIAL_TIMEOUT", cfg.DialTimeout)
	cfg.MergePolicy = getEnv("EVENTUP_MERGE_POLICY", cfg.MergePolicy)
	cfg.RelatedLimit = getEnvAsInt("EVENTUP_RELATED_LIMIT", cfg.RelatedLimit)
	cfg.NATS.URL = getEnv("NATS_URL", cfg.NATS.URL)
	cfg.NATS.SubjectPrefix = getEnv("EVENTUP_NATS_SUBJECT_PREFIX", cfg.NATS.SubjectPrefix)
	cfg.ViewAddr = getEnv("EVENTUP_VIEW_ADDR", cfg.ViewAddr)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
}

// Validate checks the settings that have no usable fallback
func (c *Config) Validate() error {
	if c.APIURL == "" {
		return fmt.Errorf("api_url is required")
	}
	if c.WSURL == "" {
		return fmt.Errorf("ws_url is required")
	}
	if c.MaxReconnectAttempts < 0 {
		return fmt.Errorf("max_reconnect_attempts must not be negative, got %d", c.MaxReconnectAttempts)
	}
	if c.ReconnectDelay <= 0 {
		return fmt.Errorf("reconnect_delay must be positive, got %s", c.ReconnectDelay)
	}
	if _, err := live.ParseMergePolicy(c.MergePolicy); err != nil {
		return fmt.Errorf("invalid merge_policy: %w", err)
	}
	return nil
}

// ControllerConfig returns the controller settings
func (c *Config) ControllerConfig() live.ControllerConfig {
	policy, err := live.ParseMergePolicy(c.MergePolicy)
	if err != nil {
		policy = live.MergeAppend
	}
	return live.ControllerConfig{
		Connection: live.ConnectionConfig{
			BaseURL: strings.TrimRight(c.WSURL, "/"),
			Retry: live.RetryPolicy{
				MaxAttempts: c.MaxReconnectAttempts,
				Delay:       c.ReconnectDelay,
			},
			DialTimeout: c.DialTimeout,
		},
		MergePolicy:  policy,
		RelatedLimit: c.RelatedLimit,
	}
}

// Credentials returns the access token source. A token file wins over a static token
// so a session service can rotate it.
func (c *Config) Credentials() live.CredentialProvider {
	if c.TokenFile != "" {
		return live.FileCredentials{Path: c.TokenFile}
	}
	return live.StaticCredentials(c.AccessToken)
}

// NATSNotifierConfig returns the NATS publisher settings
func (c *Config) NATSNotifierConfig() notify.NATSConfig {
	cfg := notify.DefaultNATSConfig()
	cfg.URL = c.NATS.URL
	if c.NATS.SubjectPrefix != "" {
		cfg.SubjectPrefix = c.NATS.SubjectPrefix
	}
	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
