package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/JakeFAU/goldwatch/internal/goldprice"
)

func writeFile(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.SourceURL != DefaultSourceURL {
		t.Fatalf("expected default source url, got %q", cfg.SourceURL)
	}
	if got := cfg.PollInterval(); got != 180*time.Second {
		t.Fatalf("expected 180s poll interval, got %v", got)
	}
	if cfg.HTTP.TimeoutSeconds != 30 || cfg.HTTP.MaxRetries != 3 || !cfg.HTTP.LegacyTLS {
		t.Fatalf("unexpected http defaults: %+v", cfg.HTTP)
	}
	if cfg.Notify.TimeoutSeconds != 20 || cfg.Notify.MaxRetries != 0 {
		t.Fatalf("unexpected notify defaults: %+v", cfg.Notify)
	}
	if cfg.Fetch.Headless || cfg.Fetch.HeadlessFallback || cfg.Fetch.PromotionThreshold != 2048 {
		t.Fatalf("unexpected fetch defaults: %+v", cfg.Fetch)
	}
	if len(cfg.Targets) != 0 {
		t.Fatalf("expected no targets, got %+v", cfg.Targets)
	}
}

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "config.yaml", `
source_url: https://example.com/gold
poll:
  interval_seconds: 60
http:
  timeout_seconds: 25
  max_retries: 5
  backoff_initial_ms: 100
  backoff_max_ms: 500
  legacy_tls: false
fetch:
  user_agent: test-agent
extract:
  sell_label: Ask
notify:
  timeout_seconds: 10
  max_retries: 2
server:
  port: 9090
logging:
  development: false
targets:
  - url: https://hooks.example.com/a
    name: phone
    type: lockscreen
  - url: https://hooks.example.com/b
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.SourceURL != "https://example.com/gold" || cfg.Poll.IntervalSeconds != 60 {
		t.Fatalf("expected overrides to apply: %+v", cfg)
	}
	if cfg.HTTP.LegacyTLS || cfg.Fetch.UserAgent != "test-agent" || cfg.Extract.SellLabel != "Ask" {
		t.Fatalf("expected nested overrides to apply: %+v", cfg)
	}
	if cfg.Server.Port != 9090 || cfg.Logging.Development {
		t.Fatalf("expected server/logging overrides: %+v", cfg)
	}
	if len(cfg.Targets) != 2 {
		t.Fatalf("expected two targets, got %+v", cfg.Targets)
	}
	if cfg.Targets[0].Variant != goldprice.VariantLockscreen || cfg.Targets[0].DisplayName() != "phone" {
		t.Fatalf("unexpected first target: %+v", cfg.Targets[0])
	}
	if cfg.Targets[1].Variant != goldprice.VariantHomescreen || cfg.Targets[1].DisplayName() != "https://hooks.example.com/b" {
		t.Fatalf("unexpected second target: %+v", cfg.Targets[1])
	}

	fetchRetry := cfg.FetchRetry()
	if fetchRetry.MaxRetries != 5 || fetchRetry.BaseDelay != 100*time.Millisecond || fetchRetry.MaxDelay != 500*time.Millisecond {
		t.Fatalf("unexpected fetch retry: %+v", fetchRetry)
	}
	if got := cfg.NotifyRetry(); got.MaxRetries != 2 || got.BaseDelay != 100*time.Millisecond {
		t.Fatalf("unexpected notify retry: %+v", got)
	}
}

func TestLoadLegacyEnvironment(t *testing.T) {
	t.Setenv("WEBHOOKS", `[{"url":"https://hooks.example.com/x","name":"x","type":"homescreen"},{"url":"https://hooks.example.com/y","type":"lockscreen"}]`)
	t.Setenv("POLL_SECONDS", "45")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Poll.IntervalSeconds != 45 {
		t.Fatalf("expected POLL_SECONDS to apply, got %d", cfg.Poll.IntervalSeconds)
	}
	if len(cfg.Targets) != 2 || cfg.Targets[1].Variant != goldprice.VariantLockscreen {
		t.Fatalf("unexpected targets: %+v", cfg.Targets)
	}
}

func TestLoadPrefixedEnvironmentWins(t *testing.T) {
	t.Setenv("POLL_SECONDS", "45")
	t.Setenv("GOLDWATCH_POLL_INTERVAL_SECONDS", "90")
	t.Setenv("GOLDWATCH_HTTP_TIMEOUT_SECONDS", "12")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Poll.IntervalSeconds != 90 || cfg.HTTP.TimeoutSeconds != 12 {
		t.Fatalf("expected prefixed variables to apply: %+v", cfg)
	}
}

func TestLoadSingleWebhookURL(t *testing.T) {
	t.Setenv("WEBHOOK_URL", "https://hooks.example.com/single")
	t.Setenv("GOLDWATCH_WEBHOOK_REQUIRED", "true")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(cfg.Targets) != 1 || cfg.Targets[0].URL != "https://hooks.example.com/single" {
		t.Fatalf("expected single target, got %+v", cfg.Targets)
	}
}

func TestLoadRequiredWebhookMissing(t *testing.T) {
	t.Setenv("GOLDWATCH_WEBHOOK_REQUIRED", "true")

	_, err := Load("")
	if !errors.Is(err, goldprice.ErrConfig) || !strings.Contains(err.Error(), "webhook.required") {
		t.Fatalf("expected config error for missing webhook, got %v", err)
	}
}

func TestLoadInvalidTargets(t *testing.T) {
	tests := []struct {
		name string
		env  string
		want string
	}{
		{name: "not json", env: "{oops", want: "JSON list"},
		{name: "missing url", env: `[{"name":"x"}]`, want: "targets[0].url"},
		{name: "unknown type", env: `[{"url":"https://a","type":"banner"}]`, want: "unknown target type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("WEBHOOKS", tt.env)
			_, err := Load("")
			if !errors.Is(err, goldprice.ErrConfig) || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected config error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestLoadDotEnvFile(t *testing.T) {
	const key = "GOLDWATCH_NOTIFY_MAX_RETRIES"
	t.Cleanup(func() { _ = os.Unsetenv(key) })
	t.Cleanup(func() { _ = os.Unsetenv("WEBHOOKS") })

	envPath := writeFile(t, ".env", "WEBHOOKS='[{\"url\":\"https://hooks.example.com/dotenv\"}]'\n"+key+"=4\n")
	t.Setenv("GOLDWATCH_ENV_FILE", envPath)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Notify.MaxRetries != 4 {
		t.Fatalf("expected dotenv value, got %d", cfg.Notify.MaxRetries)
	}
	if len(cfg.Targets) != 1 || cfg.Targets[0].URL != "https://hooks.example.com/dotenv" {
		t.Fatalf("expected dotenv targets, got %+v", cfg.Targets)
	}
}

func TestLoadDotEnvDoesNotOverrideEnvironment(t *testing.T) {
	t.Setenv("POLL_SECONDS", "30")
	envPath := writeFile(t, ".env", "POLL_SECONDS=999\n")
	t.Setenv("GOLDWATCH_ENV_FILE", envPath)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Poll.IntervalSeconds != 30 {
		t.Fatalf("expected real environment to win, got %d", cfg.Poll.IntervalSeconds)
	}
}

func TestLoadMissingConfigFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if !errors.Is(err, goldprice.ErrConfig) {
		t.Fatalf("expected config error, got %v", err)
	}
}

func TestConfigValidateErrors(t *testing.T) {
	t.Parallel()

	base := Config{
		SourceURL: DefaultSourceURL,
		Poll:      PollConfig{IntervalSeconds: 180},
		HTTP:      HTTPConfig{TimeoutSeconds: 30},
		Notify:    NotifyConfig{TimeoutSeconds: 20},
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("expected base config to be valid, got %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{name: "empty source", mutate: func(c *Config) { c.SourceURL = " " }, want: "source_url"},
		{name: "zero interval", mutate: func(c *Config) { c.Poll.IntervalSeconds = 0 }, want: "poll.interval_seconds"},
		{name: "zero http timeout", mutate: func(c *Config) { c.HTTP.TimeoutSeconds = 0 }, want: "http.timeout_seconds"},
		{name: "negative retries", mutate: func(c *Config) { c.HTTP.MaxRetries = -1 }, want: "http.max_retries"},
		{name: "zero notify timeout", mutate: func(c *Config) { c.Notify.TimeoutSeconds = 0 }, want: "notify.timeout_seconds"},
		{name: "negative notify retries", mutate: func(c *Config) { c.Notify.MaxRetries = -2 }, want: "notify.max_retries"},
		{name: "headless without timeout", mutate: func(c *Config) { c.Fetch.Headless = true }, want: "fetch.headless_timeout_seconds"},
		{name: "fallback without timeout", mutate: func(c *Config) { c.Fetch.HeadlessFallback = true }, want: "fetch.headless_timeout_seconds"},
		{name: "negative promotion threshold", mutate: func(c *Config) { c.Fetch.PromotionThreshold = -1 }, want: "fetch.promotion_threshold"},
		{name: "negative port", mutate: func(c *Config) { c.Server.Port = -1 }, want: "server.port"},
		{name: "required webhook", mutate: func(c *Config) { c.Webhook.Required = true }, want: "webhook.required"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := base
			tt.mutate(&c)
			err := c.Validate()
			if !errors.Is(err, goldprice.ErrConfig) || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}
