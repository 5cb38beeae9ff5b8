// Package config loads and validates watcher configuration via Viper.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/JakeFAU/goldwatch/internal/goldprice"
	"github.com/JakeFAU/goldwatch/internal/policy/retry"
)

// DefaultSourceURL is the prices dashboard scraped for the 24K sell price.
const DefaultSourceURL = "https://edahabapp.com/prices-dashboard"

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	SourceURL  string             `mapstructure:"source_url"`
	WebhookURL string             `mapstructure:"webhook_url"`
	EnvFile    string             `mapstructure:"env_file"`
	Poll       PollConfig         `mapstructure:"poll"`
	Webhook    WebhookConfig      `mapstructure:"webhook"`
	HTTP       HTTPConfig         `mapstructure:"http"`
	Fetch      FetchConfig        `mapstructure:"fetch"`
	Extract    ExtractConfig      `mapstructure:"extract"`
	Notify     NotifyConfig       `mapstructure:"notify"`
	Server     ServerConfig       `mapstructure:"server"`
	Logging    LoggingConfig      `mapstructure:"logging"`
	Targets    []goldprice.Target `mapstructure:"-"`
}

// PollConfig controls the loop cadence.
type PollConfig struct {
	IntervalSeconds int `mapstructure:"interval_seconds"`
}

// WebhookConfig holds target-list requirements.
type WebhookConfig struct {
	Required bool `mapstructure:"required"`
}

// HTTPConfig configures the page fetch client and its retry behavior.
type HTTPConfig struct {
	TimeoutSeconds   int  `mapstructure:"timeout_seconds"`
	MaxRetries       int  `mapstructure:"max_retries"`
	BackoffInitialMs int  `mapstructure:"backoff_initial_ms"`
	BackoffMaxMs     int  `mapstructure:"backoff_max_ms"`
	LegacyTLS        bool `mapstructure:"legacy_tls"`
}

// FetchConfig selects and tunes the page fetcher.
type FetchConfig struct {
	UserAgent              string `mapstructure:"user_agent"`
	Headless               bool   `mapstructure:"headless"`
	HeadlessTimeoutSeconds int    `mapstructure:"headless_timeout_seconds"`
	// HeadlessFallback keeps the HTTP fetcher but re-renders pages that look
	// unrendered in headless Chrome. Ignored when Headless is set.
	HeadlessFallback   bool `mapstructure:"headless_fallback"`
	PromotionThreshold int  `mapstructure:"promotion_threshold"`
}

// ExtractConfig overrides the anchor phrases around the price.
type ExtractConfig struct {
	PurityLabel   string `mapstructure:"purity_label"`
	SellLabel     string `mapstructure:"sell_label"`
	CurrencyLabel string `mapstructure:"currency_label"`
}

// NotifyConfig controls webhook delivery.
type NotifyConfig struct {
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
	MaxRetries     int `mapstructure:"max_retries"`
}

// ServerConfig controls the optional status server. Port 0 disables it.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// legacyEnv maps config keys to the bare variable names older deployments use.
var legacyEnv = map[string]string{
	"targets":               "WEBHOOKS",
	"poll.interval_seconds": "POLL_SECONDS",
	"webhook_url":           "WEBHOOK_URL",
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("GOLDWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	for key, legacy := range legacyEnv {
		envName := "GOLDWATCH_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, envName, legacy); err != nil {
			return Config{}, fmt.Errorf("%w: bind env %s: %w", goldprice.ErrConfig, key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("%w: read config: %w", goldprice.ErrConfig, err)
		}
	} else {
		v.SetConfigName("goldwatch")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.goldwatch")
		v.AddConfigPath("/etc/goldwatch/")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("%w: read config: %w", goldprice.ErrConfig, err)
			}
		}
	}

	if err := loadDotEnv(v.GetString("env_file")); err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("%w: unmarshal config: %w", goldprice.ErrConfig, err)
	}

	targets, err := parseTargets(v)
	if err != nil {
		return Config{}, err
	}
	if url := strings.TrimSpace(cfg.WebhookURL); url != "" {
		targets = append(targets, goldprice.Target{URL: url, Variant: goldprice.VariantHomescreen})
	}
	cfg.Targets = targets

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("source_url", DefaultSourceURL)
	v.SetDefault("webhook_url", "")
	v.SetDefault("env_file", ".env")
	v.SetDefault("poll.interval_seconds", 180)
	v.SetDefault("webhook.required", false)
	v.SetDefault("http.timeout_seconds", 30)
	v.SetDefault("http.max_retries", 3)
	v.SetDefault("http.backoff_initial_ms", 1000)
	v.SetDefault("http.backoff_max_ms", 8000)
	v.SetDefault("http.legacy_tls", true)
	v.SetDefault("fetch.user_agent", "")
	v.SetDefault("fetch.headless", false)
	v.SetDefault("fetch.headless_timeout_seconds", 45)
	v.SetDefault("fetch.headless_fallback", false)
	v.SetDefault("fetch.promotion_threshold", 2048)
	v.SetDefault("extract.purity_label", "")
	v.SetDefault("extract.sell_label", "")
	v.SetDefault("extract.currency_label", "")
	v.SetDefault("notify.timeout_seconds", 20)
	v.SetDefault("notify.max_retries", 0)
	v.SetDefault("server.port", 0)
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "info")
}

// loadDotEnv exports variables from a dotenv file without overriding the
// real environment. A missing file is not an error.
func loadDotEnv(path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	dv := viper.New()
	dv.SetConfigFile(path)
	dv.SetConfigType("env")
	if err := dv.ReadInConfig(); err != nil {
		return fmt.Errorf("%w: read env file %s: %w", goldprice.ErrConfig, path, err)
	}
	for _, key := range dv.AllKeys() {
		name := strings.ToUpper(key)
		if _, set := os.LookupEnv(name); set {
			continue
		}
		if err := os.Setenv(name, dv.GetString(key)); err != nil {
			return fmt.Errorf("%w: export %s: %w", goldprice.ErrConfig, name, err)
		}
	}
	return nil
}

// parseTargets accepts either a JSON array string (environment) or a list of
// maps (config file) under the "targets" key.
func parseTargets(v *viper.Viper) ([]goldprice.Target, error) {
	var targets []goldprice.Target
	switch raw := v.Get("targets").(type) {
	case nil:
		return nil, nil
	case string:
		if strings.TrimSpace(raw) == "" {
			return nil, nil
		}
		if err := json.Unmarshal([]byte(raw), &targets); err != nil {
			return nil, fmt.Errorf("%w: targets is not a JSON list: %w", goldprice.ErrConfig, err)
		}
	default:
		if err := v.UnmarshalKey("targets", &targets); err != nil {
			return nil, fmt.Errorf("%w: decode targets: %w", goldprice.ErrConfig, err)
		}
	}

	for i, t := range targets {
		t.URL = strings.TrimSpace(t.URL)
		if t.URL == "" {
			return nil, fmt.Errorf("%w: targets[%d].url is required", goldprice.ErrConfig, i)
		}
		variant, err := goldprice.ParseVariant(string(t.Variant))
		if err != nil {
			return nil, fmt.Errorf("targets[%d]: %w", i, err)
		}
		t.Variant = variant
		targets[i] = t
	}
	return targets, nil
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if strings.TrimSpace(c.SourceURL) == "" {
		return fmt.Errorf("%w: source_url must be set", goldprice.ErrConfig)
	}
	if c.Poll.IntervalSeconds <= 0 {
		return fmt.Errorf("%w: poll.interval_seconds must be > 0", goldprice.ErrConfig)
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("%w: http.timeout_seconds must be > 0", goldprice.ErrConfig)
	}
	if c.HTTP.MaxRetries < 0 {
		return fmt.Errorf("%w: http.max_retries must be >= 0", goldprice.ErrConfig)
	}
	if c.Notify.TimeoutSeconds <= 0 {
		return fmt.Errorf("%w: notify.timeout_seconds must be > 0", goldprice.ErrConfig)
	}
	if c.Notify.MaxRetries < 0 {
		return fmt.Errorf("%w: notify.max_retries must be >= 0", goldprice.ErrConfig)
	}
	if (c.Fetch.Headless || c.Fetch.HeadlessFallback) && c.Fetch.HeadlessTimeoutSeconds <= 0 {
		return fmt.Errorf("%w: fetch.headless_timeout_seconds must be > 0 when headless is enabled", goldprice.ErrConfig)
	}
	if c.Fetch.PromotionThreshold < 0 {
		return fmt.Errorf("%w: fetch.promotion_threshold must be >= 0", goldprice.ErrConfig)
	}
	if c.Server.Port < 0 {
		return fmt.Errorf("%w: server.port must be >= 0", goldprice.ErrConfig)
	}
	if c.Webhook.Required && len(c.Targets) == 0 {
		return fmt.Errorf("%w: webhook.required is set but no targets or webhook_url are configured", goldprice.ErrConfig)
	}
	return nil
}

// PollInterval returns the sleep between cycles.
func (c Config) PollInterval() time.Duration {
	return time.Duration(c.Poll.IntervalSeconds) * time.Second
}

// FetchRetry converts the HTTP backoff settings into a retry policy config.
func (c Config) FetchRetry() retry.Config {
	return retry.Config{
		MaxRetries: c.HTTP.MaxRetries,
		BaseDelay:  time.Duration(c.HTTP.BackoffInitialMs) * time.Millisecond,
		MaxDelay:   time.Duration(c.HTTP.BackoffMaxMs) * time.Millisecond,
	}
}

// NotifyRetry returns the POST-layer retry config; backoff mirrors the fetcher.
func (c Config) NotifyRetry() retry.Config {
	r := c.FetchRetry()
	r.MaxRetries = c.Notify.MaxRetries
	return r
}
