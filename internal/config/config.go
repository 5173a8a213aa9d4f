// Package config loads the service configuration from YAML, a .env file and
// the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Gateway drivers.
const (
	GatewayMock = "mock"
	GatewayMoMo = "momo"
)

// maxPaymentRetries is the ceiling of a payment's retry counter.
const maxPaymentRetries = 3

// Notifier drivers.
const (
	NotifierLog     = "log"
	NotifierWebhook = "webhook"
)

// Config holds all application configuration.
type Config struct {
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Auth struct {
		JWTSecret string        `yaml:"jwt_secret"`
		TokenTTL  time.Duration `yaml:"token_ttl"`
	} `yaml:"auth"`
	Gateway struct {
		Driver   string        `yaml:"driver"`
		BaseURL  string        `yaml:"base_url"`
		APIKey   string        `yaml:"api_key"`
		Timeout  time.Duration `yaml:"timeout"`
		Currency string        `yaml:"currency"`
	} `yaml:"gateway"`
	Notifier struct {
		Driver     string        `yaml:"driver"`
		WebhookURL string        `yaml:"webhook_url"`
		Timeout    time.Duration `yaml:"timeout"`
		QueueSize  int           `yaml:"queue_size"`
	} `yaml:"notifier"`
	Schedule struct {
		Enabled          bool          `yaml:"enabled"`
		PaymentCheckHour int           `yaml:"payment_check_hour"`
		RetryInterval    time.Duration `yaml:"retry_interval"`
		PayoutInterval   time.Duration `yaml:"payout_interval"`
	} `yaml:"schedule"`
	Payments struct {
		MaxRetries   int           `yaml:"max_retries"`
		RetryBackoff time.Duration `yaml:"retry_backoff"`
	} `yaml:"payments"`
	Payouts struct {
		RequireKYC bool `yaml:"require_kyc"`
		MaxRetries int  `yaml:"max_retries"`
	} `yaml:"payouts"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	cfg := &Config{}
	cfg.Server.Port = 8080
	cfg.Database.SQLitePath = "data/sususave.db"
	cfg.Auth.TokenTTL = 24 * time.Hour
	cfg.Gateway.Driver = GatewayMock
	cfg.Gateway.Timeout = 15 * time.Second
	cfg.Gateway.Currency = "GHS"
	cfg.Notifier.Driver = NotifierLog
	cfg.Notifier.Timeout = 10 * time.Second
	cfg.Notifier.QueueSize = 256
	cfg.Schedule.Enabled = true
	cfg.Schedule.PaymentCheckHour = 6
	cfg.Schedule.RetryInterval = 6 * time.Hour
	cfg.Schedule.PayoutInterval = 2 * time.Hour
	cfg.Payments.MaxRetries = 3
	cfg.Payments.RetryBackoff = time.Hour
	cfg.Payouts.RequireKYC = true
	cfg.Payouts.MaxRetries = 3
	cfg.Log.Level = "info"
	return cfg
}

// Load reads config from a YAML file over the defaults, then applies
// environment variable overrides. A missing file or .env is not an error.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read .env: %w", err)
	}

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if len(data) > 0 {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	strs := map[string]*string{
		"SQLITE_PATH":     &c.Database.SQLitePath,
		"JWT_SECRET":      &c.Auth.JWTSecret,
		"GATEWAY_DRIVER":  &c.Gateway.Driver,
		"MOMO_BASE_URL":   &c.Gateway.BaseURL,
		"MOMO_API_KEY":    &c.Gateway.APIKey,
		"NOTIFIER_DRIVER": &c.Notifier.Driver,
		"SMS_WEBHOOK_URL": &c.Notifier.WebhookURL,
		"LOG_LEVEL":       &c.Log.Level,
	}
	for key, dst := range strs {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"PORT":                &c.Server.Port,
		"PAYMENT_CHECK_HOUR":  &c.Schedule.PaymentCheckHour,
		"MAX_PAYMENT_RETRIES": &c.Payments.MaxRetries,
		"MAX_PAYOUT_RETRIES":  &c.Payouts.MaxRetries,
	}
	for key, dst := range ints {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("parse %s: %w", key, err)
			}
			*dst = n
		}
	}

	durations := map[string]*time.Duration{
		"RETRY_INTERVAL":  &c.Schedule.RetryInterval,
		"PAYOUT_INTERVAL": &c.Schedule.PayoutInterval,
		"RETRY_BACKOFF":   &c.Payments.RetryBackoff,
	}
	for key, dst := range durations {
		if v := os.Getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("parse %s: %w", key, err)
			}
			*dst = d
		}
	}

	bools := map[string]*bool{
		"SCHEDULE_ENABLED": &c.Schedule.Enabled,
		"REQUIRE_KYC":      &c.Payouts.RequireKYC,
	}
	for key, dst := range bools {
		if v := os.Getenv(key); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("parse %s: %w", key, err)
			}
			*dst = b
		}
	}
	return nil
}

// ValidateAuth checks the settings needed to issue or verify tokens. Only
// commands that touch tokens call it.
func (c *Config) ValidateAuth() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	return nil
}

// Validate checks that the configuration can run the engine.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	if c.Database.SQLitePath == "" {
		return fmt.Errorf("database.sqlite_path is required")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("auth.token_ttl must be positive")
	}

	switch c.Gateway.Driver {
	case GatewayMock:
	case GatewayMoMo:
		if c.Gateway.BaseURL == "" {
			return fmt.Errorf("gateway.base_url is required for the momo driver")
		}
		if c.Gateway.APIKey == "" {
			return fmt.Errorf("gateway.api_key is required for the momo driver")
		}
	default:
		return fmt.Errorf("gateway.driver must be %q or %q, got %q", GatewayMock, GatewayMoMo, c.Gateway.Driver)
	}

	switch c.Notifier.Driver {
	case NotifierLog:
	case NotifierWebhook:
		if c.Notifier.WebhookURL == "" {
			return fmt.Errorf("notifier.webhook_url is required for the webhook driver")
		}
	default:
		return fmt.Errorf("notifier.driver must be %q or %q, got %q", NotifierLog, NotifierWebhook, c.Notifier.Driver)
	}

	if c.Schedule.PaymentCheckHour < 0 || c.Schedule.PaymentCheckHour > 23 {
		return fmt.Errorf("schedule.payment_check_hour must be between 0 and 23")
	}
	if c.Schedule.RetryInterval < time.Second || c.Schedule.PayoutInterval < time.Second {
		return fmt.Errorf("schedule intervals must be at least 1s")
	}
	if c.Payments.MaxRetries <= 0 || c.Payments.MaxRetries > maxPaymentRetries {
		return fmt.Errorf("payments.max_retries must be between 1 and %d", maxPaymentRetries)
	}
	if c.Payments.RetryBackoff < 0 {
		return fmt.Errorf("payments.retry_backoff must not be negative")
	}
	if c.Payouts.MaxRetries <= 0 {
		return fmt.Errorf("payouts.max_retries must be positive")
	}
	return nil
}
