// Package config provides configuration management for the price watcher.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	apperrors "pricewatch/internal/errors"
)

// Config holds all application configuration.
type Config struct {
	Watch         WatchConfig        `mapstructure:"watch"`
	Store         StoreConfig        `mapstructure:"store"`
	Feed          FeedConfig         `mapstructure:"feed"`
	UI            UIConfig           `mapstructure:"ui"`
	Notifications NotificationConfig `mapstructure:"notifications"`
	Inbound       InboundConfig      `mapstructure:"inbound"`
	Credentials   Credentials        `mapstructure:"-"` // Loaded separately
}

// WatchConfig holds evaluation loop configuration.
type WatchConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

// StoreConfig holds rule store configuration.
type StoreConfig struct {
	SpreadsheetID string `mapstructure:"spreadsheet_id"`
	SheetName     string `mapstructure:"sheet_name"`
	CachePath     string `mapstructure:"cache_path"`
	CacheEnabled  bool   `mapstructure:"cache_enabled"`
}

// FeedConfig holds market data feed configuration.
type FeedConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// UIConfig holds output-related configuration.
type UIConfig struct {
	ColorEnabled bool   `mapstructure:"color_enabled"`
	DateFormat   string `mapstructure:"date_format"`
	TimeFormat   string `mapstructure:"time_format"`
}

// NotificationConfig holds notification configuration.
type NotificationConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Email    EmailConfig    `mapstructure:"email"`
	WhatsApp WhatsAppConfig `mapstructure:"whatsapp"`
}

// EmailConfig holds email notification configuration.
type EmailConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	SMTPHost string `mapstructure:"smtp_host"`
	SMTPPort int    `mapstructure:"smtp_port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
	To       string `mapstructure:"to"`
}

// WhatsAppConfig holds WhatsApp notification configuration.
type WhatsAppConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	To      string `mapstructure:"to"` // user's phone number, local or E.164
}

// InboundConfig holds inbound message polling configuration.
type InboundConfig struct {
	Enabled  bool `mapstructure:"enabled"`
	Lookback int  `mapstructure:"lookback"` // number of recent messages to scan
}

// Credentials holds API credentials.
type Credentials struct {
	Google GoogleCredentials `mapstructure:"google"`
	Twilio TwilioCredentials `mapstructure:"twilio"`
}

// GoogleCredentials holds the Google service account key for Sheets access.
type GoogleCredentials struct {
	// ServiceKeyBase64 is the base64-encoded service account JSON key.
	ServiceKeyBase64 string `mapstructure:"service_key_base64"`
}

// TwilioCredentials holds Twilio API credentials.
type TwilioCredentials struct {
	AccountSID string `mapstructure:"account_sid"`
	AuthToken  string `mapstructure:"auth_token"`
	From       string `mapstructure:"from"` // sandbox/sender number
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/pricewatch"
	}
	return filepath.Join(home, ".config", "pricewatch")
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	cfg := &Config{}

	if err := loadConfigFile(configDir, "config", cfg); err != nil {
		return nil, fmt.Errorf("loading config.toml: %w", err)
	}

	if err := loadCredentials(configDir, &cfg.Credentials); err != nil {
		return nil, fmt.Errorf("loading credentials.toml: %w", err)
	}

	applyDefaults(cfg, configDir)
	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func loadConfigFile(configDir, name string, target interface{}) error {
	v := viper.New()
	v.SetConfigName(name)
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	v.SetDefault("watch.interval", "30s")
	v.SetDefault("store.sheet_name", "alerts")
	v.SetDefault("store.cache_enabled", true)
	v.SetDefault("feed.timeout", "10s")
	v.SetDefault("inbound.lookback", 15)
	v.SetDefault("ui.color_enabled", true)
	v.SetDefault("ui.date_format", "02-Jan-2006")
	v.SetDefault("ui.time_format", "15:04:05")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found, create template
			if tErr := createTemplateConfig(configDir, name); tErr != nil {
				return tErr
			}
		} else {
			return err
		}
	}

	return v.Unmarshal(target)
}

func loadCredentials(configDir string, creds *Credentials) error {
	v := viper.New()
	v.SetConfigName("credentials")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return createTemplateCredentials(configDir)
		}
		return err
	}

	return v.Unmarshal(creds)
}

func applyDefaults(cfg *Config, configDir string) {
	if cfg.Watch.Interval <= 0 {
		cfg.Watch.Interval = 30 * time.Second
	}
	if cfg.Feed.Timeout <= 0 {
		cfg.Feed.Timeout = 10 * time.Second
	}
	if cfg.Store.SheetName == "" {
		cfg.Store.SheetName = "alerts"
	}
	if cfg.Store.CachePath == "" {
		cfg.Store.CachePath = filepath.Join(configDir, "pricewatch.db")
	}
	if cfg.Inbound.Lookback <= 0 {
		cfg.Inbound.Lookback = 15
	}
}

func applyEnvOverrides(cfg *Config) {
	// Google credentials
	if v := os.Getenv("PRICEWATCH_GOOGLE_KEY_BASE64"); v != "" {
		cfg.Credentials.Google.ServiceKeyBase64 = v
	}
	if v := os.Getenv("PRICEWATCH_SPREADSHEET_ID"); v != "" {
		cfg.Store.SpreadsheetID = v
	}

	// Twilio credentials
	if v := os.Getenv("TWILIO_ACCOUNT_SID"); v != "" {
		cfg.Credentials.Twilio.AccountSID = v
	}
	if v := os.Getenv("TWILIO_AUTH_TOKEN"); v != "" {
		cfg.Credentials.Twilio.AuthToken = v
	}
	if v := os.Getenv("TWILIO_FROM"); v != "" {
		cfg.Credentials.Twilio.From = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Watch.Interval < time.Second {
		return apperrors.Wrapf(apperrors.ErrConfigInvalid, "watch interval must be at least 1s, got %s", c.Watch.Interval)
	}

	if c.Notifications.Email.Enabled {
		e := c.Notifications.Email
		if e.SMTPHost == "" || e.From == "" || e.To == "" {
			return apperrors.Wrap(apperrors.ErrConfigInvalid, "email notifications enabled but smtp_host/from/to incomplete")
		}
	}

	if c.Notifications.WhatsApp.Enabled && c.Notifications.WhatsApp.To == "" {
		return apperrors.Wrap(apperrors.ErrConfigInvalid, "whatsapp notifications enabled but no destination number configured")
	}

	if c.Inbound.Enabled {
		t := c.Credentials.Twilio
		if t.AccountSID == "" || t.AuthToken == "" {
			return apperrors.Wrap(apperrors.ErrConfigInvalid, "inbound polling enabled but twilio credentials missing")
		}
	}

	return nil
}

// RemoteStoreConfigured reports whether the Google Sheets store can be used.
func (c *Config) RemoteStoreConfigured() bool {
	return c.Store.SpreadsheetID != "" && c.Credentials.Google.ServiceKeyBase64 != ""
}
