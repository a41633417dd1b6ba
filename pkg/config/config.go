// Package config loads the alert configuration from a YAML file and the
// environment. Environment variables win over the file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/danielstefank/goodwill-alert/pkg/marketplace"
	"github.com/danielstefank/goodwill-alert/pkg/model"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file looked up when none is given
const DefaultPath = "goodwill-alert.yaml"

// Config is the complete configuration
type Config struct {
	Database    string            `yaml:"database"`
	AuthInfo    AuthInfo          `yaml:"auth_info"`
	Marketplace MarketplaceConfig `yaml:"marketplace"`
	Run         RunConfig         `yaml:"run"`
	Pushover    PushoverConfig    `yaml:"pushover"`
	Telegram    TelegramConfig    `yaml:"telegram"`
}

// AuthInfo holds the marketplace login
type AuthInfo struct {
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	AccessToken string `yaml:"access_token"`
}

// MarketplaceConfig configures the marketplace client
type MarketplaceConfig struct {
	BaseURL           string        `yaml:"base_url"`
	UserAgent         string        `yaml:"user_agent"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
}

// RunConfig configures poll cycles
type RunConfig struct {
	Concurrency int           `yaml:"concurrency"`
	Deadline    time.Duration `yaml:"deadline"`
	Attempts    int           `yaml:"attempts"`
	Backoff     time.Duration `yaml:"backoff"`
}

// PushoverConfig enables Pushover notifications when both fields are set
type PushoverConfig struct {
	Token string `yaml:"token"`
	User  string `yaml:"user"`
}

// Enabled reports whether Pushover is configured
func (p PushoverConfig) Enabled() bool {
	return p.Token != "" && p.User != ""
}

// TelegramConfig enables Telegram notifications and the bot command
type TelegramConfig struct {
	Token  string `yaml:"token"`
	ChatID int64  `yaml:"chat_id"`
}

// Enabled reports whether Telegram notifications can be sent
func (t TelegramConfig) Enabled() bool {
	return t.Token != "" && t.ChatID != 0
}

// Default returns the configuration used when nothing is set
func Default() Config {
	return Config{
		Database: "goodwill-alert.db",
		Marketplace: MarketplaceConfig{
			BaseURL:           marketplace.DefaultBaseURL,
			Timeout:           30 * time.Second,
			RequestsPerSecond: 1,
		},
		Run: RunConfig{
			Concurrency: 2,
			Deadline:    5 * time.Minute,
			Attempts:    3,
			Backoff:     time.Second,
		},
	}
}

// LookupFunc reads an environment variable
type LookupFunc func(key string) (string, bool)

// Load reads the file at path, if it exists, and applies the environment
func Load(path string) (*Config, error) {
	return LoadWithEnv(path, os.LookupEnv)
}

// LoadWithEnv is Load with an explicit environment
func LoadWithEnv(path string, lookup LookupFunc) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("%w: read %s: %v", model.ErrConfig, path, err)
		default:
			if err := decode(data, &cfg); err != nil {
				return nil, fmt.Errorf("%w: parse %s: %v", model.ErrConfig, path, err)
			}
		}
	}

	if err := applyEnv(&cfg, lookup); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func decode(data []byte, cfg *Config) error {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func applyEnv(cfg *Config, lookup LookupFunc) error {
	strs := map[string]*string{
		"GOODWILL_DB":           &cfg.Database,
		"GOODWILL_USERNAME":     &cfg.AuthInfo.Username,
		"GOODWILL_PASSWORD":     &cfg.AuthInfo.Password,
		"GOODWILL_ACCESS_TOKEN": &cfg.AuthInfo.AccessToken,
		"PUSHOVER_TOKEN":        &cfg.Pushover.Token,
		"PUSHOVER_USER":         &cfg.Pushover.User,
		"TELEGRAM_APITOKEN":     &cfg.Telegram.Token,
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	if v, ok := lookup("TELEGRAM_CHAT_ID"); ok && v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: TELEGRAM_CHAT_ID: %v", model.ErrConfig, err)
		}
		cfg.Telegram.ChatID = id
	}
	return nil
}

// Validate checks values that have no usable fallback
func (c *Config) Validate() error {
	if c.Database == "" {
		return fmt.Errorf("%w: database path is empty", model.ErrConfig)
	}
	if c.Run.Concurrency < 1 {
		return fmt.Errorf("%w: run.concurrency must be at least 1", model.ErrConfig)
	}
	if c.Run.Attempts < 1 {
		return fmt.Errorf("%w: run.attempts must be at least 1", model.ErrConfig)
	}
	if c.Run.Backoff < 0 || c.Run.Deadline < 0 || c.Marketplace.Timeout < 0 {
		return fmt.Errorf("%w: durations must not be negative", model.ErrConfig)
	}
	return nil
}

// Credentials returns the marketplace login, or ErrConfig if there is none
func (c *Config) Credentials() (marketplace.Credentials, error) {
	creds := marketplace.Credentials{
		Username:    c.AuthInfo.Username,
		Password:    c.AuthInfo.Password,
		AccessToken: c.AuthInfo.AccessToken,
	}
	if creds.Empty() {
		return creds, fmt.Errorf("%w: set auth_info.access_token or auth_info.username and auth_info.password", model.ErrConfig)
	}
	return creds, nil
}
