// Package config loads the gateway configuration from a YAML file with
// environment-variable overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v2"
)

// Validation errors returned by Load.
var (
	ErrMissingSessionSecret    = errors.New("config: session_secret is required")
	ErrMissingReceivingAddress = errors.New("config: receiving_address is required")
	ErrMissingPrice            = errors.New("config: price must be greater than zero")
	ErrMissingCMSURL           = errors.New("config: cms.url is required")
	ErrInvalidAdminKey         = errors.New("config: cms.admin_key must be of the form id:secret")
	ErrMissingNodeURL          = errors.New("config: node.url is required")
)

// CMS holds the settings for the headless CMS collaborator.
type CMS struct {
	// URL is the base URL of the CMS, without a trailing slash.
	URL string `yaml:"url"`
	// AdminKey is the admin API key in "id:secret" form; the secret part is
	// hex-encoded.
	AdminKey string `yaml:"admin_key"`
}

// Node holds the settings for the ledger node collaborator.
type Node struct {
	// URL is the base URL of the node's REST/event API.
	URL string `yaml:"url"`
}

// Config is the full gateway configuration.
type Config struct {
	// ListenAddr is the address the HTTP server binds to.
	ListenAddr string `yaml:"listen_addr"`
	// SessionSecret signs the browser session cookie.
	SessionSecret string `yaml:"session_secret"`
	// SessionLifetimeHours bounds how long a session cookie stays valid.
	SessionLifetimeHours int `yaml:"session_lifetime_hours"`
	// ReceivingAddress is the ledger address payments must target.
	ReceivingAddress string `yaml:"receiving_address"`
	// Price is the amount, in base units, required per content item.
	Price uint64 `yaml:"price"`

	CMS  CMS  `yaml:"cms"`
	Node Node `yaml:"node"`
}

// DefaultListenAddr is used when listen_addr is not configured.
const DefaultListenAddr = ":8080"

// DefaultSessionLifetimeHours is used when session_lifetime_hours is not set.
const DefaultSessionLifetimeHours = 24

// Load reads the YAML file at path, applies SLUGPAY_* environment overrides
// and validates the result. The file may be absent if every required value is
// supplied via the environment.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("config: reading %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parsing %s: %w", path, err)
		}
	}

	applyEnv(cfg)
	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("SLUGPAY_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("SLUGPAY_SESSION_SECRET"); v != "" {
		cfg.SessionSecret = v
	}
	if v := os.Getenv("SLUGPAY_SESSION_LIFETIME_HOURS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.SessionLifetimeHours = n
		}
	}
	if v := os.Getenv("SLUGPAY_RECEIVING_ADDRESS"); v != "" {
		cfg.ReceivingAddress = v
	}
	if v := os.Getenv("SLUGPAY_PRICE"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.Price = n
		}
	}
	if v := os.Getenv("SLUGPAY_CMS_URL"); v != "" {
		cfg.CMS.URL = v
	}
	if v := os.Getenv("SLUGPAY_CMS_ADMIN_KEY"); v != "" {
		cfg.CMS.AdminKey = v
	}
	if v := os.Getenv("SLUGPAY_NODE_URL"); v != "" {
		cfg.Node.URL = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = DefaultListenAddr
	}
	if cfg.SessionLifetimeHours <= 0 {
		cfg.SessionLifetimeHours = DefaultSessionLifetimeHours
	}
	cfg.CMS.URL = strings.TrimRight(cfg.CMS.URL, "/")
	cfg.Node.URL = strings.TrimRight(cfg.Node.URL, "/")
}

// Validate checks that every required field is present.
func (c *Config) Validate() error {
	if c.SessionSecret == "" {
		return ErrMissingSessionSecret
	}
	if c.ReceivingAddress == "" {
		return ErrMissingReceivingAddress
	}
	if c.Price == 0 {
		return ErrMissingPrice
	}
	if c.CMS.URL == "" {
		return ErrMissingCMSURL
	}
	if id, secret, ok := strings.Cut(c.CMS.AdminKey, ":"); !ok || id == "" || secret == "" {
		return ErrInvalidAdminKey
	}
	if c.Node.URL == "" {
		return ErrMissingNodeURL
	}
	return nil
}

// SessionLifetime returns the configured cookie lifetime as a duration.
func (c *Config) SessionLifetime() time.Duration {
	return time.Duration(c.SessionLifetimeHours) * time.Hour
}
