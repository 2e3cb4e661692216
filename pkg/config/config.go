// Package config loads the yaml configuration of the service and its accounts
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/umputun/feedsync/pkg/domain"
)

//go:generate go run ../../cmd/schema/main.go schema.json

// Config holds the application configuration
type Config struct {
	Server struct {
		Listen  string        `yaml:"listen" json:"listen" jsonschema:"default=:8080,description=HTTP server listen address"`
		Timeout time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=30s,description=HTTP server timeout"`
	} `yaml:"server" json:"server" jsonschema:"description=Server configuration"`

	Database struct {
		DSN             string `yaml:"dsn" json:"dsn" jsonschema:"default=file:feedsync.db?cache=shared&mode=rwc,description=Database connection string"`
		MaxOpenConns    int    `yaml:"max_open_conns" json:"max_open_conns" jsonschema:"default=10,description=Maximum number of open connections"`
		MaxIdleConns    int    `yaml:"max_idle_conns" json:"max_idle_conns" jsonschema:"default=5,description=Maximum number of idle connections"`
		ConnMaxLifetime int    `yaml:"conn_max_lifetime" json:"conn_max_lifetime" jsonschema:"default=3600,description=Connection maximum lifetime in seconds"`
	} `yaml:"database" json:"database" jsonschema:"description=Database configuration"`

	Schedule struct {
		RefreshInterval time.Duration `yaml:"refresh_interval" json:"refresh_interval" jsonschema:"default=30m,description=Interval between account refreshes"`
		Cron            string        `yaml:"cron" json:"cron,omitempty" jsonschema:"description=Cron spec of refreshes, replaces refresh_interval"`
		MaxWorkers      int           `yaml:"max_workers" json:"max_workers" jsonschema:"default=8,minimum=1,description=Concurrent feed downloads of local accounts"`
	} `yaml:"schedule" json:"schedule" jsonschema:"description=Refresh schedule"`

	Cache struct {
		Dir string `yaml:"dir" json:"dir" jsonschema:"default=var/cache,description=Folder of the disk cache"`
	} `yaml:"cache" json:"cache" jsonschema:"description=Disk cache configuration"`

	HTTP struct {
		Timeout   time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=60s,description=Timeout of outgoing requests"`
		UserAgent string        `yaml:"user_agent" json:"user_agent" jsonschema:"default=feedsync,description=User agent of outgoing requests"`
	} `yaml:"http" json:"http" jsonschema:"description=Outgoing HTTP configuration"`

	Accounts []Account `yaml:"accounts" json:"accounts" jsonschema:"minItems=1,description=Synced accounts"`
}

// Account is one account and its credentials
type Account struct {
	ID       string `yaml:"id" json:"id,omitempty" jsonschema:"description=Stable account id, derived from type and user if empty"`
	Type     string `yaml:"type" json:"type" jsonschema:"enum=local,enum=feedbin,enum=newsblur,enum=feedly,description=Account type"`
	Name     string `yaml:"name" json:"name,omitempty" jsonschema:"description=Display name"`
	Username string `yaml:"username" json:"username,omitempty" jsonschema:"description=Login of feedbin and newsblur accounts"`
	Password string `yaml:"password" json:"password,omitempty" jsonschema:"description=Password of feedbin and newsblur accounts"`
	Token    string `yaml:"token" json:"token,omitempty" jsonschema:"description=Access token of feedly accounts"`
	UserID   string `yaml:"user_id" json:"user_id,omitempty" jsonschema:"description=Feedly user id, read from the profile if empty"`
	BaseURL  string `yaml:"base_url" json:"base_url,omitempty" jsonschema:"description=API base url override"`
	Feeds    []Feed `yaml:"feeds" json:"feeds,omitempty" jsonschema:"description=Feeds subscribed at startup if missing"`
}

// Feed is a subscription ensured at startup
type Feed struct {
	URL    string `yaml:"url" json:"url" jsonschema:"description=Feed url"`
	Name   string `yaml:"name" json:"name,omitempty" jsonschema:"description=Custom feed name"`
	Folder string `yaml:"folder" json:"folder,omitempty" jsonschema:"description=Folder of the feed, account root if empty"`
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // file path comes from CLI flag
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes configuration, applies defaults and validates it
func Parse(data []byte) (*Config, error) {
	// expand environment variables
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	if err := VerifyAgainstEmbeddedSchema(&cfg); err != nil {
		return nil, fmt.Errorf("verify config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(cfg *Config) {
	if cfg.Server.Listen == "" {
		cfg.Server.Listen = ":8080"
	}
	if cfg.Server.Timeout == 0 {
		cfg.Server.Timeout = 30 * time.Second
	}

	if cfg.Database.DSN == "" {
		cfg.Database.DSN = "file:feedsync.db?cache=shared&mode=rwc&_txlock=immediate"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 3600
	}

	if cfg.Schedule.RefreshInterval == 0 {
		cfg.Schedule.RefreshInterval = 30 * time.Minute
	}
	if cfg.Schedule.MaxWorkers == 0 {
		cfg.Schedule.MaxWorkers = 8
	}

	if cfg.Cache.Dir == "" {
		cfg.Cache.Dir = "var/cache"
	}
	if cfg.HTTP.Timeout == 0 {
		cfg.HTTP.Timeout = 60 * time.Second
	}
	if cfg.HTTP.UserAgent == "" {
		cfg.HTTP.UserAgent = "feedsync"
	}

	for i := range cfg.Accounts {
		acc := &cfg.Accounts[i]
		acc.Type = strings.ToLower(strings.TrimSpace(acc.Type))
		if acc.ID == "" {
			// stable across restarts
			acc.ID = uuid.NewSHA1(uuid.NameSpaceURL, []byte(acc.Type+":"+acc.Username+acc.UserID+acc.Name)).String()
			log.Printf("[DEBUG] account %s %q has no id, using %s", acc.Type, acc.Name, acc.ID)
		}
		if acc.Name == "" {
			acc.Name = acc.Type
		}
	}
}

// validate checks configuration for correctness
func validate(cfg *Config) error {
	if cfg.Server.Timeout < time.Second {
		return fmt.Errorf("server timeout must be at least 1 second")
	}
	if cfg.Schedule.RefreshInterval < time.Minute {
		return fmt.Errorf("schedule.refresh_interval must be at least 1 minute")
	}
	if cfg.Schedule.MaxWorkers < 1 {
		return fmt.Errorf("schedule.max_workers must be at least 1")
	}
	if len(cfg.Accounts) == 0 {
		return fmt.Errorf("at least one account is required")
	}

	ids := make(map[string]bool, len(cfg.Accounts))
	for i, acc := range cfg.Accounts {
		if ids[acc.ID] {
			return fmt.Errorf("accounts[%d]: duplicate id %s", i, acc.ID)
		}
		ids[acc.ID] = true

		switch domain.AccountType(acc.Type) {
		case domain.AccountLocal:
		case domain.AccountFeedbin, domain.AccountNewsBlur:
			if acc.Username == "" || acc.Password == "" {
				return fmt.Errorf("accounts[%d]: %s account needs username and password", i, acc.Type)
			}
		case domain.AccountFeedly:
			if acc.Token == "" {
				return fmt.Errorf("accounts[%d]: feedly account needs token", i)
			}
		default:
			return fmt.Errorf("accounts[%d]: unknown account type %q", i, acc.Type)
		}

		for j, f := range acc.Feeds {
			if strings.TrimSpace(f.URL) == "" {
				return fmt.Errorf("accounts[%d].feeds[%d]: url is required", i, j)
			}
			if acc.Type == string(domain.AccountFeedly) && f.Folder == "" {
				return fmt.Errorf("accounts[%d].feeds[%d]: feedly feeds need a folder", i, j)
			}
		}
	}
	return nil
}

// Secrets returns passwords and tokens of all accounts, to be hidden in logs
func (c *Config) Secrets() []string {
	var res []string
	for _, acc := range c.Accounts {
		for _, s := range []string{acc.Password, acc.Token} {
			if s != "" {
				res = append(res, s)
			}
		}
	}
	return res
}

// Account returns the account with the id
func (c *Config) Account(id string) (Account, bool) {
	for _, acc := range c.Accounts {
		if acc.ID == id {
			return acc, true
		}
	}
	return Account{}, false
}
