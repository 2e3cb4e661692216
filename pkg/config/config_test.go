package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		t.Setenv("FEEDBIN_PASSWORD", "secret-pass")
		configContent := `
server:
  listen: ":9090"
  timeout: 45s

schedule:
  refresh_interval: 15m
  cron: "*/10 * * * *"
  max_workers: 3

http:
  user_agent: test-agent

accounts:
  - id: fb
    type: feedbin
    username: user@example.com
    password: ${FEEDBIN_PASSWORD}
  - type: local
    name: On my server
    feeds:
      - url: https://example.com/feed.xml
        folder: Tech
      - url: https://www.reddit.com/r/golang
`
		configPath := filepath.Join(t.TempDir(), "test-config.yml")
		require.NoError(t, os.WriteFile(configPath, []byte(configContent), 0o600))

		cfg, err := Load(configPath)
		require.NoError(t, err)
		require.NotNil(t, cfg)

		assert.Equal(t, ":9090", cfg.Server.Listen)
		assert.Equal(t, 45*time.Second, cfg.Server.Timeout)
		assert.Equal(t, 15*time.Minute, cfg.Schedule.RefreshInterval)
		assert.Equal(t, "*/10 * * * *", cfg.Schedule.Cron)
		assert.Equal(t, 3, cfg.Schedule.MaxWorkers)
		assert.Equal(t, "test-agent", cfg.HTTP.UserAgent)

		require.Len(t, cfg.Accounts, 2)
		assert.Equal(t, "fb", cfg.Accounts[0].ID)
		assert.Equal(t, "secret-pass", cfg.Accounts[0].Password, "env expanded")
		assert.Equal(t, "feedbin", cfg.Accounts[0].Name)

		local := cfg.Accounts[1]
		assert.Len(t, local.ID, 36, "generated uuid")
		assert.Equal(t, "On my server", local.Name)
		require.Len(t, local.Feeds, 2)
		assert.Equal(t, "Tech", local.Feeds[0].Folder)

		assert.Equal(t, []string{"secret-pass"}, cfg.Secrets())
		acc, ok := cfg.Account("fb")
		require.True(t, ok)
		assert.Equal(t, "user@example.com", acc.Username)
		_, ok = cfg.Account("nope")
		assert.False(t, ok)
	})

	t.Run("defaults", func(t *testing.T) {
		cfg, err := Parse([]byte("accounts:\n  - type: local\n"))
		require.NoError(t, err)

		assert.Equal(t, ":8080", cfg.Server.Listen)
		assert.Equal(t, 30*time.Second, cfg.Server.Timeout)
		assert.Equal(t, "file:feedsync.db?cache=shared&mode=rwc&_txlock=immediate", cfg.Database.DSN)
		assert.Equal(t, 10, cfg.Database.MaxOpenConns)
		assert.Equal(t, 5, cfg.Database.MaxIdleConns)
		assert.Equal(t, 3600, cfg.Database.ConnMaxLifetime)
		assert.Equal(t, 30*time.Minute, cfg.Schedule.RefreshInterval)
		assert.Empty(t, cfg.Schedule.Cron)
		assert.Equal(t, 8, cfg.Schedule.MaxWorkers)
		assert.Equal(t, "var/cache", cfg.Cache.Dir)
		assert.Equal(t, 60*time.Second, cfg.HTTP.Timeout)
		assert.Equal(t, "feedsync", cfg.HTTP.UserAgent)
		assert.Empty(t, cfg.Secrets())
	})

	t.Run("generated id is stable", func(t *testing.T) {
		data := []byte("accounts:\n  - type: newsblur\n    username: u\n    password: p\n")
		cfg1, err := Parse(data)
		require.NoError(t, err)
		cfg2, err := Parse(data)
		require.NoError(t, err)
		assert.Equal(t, cfg1.Accounts[0].ID, cfg2.Accounts[0].ID)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load("/nonexistent/config.yml")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "read config file")
	})

	t.Run("invalid yaml", func(t *testing.T) {
		_, err := Parse([]byte("accounts: [unclosed"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parse config")
	})
}

func TestValidate(t *testing.T) {
	tbl := []struct {
		name   string
		config string
		errMsg string
	}{
		{"no accounts", "server:\n  listen: :8080\n", "at least one account is required"},
		{"unknown type", "accounts:\n  - type: inoreader\n", `unknown account type "inoreader"`},
		{"feedbin without password", "accounts:\n  - type: feedbin\n    username: u\n", "needs username and password"},
		{"newsblur without username", "accounts:\n  - type: newsblur\n    password: p\n", "needs username and password"},
		{"feedly without token", "accounts:\n  - type: feedly\n", "feedly account needs token"},
		{"feedly feed without folder", "accounts:\n  - type: feedly\n    token: t\n    feeds:\n      - url: https://x.com/rss\n",
			"feedly feeds need a folder"},
		{"feed without url", "accounts:\n  - type: local\n    feeds:\n      - name: x\n", "url is required"},
		{"duplicate ids", "accounts:\n  - type: local\n    id: a\n  - type: local\n    id: a\n", "duplicate id a"},
		{"short timeout", "server:\n  timeout: 10ms\naccounts:\n  - type: local\n", "server timeout must be at least 1 second"},
		{"short interval", "schedule:\n  refresh_interval: 5s\naccounts:\n  - type: local\n", "refresh_interval must be at least 1 minute"},
		{"bad workers", "schedule:\n  max_workers: -1\naccounts:\n  - type: local\n", "max_workers must be at least 1"},
	}
	for _, tt := range tbl {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.config))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}
