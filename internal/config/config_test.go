package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "family_tasks.db", cfg.Database.DSN)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "09:00", cfg.Reminders.Morning)
	assert.Equal(t, "20:00", cfg.Reminders.Evening)
	assert.Zero(t, cfg.Reminders.ReportInterval())
	assert.False(t, cfg.BotEnabled())
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
telegram:
  token: from-file
database:
  dsn: /tmp/family.db
reminders:
  morning: "08:30"
  interval_hours: 5
timezone: UTC
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	t.Setenv("FAMILY_TELEGRAM_TOKEN", "from-env")
	t.Setenv("FAMILY_HTTP_ADDR", ":9090")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Telegram.Token, "env overrides file")
	assert.Equal(t, "/tmp/family.db", cfg.Database.DSN)
	assert.Equal(t, ":9090", cfg.HTTP.Addr)
	assert.Equal(t, "08:30", cfg.Reminders.Morning)
	assert.Equal(t, 5*time.Hour, cfg.Reminders.ReportInterval())
	assert.True(t, cfg.BotEnabled())

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("FAMILY_REMINDERS_EVENING", "25:00")
	_, err := Load("")
	assert.Error(t, err)
}

func TestLoadRejectsUnknownTimezone(t *testing.T) {
	t.Setenv("FAMILY_TIMEZONE", "Mars/Olympus")
	_, err := Load("")
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "telegram.token", envKey("FAMILY_TELEGRAM_TOKEN"))
	assert.Equal(t, "reminders.interval_hours", envKey("FAMILY_REMINDERS_INTERVAL_HOURS"))
	assert.Equal(t, "timezone", envKey("FAMILY_TIMEZONE"))
}
