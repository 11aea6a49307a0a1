package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"family-tasks/internal/schedule"
)

// EnvPrefix is stripped from environment variables before they are mapped
// onto config keys: FAMILY_TELEGRAM_TOKEN -> telegram.token.
const EnvPrefix = "FAMILY_"

// Config keeps runtime settings for the API server and the bot.
type Config struct {
	Telegram  TelegramConfig  `koanf:"telegram"`
	Database  DatabaseConfig  `koanf:"database"`
	HTTP      HTTPConfig      `koanf:"http"`
	Log       LogConfig       `koanf:"log"`
	Reminders RemindersConfig `koanf:"reminders"`
	Timezone  string          `koanf:"timezone"`
}

type TelegramConfig struct {
	// Token is optional; the bot stays off without it.
	Token string `koanf:"token"`
}

type DatabaseConfig struct {
	DSN string `koanf:"dsn"`
}

type HTTPConfig struct {
	Addr string `koanf:"addr"`
}

type LogConfig struct {
	Level string `koanf:"level"`
	File  string `koanf:"file"`
}

type RemindersConfig struct {
	Morning       string `koanf:"morning"`
	Evening       string `koanf:"evening"`
	IntervalHours int    `koanf:"interval_hours"`
}

// ReportInterval is the periodic report interval, zero when disabled.
func (r RemindersConfig) ReportInterval() time.Duration {
	if r.IntervalHours <= 0 {
		return 0
	}
	return time.Duration(r.IntervalHours) * time.Hour
}

// Load reads configuration with precedence defaults < YAML file < env vars.
// An empty path skips the file.
func Load(path string) (Config, error) {
	k := koanf.New(".")

	if path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return Config{}, fmt.Errorf("load env: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// envKey maps FAMILY_SECTION_FIELD_NAME to section.field_name.
func envKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	parts := strings.SplitN(lower, "_", 2)
	if len(parts) == 1 {
		return lower
	}
	return parts[0] + "." + parts[1]
}

func applyDefaults(cfg *Config) {
	cfg.Telegram.Token = strings.TrimSpace(cfg.Telegram.Token)
	if cfg.Database.DSN == "" {
		cfg.Database.DSN = "family_tasks.db"
	}
	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = ":8080"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Reminders.Morning == "" {
		cfg.Reminders.Morning = "09:00"
	}
	if cfg.Reminders.Evening == "" {
		cfg.Reminders.Evening = "20:00"
	}
}

// Validate checks values that would otherwise fail later at startup.
func (c Config) Validate() error {
	if _, err := schedule.ParseTimeOfDay(c.Reminders.Morning); err != nil {
		return fmt.Errorf("reminders.morning: %w", err)
	}
	if _, err := schedule.ParseTimeOfDay(c.Reminders.Evening); err != nil {
		return fmt.Errorf("reminders.evening: %w", err)
	}
	if c.Reminders.IntervalHours < 0 {
		return fmt.Errorf("reminders.interval_hours must not be negative")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves Timezone, falling back to the process local zone.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// BotEnabled reports whether a Telegram token is configured.
func (c Config) BotEnabled() bool {
	return c.Telegram.Token != ""
}
