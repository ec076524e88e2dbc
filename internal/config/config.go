package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const defaultRefillLeadDays = 3

// Config keeps runtime settings for the bot.
type Config struct {
	TelegramToken  string `yaml:"telegram_token"`
	DatabaseURL    string `yaml:"database_url"`
	ReminderTime   string `yaml:"reminder_time"`
	RefillLeadDays int    `yaml:"refill_lead_days"`
	Timezone       string `yaml:"timezone"`
	LogLevel       string `yaml:"log_level"`
	MetricsAddr    string `yaml:"metrics_addr"`
}

// Load reads an optional .env file, an optional YAML file named by
// SELFCARE_CONFIG and then environment variables, which win over the file.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Config{RefillLeadDays: defaultRefillLeadDays}
	if path := strings.TrimSpace(os.Getenv("SELFCARE_CONFIG")); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return cfg, err
		}
	}

	overrideString(&cfg.TelegramToken, "TELEGRAM_TOKEN")
	overrideString(&cfg.DatabaseURL, "DATABASE_URL")
	overrideString(&cfg.ReminderTime, "REMINDER_TIME")
	overrideString(&cfg.Timezone, "TIMEZONE")
	overrideString(&cfg.LogLevel, "LOG_LEVEL")
	overrideString(&cfg.MetricsAddr, "METRICS_ADDR")
	if raw := strings.TrimSpace(os.Getenv("REFILL_LEAD_DAYS")); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil || days < 0 {
			return cfg, fmt.Errorf("REFILL_LEAD_DAYS must be a non-negative number, got %q", raw)
		}
		cfg.RefillLeadDays = days
	}

	applyDefaults(&cfg)

	if cfg.TelegramToken == "" {
		return cfg, fmt.Errorf("TELEGRAM_TOKEN is required")
	}
	if _, err := cfg.Location(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// Location resolves the configured timezone, falling back to the local one.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// loadFile overlays the YAML file on cfg; keys missing from the file keep their value.
func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	if cfg.RefillLeadDays < 0 {
		return fmt.Errorf("refill_lead_days must not be negative")
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = "selfcare.db"
	}
	if cfg.ReminderTime == "" {
		cfg.ReminderTime = "09:00"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
}

func overrideString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}
