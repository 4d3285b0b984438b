package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"daily-todo/internal/logger"
)

const (
	BackendSheets = "sheets"
	BackendSQLite = "sqlite"
)

// Config keeps runtime settings for every command.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Store    StoreConfig    `mapstructure:"store"`
	Sheets   SheetsConfig   `mapstructure:"sheets"`
	Database DatabaseConfig `mapstructure:"database"`
	Server   ServerConfig   `mapstructure:"server"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Report   ReportConfig   `mapstructure:"report"`
	Logger   logger.Config  `mapstructure:"logger"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

type AppConfig struct {
	Timezone string `mapstructure:"timezone"`
}

type StoreConfig struct {
	Backend string `mapstructure:"backend"`
}

// SheetsConfig points at the Google spreadsheet. Spreadsheet may be the full
// URL or the bare ID; an empty Worksheet means the first one.
type SheetsConfig struct {
	Spreadsheet     string `mapstructure:"spreadsheet"`
	Worksheet       string `mapstructure:"worksheet"`
	CredentialsFile string `mapstructure:"credentials_file"`
	CredentialsJSON string `mapstructure:"credentials_json"`
}

type DatabaseConfig struct {
	URL string `mapstructure:"url"`
}

type ServerConfig struct {
	Addr      string  `mapstructure:"addr"`
	RateLimit float64 `mapstructure:"rate_limit"`
}

type TelegramConfig struct {
	Token  string `mapstructure:"token"`
	ChatID int64  `mapstructure:"chat_id"`
}

type ReportConfig struct {
	Time string `mapstructure:"time"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// Load reads .env (if present) and the environment, applies defaults and
// validates the result.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)
	if err := bindEnvVars(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.trim()

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.timezone", "Local")

	v.SetDefault("store.backend", BackendSQLite)

	v.SetDefault("sheets.spreadsheet", "")
	v.SetDefault("sheets.worksheet", "")
	v.SetDefault("sheets.credentials_file", "")
	v.SetDefault("sheets.credentials_json", "")

	v.SetDefault("database.url", "daily_todo.db")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.rate_limit", 20)

	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.chat_id", 0)

	v.SetDefault("report.time", "08:00")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")

	v.SetDefault("metrics.enabled", true)
}

func bindEnvVars(v *viper.Viper) error {
	bindings := map[string]string{
		"app.timezone":            "TZ_NAME",
		"store.backend":           "STORE_BACKEND",
		"sheets.spreadsheet":      "SHEET_URL",
		"sheets.worksheet":        "SHEET_NAME",
		"sheets.credentials_file": "GOOGLE_APPLICATION_CREDENTIALS",
		"sheets.credentials_json": "GOOGLE_SHEETS_CREDENTIALS",
		"database.url":            "DATABASE_URL",
		"server.addr":             "HTTP_ADDR",
		"server.rate_limit":       "RATE_LIMIT",
		"telegram.token":          "TELEGRAM_TOKEN",
		"telegram.chat_id":        "TELEGRAM_CHAT_ID",
		"report.time":             "REPORT_TIME",
		"logger.level":            "LOG_LEVEL",
		"logger.format":           "LOG_FORMAT",
		"metrics.enabled":         "ENABLE_METRICS",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("bind %s: %w", env, err)
		}
	}
	return nil
}

func (cfg *Config) trim() {
	cfg.Store.Backend = strings.ToLower(strings.TrimSpace(cfg.Store.Backend))
	cfg.Sheets.Spreadsheet = strings.TrimSpace(cfg.Sheets.Spreadsheet)
	cfg.Sheets.Worksheet = strings.TrimSpace(cfg.Sheets.Worksheet)
	cfg.Sheets.CredentialsFile = strings.TrimSpace(cfg.Sheets.CredentialsFile)
	cfg.Database.URL = strings.TrimSpace(cfg.Database.URL)
	cfg.Telegram.Token = strings.TrimSpace(cfg.Telegram.Token)
	cfg.Report.Time = strings.TrimSpace(cfg.Report.Time)
	cfg.App.Timezone = strings.TrimSpace(cfg.App.Timezone)
}

func validateConfig(cfg *Config) error {
	switch cfg.Store.Backend {
	case BackendSQLite:
		if cfg.Database.URL == "" {
			return errors.New("DATABASE_URL is required for the sqlite backend")
		}
	case BackendSheets:
		if cfg.Sheets.Spreadsheet == "" {
			return errors.New("SHEET_URL is required for the sheets backend")
		}
		if cfg.Sheets.CredentialsFile == "" && strings.TrimSpace(cfg.Sheets.CredentialsJSON) == "" {
			return errors.New("GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_SHEETS_CREDENTIALS is required for the sheets backend")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q (want %s or %s)", cfg.Store.Backend, BackendSheets, BackendSQLite)
	}

	if _, err := cfg.Location(); err != nil {
		return err
	}
	if err := validateClock(cfg.Report.Time); err != nil {
		return err
	}
	if cfg.Server.RateLimit < 0 {
		return errors.New("RATE_LIMIT must not be negative")
	}
	return nil
}

// RequireTelegram checks the settings only the bot needs.
func (cfg *Config) RequireTelegram() error {
	if cfg.Telegram.Token == "" {
		return errors.New("TELEGRAM_TOKEN is required")
	}
	return nil
}

// Location resolves the zone whose calendar day counts as today.
func (cfg *Config) Location() (*time.Location, error) {
	name := cfg.App.Timezone
	if name == "" || strings.EqualFold(name, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid TZ_NAME %q: %w", name, err)
	}
	return loc, nil
}

func validateClock(value string) error {
	if _, err := time.Parse("15:04", value); err != nil {
		return fmt.Errorf("invalid REPORT_TIME %q, expected HH:MM", value)
	}
	return nil
}
