package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Config keeps runtime settings for the server.
type Config struct {
	HTTPAddr         string
	DatabaseURL      string
	RequestTimeout   time.Duration
	ResetSchedule    string
	ReminderInterval time.Duration
	SummaryTime      string
	TelegramToken    string
	TelegramChatID   int64
	UserName         string
}

const (
	defaultHTTPAddr      = ":9002"
	defaultDatabaseFile  = "momentumspark.sqlite"
	defaultTimeout       = 5 * time.Second
	defaultResetSchedule = "0 0 0 * * *"
	defaultReminderHours = 1
	defaultUserName      = "User"
	defaultSummaryTime   = "20:00"
)

// Load reads configuration from environment variables with sane defaults.
func Load() (Config, error) {
	return load(os.Getenv)
}

func load(getenv func(string) string) (Config, error) {
	env := func(key string) string { return strings.TrimSpace(getenv(key)) }

	cfg := Config{
		HTTPAddr:       env("HTTP_ADDR"),
		DatabaseURL:    env("DATABASE_URL"),
		ResetSchedule:  env("RESET_SCHEDULE"),
		TelegramToken:  env("TELEGRAM_TOKEN"),
		UserName:       env("USER_NAME"),
		SummaryTime:    env("SUMMARY_TIME"),
		RequestTimeout: defaultTimeout,
	}

	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = defaultHTTPAddr
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = defaultDatabaseFile
		if dir := env("DATA_DIR"); dir != "" {
			cfg.DatabaseURL = filepath.Join(dir, defaultDatabaseFile)
		}
	}
	if cfg.ResetSchedule == "" {
		cfg.ResetSchedule = defaultResetSchedule
	}
	if cfg.UserName == "" {
		cfg.UserName = defaultUserName
	}
	switch strings.ToLower(cfg.SummaryTime) {
	case "":
		cfg.SummaryTime = defaultSummaryTime
	case "off":
		cfg.SummaryTime = ""
	default:
		if _, err := time.Parse("15:04", cfg.SummaryTime); err != nil {
			return cfg, fmt.Errorf("SUMMARY_TIME: expected HH:MM or off, got %q", cfg.SummaryTime)
		}
	}

	if raw := env("REQUEST_TIMEOUT"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			return cfg, fmt.Errorf("REQUEST_TIMEOUT: invalid duration %q", raw)
		}
		cfg.RequestTimeout = d
	}

	hours, err := parseHours(env("REMINDER_INTERVAL_HOURS"))
	if err != nil {
		return cfg, err
	}
	cfg.ReminderInterval = hours

	if raw := env("TELEGRAM_CHAT_ID"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return cfg, fmt.Errorf("TELEGRAM_CHAT_ID: %w", err)
		}
		cfg.TelegramChatID = id
	}

	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(cfg.ResetSchedule); err != nil {
		return cfg, fmt.Errorf("RESET_SCHEDULE: %w", err)
	}

	return cfg, nil
}

// TelegramEnabled reports whether the bot should be started.
func (c Config) TelegramEnabled() bool {
	return c.TelegramToken != ""
}

func parseHours(raw string) (time.Duration, error) {
	if raw == "" {
		return defaultReminderHours * time.Hour, nil
	}
	hours, err := strconv.Atoi(raw)
	if err != nil || hours < 0 {
		return 0, fmt.Errorf("REMINDER_INTERVAL_HOURS: expected a non-negative integer, got %q", raw)
	}
	return time.Duration(hours) * time.Hour, nil
}
