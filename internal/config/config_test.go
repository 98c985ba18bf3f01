package config

import (
	"path/filepath"
	"testing"
	"time"
)

func envMap(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := load(envMap(nil))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPAddr != ":9002" || cfg.DatabaseURL != "momentumspark.sqlite" {
		t.Fatalf("unexpected defaults: %#v", cfg)
	}
	if cfg.RequestTimeout != 5*time.Second || cfg.ReminderInterval != time.Hour {
		t.Fatalf("unexpected durations: %#v", cfg)
	}
	if cfg.SummaryTime != "20:00" {
		t.Fatalf("unexpected summary time %q", cfg.SummaryTime)
	}
	if cfg.UserName != "User" || cfg.TelegramEnabled() {
		t.Fatalf("unexpected user/telegram defaults: %#v", cfg)
	}
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := load(envMap(map[string]string{
		"HTTP_ADDR":               "127.0.0.1:8080",
		"DATA_DIR":                "/var/lib/momentum",
		"REQUEST_TIMEOUT":         "250ms",
		"REMINDER_INTERVAL_HOURS": "0",
		"TELEGRAM_TOKEN":          " token ",
		"TELEGRAM_CHAT_ID":        "42",
		"RESET_SCHEDULE":          "@midnight",
		"SUMMARY_TIME":            "OFF",
	}))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DatabaseURL != filepath.Join("/var/lib/momentum", "momentumspark.sqlite") {
		t.Fatalf("unexpected database url %q", cfg.DatabaseURL)
	}
	if cfg.RequestTimeout != 250*time.Millisecond || cfg.ReminderInterval != 0 {
		t.Fatalf("unexpected durations: %#v", cfg)
	}
	if cfg.SummaryTime != "" {
		t.Fatalf("summary should be disabled, got %q", cfg.SummaryTime)
	}
	if !cfg.TelegramEnabled() || cfg.TelegramToken != "token" || cfg.TelegramChatID != 42 {
		t.Fatalf("unexpected telegram settings: %#v", cfg)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]map[string]string{
		"timeout":  {"REQUEST_TIMEOUT": "soon"},
		"interval": {"REMINDER_INTERVAL_HOURS": "-1"},
		"chat id":  {"TELEGRAM_CHAT_ID": "abc"},
		"schedule": {"RESET_SCHEDULE": "every day"},
		"summary":  {"SUMMARY_TIME": "8pm"},
	}
	for name, env := range cases {
		if _, err := load(envMap(env)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}
