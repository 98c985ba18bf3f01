package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/danmermels/momentum-spark-app/internal/model"
)

// SettingsKey is the entry in the settings file that holds the preferences.
const SettingsKey = "momentumSparkSettings"

// SettingsStore keeps the user's preferences in a local JSON file. Other
// entries in the file are preserved.
type SettingsStore struct {
	path string
	mu   sync.Mutex
}

func NewSettingsStore(path string) *SettingsStore {
	return &SettingsStore{path: path}
}

// DefaultSettingsPath is $HOME/.momentumspark/settings.json.
func DefaultSettingsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".momentumspark", "settings.json")
}

// Load returns the stored settings over the defaults. A missing file or key
// yields the defaults.
func (s *SettingsStore) Load() (model.AppSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, err := s.read()
	if err != nil {
		return model.DefaultAppSettings(), err
	}
	return decodeSettings(entries)
}

// Update merges patch into the stored settings and writes them back.
func (s *SettingsStore) Update(patch model.AppSettingsPatch) (model.AppSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.read()
	if err != nil {
		return model.AppSettings{}, err
	}
	current, err := decodeSettings(entries)
	if err != nil {
		return model.AppSettings{}, err
	}
	merged := current.Merge(patch)

	raw, err := json.Marshal(merged)
	if err != nil {
		return model.AppSettings{}, fmt.Errorf("encode settings: %w", err)
	}
	entries[SettingsKey] = raw
	if err := s.write(entries); err != nil {
		return model.AppSettings{}, err
	}
	return merged, nil
}

func decodeSettings(entries map[string]json.RawMessage) (model.AppSettings, error) {
	settings := model.DefaultAppSettings()
	raw, ok := entries[SettingsKey]
	if !ok || string(raw) == "null" {
		return settings, nil
	}
	if err := json.Unmarshal(raw, &settings); err != nil {
		return model.DefaultAppSettings(), fmt.Errorf("decode settings: %w", err)
	}
	return settings, nil
}

func (s *SettingsStore) read() (map[string]json.RawMessage, error) {
	entries := make(map[string]json.RawMessage)
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return entries, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}
	if len(data) == 0 {
		return entries, nil
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse settings file: %w", err)
	}
	return entries, nil
}

func (s *SettingsStore) write(entries map[string]json.RawMessage) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode settings file: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace settings: %w", err)
	}
	return nil
}
