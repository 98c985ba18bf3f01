package client

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/danmermels/momentum-spark-app/internal/model"
)

func TestSettingsDefaultsWhenMissing(t *testing.T) {
	store := NewSettingsStore(filepath.Join(t.TempDir(), "nested", "settings.json"))
	got, err := store.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got != model.DefaultAppSettings() {
		t.Fatalf("expected defaults, got %#v", got)
	}
}

func TestSettingsPartialMergeAndForeignKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	initial := `{"theme":"dark","momentumSparkSettings":{"userName":"Ada"}}`
	if err := os.WriteFile(path, []byte(initial), 0o600); err != nil {
		t.Fatalf("seed file: %v", err)
	}
	store := NewSettingsStore(path)

	got, err := store.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.UserName != "Ada" || got.SoundVolume != 75 || !got.EnableNotifications {
		t.Fatalf("partial settings not merged over defaults: %#v", got)
	}

	volume := 30
	off := false
	updated, err := store.Update(model.AppSettingsPatch{SoundVolume: &volume, EnableNotifications: &off})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.UserName != "Ada" || updated.SoundVolume != 30 || updated.EnableNotifications {
		t.Fatalf("unexpected merged settings %#v", updated)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	var entries map[string]json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		t.Fatalf("decode file: %v", err)
	}
	if string(entries["theme"]) != `"dark"` {
		t.Fatalf("foreign key lost: %s", data)
	}

	reloaded, err := NewSettingsStore(path).Load()
	if err != nil || reloaded != updated {
		t.Fatalf("reload = %#v, %v", reloaded, err)
	}
}

func TestSettingsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("seed file: %v", err)
	}
	store := NewSettingsStore(path)
	got, err := store.Load()
	if err == nil {
		t.Fatalf("expected parse error")
	}
	if got != model.DefaultAppSettings() {
		t.Fatalf("corrupt file should still yield defaults, got %#v", got)
	}
	name := "x"
	if _, err := store.Update(model.AppSettingsPatch{UserName: &name}); err == nil {
		t.Fatalf("update must not overwrite an unreadable file")
	}
}
