package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaultsWhenNoFile(t *testing.T) {
	t.Setenv("CALBOT_CONFIG", filepath.Join(t.TempDir(), "config.json"))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Calendar.DefaultCalendarID != "primary" {
		t.Fatalf("expected primary default calendar, got %q", cfg.Calendar.DefaultCalendarID)
	}
	if cfg.Calendar.TaskListID != "@default" {
		t.Fatalf("expected @default task list, got %q", cfg.Calendar.TaskListID)
	}
	if cfg.Assistant.TranscriptWindow != 40 {
		t.Fatalf("expected transcript window 40, got %d", cfg.Assistant.TranscriptWindow)
	}
	if len(cfg.Assistant.ConferenceKeywords) == 0 {
		t.Fatal("default conference keywords missing")
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	data := `{"model":{"name":"openai/gpt-4o"},"calendar":{"timeZone":"Europe/Berlin"}}`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CALBOT_CONFIG", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Model.Name != "openai/gpt-4o" {
		t.Fatalf("file value not applied: %q", cfg.Model.Name)
	}
	if cfg.Calendar.TimeZone != "Europe/Berlin" {
		t.Fatalf("file value not applied: %q", cfg.Calendar.TimeZone)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	data := `{"calendar":{"timeZone":"Europe/Berlin"}}`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CALBOT_CONFIG", path)
	t.Setenv("CALBOT_CALENDAR_TIMEZONE", "America/New_York")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Calendar.TimeZone != "America/New_York" {
		t.Fatalf("environment must win over the file: %q", cfg.Calendar.TimeZone)
	}
}

func TestLoadRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CALBOT_CONFIG", path)

	if _, err := Load(); err == nil {
		t.Fatal("corrupt config must surface an error")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	t.Setenv("CALBOT_CONFIG", path)

	cfg := DefaultConfig()
	cfg.Model.Name = "gemini/gemini-2.0-flash"
	if err := Save(cfg); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Model.Name != cfg.Model.Name {
		t.Fatalf("round trip lost the model name: %q", loaded.Model.Name)
	}
}

func TestTokenPathRelativeResolvesAgainstConfigDir(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CALBOT_CONFIG", filepath.Join(dir, "config.json"))

	cfg := DefaultConfig()
	path, err := cfg.TokenPath()
	if err != nil {
		t.Fatalf("token path: %v", err)
	}
	if path != filepath.Join(dir, "token.json") {
		t.Fatalf("unexpected token path %q", path)
	}
}

func TestTokenPathAbsolutePassesThrough(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Calendar.TokenFile = "/var/lib/calbot/token.json"
	path, err := cfg.TokenPath()
	if err != nil {
		t.Fatalf("token path: %v", err)
	}
	if path != "/var/lib/calbot/token.json" {
		t.Fatalf("unexpected token path %q", path)
	}
}
