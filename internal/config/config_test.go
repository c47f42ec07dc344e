package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_WritesDefaults(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	t.Setenv("LECTOR_SPEECH_COMMAND", "")
	path := filepath.Join(t.TempDir(), "config.json")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("expected default log_level info, got %s", cfg.LogLevel)
	}
	if cfg.Speech.Command != "espeak" {
		t.Errorf("expected default speech command espeak, got %s", cfg.Speech.Command)
	}
	if cfg.HTTP.Listen != "127.0.0.1:8714" {
		t.Errorf("expected default listen address, got %s", cfg.HTTP.Listen)
	}
	if !cfg.Alarms.AllowExact {
		t.Error("expected exact alarms allowed by default")
	}

	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected defaults written to disk: %v", err)
	}
}

func TestLoad_ReadsExistingFile(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	t.Setenv("LECTOR_SPEECH_COMMAND", "")
	path := filepath.Join(t.TempDir(), "config.json")

	content := `{"log_level": "debug", "speech": {"command": "say"}}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("expected log_level debug, got %s", cfg.LogLevel)
	}
	if cfg.Speech.Command != "say" {
		t.Errorf("expected speech command say, got %s", cfg.Speech.Command)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "env-token")
	t.Setenv("LECTOR_SPEECH_COMMAND", "piper --model en")
	path := filepath.Join(t.TempDir(), "config.json")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Telegram.Token != "env-token" {
		t.Errorf("expected token from env, got %s", cfg.Telegram.Token)
	}
	if cfg.Speech.Command != "piper --model en" {
		t.Errorf("expected speech command from env, got %s", cfg.Speech.Command)
	}
}

func TestSetValue_RoundTrip(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	t.Setenv("LECTOR_SPEECH_COMMAND", "")
	path := filepath.Join(t.TempDir(), "config.json")
	if _, err := Load(path); err != nil {
		t.Fatal(err)
	}

	if err := SetValue(path, "log_level", "debug"); err != nil {
		t.Fatal(err)
	}
	val, err := GetValue(path, "log_level")
	if err != nil {
		t.Fatal(err)
	}
	if val != "debug" {
		t.Errorf("expected debug, got %v", val)
	}

	// Booleans are coerced, not stored as strings.
	if err := SetValue(path, "http.enabled", "true"); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.HTTP.Enabled {
		t.Error("expected http.enabled to be true")
	}
}

func TestSetValue_UnknownKey(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	t.Setenv("LECTOR_SPEECH_COMMAND", "")
	path := filepath.Join(t.TempDir(), "config.json")
	if _, err := Load(path); err != nil {
		t.Fatal(err)
	}

	if err := SetValue(path, "no.such.key", "x"); err == nil {
		t.Fatal("expected error for unknown key")
	}
	if _, err := GetValue(path, "no.such.key"); err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestListValues_MasksSecrets(t *testing.T) {
	cfg := &Config{}
	cfg.Telegram.Token = "123456:ABCdefGHIjkl"

	values, err := ListValues(cfg, true)
	if err != nil {
		t.Fatal(err)
	}
	if values["telegram.token"] != "***Ijkl" {
		t.Errorf("expected masked token, got %v", values["telegram.token"])
	}

	unmasked, err := ListValues(cfg, false)
	if err != nil {
		t.Fatal(err)
	}
	if unmasked["telegram.token"] != "123456:ABCdefGHIjkl" {
		t.Errorf("expected raw token, got %v", unmasked["telegram.token"])
	}
}
