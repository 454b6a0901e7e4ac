package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prodbot.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_FromFile(t *testing.T) {
	path := writeConfig(t, `
telegram:
  bot_token: tg-token
openai:
  api_key: oa-key
  model: o4-mini
data_dir: /var/lib/prodbot
`)
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("PRODBOT_DATA_DIR", "")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telegram.BotToken != "tg-token" {
		t.Errorf("BotToken = %q", cfg.Telegram.BotToken)
	}
	if cfg.OpenAI.Model != "o4-mini" {
		t.Errorf("Model = %q", cfg.OpenAI.Model)
	}
	if cfg.DataDir != "/var/lib/prodbot" {
		t.Errorf("DataDir = %q", cfg.DataDir)
	}
	if cfg.Timezone != "Europe/Moscow" {
		t.Errorf("Timezone default = %q", cfg.Timezone)
	}
	if cfg.OpenAI.VoiceLanguage != "ru" {
		t.Errorf("VoiceLanguage default = %q", cfg.OpenAI.VoiceLanguage)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
telegram:
  bot_token: from-file
openai:
  api_key: from-file
`)
	t.Setenv("TELEGRAM_BOT_TOKEN", "from-env")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("PRODBOT_DATA_DIR", "/tmp/override")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telegram.BotToken != "from-env" {
		t.Errorf("BotToken = %q, want env value", cfg.Telegram.BotToken)
	}
	if cfg.DataDir != "/tmp/override" {
		t.Errorf("DataDir = %q, want env value", cfg.DataDir)
	}
	if cfg.OpenAI.APIKey != "from-file" {
		t.Errorf("APIKey = %q, want file value", cfg.OpenAI.APIKey)
	}
}

func TestLoad_EnvOnly(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "tg")
	t.Setenv("OPENAI_API_KEY", "oa")
	t.Setenv("PRODBOT_DATA_DIR", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load without file: %v", err)
	}
	if cfg.DataDir != "data" {
		t.Errorf("DataDir default = %q", cfg.DataDir)
	}
}

func TestLoad_MissingToken(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	t.Setenv("OPENAI_API_KEY", "oa")

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("Load succeeded without a bot token")
	}
}

func TestLocation_FallsBackToFixedOffset(t *testing.T) {
	cfg := &Config{Timezone: "Nowhere/Invalid"}
	loc := cfg.Location()
	if loc == nil {
		t.Fatal("Location returned nil")
	}
	_, offset := time.Now().In(loc).Zone()
	if offset != 3*60*60 {
		t.Errorf("fallback offset = %d, want +3h", offset)
	}
}
