// Package config loads the daemon configuration from an optional YAML file
// with environment variables taking precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is where Load looks when no path is given.
const DefaultPath = "prodbot.yaml"

// Config is the full daemon configuration.
type Config struct {
	Telegram struct {
		BotToken string `yaml:"bot_token"`
	} `yaml:"telegram"`

	OpenAI struct {
		APIKey        string `yaml:"api_key"`
		Model         string `yaml:"model"`
		VisionModel   string `yaml:"vision_model"`
		VoiceLanguage string `yaml:"voice_language"`
	} `yaml:"openai"`

	DataDir  string `yaml:"data_dir"`
	Timezone string `yaml:"timezone"`
}

// Load reads path (if it exists), applies environment overrides and
// defaults, and validates the result. A missing file is fine as long as the
// required values arrive through the environment.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}

	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
		// env-only configuration
	default:
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.OpenAI.APIKey = v
	}
	if v := os.Getenv("PRODBOT_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}

	if cfg.DataDir == "" {
		cfg.DataDir = "data"
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "Europe/Moscow"
	}
	if cfg.OpenAI.VoiceLanguage == "" {
		cfg.OpenAI.VoiceLanguage = "ru"
	}

	if cfg.Telegram.BotToken == "" {
		return nil, errors.New("telegram bot token is not set (telegram.bot_token or TELEGRAM_BOT_TOKEN)")
	}
	if cfg.OpenAI.APIKey == "" {
		return nil, errors.New("OpenAI API key is not set (openai.api_key or OPENAI_API_KEY)")
	}
	return &cfg, nil
}

// Location resolves the configured timezone, falling back to a fixed MSK
// offset when the zone database is unavailable.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.FixedZone("MSK", 3*60*60)
	}
	return loc
}
