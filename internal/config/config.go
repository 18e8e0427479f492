// Package config reads the bot's runtime settings from the environment.
// Core packages never touch the environment themselves; they receive values
// from here.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/SblYMblK/FitRose/internal/app"
)

const (
	DefaultModel = "gpt-4o-mini"

	// Oracle transport defaults. The model call is slow; the timeout has to
	// cover vision requests on large photos.
	OracleTimeout    = 60 * time.Second
	OracleMaxRetries = 2
)

type Settings struct {
	TelegramToken string
	OpenAIKey     string
	OpenAIModel   string
	OpenAIBaseURL string
	DBPath        string
	Env           string
}

// Production reports whether the settings ask for production logging.
func (s Settings) Production() bool {
	return s.Env == "prod"
}

// Load reads Settings from the environment. A .env file in the working
// directory is merged in first when present; a missing file is not an error.
func Load() (Settings, error) {
	_ = godotenv.Load()

	s := Settings{
		TelegramToken: strings.TrimSpace(os.Getenv("TELEGRAM_TOKEN")),
		OpenAIKey:     strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
		OpenAIModel:   strings.TrimSpace(os.Getenv("OPENAI_MODEL")),
		OpenAIBaseURL: strings.TrimSpace(os.Getenv("OPENAI_BASE_URL")),
		DBPath:        strings.TrimSpace(os.Getenv("FITROSE_DB")),
		Env:           strings.TrimSpace(os.Getenv("FITROSE_ENV")),
	}
	if s.TelegramToken == "" {
		return Settings{}, fmt.Errorf("TELEGRAM_TOKEN environment variable is required")
	}
	if s.OpenAIKey == "" {
		return Settings{}, fmt.Errorf("OPENAI_API_KEY environment variable is required")
	}
	if s.OpenAIModel == "" {
		s.OpenAIModel = DefaultModel
	}
	if s.Env == "" {
		s.Env = "dev"
	}
	if s.Env != "dev" && s.Env != "prod" {
		return Settings{}, fmt.Errorf("FITROSE_ENV must be dev or prod, got %q", s.Env)
	}
	if s.DBPath == "" {
		path, err := app.DefaultDBPath()
		if err != nil {
			return Settings{}, err
		}
		s.DBPath = path
	}
	return s, nil
}
