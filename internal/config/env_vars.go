package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

type EnvVars struct {
	AppName    string `env:"APP_NAME"`
	Env        string `env:"ENV"`
	DataFolder string `env:"DATA_FOLDER"`
	LogLevel   string `env:"LOG_LEVEL"`
	APIBaseURL string `env:"API_BASE_URL"`
}

var _ EnvConfig = EnvVars{}

func defaultEnvVars() EnvVars {
	return EnvVars{
		AppName:    "Co-Teacher",
		Env:        "DEV",
		DataFolder: "./data",
		LogLevel:   "info",
		APIBaseURL: "http://localhost:5000/api",
	}
}

func (e EnvVars) GetAppName() string {
	return e.AppName
}

func (e EnvVars) GetEnv() string {
	if e.Env == "" {
		return "DEV"
	}
	return e.Env
}

func (e EnvVars) GetDataFolder() string {
	return e.DataFolder
}

func (e EnvVars) GetLogLevel() string {
	return e.LogLevel
}

// GetAPIBaseURL returns the backend base URL (e.g., "https://api.example.com/api").
// The token exchange path is appended to it.
func (e EnvVars) GetAPIBaseURL() string {
	return e.APIBaseURL
}

func (c *mainConfig) loadEnv() error {
	if err := env.Parse(&c.EnvVars); err != nil {
		return fmt.Errorf("[config] parse env: %w", err)
	}
	if err := env.Parse(&c.Session); err != nil {
		return fmt.Errorf("[config] parse session env: %w", err)
	}
	if err := env.Parse(&c.Provider); err != nil {
		return fmt.Errorf("[config] parse provider env: %w", err)
	}
	return nil
}
