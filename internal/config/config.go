package config

import (
	"fmt"
	"time"
)

type Config interface {
	EnvConfig
	SessionConfig
	ProviderConfig
}

type EnvConfig interface {
	GetAppName() string
	GetEnv() string
	GetDataFolder() string
	GetLogLevel() string
	GetAPIBaseURL() string
}

type mainConfig struct {
	EnvVars
	Session
	Provider
}

var _ Config = (*mainConfig)(nil)

// New returns the configuration built from defaults and environment variables only.
func New() (Config, error) {
	return Load("")
}

// Load reads configuration in three layers: built-in defaults, the optional
// TOML file at path, then environment variables. Later layers win.
func Load(path string) (Config, error) {
	c := &mainConfig{
		EnvVars:  defaultEnvVars(),
		Session:  defaultSession(),
		Provider: defaultProvider(),
	}
	if path != "" {
		if err := c.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := c.loadEnv(); err != nil {
		return nil, err
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *mainConfig) validate() error {
	if c.StartupTimeout <= 0 {
		return fmt.Errorf("[config] startup timeout must be positive, got %s", c.StartupTimeout)
	}
	if c.ExchangeTimeout <= 0 {
		return fmt.Errorf("[config] exchange timeout must be positive, got %s", c.ExchangeTimeout)
	}
	if c.APIBaseURL == "" {
		return fmt.Errorf("[config] api base url is required")
	}
	return nil
}

func parseDuration(name, value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", name, err)
	}
	return d, nil
}
