package config

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

type fileConfig struct {
	AppName         string   `toml:"app_name"`
	Env             string   `toml:"env"`
	DataFolder      string   `toml:"data_folder"`
	LogLevel        string   `toml:"log_level"`
	APIBaseURL      string   `toml:"api_base_url"`
	StartupTimeout  string   `toml:"startup_timeout"`
	ExchangeTimeout string   `toml:"exchange_timeout"`
	ExchangePath    string   `toml:"exchange_path"`
	CredentialStore string   `toml:"credential_store"`
	Issuer          string   `toml:"oidc_issuer"`
	ClientID        string   `toml:"oidc_client_id"`
	ClientSecret    string   `toml:"oidc_client_secret"`
	Scopes          []string `toml:"oidc_scopes"`
}

func (c *mainConfig) loadFile(path string) error {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return fmt.Errorf("[config] load %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("[config] unknown keys in %s: %v", path, undecoded)
	}

	setString := func(key string, target *string, value string) {
		if meta.IsDefined(key) {
			*target = strings.TrimSpace(value)
		}
	}
	setString("app_name", &c.AppName, raw.AppName)
	setString("env", &c.Env, raw.Env)
	setString("data_folder", &c.DataFolder, raw.DataFolder)
	setString("log_level", &c.LogLevel, raw.LogLevel)
	setString("api_base_url", &c.APIBaseURL, raw.APIBaseURL)
	setString("exchange_path", &c.ExchangePath, raw.ExchangePath)
	setString("credential_store", &c.CredentialStore, raw.CredentialStore)
	setString("oidc_issuer", &c.Issuer, raw.Issuer)
	setString("oidc_client_id", &c.ClientID, raw.ClientID)
	setString("oidc_client_secret", &c.ClientSecret, raw.ClientSecret)

	if meta.IsDefined("oidc_scopes") {
		c.Scopes = raw.Scopes
	}
	if meta.IsDefined("startup_timeout") {
		d, err := parseDuration("startup_timeout", strings.TrimSpace(raw.StartupTimeout))
		if err != nil {
			return err
		}
		c.StartupTimeout = d
	}
	if meta.IsDefined("exchange_timeout") {
		d, err := parseDuration("exchange_timeout", strings.TrimSpace(raw.ExchangeTimeout))
		if err != nil {
			return err
		}
		c.ExchangeTimeout = d
	}
	return nil
}
