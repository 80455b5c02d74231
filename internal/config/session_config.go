package config

import "time"

type SessionConfig interface {
	GetStartupTimeout() time.Duration
	GetExchangeTimeout() time.Duration
	GetExchangePath() string
	GetCredentialStorePath() string
}

type Session struct {
	StartupTimeout  time.Duration `env:"AUTH_STARTUP_TIMEOUT"`
	ExchangeTimeout time.Duration `env:"AUTH_EXCHANGE_TIMEOUT"`
	ExchangePath    string        `env:"AUTH_EXCHANGE_PATH"`
	CredentialStore string        `env:"CREDENTIAL_STORE"`
}

var _ SessionConfig = Session{}

func defaultSession() Session {
	return Session{
		StartupTimeout:  8 * time.Second,
		ExchangeTimeout: 8 * time.Second,
		ExchangePath:    "/auth/google",
	}
}

// GetStartupTimeout is the safety valve that releases the loading flag
func (s Session) GetStartupTimeout() time.Duration {
	return s.StartupTimeout
}

// GetExchangeTimeout bounds a single backend token exchange
func (s Session) GetExchangeTimeout() time.Duration {
	return s.ExchangeTimeout
}

func (s Session) GetExchangePath() string {
	return s.ExchangePath
}

// GetCredentialStorePath returns the sqlite file holding the persisted credential.
// Empty means "<data folder>/session.db", resolved by the caller.
func (s Session) GetCredentialStorePath() string {
	return s.CredentialStore
}
