package config

type ProviderConfig interface {
	GetProviderEnabled() bool
	GetProviderIssuer() string
	GetProviderClientID() string
	GetProviderClientSecret() string
	GetProviderScopes() []string
	GetProviderRefreshToken() string
}

type Provider struct {
	Issuer       string   `env:"OIDC_ISSUER"`
	ClientID     string   `env:"OIDC_CLIENT_ID"`
	ClientSecret string   `env:"OIDC_CLIENT_SECRET"`
	Scopes       []string `env:"OIDC_SCOPES" envSeparator:","`
	RefreshToken string   `env:"OIDC_REFRESH_TOKEN"`
}

var _ ProviderConfig = Provider{}

func defaultProvider() Provider {
	return Provider{
		Scopes: []string{"openid", "email", "profile"},
	}
}

// GetProviderEnabled reports whether enough is configured to reach the identity provider
func (p Provider) GetProviderEnabled() bool {
	return p.Issuer != "" && p.ClientID != ""
}

func (p Provider) GetProviderIssuer() string {
	return p.Issuer
}

func (p Provider) GetProviderClientID() string {
	return p.ClientID
}

func (p Provider) GetProviderClientSecret() string {
	return p.ClientSecret
}

func (p Provider) GetProviderScopes() []string {
	return p.Scopes
}

// GetProviderRefreshToken returns a refresh token used to restore a provider session at startup
func (p Provider) GetProviderRefreshToken() string {
	return p.RefreshToken
}
