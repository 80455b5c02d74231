// Package oidcprovider implements provider.Provider on top of an OpenID
// Connect issuer. ID tokens are verified with go-oidc and refreshed through
// an oauth2.TokenSource built for each caller's context.
package oidcprovider

import (
	"context"
	"fmt"
	"sync"

	"github.com/Tanveersultana125/co-teacher/internal/config"
	"github.com/Tanveersultana125/co-teacher/internal/errors"
	"github.com/Tanveersultana125/co-teacher/internal/utils"
	"github.com/Tanveersultana125/co-teacher/provider"
	"github.com/Tanveersultana125/co-teacher/users"
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

var _ provider.Provider = (*Provider)(nil)

// Provider tracks one signed-in OIDC session and publishes its changes
type Provider struct {
	hub          *provider.Hub
	verifier     *oidc.IDTokenVerifier
	oauth2Config *oauth2.Config
	logger       zerolog.Logger

	mu      sync.Mutex
	session *tokenSession
}

// Option configures a Provider
type Option func(*Provider)

// WithLogger sets the logger (defaults to the global zerolog logger)
func WithLogger(logger zerolog.Logger) Option {
	return func(p *Provider) {
		p.logger = logger
	}
}

// Discover builds a Provider from the issuer's discovery document.
func Discover(ctx context.Context, cfg config.ProviderConfig, options ...Option) (*Provider, error) {
	if !cfg.GetProviderEnabled() {
		return nil, errors.Wrapf(errors.ErrProviderUnavailable, "[oidcprovider.Discover] issuer and client id are required")
	}
	oidcProvider, err := oidc.NewProvider(ctx, cfg.GetProviderIssuer())
	if err != nil {
		return nil, fmt.Errorf("[oidcprovider.Discover] %w: %v", errors.ErrProviderUnavailable, err)
	}

	oauth2Config := &oauth2.Config{
		ClientID:     cfg.GetProviderClientID(),
		ClientSecret: cfg.GetProviderClientSecret(),
		Endpoint:     oidcProvider.Endpoint(),
		Scopes:       cfg.GetProviderScopes(),
	}
	verifier := oidcProvider.Verifier(&oidc.Config{ClientID: oauth2Config.ClientID})
	return New(verifier, oauth2Config, options...), nil
}

// New builds a Provider from an already constructed verifier and oauth2 config.
func New(verifier *oidc.IDTokenVerifier, oauth2Config *oauth2.Config, options ...Option) *Provider {
	p := &Provider{
		hub:          provider.NewHub(),
		verifier:     verifier,
		oauth2Config: oauth2Config,
		logger:       log.Logger,
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

func (p *Provider) Subscribe(handler provider.Handler) provider.Unsubscribe {
	return p.hub.Subscribe(handler)
}

// SignIn adopts token as the current session. The token must carry an
// id_token extra; a refresh token, when present, keeps the session alive.
func (p *Provider) SignIn(ctx context.Context, token *oauth2.Token) error {
	session := &tokenSession{config: p.oauth2Config, token: token}
	h, err := p.newHandle(ctx, session)
	if err != nil {
		return fmt.Errorf("[Provider.SignIn] %w", err)
	}

	p.mu.Lock()
	p.session = session
	p.mu.Unlock()

	p.logger.Info().Str("sub", h.identity.ID).Msg("Provider session signed in")
	p.hub.Publish(h)
	return nil
}

// Restore signs in from a stored refresh token
func (p *Provider) Restore(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return errors.Wrapf(errors.ErrInvalidArgument, "[Provider.Restore] refresh token is required")
	}
	return p.SignIn(ctx, &oauth2.Token{RefreshToken: refreshToken})
}

// Refresh re-verifies the current session and publishes it again, the way a
// provider announces a token refresh.
func (p *Provider) Refresh(ctx context.Context) error {
	p.mu.Lock()
	session := p.session
	p.mu.Unlock()

	if session == nil {
		return errors.Wrapf(errors.ErrSignedOut, "[Provider.Refresh]")
	}
	h, err := p.newHandle(ctx, session)
	if err != nil {
		return fmt.Errorf("[Provider.Refresh] %w", err)
	}
	p.hub.Publish(h)
	return nil
}

// SignOut drops the session and publishes the signed-out state
func (p *Provider) SignOut(ctx context.Context) error {
	p.mu.Lock()
	hadSession := p.session != nil
	p.session = nil
	p.mu.Unlock()

	if hadSession {
		p.logger.Info().Msg("Provider session signed out")
	}
	p.hub.Publish(nil)
	return nil
}

func (p *Provider) newHandle(ctx context.Context, session *tokenSession) (*handle, error) {
	h := &handle{session: session, verifier: p.verifier}
	idToken, err := h.verify(ctx)
	if err != nil {
		return nil, err
	}
	identity, err := identityFromToken(idToken)
	if err != nil {
		return nil, err
	}
	h.identity = identity
	return h, nil
}

// tokenSession holds the latest oauth2 token of one sign-in. Refreshes run
// on the caller's context so a hung token endpoint honours its deadline.
type tokenSession struct {
	config *oauth2.Config

	mu    sync.Mutex
	token *oauth2.Token
}

func (s *tokenSession) current(ctx context.Context) (*oauth2.Token, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	last := s.token
	s.mu.Unlock()

	if last.Valid() {
		return last, nil
	}
	fresh, err := s.config.TokenSource(ctx, last).Token()
	if err != nil {
		return nil, fmt.Errorf("refresh token: %w", err)
	}

	s.mu.Lock()
	s.token = fresh
	s.mu.Unlock()
	return fresh, nil
}

type handle struct {
	identity users.Identity
	session  *tokenSession
	verifier *oidc.IDTokenVerifier
}

func (h *handle) Identity() users.Identity {
	return h.identity
}

// Token returns the raw ID token of the current (possibly refreshed) oauth2 token.
func (h *handle) Token(ctx context.Context) (string, error) {
	tok, err := h.session.current(ctx)
	if err != nil {
		return "", err
	}
	raw, ok := tok.Extra("id_token").(string)
	if !ok || raw == "" {
		return "", errors.ErrNoIDToken
	}
	return raw, nil
}

func (h *handle) verify(ctx context.Context) (*oidc.IDToken, error) {
	raw, err := h.Token(ctx)
	if err != nil {
		return nil, err
	}
	idToken, err := h.verifier.Verify(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("verify id token: %w", err)
	}
	return idToken, nil
}

func identityFromToken(idToken *oidc.IDToken) (users.Identity, error) {
	var claims struct {
		Sub   string `json:"sub"`
		Email string `json:"email"`
		Name  string `json:"name"`
		Role  string `json:"role"`
		Roles []any  `json:"roles"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return users.Identity{}, fmt.Errorf("extract claims: %w", err)
	}

	role := claims.Role
	if role == "" {
		if roles := utils.ToStringSlice(claims.Roles); len(roles) > 0 {
			role = roles[0]
		}
	}
	return users.Identity{
		ID:          claims.Sub,
		DisplayName: claims.Name,
		Email:       claims.Email,
		Role:        users.RoleType(role),
	}, nil
}
