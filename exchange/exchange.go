// Package exchange trades a provider-issued ID token for a backend session token.
package exchange

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Tanveersultana125/co-teacher/internal/config"
	"github.com/Tanveersultana125/co-teacher/internal/errors"
	"github.com/Tanveersultana125/co-teacher/users"
	"github.com/google/uuid"
)

const (
	defaultTimeout = 8 * time.Second
	maxBodyBytes   = 1 << 20
)

// Exchanger is the backend token-exchange endpoint as seen by the reconciler
type Exchanger interface {
	Exchange(ctx context.Context, idToken string) (Result, error)
}

// Result is the backend's answer. Token is empty when the backend accepted
// the ID token without issuing a session; User is nil when it sent no user
// or a user with neither id nor email.
type Result struct {
	Token string
	User  *users.Identity
}

type request struct {
	IDToken string `json:"idToken"`
}

type response struct {
	Token string          `json:"token,omitempty"`
	User  json.RawMessage `json:"user,omitempty"`
}

// StatusError reports a non-success HTTP status from the backend
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", errors.ErrExchangeRejected, e.StatusCode, e.Body)
}

func (e *StatusError) Unwrap() error {
	return errors.ErrExchangeRejected
}

var _ Exchanger = (*Client)(nil)

// Client posts ID tokens to the backend exchange endpoint
type Client struct {
	endpoint   string
	timeout    time.Duration
	httpClient *http.Client
}

// ClientOption defines a function type to modify the Client instance.
type ClientOption func(*Client)

// WithHTTPClient replaces the default http.Client
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout overrides the per-request timeout
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = d
	}
}

// NewClient builds a client for baseURL + path.
func NewClient(baseURL, path string, options ...ClientOption) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("[exchange.NewClient] base url is required")
	}
	c := &Client{
		endpoint:   strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(path, "/"),
		timeout:    defaultTimeout,
		httpClient: http.DefaultClient,
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

// NewClientFromConfig builds a client from the api base url, exchange path and timeout settings
func NewClientFromConfig(cfg interface {
	config.EnvConfig
	config.SessionConfig
}, options ...ClientOption) (*Client, error) {
	options = append([]ClientOption{WithTimeout(cfg.GetExchangeTimeout())}, options...)
	return NewClient(cfg.GetAPIBaseURL(), cfg.GetExchangePath(), options...)
}

// Endpoint returns the full exchange URL
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Exchange posts {"idToken": idToken} and decodes {"token"?, "user"?}.
// The call is bounded by the client timeout independently of ctx's deadline.
func (c *Client) Exchange(ctx context.Context, idToken string) (Result, error) {
	if idToken == "" {
		return Result{}, errors.Wrapf(errors.ErrInvalidArgument, "[Client.Exchange] id token is required")
	}

	ctx, cancel := context.WithTimeoutCause(ctx, c.timeout, errors.ErrExchangeTimeout)
	defer cancel()

	body, err := json.Marshal(request{IDToken: idToken})
	if err != nil {
		return Result{}, fmt.Errorf("[Client.Exchange] encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("[Client.Exchange] build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(context.Cause(ctx), errors.ErrExchangeTimeout) {
			return Result{}, fmt.Errorf("[Client.Exchange] %w after %s", errors.ErrExchangeTimeout, c.timeout)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{}, fmt.Errorf("[Client.Exchange] request abandoned: %w", ctxErr)
		}
		return Result{}, fmt.Errorf("[Client.Exchange] %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return Result{}, fmt.Errorf("[Client.Exchange] read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Result{}, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(payload))}
	}
	return decode(payload)
}

func decode(payload []byte) (Result, error) {
	if len(bytes.TrimSpace(payload)) == 0 {
		return Result{}, nil
	}

	var r response
	if err := json.Unmarshal(payload, &r); err != nil {
		return Result{}, fmt.Errorf("[Client.Exchange] decode response: %w", err)
	}

	result := Result{Token: r.Token}
	if len(r.User) > 0 && string(r.User) != "null" {
		user, err := users.Unmarshal(string(r.User))
		if err != nil {
			return Result{}, fmt.Errorf("[Client.Exchange] decode user: %w", err)
		}
		if user.Validate() == nil {
			result.User = &user
		}
	}
	return result, nil
}
