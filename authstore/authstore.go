// Package authstore holds the process-wide copy of the resolved session for
// parts of the dashboard that do not talk to the reconciler directly.
package authstore

import (
	"sync"
	"time"

	"github.com/Tanveersultana125/co-teacher/users"
)

// Sink is what the reconciler mirrors resolved sessions into
type Sink interface {
	SetAuth(identity users.Identity, token string)
	Logout()
}

// Auth is the mirrored session
type Auth struct {
	Identity  users.Identity
	Token     string
	UpdatedAt time.Time
}

var _ Sink = (*Store)(nil)

// Store is an in-memory Sink that also lets readers fetch the current value
type Store struct {
	mu      sync.RWMutex
	auth    *Auth
	nowTime func() time.Time
}

// StoreOption defines a function type to modify the Store instance.
type StoreOption func(*Store)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) StoreOption {
	return func(s *Store) {
		s.nowTime = nowFunc
	}
}

func New(options ...StoreOption) *Store {
	s := &Store{nowTime: time.Now}
	for _, opt := range options {
		opt(s)
	}
	return s
}

func (s *Store) SetAuth(identity users.Identity, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.auth = &Auth{Identity: identity, Token: token, UpdatedAt: s.nowTime()}
}

func (s *Store) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.auth = nil
}

// Current returns a copy of the stored session and whether one is set
func (s *Store) Current() (Auth, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.auth == nil {
		return Auth{}, false
	}
	return *s.auth, true
}

// BearerToken returns the Authorization header value for backend calls, empty when logged out
func (s *Store) BearerToken() string {
	auth, ok := s.Current()
	if !ok || auth.Token == "" {
		return ""
	}
	return "Bearer " + auth.Token
}
