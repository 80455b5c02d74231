// Package session resolves a single authoritative dashboard session from a
// persisted credential, a federated identity provider and a backend token
// exchange, without ever leaving the caller waiting indefinitely.
package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Tanveersultana125/co-teacher/authstore"
	"github.com/Tanveersultana125/co-teacher/credentials"
	"github.com/Tanveersultana125/co-teacher/exchange"
	"github.com/Tanveersultana125/co-teacher/internal/errors"
	"github.com/Tanveersultana125/co-teacher/internal/utils"
	"github.com/Tanveersultana125/co-teacher/provider"
	"github.com/Tanveersultana125/co-teacher/users"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	defaultStartupTimeout  = 8 * time.Second
	defaultExchangeTimeout = 8 * time.Second
	signOutTimeout         = 10 * time.Second
)

// CredentialStore persists the {token, identity snapshot} pair
type CredentialStore interface {
	Load() (credentials.Credential, error)
	Save(c credentials.Credential) error
	Clear() error
	HasToken() bool
}

// Deps holds the collaborators of a Reconciler
type Deps struct {
	Credentials CredentialStore    // Required
	Provider    provider.Provider  // Optional, nil when the provider could not be initialised
	Exchanger   exchange.Exchanger // Required
	AuthStore   authstore.Sink     // Required, mirrors the resolved session process-wide
}

// Reconciler owns the process-wide Session.
type Reconciler struct {
	deps            Deps
	startupTimeout  time.Duration
	exchangeTimeout time.Duration
	logger          zerolog.Logger
	observers       []func(Session)
	nowTime         func() time.Time

	// ioMu serialises commits together with the storage writes that belong
	// to them. mu guards only in-memory state, so Current never waits on storage.
	ioMu        sync.Mutex
	mu          sync.Mutex
	session     Session
	started     bool
	closed      bool
	logoutEpoch atomic.Uint64
	timer       *time.Timer
	unsubscribe provider.Unsubscribe
	ctx         context.Context
	cancel      context.CancelFunc
	inflight    sync.WaitGroup

	resolved     chan struct{}
	resolvedOnce sync.Once
	closeOnce    sync.Once
}

// Option defines a function type to modify the Reconciler instance.
type Option func(*Reconciler)

// WithStartupTimeout overrides the 8s safety valve that releases Resolving
func WithStartupTimeout(d time.Duration) Option {
	return func(r *Reconciler) {
		r.startupTimeout = d
	}
}

// WithExchangeTimeout overrides the 8s bound on fetching a provider token and exchanging it
func WithExchangeTimeout(d time.Duration) Option {
	return func(r *Reconciler) {
		r.exchangeTimeout = d
	}
}

// WithLogger sets the logger (defaults to the global zerolog logger)
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Reconciler) {
		r.logger = logger
	}
}

// WithObserver registers fn to receive every committed Session. Observers run
// outside the reconciler lock and may be called concurrently; use
// Session.Version to discard stale snapshots. Observers run on goroutines
// that Close waits for, so an observer must not call Close synchronously.
func WithObserver(fn func(Session)) Option {
	return func(r *Reconciler) {
		r.observers = append(r.observers, fn)
	}
}

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) Option {
	return func(r *Reconciler) {
		r.nowTime = nowFunc
	}
}

// New creates a Reconciler in the unresolved state. Call Start to begin reconciliation.
func New(deps Deps, options ...Option) (*Reconciler, error) {
	if deps.Credentials == nil {
		return nil, errors.New("[session.New] Credentials store is required")
	}
	if deps.Exchanger == nil {
		return nil, errors.New("[session.New] Exchanger is required")
	}
	if deps.AuthStore == nil {
		return nil, errors.New("[session.New] AuthStore is required")
	}

	r := &Reconciler{
		deps:            deps,
		startupTimeout:  defaultStartupTimeout,
		exchangeTimeout: defaultExchangeTimeout,
		logger:          log.Logger,
		nowTime:         time.Now,
		session:         initialSession(),
		resolved:        make(chan struct{}),
	}
	for _, opt := range options {
		opt(r)
	}
	r.logger = r.logger.With().Str("component", "session").Logger()
	return r, nil
}

// Current returns the latest committed Session. It never blocks on I/O.
func (r *Reconciler) Current() Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session
}

// Resolved is closed the first time Resolving becomes false
func (r *Reconciler) Resolved() <-chan struct{} {
	return r.resolved
}

// WaitResolved blocks until Resolving is false or ctx is done, then returns the current Session
func (r *Reconciler) WaitResolved(ctx context.Context) (Session, error) {
	select {
	case <-r.resolved:
		return r.Current(), nil
	case <-ctx.Done():
		return r.Current(), ctx.Err()
	}
}

// Start runs the startup reconciliation once. The reconciler lives until
// ctx is cancelled or Close is called.
func (r *Reconciler) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return errors.ErrClosed
	}
	if r.started {
		r.mu.Unlock()
		return errors.ErrAlreadyStarted
	}
	r.started = true
	r.ctx, r.cancel = context.WithCancel(ctx)
	if r.session.Resolving {
		r.timer = time.AfterFunc(r.startupTimeout, r.onStartupTimeout)
	}
	r.mu.Unlock()

	r.restoreCached()

	if r.deps.Provider == nil {
		r.logger.Warn().Msg("Identity provider not initialised, unblocking session")
		r.commit(true, func(s *Session) bool {
			if !s.Resolving {
				return false
			}
			s.Resolving = false
			return true
		})
	} else {
		unsubscribe := r.deps.Provider.Subscribe(r.onProviderEvent)
		r.mu.Lock()
		if r.closed {
			r.mu.Unlock()
			unsubscribe()
			return errors.ErrClosed
		}
		r.unsubscribe = unsubscribe
		r.mu.Unlock()
	}

	go func() {
		<-r.ctx.Done()
		r.Close()
	}()
	return nil
}

// Close ends the reconciler's lifetime: the provider subscription and the
// startup timer are released, in-flight exchanges are cancelled and their
// results dropped. Close waits for in-flight work to return.
func (r *Reconciler) Close() {
	r.closeOnce.Do(func() {
		r.ioMu.Lock()
		r.mu.Lock()
		r.closed = true
		if r.timer != nil {
			r.timer.Stop()
		}
		unsubscribe := r.unsubscribe
		r.unsubscribe = nil
		cancel := r.cancel
		r.mu.Unlock()
		r.ioMu.Unlock()

		if cancel != nil {
			cancel()
		}
		if unsubscribe != nil {
			unsubscribe()
		}
		r.inflight.Wait()
		r.logger.Debug().Msg("Session reconciler closed")
	})
}

// ManualLogin commits identity and token as the persisted credential and the
// current session. The session is committed even if persisting fails; the
// returned error only means the login will not survive a restart.
func (r *Reconciler) ManualLogin(identity users.Identity, token string) error {
	var saveErr error
	r.commit(false, func(s *Session) bool {
		saveErr = r.deps.Credentials.Save(credentials.Credential{Token: token, Identity: identity})
		if saveErr != nil {
			r.logger.Err(saveErr).Msg("Failed to persist manual login")
		}
		r.deps.AuthStore.SetAuth(identity, token)

		s.State = StateManualSession
		s.Identity = utils.Ptr(identity)
		s.Resolving = false
		s.Source = SourceManual
		s.Degraded = false
		s.Stale = false
		return true
	})
	return saveErr
}

// Logout signs out of the provider in the background, clears the persisted
// credential and the auth store, and commits the unauthenticated session.
// Exchanges already in flight are discarded when they finish.
func (r *Reconciler) Logout(ctx context.Context) {
	r.commit(false, func(s *Session) bool {
		r.logoutEpoch.Add(1)
		if err := r.deps.Credentials.Clear(); err != nil {
			r.logger.Err(err).Msg("Failed to clear persisted credential")
		}
		r.deps.AuthStore.Logout()

		s.State = StateUnauthenticated
		s.Identity = nil
		s.Resolving = false
		s.Source = SourceNone
		s.Degraded = false
		s.Stale = false
		return true
	})

	if p := r.deps.Provider; p != nil {
		r.goTracked(func() {
			signOutCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), signOutTimeout)
			defer cancel()
			if err := p.SignOut(signOutCtx); err != nil {
				r.logger.Err(err).Msg("Provider sign out failed")
			}
		})
	}
}

func (r *Reconciler) onStartupTimeout() {
	r.commit(true, func(s *Session) bool {
		if !s.Resolving {
			return false
		}
		r.logger.Warn().Dur("timeout", r.startupTimeout).Msg("Auth check timed out, forcing resolution")
		s.Resolving = false
		return true
	})
}

func (r *Reconciler) restoreCached() {
	r.commit(true, func(s *Session) bool {
		if s.State != StateUnresolved {
			return false
		}
		cred, err := r.deps.Credentials.Load()
		if err != nil {
			if !errors.Is(err, errors.ErrNoCredential) {
				r.logger.Err(err).Msg("Failed to parse stored user")
			}
			return false
		}
		s.State = StateCached
		s.Identity = utils.Ptr(cred.Identity)
		s.Resolving = false
		s.Source = SourceCache
		s.Stale = r.expired(cred)
		return true
	})
}

func (r *Reconciler) onProviderEvent(h provider.Handle) {
	if h == nil {
		r.onSignedOut()
		return
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	epoch := r.logoutEpoch.Load()
	ctx := r.ctx
	r.inflight.Add(1)
	r.mu.Unlock()

	go func() {
		defer r.inflight.Done()
		r.syncWithBackend(ctx, epoch, h)
	}()
}

func (r *Reconciler) onSignedOut() {
	r.commit(true, func(s *Session) bool {
		if !r.deps.Credentials.HasToken() {
			r.deps.AuthStore.Logout()
			s.State = StateUnauthenticated
			s.Identity = nil
			s.Resolving = false
			s.Source = SourceNone
			s.Degraded = false
			s.Stale = false
			return true
		}

		// A local token without a provider session: the manual session stands.
		if s.Identity == nil {
			if cred, err := r.deps.Credentials.Load(); err == nil {
				s.Identity = utils.Ptr(cred.Identity)
				s.Source = SourceCache
				s.Stale = r.expired(cred)
			} else {
				r.logger.Warn().Err(err).Msg("Persisted token present but identity snapshot unusable")
			}
		}
		s.State = StateManualSession
		s.Resolving = false
		return true
	})
}

func (r *Reconciler) syncWithBackend(ctx context.Context, epoch uint64, h provider.Handle) {
	r.commit(true, func(s *Session) bool {
		if r.logoutEpoch.Load() != epoch {
			return false
		}
		s.State = StateSyncing
		return true
	})

	ctx, cancel := context.WithTimeout(ctx, r.exchangeTimeout)
	defer cancel()

	providerIdentity := h.Identity()
	result, err := r.exchange(ctx, h)

	r.commit(true, func(s *Session) bool {
		if r.logoutEpoch.Load() != epoch {
			r.logger.Debug().Str("sub", providerIdentity.ID).Msg("Dropping exchange result started before logout")
			return false
		}

		identity := providerIdentity
		source := SourceProvider
		degraded := false
		switch {
		case err != nil:
			r.logger.Err(err).Str("sub", providerIdentity.ID).Msg("Backend sync failed, falling back to provider identity")
			degraded = true
		case result.Token != "":
			source = SourceBackend
			if result.User != nil {
				identity = *result.User
			}
			if saveErr := r.deps.Credentials.Save(credentials.Credential{Token: result.Token, Identity: identity}); saveErr != nil {
				r.logger.Err(saveErr).Msg("Failed to persist backend session")
			}
			r.deps.AuthStore.SetAuth(identity, result.Token)
		}

		s.State = StateSynced
		s.Identity = utils.Ptr(identity)
		s.Resolving = false
		s.Source = source
		s.Degraded = degraded
		s.Stale = false
		return true
	})
}

func (r *Reconciler) exchange(ctx context.Context, h provider.Handle) (exchange.Result, error) {
	idToken, err := h.Token(ctx)
	if err != nil {
		return exchange.Result{}, errors.Wrapf(err, "fetch provider token")
	}
	result, err := r.deps.Exchanger.Exchange(ctx, idToken)
	if err != nil {
		return exchange.Result{}, err
	}
	return result, nil
}

// expired reports whether a cached bearer token carries an exp claim in the past
func (r *Reconciler) expired(cred credentials.Credential) bool {
	exp, ok := cred.ExpiresAt()
	if !ok || exp.After(r.nowTime()) {
		return false
	}
	r.logger.Warn().Time("expiredAt", exp).Msg("Persisted bearer token has expired")
	return true
}

// commit runs mutate on a copy of the session while holding ioMu, so the
// storage writes inside mutate stay ordered with the transitions they belong
// to, then installs the copy under mu and publishes it. Background commits
// are dropped once the reconciler is closed.
func (r *Reconciler) commit(background bool, mutate func(s *Session) bool) bool {
	r.ioMu.Lock()
	r.mu.Lock()
	closed := r.closed
	next := r.session
	r.mu.Unlock()

	if background && closed {
		r.ioMu.Unlock()
		return false
	}
	if !mutate(&next) {
		r.ioMu.Unlock()
		return false
	}

	r.mu.Lock()
	next.Version = r.session.Version + 1
	next.UpdatedAt = r.nowTime()
	r.session = next
	if !next.Resolving {
		if r.timer != nil {
			r.timer.Stop()
		}
		r.resolvedOnce.Do(func() { close(r.resolved) })
	}
	r.mu.Unlock()
	r.ioMu.Unlock()

	r.logger.Debug().
		Str("state", next.State.String()).
		Bool("resolving", next.Resolving).
		Bool("authenticated", next.Authenticated()).
		Uint64("version", next.Version).
		Msg("Session committed")
	for _, fn := range r.observers {
		fn(next)
	}
	return true
}

// goTracked runs fn in a goroutine that Close waits for, unless already closed.
func (r *Reconciler) goTracked(fn func()) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		go fn()
		return
	}
	r.inflight.Add(1)
	r.mu.Unlock()

	go func() {
		defer r.inflight.Done()
		fn()
	}()
}
