package session

import (
	"time"

	"github.com/Tanveersultana125/co-teacher/users"
)

// State tags how the current session was reached
type State int

const (
	StateUnresolved      State = iota // Nothing committed yet
	StateCached                       // Identity restored from the persisted credential, provider still pending
	StateUnauthenticated              // Definitively signed out
	StateManualSession                // Local credential is authoritative
	StateSyncing                      // A backend token exchange is in flight
	StateSynced                       // Identity confirmed through the provider and backend
)

func (s State) String() string {
	switch s {
	case StateUnresolved:
		return "unresolved"
	case StateCached:
		return "cached"
	case StateUnauthenticated:
		return "unauthenticated"
	case StateManualSession:
		return "manual_session"
	case StateSyncing:
		return "syncing"
	case StateSynced:
		return "synced"
	}
	return "unknown"
}

// Source records which input vouched for the current identity
type Source string

const (
	SourceNone     Source = ""
	SourceCache    Source = "cache"
	SourceManual   Source = "manual"
	SourceBackend  Source = "backend"
	SourceProvider Source = "provider"
)

// Session is the resolved identity state exposed to the rest of the application.
// Values are snapshots; Identity must not be modified by callers.
type Session struct {
	State     State
	Identity  *users.Identity // nil when unauthenticated
	Resolving bool            // true until the first definitive answer or the startup timeout
	Source    Source
	Degraded  bool      // identity accepted from the provider because the backend exchange failed
	Stale     bool      // cached identity whose persisted bearer token has already expired
	Version   uint64    // increases with every commit, lets observers drop stale snapshots
	UpdatedAt time.Time // time of the last commit
}

// Authenticated reports whether an identity is present
func (s Session) Authenticated() bool {
	return s.Identity != nil
}

func initialSession() Session {
	return Session{State: StateUnresolved, Resolving: true}
}
