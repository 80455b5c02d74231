// Package provider defines the federated identity provider the reconciler
// listens to. Sign-in state changes are pushed to subscribers.
package provider

import (
	"context"

	"github.com/Tanveersultana125/co-teacher/users"
)

// Handle is an authenticated provider session.
type Handle interface {
	// Identity returns the identity the provider vouches for
	Identity() users.Identity

	// Token returns a current provider-issued ID token, refreshing it if needed
	Token(ctx context.Context) (string, error)
}

// Handler receives provider state changes. A nil Handle means signed out.
type Handler func(h Handle)

// Unsubscribe stops delivery to a handler. It is safe to call more than once.
type Unsubscribe func()

// Provider is a federated identity service.
type Provider interface {
	// Subscribe registers handler. The current state is delivered once,
	// asynchronously, followed by every later change in order.
	Subscribe(handler Handler) Unsubscribe

	// SignOut ends the provider session and notifies subscribers
	SignOut(ctx context.Context) error
}
