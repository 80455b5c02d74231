package providerfake

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/Tanveersultana125/co-teacher/provider"
	"github.com/Tanveersultana125/co-teacher/users"
)

var _ provider.Provider = (*FakeProvider)(nil)

// FakeProvider is a scriptable in-process identity provider
type FakeProvider struct {
	hub          *provider.Hub
	signOutCalls atomic.Int32
	SignOutErr   error
}

func NewFakeProvider() *FakeProvider {
	return &FakeProvider{hub: provider.NewHub()}
}

func (p *FakeProvider) Subscribe(handler provider.Handler) provider.Unsubscribe {
	return p.hub.Subscribe(handler)
}

// SignOut publishes the signed-out state
func (p *FakeProvider) SignOut(ctx context.Context) error {
	p.signOutCalls.Add(1)
	if p.SignOutErr != nil {
		return p.SignOutErr
	}
	p.hub.Publish(nil)
	return nil
}

// SignIn publishes an authenticated handle whose Token returns idToken
func (p *FakeProvider) SignIn(identity users.Identity, idToken string) *FakeHandle {
	h := &FakeHandle{identity: identity, idToken: idToken}
	p.hub.Publish(h)
	return h
}

// Publish delivers an arbitrary state, nil meaning signed out
func (p *FakeProvider) Publish(h provider.Handle) {
	p.hub.Publish(h)
}

func (p *FakeProvider) SignOutCalls() int {
	return int(p.signOutCalls.Load())
}

func (p *FakeProvider) Subscribers() int {
	return p.hub.Subscribers()
}

// FakeHandle is an authenticated fake session
type FakeHandle struct {
	identity users.Identity

	mu       sync.Mutex
	idToken  string
	tokenErr error
	calls    int
}

// NewFakeHandle builds a handle without publishing it
func NewFakeHandle(identity users.Identity, idToken string) *FakeHandle {
	return &FakeHandle{identity: identity, idToken: idToken}
}

func (h *FakeHandle) Identity() users.Identity {
	return h.identity
}

func (h *FakeHandle) Token(ctx context.Context) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.calls++
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if h.tokenErr != nil {
		return "", h.tokenErr
	}
	return h.idToken, nil
}

// FailToken makes later Token calls return err
func (h *FakeHandle) FailToken(err error) *FakeHandle {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.tokenErr = err
	return h
}

func (h *FakeHandle) TokenCalls() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.calls
}
