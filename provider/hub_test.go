package provider_test

import (
	"context"
	"testing"
	"time"

	"github.com/Tanveersultana125/co-teacher/provider"
	"github.com/Tanveersultana125/co-teacher/users"
	"github.com/stretchr/testify/require"
)

type staticHandle struct{ id users.Identity }

func (s staticHandle) Identity() users.Identity { return s.id }
func (s staticHandle) Token(context.Context) (string, error) { return "id-token-" + s.id.ID, nil }

func collect(t *testing.T, hub *provider.Hub) (chan provider.Handle, provider.Unsubscribe) {
	t.Helper()
	events := make(chan provider.Handle, 16)
	unsubscribe := hub.Subscribe(func(h provider.Handle) { events <- h })
	return events, unsubscribe
}

func receive(t *testing.T, events chan provider.Handle) provider.Handle {
	t.Helper()
	select {
	case h := <-events:
		return h
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
		return nil
	}
}

func TestSubscribeDeliversCurrentState(t *testing.T) {
	hub := provider.NewHub()
	events, unsubscribe := collect(t, hub)
	defer unsubscribe()

	require.Nil(t, receive(t, events))
}

func TestSubscribeDeliversSignedInState(t *testing.T) {
	hub := provider.NewHub()
	hub.Publish(staticHandle{id: users.Identity{ID: "u-1"}})

	events, unsubscribe := collect(t, hub)
	defer unsubscribe()

	h := receive(t, events)
	require.NotNil(t, h)
	require.Equal(t, "u-1", h.Identity().ID)
}

func TestPublishPreservesOrder(t *testing.T) {
	hub := provider.NewHub()
	events, unsubscribe := collect(t, hub)
	defer unsubscribe()
	require.Nil(t, receive(t, events))

	for _, id := range []string{"a", "b", "c"} {
		hub.Publish(staticHandle{id: users.Identity{ID: id}})
	}
	hub.Publish(nil)

	require.Equal(t, "a", receive(t, events).Identity().ID)
	require.Equal(t, "b", receive(t, events).Identity().ID)
	require.Equal(t, "c", receive(t, events).Identity().ID)
	require.Nil(t, receive(t, events))
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	hub := provider.NewHub()
	events, unsubscribe := collect(t, hub)
	require.Nil(t, receive(t, events))
	require.Equal(t, 1, hub.Subscribers())

	unsubscribe()
	unsubscribe()
	require.Zero(t, hub.Subscribers())

	hub.Publish(staticHandle{id: users.Identity{ID: "late"}})
	select {
	case h := <-events:
		t.Fatalf("unexpected event after unsubscribe: %v", h)
	case <-time.After(50 * time.Millisecond):
	}
}
