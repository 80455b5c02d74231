package provider

import (
	"sync"

	"github.com/google/uuid"
)

// Hub fans provider state out to subscribers. Each subscriber has its own
// goroutine and queue, so a slow handler delays only its own later events.
type Hub struct {
	mu          sync.Mutex
	current     Handle
	subscribers map[string]*subscriber
}

// NewHub creates a hub whose initial state is signed out
func NewHub() *Hub {
	return &Hub{subscribers: make(map[string]*subscriber)}
}

// Current returns the latest published state
func (h *Hub) Current() Handle {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current
}

// Subscribe implements Provider.Subscribe
func (h *Hub) Subscribe(handler Handler) Unsubscribe {
	id := uuid.NewString()
	sub := newSubscriber(handler)

	h.mu.Lock()
	h.subscribers[id] = sub
	sub.push(h.current)
	h.mu.Unlock()

	go sub.run()

	return func() {
		h.mu.Lock()
		delete(h.subscribers, id)
		h.mu.Unlock()
		sub.stop()
	}
}

// Publish records state as current and queues it for every subscriber
func (h *Hub) Publish(state Handle) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.current = state
	for _, sub := range h.subscribers {
		sub.push(state)
	}
}

// Subscribers returns the number of live subscriptions
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

type subscriber struct {
	handler Handler

	mu      sync.Mutex
	pending []Handle
	wake    chan struct{}
	done    chan struct{}
	once    sync.Once
}

func newSubscriber(handler Handler) *subscriber {
	return &subscriber{
		handler: handler,
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
}

func (s *subscriber) push(state Handle) {
	s.mu.Lock()
	s.pending = append(s.pending, state)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *subscriber) next() (Handle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.pending) == 0 {
		return nil, false
	}
	state := s.pending[0]
	s.pending = s.pending[1:]
	return state, true
}

func (s *subscriber) run() {
	for {
		select {
		case <-s.done:
			return
		case <-s.wake:
		}

		for {
			state, ok := s.next()
			if !ok {
				break
			}
			select {
			case <-s.done:
				return
			default:
			}
			s.handler(state)
		}
	}
}

func (s *subscriber) stop() {
	s.once.Do(func() { close(s.done) })
}
