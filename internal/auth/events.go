package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
	"github.com/teresa-solution/housezen-portal/internal/model"
)

// EventType names an auth state change.
type EventType string

const (
	SignedIn  EventType = "SIGNED_IN"
	SignedOut EventType = "SIGNED_OUT"
)

// Event is published on every auth state change
type Event struct {
	Type      EventType   `json:"type"`
	App       string      `json:"app"`
	SessionID string      `json:"session_id"`
	User      *model.User `json:"user,omitempty"`
	ExpiresAt time.Time   `json:"expires_at,omitzero"`
}

// Bus delivers auth state changes to subscribers.
type Bus interface {
	Publish(ctx context.Context, ev Event) error
	// Subscribe registers fn and returns a function that removes it.
	Subscribe(fn func(Event)) (func(), error)
}

// LocalBus dispatches events synchronously inside the process.
type LocalBus struct {
	mu   sync.RWMutex
	next int
	subs map[int]func(Event)
}

func NewLocalBus() *LocalBus {
	return &LocalBus{subs: make(map[int]func(Event))}
}

func (b *LocalBus) Publish(_ context.Context, ev Event) error {
	b.mu.RLock()
	subs := make([]func(Event), 0, len(b.subs))
	for _, fn := range b.subs {
		subs = append(subs, fn)
	}
	b.mu.RUnlock()

	for _, fn := range subs {
		fn(ev)
	}
	return nil
}

func (b *LocalBus) Subscribe(fn func(Event)) (func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.next
	b.next++
	b.subs[id] = fn
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs, id)
	}, nil
}

// SubjectPrefix is the NATS subject space of auth events.
const SubjectPrefix = "housezen.auth"

// NATSBus publishes auth events on NATS so every instance serving the same
// app sees them.
type NATSBus struct {
	conn *nats.Conn
}

// NewNATSBus connects to the NATS server at url.
func NewNATSBus(url string) (*NATSBus, error) {
	conn, err := nats.Connect(url, nats.Name("housezen-portal"))
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	return &NATSBus{conn: conn}, nil
}

func subject(t EventType) string {
	switch t {
	case SignedIn:
		return SubjectPrefix + ".signed_in"
	case SignedOut:
		return SubjectPrefix + ".signed_out"
	}
	return SubjectPrefix + ".unknown"
}

func (b *NATSBus) Publish(_ context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if err := b.conn.Publish(subject(ev.Type), data); err != nil {
		return fmt.Errorf("publish %s: %w", ev.Type, err)
	}
	return nil
}

func (b *NATSBus) Subscribe(fn func(Event)) (func(), error) {
	sub, err := b.conn.Subscribe(SubjectPrefix+".>", func(msg *nats.Msg) {
		var ev Event
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			log.Warn().Err(err).Str("subject", msg.Subject).Msg("Dropping malformed auth event")
			return
		}
		fn(ev)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe to auth events: %w", err)
	}
	return func() {
		if err := sub.Unsubscribe(); err != nil {
			log.Warn().Err(err).Msg("Failed to unsubscribe from auth events")
		}
	}, nil
}

// Close drains the connection.
func (b *NATSBus) Close() error {
	return b.conn.Drain()
}

// Check reports whether the connection is up.
func (b *NATSBus) Check(_ context.Context) error {
	if !b.conn.IsConnected() {
		return fmt.Errorf("nats: %s", b.conn.Status())
	}
	return nil
}
