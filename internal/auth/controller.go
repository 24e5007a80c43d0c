// Package auth tracks whether a client is signed in. Sign-in is delegated to
// an external OAuth redirect flow; sessions are kept server side and every
// state change is published on a Bus.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/teresa-solution/housezen-portal/internal/model"
	"github.com/teresa-solution/housezen-portal/internal/monitoring"
	"github.com/teresa-solution/housezen-portal/internal/storage"
)

// ErrNoSession is returned when an operation needs a session and there is
// none.
var ErrNoSession = errors.New("auth: no session")

// State of a client.
type State int

const (
	Unauthenticated State = iota
	Authenticated
)

func (s State) String() string {
	if s == Authenticated {
		return "authenticated"
	}
	return "unauthenticated"
}

// Controller drives the unauthenticated → authenticated → unauthenticated
// lifecycle of one app's clients.
type Controller struct {
	app      string
	provider Provider
	sessions SessionStore
	bus      Bus
	teardown *teardownWorker
	now      func() time.Time
}

// NewController returns a controller for app ("tenant" or "landlord").
func NewController(app string, provider Provider, sessions SessionStore, bus Bus) *Controller {
	c := &Controller{
		app:      app,
		provider: provider,
		sessions: sessions,
		bus:      bus,
		now:      time.Now,
	}
	c.teardown = newTeardownWorker(c.endSession)
	return c
}

// Initialize discovers the session behind sessionID. It returns nil without
// error when the client is unauthenticated.
func (c *Controller) Initialize(ctx context.Context, sessionID string) (*model.Session, error) {
	if sessionID == "" {
		return nil, nil
	}
	s, err := c.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, nil
	}
	if s.Expired(c.now()) {
		if err := c.sessions.Delete(ctx, sessionID); err != nil {
			log.Warn().Err(err).Str("session_id", sessionID).Msg("Failed to delete expired session")
		}
		c.publish(ctx, Event{Type: SignedOut, App: c.app, SessionID: sessionID})
		log.Info().Str("app", c.app).Str("session_id", sessionID).Msg("Session expired")
		return nil, nil
	}
	return s, nil
}

// StateOf reports the state of a client given the session Initialize found.
func StateOf(s *model.Session) State {
	if s == nil {
		return Unauthenticated
	}
	return Authenticated
}

// SignInURL is where the browser is redirected to sign in.
func (c *Controller) SignInURL(state string) string {
	return c.provider.AuthCodeURL(state)
}

// CompleteSignIn finishes the redirect flow and creates the session.
func (c *Controller) CompleteSignIn(ctx context.Context, code string) (*model.Session, error) {
	identity, err := c.provider.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("sign in: %w", err)
	}

	now := c.now()
	s := &model.Session{
		ID:        uuid.NewString(),
		User:      identity.User,
		CreatedAt: now,
		ExpiresAt: identity.ExpiresAt,
	}
	if err := c.sessions.Put(ctx, s); err != nil {
		return nil, fmt.Errorf("sign in: %w", err)
	}

	user := s.User
	c.publish(ctx, Event{Type: SignedIn, App: c.app, SessionID: s.ID, User: &user, ExpiresAt: s.ExpiresAt})
	log.Info().Str("app", c.app).Str("session_id", s.ID).Str("user_id", user.ID.String()).Msg("User signed in")
	return s, nil
}

// SignOut ends the session and clears the client's local storage. Local
// storage is cleared even when ending the session fails.
func (c *Controller) SignOut(ctx context.Context, sessionID string, local storage.Local) error {
	err := c.endSession(ctx, sessionID)
	if local != nil {
		if clearErr := local.Clear(ctx); clearErr != nil {
			log.Warn().Err(clearErr).Str("session_id", sessionID).Msg("Failed to clear local storage")
		}
	}
	return err
}

// Teardown signs the session out in the background, for page unloads. It
// never blocks.
func (c *Controller) Teardown(sessionID string) {
	if sessionID == "" {
		return
	}
	c.teardown.enqueue(sessionID)
}

// Subscribe registers fn for this app's auth state changes.
func (c *Controller) Subscribe(fn func(Event)) (func(), error) {
	return c.bus.Subscribe(func(ev Event) {
		if ev.App == c.app {
			fn(ev)
		}
	})
}

// Close waits for pending teardowns.
func (c *Controller) Close() {
	c.teardown.close()
}

func (c *Controller) endSession(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return ErrNoSession
	}
	if err := c.sessions.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	c.publish(ctx, Event{Type: SignedOut, App: c.app, SessionID: sessionID})
	log.Info().Str("app", c.app).Str("session_id", sessionID).Msg("User signed out")
	return nil
}

func (c *Controller) publish(ctx context.Context, ev Event) {
	monitoring.AuthEvents.WithLabelValues(string(ev.Type)).Inc()
	if err := c.bus.Publish(ctx, ev); err != nil {
		log.Error().Err(err).Str("event", string(ev.Type)).Msg("Failed to publish auth event")
	}
}
