package web

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/teresa-solution/housezen-portal/internal/auth"
	"github.com/teresa-solution/housezen-portal/internal/form"
	"github.com/teresa-solution/housezen-portal/internal/model"
)

// State is what the app keeps for one signed-in session: its form slots and
// the record each list is editing.
type State struct {
	resetDelay time.Duration

	mu      sync.Mutex
	session *model.Session
	slots   map[string]*form.Slot
	editing map[string]string
}

func newState(s *model.Session, resetDelay time.Duration) *State {
	return &State{
		resetDelay: resetDelay,
		session:    s,
		slots:      make(map[string]*form.Slot),
		editing:    make(map[string]string),
	}
}

// Session returns the session the state belongs to.
func (s *State) Session() *model.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

// User returns the signed-in user.
func (s *State) User() model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.User
}

// Slot returns the submit slot of the named form, creating it on first use.
func (s *State) Slot(name string, labels form.Labels) *form.Slot {
	s.mu.Lock()
	defer s.mu.Unlock()
	slot, ok := s.slots[name]
	if !ok {
		slot = form.NewSlot(labels, s.resetDelay)
		s.slots[name] = slot
	}
	return slot
}

// Editing returns the id of the record open in the list's editor, or "".
func (s *State) Editing(list string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.editing[list]
}

// SetEditing records the record open in the list's editor; "" closes it.
func (s *State) SetEditing(list, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id == "" {
		delete(s.editing, list)
		return
	}
	s.editing[list] = id
}

func (s *State) setSession(session *model.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = session
}

func (s *State) stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, slot := range s.slots {
		slot.Stop()
	}
	s.slots = make(map[string]*form.Slot)
	s.editing = make(map[string]string)
}

// Registry owns the State of every live session. It follows the auth event
// stream: a state is created on sign-in and torn down on sign-out.
type Registry struct {
	resetDelay time.Duration

	mu     sync.Mutex
	states map[string]*State
}

func NewRegistry(resetDelay time.Duration) *Registry {
	return &Registry{
		resetDelay: resetDelay,
		states:     make(map[string]*State),
	}
}

// Handle applies an auth event.
func (r *Registry) Handle(ev auth.Event) {
	switch ev.Type {
	case auth.SignedIn:
		if ev.User == nil || ev.SessionID == "" {
			return
		}
		r.mu.Lock()
		if _, ok := r.states[ev.SessionID]; !ok {
			session := &model.Session{ID: ev.SessionID, User: *ev.User, ExpiresAt: ev.ExpiresAt}
			r.states[ev.SessionID] = newState(session, r.resetDelay)
		}
		r.mu.Unlock()
	case auth.SignedOut:
		r.Remove(ev.SessionID)
	}
}

// Get returns the state of a valid session, rebuilding it when the process
// has none (after a restart, or when the sign-in happened elsewhere).
func (r *Registry) Get(s *model.Session) *State {
	r.mu.Lock()
	st, ok := r.states[s.ID]
	if !ok {
		st = newState(s, r.resetDelay)
		r.states[s.ID] = st
		log.Debug().Str("session_id", s.ID).Msg("Rebuilt session state")
	}
	r.mu.Unlock()
	st.setSession(s)
	return st
}

// Remove tears down the state of a session.
func (r *Registry) Remove(sessionID string) {
	r.mu.Lock()
	st, ok := r.states[sessionID]
	delete(r.states, sessionID)
	r.mu.Unlock()
	if ok {
		st.stop()
	}
}

// Prune tears down the states whose session expired before now and returns
// how many were removed.
func (r *Registry) Prune(now time.Time) int {
	r.mu.Lock()
	var expired []*State
	for id, st := range r.states {
		if st.Session().Expired(now) {
			expired = append(expired, st)
			delete(r.states, id)
		}
	}
	r.mu.Unlock()
	for _, st := range expired {
		st.stop()
	}
	return len(expired)
}

// Len returns the number of live states.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.states)
}
