// Package form guards record forms so that each form has at most one write in
// flight.
package form

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrInFlight is returned by Submit while a previous submission of the same
// form has not been reset yet.
var ErrInFlight = errors.New("form: submission already in flight")

// DefaultResetDelay is how long a form shows its success state before it is
// reset.
const DefaultResetDelay = 1500 * time.Millisecond

// Status drives both the submit control's enabled state and its label.
type Status int

const (
	Idle Status = iota
	Submitting
	Succeeded
	Failed
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Submitting:
		return "submitting"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Labels are the submit control captions per status. Failed uses Idle.
type Labels struct {
	Idle       string
	Submitting string
	Succeeded  string
}

// Slot is the single in-flight request slot of one form.
type Slot struct {
	labels     Labels
	resetDelay time.Duration

	mu     sync.Mutex
	status Status
	timer  *time.Timer
}

// NewSlot returns an idle slot. A non-positive resetDelay uses
// DefaultResetDelay.
func NewSlot(labels Labels, resetDelay time.Duration) *Slot {
	if resetDelay <= 0 {
		resetDelay = DefaultResetDelay
	}
	return &Slot{labels: labels, resetDelay: resetDelay}
}

// Submit performs write unless a submission is already in flight. On success
// the slot stays latched in Succeeded for the reset delay, then returns to
// Idle and calls onReset (which may be nil). On failure the slot becomes
// Failed, which accepts a new submission, and the write error is returned.
func (s *Slot) Submit(ctx context.Context, write func(ctx context.Context) error, onReset func()) error {
	s.mu.Lock()
	if s.status == Submitting || s.status == Succeeded {
		s.mu.Unlock()
		return ErrInFlight
	}
	s.status = Submitting
	s.mu.Unlock()

	err := write(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.status = Failed
		return err
	}
	s.status = Succeeded
	s.timer = time.AfterFunc(s.resetDelay, func() {
		s.mu.Lock()
		if s.status != Succeeded {
			s.mu.Unlock()
			return
		}
		s.status = Idle
		s.timer = nil
		s.mu.Unlock()
		if onReset != nil {
			onReset()
		}
	})
	return nil
}

// Status returns the current status.
func (s *Slot) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Enabled reports whether the submit control accepts input.
func (s *Slot) Enabled() bool {
	st := s.Status()
	return st == Idle || st == Failed
}

// Label returns the submit control caption for the current status.
func (s *Slot) Label() string {
	switch s.Status() {
	case Submitting:
		return s.labels.Submitting
	case Succeeded:
		return s.labels.Succeeded
	}
	return s.labels.Idle
}

// ResetDelay is how long the slot stays in Succeeded.
func (s *Slot) ResetDelay() time.Duration {
	return s.resetDelay
}

// Stop cancels a pending reset and returns the slot to Idle without calling
// the reset callback.
func (s *Slot) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if s.status != Submitting {
		s.status = Idle
	}
}
