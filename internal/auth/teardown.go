package auth

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// teardownQueueSize bounds pending unload sign-outs; beyond it they are
// dropped and the session simply expires.
const teardownQueueSize = 64

// teardownWorker signs sessions out in the background when their page is
// unloaded, so the unload request never waits on the backend.
type teardownWorker struct {
	signOut func(ctx context.Context, sessionID string) error
	queue   chan string
	wg      sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

func newTeardownWorker(signOut func(ctx context.Context, sessionID string) error) *teardownWorker {
	w := &teardownWorker{
		signOut: signOut,
		queue:   make(chan string, teardownQueueSize),
	}
	w.wg.Add(1)
	go w.run()
	return w
}

func (w *teardownWorker) run() {
	defer w.wg.Done()
	for sessionID := range w.queue {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := w.signOut(ctx, sessionID); err != nil {
			log.Warn().Err(err).Str("session_id", sessionID).Msg("Teardown sign-out failed")
		}
		cancel()
	}
}

// enqueue never blocks.
func (w *teardownWorker) enqueue(sessionID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	select {
	case w.queue <- sessionID:
	default:
		log.Warn().Str("session_id", sessionID).Msg("Teardown queue full, leaving session to expire")
	}
}

// close drains pending sign-outs and stops the worker.
func (w *teardownWorker) close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	close(w.queue)
	w.mu.Unlock()
	w.wg.Wait()
}
