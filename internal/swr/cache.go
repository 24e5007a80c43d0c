// Package swr renders list views from the last stored snapshot while the
// authoritative list is fetched in the background (stale-while-revalidate).
//
// The snapshot is replaced wholesale after every successful fetch. There is no
// expiry, no merging and no invalidation: the snapshot is only read on view
// entry.
package swr

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"
	"github.com/teresa-solution/housezen-portal/internal/monitoring"
	"github.com/teresa-solution/housezen-portal/internal/storage"
)

// ErrNoSession is returned by a Fetcher when no authenticated session could
// be derived. The revalidation is then treated as "no data" instead of a
// network failure.
var ErrNoSession = errors.New("swr: no session")

// State is what a list view is showing.
type State int

const (
	Loading State = iota
	Stale
	Fresh
	Empty
	NetworkError
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Stale:
		return "stale"
	case Fresh:
		return "fresh"
	case Empty:
		return "empty"
	case NetworkError:
		return "network_error"
	}
	return "unknown"
}

// View is one rendered frame of a list.
type View[T any] struct {
	State State
	Items []T
}

// Fetcher loads the authoritative list.
type Fetcher[T any] func(ctx context.Context) ([]T, error)

// Render receives frames in order. It must be safe to call from another
// goroutine than the one that called Load.
type Render[T any] func(View[T])

// Cache is a stale-while-revalidate cache for one data kind.
type Cache[T any] struct {
	store storage.Local
	key   string
}

// New returns the cache of kind key in the client's storage.
func New[T any](store storage.Local, key string) *Cache[T] {
	return &Cache[T]{store: store, key: key}
}

// Load renders the stored snapshot (tagged stale) or a loading frame, then
// revalidates in the background. The first frame has been rendered when Load
// returns; the returned channel is closed once revalidation has settled.
func (c *Cache[T]) Load(ctx context.Context, fetch Fetcher[T], render Render[T]) <-chan struct{} {
	snapshot, cached := c.Snapshot(ctx)
	if cached {
		render(frame(snapshot, Stale))
	} else {
		render(View[T]{State: Loading})
	}

	// The fetch is not cancelled when the view is left; its result still
	// replaces the snapshot.
	bg := context.WithoutCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.revalidate(bg, fetch, render, cached)
	}()
	return done
}

// Snapshot returns the stored snapshot, if there is a readable one.
func (c *Cache[T]) Snapshot(ctx context.Context) ([]T, bool) {
	data, ok, err := c.store.Get(ctx, c.key)
	if err != nil {
		log.Warn().Err(err).Str("key", c.key).Msg("Failed to read snapshot")
		ok = false
	}
	if !ok {
		monitoring.SnapshotReads.WithLabelValues(c.key, "miss").Inc()
		return nil, false
	}

	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		log.Warn().Err(err).Str("key", c.key).Msg("Discarding unreadable snapshot")
		monitoring.SnapshotReads.WithLabelValues(c.key, "miss").Inc()
		return nil, false
	}
	monitoring.SnapshotReads.WithLabelValues(c.key, "hit").Inc()
	return items, true
}

func (c *Cache[T]) revalidate(ctx context.Context, fetch Fetcher[T], render Render[T], cached bool) {
	items, err := fetch(ctx)
	switch {
	case errors.Is(err, ErrNoSession):
		monitoring.Revalidations.WithLabelValues(c.key, "no_session").Inc()
		return
	case err != nil:
		monitoring.Revalidations.WithLabelValues(c.key, "error").Inc()
		log.Error().Err(err).Str("key", c.key).Bool("cached", cached).Msg("Failed to revalidate list")
		if !cached {
			render(View[T]{State: NetworkError})
		}
		return
	}

	if items == nil {
		items = []T{}
	}
	data, err := json.Marshal(items)
	if err == nil {
		err = c.store.Set(ctx, c.key, data)
	}
	if err != nil {
		log.Warn().Err(err).Str("key", c.key).Msg("Failed to store snapshot")
	}

	monitoring.Revalidations.WithLabelValues(c.key, "success").Inc()
	render(frame(items, Fresh))
}

// frame tags items with state, except that an empty list is always Empty.
func frame[T any](items []T, state State) View[T] {
	if len(items) == 0 {
		return View[T]{State: Empty, Items: items}
	}
	return View[T]{State: state, Items: items}
}
