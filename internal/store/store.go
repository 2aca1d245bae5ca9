// Package store holds the viewer's search-result state and coordinates the
// operations that change it.
package store

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/glabrego/imgsearch-cli/internal/config"
	"github.com/glabrego/imgsearch-cli/internal/hydrate"
	"github.com/glabrego/imgsearch-cli/internal/messaging"
	"github.com/glabrego/imgsearch-cli/internal/search"
	"github.com/glabrego/imgsearch-cli/internal/session"
)

type ResultLookup interface {
	Get(ctx context.Context, cursor session.Cursor) (search.Result, error)
}

type OptionsSource interface {
	Options() config.Options
}

type Prober interface {
	Probe(ctx context.Context, url string)
	Width(ctx context.Context, url string) (int, error)
}

// HydrateFunc reveals items progressively; hydrate.Run is the default.
type HydrateFunc func(ctx context.Context, items []search.Item, batchSize int, prober hydrate.Prober, publish hydrate.PublishFunc) error

type Deps struct {
	Results  ResultLookup
	Options  OptionsSource
	Sender   messaging.Sender
	Prober   Prober
	Location session.Location
	Logger   zerolog.Logger
}

// Modal is the state of the full-size image viewer.
type Modal struct {
	ImageURL   string
	ImageWidth int
	Open       bool
}

// Snapshot is what subscribers see after every change.
type Snapshot struct {
	Cursor    session.Cursor
	HasCursor bool
	Result    search.Result
	Modal     Modal
	Loading   bool
	Err       error
	Revision  uint64
}

type Option func(*Store)

func WithBatchSize(n int) Option {
	return func(s *Store) { s.batchSize = n }
}

func WithHydrator(fn HydrateFunc) Option {
	return func(s *Store) { s.hydrate = fn }
}

type Store struct {
	deps      Deps
	log       zerolog.Logger
	batchSize int
	hydrate   HydrateFunc

	mu        sync.Mutex
	snap      Snapshot
	seq       uint64
	modalSeq  uint64
	observers map[int]func(Snapshot)
	nextObs   int

	// dispatchMu is taken before mu is released so observers see snapshots
	// in the order they were produced.
	dispatchMu sync.Mutex
}

func New(deps Deps, opts ...Option) *Store {
	s := &Store{
		deps:      deps,
		log:       deps.Logger.With().Str("component", "store").Logger(),
		batchSize: hydrate.DefaultBatchSize,
		hydrate:   hydrate.Run,
		observers: make(map[int]func(Snapshot)),
		snap: Snapshot{
			Modal: Modal{ImageWidth: config.DefaultModalWidth},
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start runs the initial update. Failures are published and logged.
func (s *Store) Start(ctx context.Context) {
	if err := s.UpdateResult(ctx, false); err != nil {
		s.log.Error().Err(err).Msg("initial update failed")
	}
}

// Subscribe registers fn to receive every published snapshot. fn runs on
// the publishing goroutine and must not call back into methods that
// publish.
func (s *Store) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.observers, id)
		s.mu.Unlock()
	}
}

func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

func (s *Store) Result() search.Result {
	return s.Snapshot().Result
}

// Cursor returns the session the store is currently showing. ok is false
// before the first update or after the location failed to parse.
func (s *Store) Cursor() (cursor session.Cursor, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap.Cursor, s.snap.HasCursor
}

// commitLocked bumps the revision and hands the snapshot to observers. It
// must be called with mu held and releases it.
func (s *Store) commitLocked() {
	s.snap.Revision++
	snap := s.snap
	observers := make([]func(Snapshot), 0, len(s.observers))
	for _, fn := range s.observers {
		observers = append(observers, fn)
	}

	s.dispatchMu.Lock()
	s.mu.Unlock()
	defer s.dispatchMu.Unlock()
	for _, fn := range observers {
		fn(snap)
	}
}
