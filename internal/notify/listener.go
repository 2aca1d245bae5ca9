// Package notify reacts to result-update notifications from the background
// search process.
package notify

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/glabrego/imgsearch-cli/internal/messaging"
	"github.com/glabrego/imgsearch-cli/internal/session"
)

type Store interface {
	Cursor() (session.Cursor, bool)
	UpdateResult(ctx context.Context, force bool) error
}

type Listener struct {
	store Store
	log   zerolog.Logger
}

func NewListener(store Store, log zerolog.Logger) *Listener {
	return &Listener{store: store, log: log.With().Str("component", "notify").Logger()}
}

// Run handles inbound messages until ctx ends or in is closed. Every message
// is acknowledged on arrival; refreshes run concurrently and Run waits for
// them before returning.
func (l *Listener) Run(ctx context.Context, in <-chan messaging.Inbound) error {
	var wg sync.WaitGroup
	defer wg.Wait()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-in:
			if !ok {
				return nil
			}
			cursor, refresh := l.accept(msg)
			if !refresh {
				continue
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				l.refresh(ctx, cursor)
			}()
		}
	}
}

// Handle acknowledges msg and, when it announces new results for the session
// being viewed, refreshes the store before returning. Notifications for other
// sessions are dropped.
func (l *Listener) Handle(ctx context.Context, msg messaging.Inbound) {
	if cursor, refresh := l.accept(msg); refresh {
		l.refresh(ctx, cursor)
	}
}

// accept acknowledges msg and reports whether it names the current session.
func (l *Listener) accept(msg messaging.Inbound) (session.Cursor, bool) {
	if err := msg.Respond(nil); err != nil {
		l.log.Warn().Err(err).Str("job", msg.Job).Msg("acknowledge failed")
	}

	if msg.Job != messaging.JobImageResultUpdate {
		l.log.Debug().Str("job", msg.Job).Msg("ignoring message")
		return 0, false
	}

	var update messaging.ResultUpdate
	if err := msg.Decode(&update); err != nil {
		l.log.Warn().Err(err).Msg("malformed result update")
		return 0, false
	}

	current, ok := l.store.Cursor()
	if !ok || current != update.Cursor {
		l.log.Debug().
			Int64("cursor", int64(update.Cursor)).
			Int64("current", int64(current)).
			Msg("dropping update for another session")
		return 0, false
	}
	return update.Cursor, true
}

func (l *Listener) refresh(ctx context.Context, cursor session.Cursor) {
	if err := l.store.UpdateResult(ctx, false); err != nil {
		l.log.Error().Err(err).Int64("cursor", int64(cursor)).Msg("refresh after notification failed")
	}
}
