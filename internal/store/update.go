package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/glabrego/imgsearch-cli/internal/search"
	"github.com/glabrego/imgsearch-cli/internal/session"
)

// ticket identifies one UpdateResult call. Only the newest ticket for the
// current cursor may publish.
type ticket struct {
	cursor session.Cursor
	seq    uint64
	log    zerolog.Logger
}

// UpdateResult loads the stored result for the current location and
// publishes it. A stored result that already has items is published as-is
// unless force is set or the preload_all_images option is on; otherwise its
// thumbnails are probed and the list is revealed batch by batch.
func (s *Store) UpdateResult(ctx context.Context, force bool) error {
	fragment := s.deps.Location.Fragment()
	cursor, err := session.ParseFragment(fragment)
	if err != nil {
		s.invalidate(err)
		return err
	}

	t := s.begin(cursor)
	t.log.Debug().Bool("force", force).Msg("update started")

	stored, err := s.deps.Results.Get(ctx, cursor)
	if err != nil {
		err = fmt.Errorf("load result for cursor %d: %w", cursor, err)
		s.fail(t, err)
		return err
	}

	opts := s.deps.Options.Options()
	if !force && !opts.PreloadAllImages && len(stored.SearchResult) > 0 {
		s.publish(t, stored, true)
		t.log.Debug().Int("items", len(stored.SearchResult)).Msg("published stored result")
		return nil
	}

	items := stored.SearchResult
	batch := 0
	err = s.hydrate(ctx, items, s.batchSize, s.deps.Prober, func(revealed []search.Item) bool {
		batch++
		ok := s.publish(t, stored.WithItems(revealed), len(revealed) == len(items))
		t.log.Debug().Int("batch", batch).Int("revealed", len(revealed)).Bool("published", ok).Msg("hydrated batch")
		return ok
	})
	if err != nil {
		err = fmt.Errorf("hydrate cursor %d: %w", cursor, err)
		s.fail(t, err)
		return err
	}
	if len(items) == 0 {
		s.publish(t, stored, true)
	}
	return nil
}

// begin makes cursor current and supersedes every earlier update.
func (s *Store) begin(cursor session.Cursor) ticket {
	s.mu.Lock()
	s.seq++
	if !s.snap.HasCursor || s.snap.Cursor != cursor {
		s.snap.Result = search.Result{}
	}
	s.snap.Cursor = cursor
	s.snap.HasCursor = true
	s.snap.Loading = true
	s.snap.Err = nil
	t := ticket{
		cursor: cursor,
		seq:    s.seq,
		log: s.log.With().
			Int64("cursor", int64(cursor)).
			Str("run", uuid.NewString()).
			Logger(),
	}
	s.commitLocked()
	return t
}

func (s *Store) currentLocked(t ticket) bool {
	return s.snap.HasCursor && s.snap.Cursor == t.cursor && s.seq == t.seq
}

// publish replaces the current result if t is still the newest update.
func (s *Store) publish(t ticket, result search.Result, done bool) bool {
	s.mu.Lock()
	if !s.currentLocked(t) {
		s.mu.Unlock()
		t.log.Debug().Msg("discarding superseded result")
		return false
	}
	s.snap.Result = result
	s.snap.Loading = !done
	s.snap.Err = nil
	s.commitLocked()
	return true
}

func (s *Store) fail(t ticket, err error) {
	s.mu.Lock()
	if !s.currentLocked(t) {
		s.mu.Unlock()
		t.log.Debug().Err(err).Msg("discarding superseded failure")
		return
	}
	s.snap.Loading = false
	s.snap.Err = err
	s.commitLocked()
	t.log.Warn().Err(err).Msg("update failed")
}

// invalidate drops the current session after the location stopped naming one.
func (s *Store) invalidate(err error) {
	s.mu.Lock()
	s.seq++
	s.snap.HasCursor = false
	s.snap.Cursor = 0
	s.snap.Result = search.Result{}
	s.snap.Loading = false
	s.snap.Err = err
	s.commitLocked()
	s.log.Warn().Err(err).Msg("location does not name a session")
}
