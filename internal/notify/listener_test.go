package notify

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glabrego/imgsearch-cli/internal/messaging"
	"github.com/glabrego/imgsearch-cli/internal/session"
)

type fakeStore struct {
	cursor    session.Cursor
	hasCursor bool
	updates   int
	forced    int
	err       error
	acked     *bool
}

func (f *fakeStore) Cursor() (session.Cursor, bool) {
	return f.cursor, f.hasCursor
}

func (f *fakeStore) UpdateResult(_ context.Context, force bool) error {
	if f.acked != nil && !*f.acked {
		panic("update ran before the notification was acknowledged")
	}
	f.updates++
	if force {
		f.forced++
	}
	return f.err
}

func updateFor(t *testing.T, cursor session.Cursor, acked *bool) messaging.Inbound {
	t.Helper()
	req, err := messaging.NewRequest(messaging.JobImageResultUpdate, messaging.ResultUpdate{Cursor: cursor})
	require.NoError(t, err)
	return messaging.NewInbound(req, func(v any) error {
		assert.Nil(t, v)
		*acked = true
		return nil
	})
}

func TestHandle_CurrentCursorTriggersOneUpdate(t *testing.T) {
	acked := false
	store := &fakeStore{cursor: 7, hasCursor: true, acked: &acked}
	l := NewListener(store, zerolog.Nop())

	l.Handle(context.Background(), updateFor(t, 7, &acked))

	assert.True(t, acked)
	assert.Equal(t, 1, store.updates)
	assert.Zero(t, store.forced)
}

func TestHandle_OtherCursorIsAcknowledgedButIgnored(t *testing.T) {
	acked := false
	store := &fakeStore{cursor: 7, hasCursor: true}
	l := NewListener(store, zerolog.Nop())

	l.Handle(context.Background(), updateFor(t, 3, &acked))

	assert.True(t, acked)
	assert.Zero(t, store.updates)
}

func TestHandle_NoCurrentSession(t *testing.T) {
	acked := false
	store := &fakeStore{cursor: 0, hasCursor: false}
	l := NewListener(store, zerolog.Nop())

	l.Handle(context.Background(), updateFor(t, 0, &acked))

	assert.True(t, acked)
	assert.Zero(t, store.updates)
}

func TestHandle_UnknownJobAndMalformedValue(t *testing.T) {
	store := &fakeStore{cursor: 7, hasCursor: true}
	l := NewListener(store, zerolog.Nop())

	acks := 0
	respond := func(any) error { acks++; return nil }
	l.Handle(context.Background(), messaging.NewInbound(messaging.Request{Job: "other"}, respond))
	l.Handle(context.Background(), messaging.NewInbound(messaging.Request{Job: messaging.JobImageResultUpdate, Value: []byte(`"seven"`)}, respond))

	assert.Equal(t, 2, acks)
	assert.Zero(t, store.updates)
}

func TestHandle_UpdateErrorIsNotFatal(t *testing.T) {
	acked := false
	store := &fakeStore{cursor: 7, hasCursor: true, err: errors.New("not found")}
	l := NewListener(store, zerolog.Nop())

	assert.NotPanics(t, func() { l.Handle(context.Background(), updateFor(t, 7, &acked)) })
	assert.Equal(t, 1, store.updates)
}

func TestRun_DrainsBus(t *testing.T) {
	bus := messaging.NewBus(0)
	store := &fakeStore{cursor: 7, hasCursor: true}
	l := NewListener(store, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx, bus.Incoming()) }()

	for _, c := range []session.Cursor{3, 7, 9} {
		req, err := messaging.NewRequest(messaging.JobImageResultUpdate, messaging.ResultUpdate{Cursor: c})
		require.NoError(t, err)
		_, err = bus.Deliver(ctx, req)
		require.NoError(t, err)
	}
	bus.Close()
	require.NoError(t, <-done)

	assert.Equal(t, 1, store.updates)
}

type blockingStore struct {
	started chan struct{}
	release chan struct{}
	calls   atomic.Int32
}

func (b *blockingStore) Cursor() (session.Cursor, bool) {
	return 7, true
}

func (b *blockingStore) UpdateResult(ctx context.Context, _ bool) error {
	b.calls.Add(1)
	b.started <- struct{}{}
	select {
	case <-b.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func TestRun_AcknowledgesWhileRefreshInFlight(t *testing.T) {
	bus := messaging.NewBus(0)
	store := &blockingStore{started: make(chan struct{}, 2), release: make(chan struct{})}
	l := NewListener(store, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx, bus.Incoming()) }()

	req, err := messaging.NewRequest(messaging.JobImageResultUpdate, messaging.ResultUpdate{Cursor: 7})
	require.NoError(t, err)

	_, err = bus.Deliver(ctx, req)
	require.NoError(t, err)
	<-store.started

	ackCtx, ackCancel := context.WithTimeout(ctx, time.Second)
	defer ackCancel()
	_, err = bus.Deliver(ackCtx, req)
	require.NoError(t, err, "second notification must be acknowledged while the first refresh is blocked")

	// both refreshes run concurrently; the store's tickets decide which publishes
	<-store.started
	assert.EqualValues(t, 2, store.calls.Load())

	close(store.release)
	bus.Close()
	require.NoError(t, <-done)
}
