package messaging

import (
	"context"
	"sync"
)

// Bus is an in-process channel pair, used when no background process is
// attached and in tests.
type Bus struct {
	mu       sync.Mutex
	sent     []Request
	onSend   func(Request)
	incoming chan Inbound
}

func NewBus(buffer int) *Bus {
	return &Bus{incoming: make(chan Inbound, buffer)}
}

// OnSend registers fn to observe every outbound request.
func (b *Bus) OnSend(fn func(Request)) {
	b.mu.Lock()
	b.onSend = fn
	b.mu.Unlock()
}

func (b *Bus) Send(ctx context.Context, req Request) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	b.sent = append(b.sent, req)
	fn := b.onSend
	b.mu.Unlock()
	if fn != nil {
		fn(req)
	}
	return nil
}

// Sent returns a copy of every request sent so far.
func (b *Bus) Sent() []Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Request(nil), b.sent...)
}

func (b *Bus) Incoming() <-chan Inbound {
	return b.incoming
}

// Deliver hands req to the inbound side and waits for its acknowledgement.
func (b *Bus) Deliver(ctx context.Context, req Request) (any, error) {
	acks := make(chan any, 1)
	in := NewInbound(req, func(v any) error {
		acks <- v
		return nil
	})

	select {
	case b.incoming <- in:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case v := <-acks:
		return v, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close stops inbound delivery. Deliver must not be called afterwards.
func (b *Bus) Close() {
	close(b.incoming)
}
