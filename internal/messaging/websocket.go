package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"
)

const (
	frameRequest  = "request"
	frameResponse = "response"
)

type frame struct {
	Type     string          `json:"type"`
	ID       string          `json:"id,omitempty"`
	Job      string          `json:"job,omitempty"`
	Value    json.RawMessage `json:"value,omitempty"`
	Response any             `json:"response"`
}

// WSClient talks to the background search process over a websocket.
type WSClient struct {
	conn     *websocket.Conn
	incoming chan Inbound
	log      zerolog.Logger
}

func Dial(ctx context.Context, url string, log zerolog.Logger) (*WSClient, error) {
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial background %s: %w", url, err)
	}
	return &WSClient{
		conn:     conn,
		incoming: make(chan Inbound, 16),
		log:      log.With().Str("component", "ws").Logger(),
	}, nil
}

func (c *WSClient) Send(ctx context.Context, req Request) error {
	err := wsjson.Write(ctx, c.conn, frame{Type: frameRequest, Job: req.Job, Value: req.Value})
	if err != nil {
		return fmt.Errorf("send %s: %w", req.Job, err)
	}
	return nil
}

func (c *WSClient) Incoming() <-chan Inbound {
	return c.incoming
}

// Run reads frames until ctx ends or the connection closes. Incoming is
// closed when Run returns.
func (c *WSClient) Run(ctx context.Context) error {
	defer close(c.incoming)
	for {
		var f frame
		if err := wsjson.Read(ctx, c.conn, &f); err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure || errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("read frame: %w", err)
		}
		if f.Type != frameRequest {
			c.log.Debug().Str("type", f.Type).Msg("ignoring frame")
			continue
		}

		id := f.ID
		in := NewInbound(Request{Job: f.Job, Value: f.Value}, func(v any) error {
			return wsjson.Write(ctx, c.conn, frame{Type: frameResponse, ID: id, Response: v})
		})
		select {
		case c.incoming <- in:
		case <-ctx.Done():
			return nil
		}
	}
}

func (c *WSClient) Close() error {
	return c.conn.Close(websocket.StatusNormalClosure, "")
}
