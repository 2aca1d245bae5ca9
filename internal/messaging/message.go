// Package messaging carries requests between the viewer and the background
// search process.
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/glabrego/imgsearch-cli/internal/session"
)

const (
	JobBeginImageSearch  = "beginImageSearch"
	JobImageResultUpdate = "image_result_update"
)

// Request is a job addressed to the other side of the channel.
type Request struct {
	Job   string          `json:"job"`
	Value json.RawMessage `json:"value,omitempty"`
}

// BeginImageSearch asks the background process to start a search.
type BeginImageSearch struct {
	Base64OrURL string `json:"base64OrUrl"`
}

// ResultUpdate tells the viewer that the stored result for Cursor changed.
type ResultUpdate struct {
	Cursor session.Cursor `json:"cursor"`
}

func NewRequest(job string, value any) (Request, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return Request{}, fmt.Errorf("encode %s value: %w", job, err)
	}
	return Request{Job: job, Value: raw}, nil
}

// Decode unmarshals the request value into v.
func (r Request) Decode(v any) error {
	if len(r.Value) == 0 {
		return fmt.Errorf("decode %s value: empty", r.Job)
	}
	if err := json.Unmarshal(r.Value, v); err != nil {
		return fmt.Errorf("decode %s value: %w", r.Job, err)
	}
	return nil
}

// Sender dispatches requests without waiting for a reply.
type Sender interface {
	Send(ctx context.Context, req Request) error
}

// Inbound is a received request that expects an acknowledgement.
type Inbound struct {
	Request
	once    *sync.Once
	respond func(any) error
}

func NewInbound(req Request, respond func(any) error) Inbound {
	return Inbound{Request: req, once: new(sync.Once), respond: respond}
}

// Respond answers the sender. Only the first call has an effect.
func (in Inbound) Respond(v any) error {
	if in.respond == nil {
		return nil
	}
	var err error
	in.once.Do(func() { err = in.respond(v) })
	return err
}
