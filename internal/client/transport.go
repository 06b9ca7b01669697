package client

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Nixie-Tech-LLC/beacon/internal/model"
)

// Frame is one unit read off a push stream. Keepalive frames carry no event.
type Frame struct {
	Event     model.PushEvent
	Keepalive bool
}

// Stream is an open push connection.
type Stream interface {
	Next(ctx context.Context) (Frame, error)
	Close() error
}

// Transport opens push connections to a screen.
type Transport interface {
	Connect(ctx context.Context) (Stream, error)
}

func decodeFrame(data []byte) (Frame, error) {
	var evt model.PushEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		return Frame{}, fmt.Errorf("%w: decode frame: %v", model.ErrChannel, err)
	}
	switch evt.Type {
	case model.EventKeepalive:
		return Frame{Keepalive: true}, nil
	case model.EventConnected, model.EventScreenUpdate:
		return Frame{Event: evt}, nil
	default:
		return Frame{}, fmt.Errorf("%w: unknown frame type %q", model.ErrChannel, evt.Type)
	}
}
