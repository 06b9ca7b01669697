package client

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Nixie-Tech-LLC/beacon/internal/model"
)

// WSTransport reads GET /ws.
type WSTransport struct {
	url    string
	dialer *websocket.Dialer
}

var _ Transport = (*WSTransport)(nil)

func NewWSTransport(baseURL string, handshakeTimeout time.Duration) *WSTransport {
	url := strings.TrimRight(baseURL, "/") + "/ws"
	switch {
	case strings.HasPrefix(url, "https://"):
		url = "wss://" + strings.TrimPrefix(url, "https://")
	case strings.HasPrefix(url, "http://"):
		url = "ws://" + strings.TrimPrefix(url, "http://")
	}
	return &WSTransport{
		url:    url,
		dialer: &websocket.Dialer{HandshakeTimeout: handshakeTimeout},
	}
}

func (t *WSTransport) Connect(ctx context.Context) (Stream, error) {
	conn, _, err := t.dialer.DialContext(ctx, t.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", t.url, err)
	}
	return &wsStream{conn: conn}, nil
}

type wsStream struct {
	conn *websocket.Conn
}

func (s *wsStream) Next(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}
	_, data, err := s.conn.ReadMessage()
	if err != nil {
		return Frame{}, fmt.Errorf("%w: read websocket: %v", model.ErrChannel, err)
	}
	return decodeFrame(data)
}

func (s *wsStream) Close() error {
	return s.conn.Close()
}
