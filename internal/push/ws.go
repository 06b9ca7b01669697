package push

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/beacon/internal/model"
)

const (
	writeTimeout   = 10 * time.Second
	maxMessageSize = 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// screens are reached from kiosk browsers on arbitrary origins
	CheckOrigin: func(*http.Request) bool { return true },
}

type keepaliveFrame struct {
	Type model.EventType `json:"type"`
}

// ServeWS upgrades the request and streams sub as JSON text frames. It blocks
// until the connection or the subscription ends.
func ServeWS(w http.ResponseWriter, r *http.Request, sub *Subscription, cfg StreamConfig) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		sub.Close()
		log.Error().Err(err).Msg("failed to upgrade WebSocket connection")
		return err
	}

	log.Info().
		Str("subscription_id", sub.ID).
		Str("screen_id", sub.ScreenID).
		Msg("WebSocket connection established")

	closed := make(chan struct{})
	go readPump(conn, sub.ID, closed)
	writePump(conn, sub, cfg, closed)
	return nil
}

// writePump owns every write on conn.
func writePump(conn *websocket.Conn, sub *Subscription, cfg StreamConfig, closed <-chan struct{}) {
	ticker := cfg.clock().NewTicker(cfg.keepalive())
	defer func() {
		ticker.Stop()
		sub.Close()
		conn.Close()
	}()

	for {
		select {
		case <-closed:
			return
		case evt, ok := <-sub.Events():
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteJSON(evt); err != nil {
				log.Error().Err(err).Str("subscription_id", sub.ID).Msg("failed to write message to WebSocket")
				return
			}
		case <-ticker.Chan():
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(keepaliveFrame{Type: model.EventKeepalive}); err != nil {
				log.Error().Err(err).Str("subscription_id", sub.ID).Msg("failed to send keepalive")
				return
			}
		}
	}
}

// readPump drains client frames so close and control frames are processed.
func readPump(conn *websocket.Conn, id string, closed chan<- struct{}) {
	defer close(closed)
	conn.SetReadLimit(maxMessageSize)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("subscription_id", id).Msg("unexpected WebSocket close error")
			}
			return
		}
	}
}
