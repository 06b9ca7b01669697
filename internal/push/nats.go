package push

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/beacon/internal/model"
)

// NATSMirror publishes events to screens.<screenId>.events.
type NATSMirror struct {
	nc *nats.Conn
}

var _ Mirror = (*NATSMirror)(nil)

// NATSSubject is the subject a screen's events are mirrored to.
func NATSSubject(screenID string) string {
	return fmt.Sprintf("screens.%s.events", screenID)
}

func NewNATSMirror(url string) (*NATSMirror, error) {
	opts := []nats.Option{
		nats.Name("signage-screen"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	log.Info().Str("url", url).Msg("connected to NATS")
	return &NATSMirror{nc: nc}, nil
}

func (m *NATSMirror) Publish(_ context.Context, evt model.PushEvent) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	return m.nc.Publish(NATSSubject(evt.ScreenID), payload)
}

func (m *NATSMirror) Close() {
	if err := m.nc.Drain(); err != nil {
		m.nc.Close()
	}
}
