package push

import (
	"time"

	"github.com/jonboulle/clockwork"
)

const DefaultKeepalive = 20 * time.Second

// StreamConfig controls the HTTP stream writers.
type StreamConfig struct {
	Keepalive time.Duration
	Clock     clockwork.Clock
}

func (c StreamConfig) keepalive() time.Duration {
	if c.Keepalive <= 0 {
		return DefaultKeepalive
	}
	return c.Keepalive
}

func (c StreamConfig) clock() clockwork.Clock {
	if c.Clock == nil {
		return clockwork.NewRealClock()
	}
	return c.Clock
}
