package push

import (
	"io"
	"net/http"

	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const keepaliveComment = ":keepalive\n\n"

// ServeSSE streams sub to the client as server-sent events until the client
// goes away or the subscription ends. This goroutine is the only writer on
// the response. Events are sent as unnamed "data:" frames carrying JSON.
func ServeSSE(c *gin.Context, sub *Subscription, cfg StreamConfig) {
	defer sub.Close()

	header := c.Writer.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	ticker := cfg.clock().NewTicker(cfg.keepalive())
	defer ticker.Stop()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("subscription_id", sub.ID).Msg("sse client disconnected")
			return
		case evt, ok := <-sub.Events():
			if !ok {
				return
			}
			if err := sse.Encode(c.Writer, sse.Event{Data: evt}); err != nil {
				log.Warn().Err(err).Str("subscription_id", sub.ID).Msg("failed to write sse event")
				return
			}
			c.Writer.Flush()
		case <-ticker.Chan():
			if _, err := io.WriteString(c.Writer, keepaliveComment); err != nil {
				return
			}
			c.Writer.Flush()
		}
	}
}
