package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Nixie-Tech-LLC/beacon/internal/client"
	"github.com/Nixie-Tech-LLC/beacon/internal/config"
	"github.com/Nixie-Tech-LLC/beacon/internal/presentation"
)

var _ client.Handler = (*presentation.Engine)(nil)

var displayCmd = &cobra.Command{
	Use:   "display",
	Short: "Follow a screen's push channel and present its content",
	Long:  "Follow a screen's push channel and present its content. SIGHUP skips the current backoff and reconnects right away.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadEnvironment()
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return runDisplay(ctx, cfg)
	},
}

func runDisplay(ctx context.Context, cfg *config.Config) error {
	engine := newDisplayEngine(cfg, nil)

	var transport client.Transport
	switch cfg.Transport {
	case "ws", "websocket":
		transport = client.NewWSTransport(cfg.ScreenURL, cfg.RequestTimeout)
	default:
		transport = client.NewSSETransport(cfg.ScreenURL, cfg.RequestTimeout)
	}

	c := client.New(transport, client.NewHTTPStatusSource(cfg.ScreenURL, cfg.RequestTimeout), engine, client.Config{
		BaseDelay:         cfg.Reconnect.BaseDelay,
		MaxAttempts:       cfg.Reconnect.MaxAttempts,
		ReinitDelay:       cfg.Reconnect.ReinitDelay,
		KeepaliveInterval: cfg.Push.KeepaliveInterval,
		MissedKeepalives:  cfg.Reconnect.MissedKeepalives,
	})
	c.OnStateChange = func(s client.State) {
		log.Debug().Str("state", s.String()).Msg("push connection state")
	}

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				log.Info().Msg("reconnect requested")
				c.Reset()
			}
		}
	}()

	go func() {
		if err := engine.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("presentation stopped")
		}
	}()

	log.Info().Str("screen_url", cfg.ScreenURL).Str("transport", cfg.Transport).Msg("display starting")
	if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// newDisplayEngine builds the engine behind the log renderer. The renderer
// never reports playback, so video slides advance on VideoDuration.
func newDisplayEngine(cfg *config.Config, clock clockwork.Clock) *presentation.Engine {
	return presentation.NewEngine(presentation.LogRenderer{}, presentation.Config{
		SlideDwell:    cfg.Presentation.SlideDwell,
		ListInterval:  cfg.Presentation.ListInterval,
		VideoDuration: cfg.Presentation.VideoDuration,
		Clock:         clock,
	})
}
