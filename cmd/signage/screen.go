package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Nixie-Tech-LLC/beacon/internal/config"
	"github.com/Nixie-Tech-LLC/beacon/internal/credentials"
	screenapi "github.com/Nixie-Tech-LLC/beacon/internal/http/api/tv/endpoints"
	"github.com/Nixie-Tech-LLC/beacon/internal/pairing"
	"github.com/Nixie-Tech-LLC/beacon/internal/push"
	"github.com/Nixie-Tech-LLC/beacon/internal/screen"
)

var screenCmd = &cobra.Command{
	Use:   "screen",
	Short: "Run a screen: its identity, pairing and push channel",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadEnvironment()
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return runScreen(ctx, cfg)
	},
}

func runScreen(ctx context.Context, cfg *config.Config) error {
	b, err := openBackends(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	hub := push.NewHub(cfg.Push.SubscriberBuffer, openMirrors(cfg)...)
	defer hub.Close()

	issuer := credentials.NewIssuer(b.registry())
	state := screen.New(b.screenStore(), issuer, hub, nil)
	defer state.Close()

	// without an identity there is nothing to serve
	current, err := state.Load(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("could not load screen identity")
	}
	log.Info().
		Str("screen_id", current.ScreenID).
		Bool("registered", current.Registered).
		Msg("screen loaded")

	pairingSvc := pairing.NewService(state, issuer, cfg.RequestTimeout)
	if err := pairingSvc.Start(ctx); err != nil {
		log.Warn().Err(err).Msg("could not reserve pairing identity")
	}

	r := newRouter()
	RegisterScreenRoutes(r, state, pairingSvc, screenapi.Options{
		PublicURL:     cfg.PublicURL,
		ControllerURL: cfg.ControllerURL,
		Stream:        push.StreamConfig{Keepalive: cfg.Push.KeepaliveInterval},
	})
	return serve(ctx, cfg.ServerAddress, r, hub.Close)
}

// openMirrors connects the optional brokers events are republished to. A
// broker that cannot be reached is skipped.
func openMirrors(cfg *config.Config) []push.Mirror {
	var mirrors []push.Mirror
	if cfg.MQTTBrokerURL != "" {
		m, err := push.NewMQTTMirror(cfg.MQTTBrokerURL, "beacon-screen-"+uuid.NewString())
		if err != nil {
			log.Error().Err(err).Str("broker", cfg.MQTTBrokerURL).Msg("mqtt mirror disabled")
		} else {
			mirrors = append(mirrors, m)
		}
	}
	if cfg.NATSURL != "" {
		m, err := push.NewNATSMirror(cfg.NATSURL)
		if err != nil {
			log.Error().Err(err).Str("url", cfg.NATSURL).Msg("nats mirror disabled")
		} else {
			mirrors = append(mirrors, m)
		}
	}
	return mirrors
}
