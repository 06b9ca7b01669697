package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Nixie-Tech-LLC/beacon/internal/controller"
)

var controllerCmd = &cobra.Command{
	Use:   "controller",
	Short: "Run the controller that claims screens and pushes content to them",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadEnvironment()
		if err != nil {
			return err
		}
		if err := cfg.RequireController(); err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		b, err := openBackends(ctx, cfg)
		if err != nil {
			return err
		}
		defer b.Close()
		replicas, err := b.replicaStore()
		if err != nil {
			return err
		}

		svc := controller.NewService(replicas, controller.NewHTTPScreenClient(cfg.RequestTimeout), cfg.PublicURL, nil)

		r := newRouter()
		RegisterControllerRoutes(r, cfg, svc)
		return serve(ctx, cfg.ServerAddress, r)
	},
}
