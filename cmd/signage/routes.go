package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/beacon/internal/config"
	"github.com/Nixie-Tech-LLC/beacon/internal/controller"
	"github.com/Nixie-Tech-LLC/beacon/internal/http/api"
	authapi "github.com/Nixie-Tech-LLC/beacon/internal/http/api/admin/auth/endpoints"
	adminapi "github.com/Nixie-Tech-LLC/beacon/internal/http/api/admin/endpoints"
	screenapi "github.com/Nixie-Tech-LLC/beacon/internal/http/api/tv/endpoints"
	"github.com/Nixie-Tech-LLC/beacon/internal/pairing"
	"github.com/Nixie-Tech-LLC/beacon/internal/screen"
)

const shutdownTimeout = 5 * time.Second

func newRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool { return true },
		AllowMethods: []string{
			"GET",
			"POST",
			"PUT",
			"DELETE",
			"OPTIONS",
			"HEAD",
		},
		AllowHeaders: []string{
			"Origin",
			"Content-Type",
			"Authorization",
			"Accept",
		},
		ExposeHeaders: []string{
			"Content-Length",
		},
		AllowCredentials: false,
	}))
	return r
}

// RegisterScreenRoutes sets up the screen API at the root.
func RegisterScreenRoutes(r *gin.Engine, state *screen.State, pairingSvc *pairing.Service, opts screenapi.Options) {
	api.MountGroup(r, api.GroupConfig{},
		screenapi.ScreenModule(state, pairingSvc, opts),
	)
}

// RegisterControllerRoutes sets up the operator API and the registry
// endpoints screens call back to.
func RegisterControllerRoutes(r *gin.Engine, cfg *config.Config, svc *controller.Service) {
	api.MountGroup(r, api.GroupConfig{
		Prefix: "/api/admin",
		Auth:   false,
	},
		authapi.AuthPublicModule(cfg.JWTSecret, cfg.AdminPasswordHash),
	)

	api.MountGroup(r, api.GroupConfig{
		Prefix:    "/api/admin",
		Auth:      true,
		SecretKey: cfg.JWTSecret,
	},
		adminapi.ScreensModule(svc),
		authapi.AuthSessionModule(cfg.JWTSecret, cfg.AdminPasswordHash),
	)

	api.MountGroup(r, api.GroupConfig{
		Prefix: "/api",
	},
		adminapi.RegistryModule(svc),
	)
}

// serve runs handler on addr until ctx is cancelled. onShutdown runs as soon
// as shutdown starts so long-lived streams can end.
func serve(ctx context.Context, addr string, handler http.Handler, onShutdown ...func()) error {
	srv := &http.Server{Addr: addr, Handler: handler}
	for _, f := range onShutdown {
		srv.RegisterOnShutdown(f)
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("address", addr).Msg("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	log.Info().Msg("server stopped")
	return nil
}
