package pairing

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/beacon/internal/http/api/tv/packets"
	"github.com/Nixie-Tech-LLC/beacon/internal/httpclient"
	"github.com/Nixie-Tech-LLC/beacon/internal/model"
	"github.com/Nixie-Tech-LLC/beacon/internal/screen"
)

// Reservations is the part of the credential issuer pairing needs.
type Reservations interface {
	Reserve(ctx context.Context, identity model.Identity) (bool, error)
	Release(ctx context.Context, identity model.Identity) error
	RotatePIN(ctx context.Context, screenID string) (model.Identity, error)
}

// Service runs the screen side of the pairing handshake.
type Service struct {
	state        *screen.State
	reservations Reservations
	timeout      time.Duration
}

func NewService(state *screen.State, reservations Reservations, timeout time.Duration) *Service {
	return &Service{state: state, reservations: reservations, timeout: timeout}
}

// Start re-holds the identity of an unclaimed screen after a restart.
func (s *Service) Start(ctx context.Context) error {
	current, err := s.state.Current()
	if err != nil {
		return err
	}
	if current.Registered {
		return nil
	}
	return s.hold(ctx, current.Identity)
}

// Claim registers the screen with the controller named in req.
func (s *Service) Claim(ctx context.Context, req packets.ClaimRequest) (model.Screen, error) {
	claimed, err := s.state.ApplyRegistration(ctx, req.PIN, req.ScreenID, req.ControllerURL)
	if err != nil {
		return model.Screen{}, err
	}
	log.Info().
		Str("screen_id", claimed.ScreenID).
		Str("controller_url", req.ControllerURL).
		Msg("screen claimed")

	// the claim is already persisted; a stale reservation only costs a PIN
	if err := s.reservations.Release(ctx, claimed.Identity); err != nil {
		log.Warn().Err(err).Str("screen_id", claimed.ScreenID).Msg("could not release pairing reservation")
	}
	return claimed, nil
}

// Release unregisters the screen and puts its identity back up for pairing.
func (s *Service) Release(ctx context.Context, screenID string) (model.Screen, error) {
	released, err := s.state.Reset(ctx, screenID)
	if err != nil {
		return model.Screen{}, err
	}
	log.Info().Str("screen_id", released.ScreenID).Msg("screen released")

	if err := s.hold(ctx, released.Identity); err != nil {
		log.Warn().Err(err).Str("screen_id", released.ScreenID).Msg("could not re-reserve identity")
		return released, nil
	}
	return s.state.Current()
}

// VerifyPresence reports whether the screen is operational. A registered
// screen asks its controller whether it still knows about it and resets
// itself when the controller answers 404. Any other lookup failure falls back
// to the local registration flag.
func (s *Service) VerifyPresence(ctx context.Context) bool {
	current, err := s.state.Current()
	if err != nil {
		return false
	}
	if !current.Registered || current.ControllerURL == nil {
		return false
	}

	client := httpclient.New(*current.ControllerURL, s.timeout)
	var replica model.Replica
	err = client.Get(ctx, "/api/screens/"+url.PathEscape(current.ScreenID), &replica)
	switch {
	case err == nil:
		return true
	case httpclient.IsStatus(err, http.StatusNotFound):
		log.Warn().
			Str("screen_id", current.ScreenID).
			Str("controller_url", *current.ControllerURL).
			Msg("controller no longer knows this screen, resetting")
		if _, err := s.Release(ctx, current.ScreenID); err != nil {
			log.Error().Err(err).Str("screen_id", current.ScreenID).Msg("self-healing reset failed")
			return current.Registered
		}
		return false
	default:
		log.Warn().Err(err).Str("screen_id", current.ScreenID).Msg("controller lookup failed, using local state")
		return current.Registered
	}
}

// hold reserves identity, rotating the PIN when another screen took it.
func (s *Service) hold(ctx context.Context, identity model.Identity) error {
	ok, err := s.reservations.Reserve(ctx, identity)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}

	rotated, err := s.reservations.RotatePIN(ctx, identity.ScreenID)
	if err != nil {
		return err
	}
	if _, err := s.state.ReplaceIdentity(ctx, rotated); err != nil {
		if relErr := s.reservations.Release(ctx, rotated); relErr != nil {
			log.Warn().Err(relErr).Str("screen_id", rotated.ScreenID).Msg("could not release rotated pin")
		}
		return err
	}
	log.Info().Str("screen_id", rotated.ScreenID).Str("pin", rotated.PIN).Msg("rotated pin after collision")
	return nil
}
