package controller

import (
	"context"
	"errors"
	"strings"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/beacon/internal/db"
	"github.com/Nixie-Tech-LLC/beacon/internal/http/api/tv/packets"
	"github.com/Nixie-Tech-LLC/beacon/internal/model"
)

// Service keeps the controller's registry of claimed screens and relays
// operator actions to them.
type Service struct {
	store     db.ReplicaStore
	screens   ScreenClient
	publicURL string
	clock     clockwork.Clock
}

func NewService(store db.ReplicaStore, screens ScreenClient, publicURL string, clock clockwork.Clock) *Service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Service{
		store:     store,
		screens:   screens,
		publicURL: strings.TrimRight(publicURL, "/"),
		clock:     clock,
	}
}

// Claim asks the screen at screenURL to register with this controller and
// records it on success.
func (s *Service) Claim(ctx context.Context, screenURL, pin, screenID string) (model.Replica, error) {
	screenURL = strings.TrimRight(screenURL, "/")
	if screenURL == "" || pin == "" || screenID == "" {
		return model.Replica{}, model.ErrMissingFields
	}

	err := s.screens.Claim(ctx, screenURL, packets.ClaimRequest{
		PIN:           strings.ToUpper(pin),
		ScreenID:      screenID,
		ControllerURL: s.publicURL,
	})
	if err != nil {
		log.Warn().Err(err).Str("screen_id", screenID).Str("screen_url", screenURL).Msg("claim rejected")
		return model.Replica{}, err
	}

	replica := model.Replica{
		ScreenID:      screenID,
		Registered:    true,
		ScreenURL:     screenURL,
		ControllerURL: s.publicURL,
		ClaimedAt:     s.clock.Now(),
	}
	if err := s.store.UpsertReplica(ctx, replica); err != nil {
		return model.Replica{}, err
	}
	// a re-claim keeps the name the operator gave the screen
	if stored, err := s.store.GetReplica(ctx, screenID); err == nil {
		replica = stored
	}
	log.Info().Str("screen_id", screenID).Str("screen_url", screenURL).Msg("screen claimed")
	return replica, nil
}

// Release unregisters a screen. The replica is dropped even when the screen
// cannot be reached, so its next presence check resets it.
func (s *Service) Release(ctx context.Context, screenID string) error {
	replica, err := s.store.GetReplica(ctx, screenID)
	if err != nil {
		return err
	}
	if err := s.screens.Release(ctx, replica.ScreenURL, screenID); err != nil {
		if !errors.Is(err, model.ErrChannel) && !errors.Is(err, model.ErrInvalidScreenID) {
			return err
		}
		log.Warn().Err(err).Str("screen_id", screenID).Msg("screen did not acknowledge release")
	}
	if err := s.store.DeleteReplica(ctx, screenID); err != nil {
		return err
	}
	log.Info().Str("screen_id", screenID).Msg("screen released")
	return nil
}

// PushContent replaces the slides shown on a claimed screen.
func (s *Service) PushContent(ctx context.Context, screenID string, slides []model.Slide) error {
	replica, err := s.store.GetReplica(ctx, screenID)
	if err != nil {
		return err
	}
	if slides == nil {
		slides = []model.Slide{}
	}
	return s.screens.PushContent(ctx, replica.ScreenURL, screenID, slides)
}

// Rename sets the screen's display name on the screen and in the registry.
func (s *Service) Rename(ctx context.Context, screenID, name string) (model.Replica, error) {
	if name == "" {
		return model.Replica{}, model.ErrMissingFields
	}
	replica, err := s.store.GetReplica(ctx, screenID)
	if err != nil {
		return model.Replica{}, err
	}
	if err := s.screens.Rename(ctx, replica.ScreenURL, screenID, name); err != nil {
		return model.Replica{}, err
	}
	replica.Name = &name
	if err := s.store.UpsertReplica(ctx, replica); err != nil {
		return model.Replica{}, err
	}
	return replica, nil
}

func (s *Service) Lookup(ctx context.Context, screenID string) (model.Replica, error) {
	return s.store.GetReplica(ctx, screenID)
}

func (s *Service) List(ctx context.Context) ([]model.Replica, error) {
	return s.store.ListReplicas(ctx)
}
