package screen

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/beacon/internal/db"
	"github.com/Nixie-Tech-LLC/beacon/internal/model"
	"github.com/Nixie-Tech-LLC/beacon/internal/push"
)

var ErrNotLoaded = errors.New("screen state not loaded")

// IdentitySource hands out a fresh identity on first boot.
type IdentitySource interface {
	Issue(ctx context.Context) (model.Identity, error)
}

// State is the single owner of the screen record. Every read and mutation
// goes through its lock, and every successful mutation is persisted before
// it becomes visible and is broadcast on the hub.
type State struct {
	mu     sync.Mutex
	store  db.ScreenStore
	issuer IdentitySource
	hub    *push.Hub
	clock  clockwork.Clock

	screen    model.Screen
	loaded    bool
	scheduled map[clockwork.Timer]struct{}
}

func New(store db.ScreenStore, issuer IdentitySource, hub *push.Hub, clock clockwork.Clock) *State {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &State{
		store:     store,
		issuer:    issuer,
		hub:       hub,
		clock:     clock,
		scheduled: make(map[clockwork.Timer]struct{}),
	}
}

// Load reads the persisted screen, or issues and persists a new identity when
// there is none. Only the first call does any work.
func (s *State) Load(ctx context.Context) (model.Screen, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loaded {
		return s.screen.Clone(), nil
	}

	screen, err := s.store.GetScreen(ctx)
	switch {
	case err == nil:
		if !screen.Consistent() {
			log.Warn().Str("screen_id", screen.ScreenID).Msg("stored registration is inconsistent, treating screen as unregistered")
			screen.Registered = false
			screen.ControllerURL = nil
			screen.Content = nil
		}
	case errors.Is(err, model.ErrNotFound):
		identity, err := s.issuer.Issue(ctx)
		if err != nil {
			return model.Screen{}, fmt.Errorf("issue identity: %w", err)
		}
		screen = model.Screen{Identity: identity, LastUpdate: s.clock.Now()}
		if err := s.store.SaveScreen(ctx, screen); err != nil {
			return model.Screen{}, fmt.Errorf("%w: save new screen: %v", model.ErrStorageUnavailable, err)
		}
		log.Info().Str("screen_id", identity.ScreenID).Str("pin", identity.PIN).Msg("issued new screen identity")
	default:
		return model.Screen{}, fmt.Errorf("%w: load screen: %v", model.ErrStorageUnavailable, err)
	}

	s.screen = screen
	s.loaded = true
	return s.screen.Clone(), nil
}

// Current returns a copy of the cached screen.
func (s *State) Current() (model.Screen, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		return model.Screen{}, ErrNotLoaded
	}
	return s.screen.Clone(), nil
}

// ApplyRegistration binds the screen to a controller. Both the PIN and the
// screen ID must match the current identity.
func (s *State) ApplyRegistration(ctx context.Context, pin, screenID, controllerURL string) (model.Screen, error) {
	if pin == "" || screenID == "" || controllerURL == "" {
		return model.Screen{}, model.ErrMissingFields
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		return model.Screen{}, ErrNotLoaded
	}
	if pin != s.screen.PIN || screenID != s.screen.ScreenID {
		log.Warn().
			Str("expected_screen_id", s.screen.ScreenID).
			Str("received_screen_id", screenID).
			Msg("rejected claim with invalid credentials")
		return model.Screen{}, model.ErrInvalidCredentials
	}

	next := s.screen.Clone()
	next.Registered = true
	next.ControllerURL = &controllerURL
	return s.commit(ctx, next, model.ActionRegistration)
}

// ApplyContent replaces the slides. Content addressed to another screen is
// ignored and reported as not applied.
func (s *State) ApplyContent(ctx context.Context, screenID string, slides []model.Slide) (model.Screen, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		return model.Screen{}, false, ErrNotLoaded
	}
	if screenID != s.screen.ScreenID {
		log.Info().
			Str("screen_id", s.screen.ScreenID).
			Str("target_screen_id", screenID).
			Msg("ignoring content for another screen")
		return s.screen.Clone(), false, nil
	}

	next := s.screen.Clone()
	next.Content = model.CloneSlides(slides)
	if next.Content == nil {
		next.Content = []model.Slide{}
	}
	updated, err := s.commit(ctx, next, model.ActionContentUpdate)
	if err != nil {
		return model.Screen{}, false, err
	}
	return updated, true, nil
}

// Reset drops the registration and the content. The identity is kept.
func (s *State) Reset(ctx context.Context, screenID string) (model.Screen, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		return model.Screen{}, ErrNotLoaded
	}
	if screenID != s.screen.ScreenID {
		return model.Screen{}, model.ErrInvalidScreenID
	}

	next := s.screen.Clone()
	next.Registered = false
	next.ControllerURL = nil
	next.Content = nil
	updated, err := s.commit(ctx, next, model.ActionRegistration)
	if err != nil {
		return model.Screen{}, err
	}
	s.cancelScheduledLocked()
	return updated, nil
}

// Rename sets the display name shown next to the content.
func (s *State) Rename(ctx context.Context, screenID, name string) (model.Screen, error) {
	if screenID == "" || name == "" {
		return model.Screen{}, model.ErrMissingFields
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		return model.Screen{}, ErrNotLoaded
	}
	if screenID != s.screen.ScreenID {
		return model.Screen{}, model.ErrInvalidScreenID
	}

	next := s.screen.Clone()
	next.Name = &name
	return s.commit(ctx, next, model.ActionNameUpdate)
}

// ReplaceIdentity swaps the PIN of an unregistered screen, used when the old
// PIN was handed to another screen while this one was claimed.
func (s *State) ReplaceIdentity(ctx context.Context, identity model.Identity) (model.Screen, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		return model.Screen{}, ErrNotLoaded
	}
	if identity.ScreenID != s.screen.ScreenID {
		return model.Screen{}, model.ErrInvalidScreenID
	}
	if s.screen.Registered {
		return s.screen.Clone(), nil
	}

	next := s.screen.Clone()
	next.PIN = identity.PIN
	return s.commit(ctx, next, model.ActionRegistration)
}

// Subscribe opens a push subscription whose first event is the current
// snapshot. Taking the snapshot and registering happen under the state lock,
// so no mutation can fall between them.
func (s *State) Subscribe() (*push.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		return nil, ErrNotLoaded
	}
	return s.hub.Subscribe(model.NewConnected(s.screen.Snapshot(), s.clock.Now())), nil
}

// commit persists next and publishes it. The caller holds mu. On a storage
// failure the cached state is left untouched.
func (s *State) commit(ctx context.Context, next model.Screen, action model.Action) (model.Screen, error) {
	next.LastUpdate = s.clock.Now()
	if err := s.store.SaveScreen(ctx, next); err != nil {
		log.Error().Err(err).Str("screen_id", next.ScreenID).Str("action", string(action)).Msg("failed to persist screen")
		return model.Screen{}, fmt.Errorf("%w: %v", model.ErrStorageUnavailable, err)
	}
	s.screen = next

	s.hub.Broadcast(model.NewScreenUpdate(action, next.Snapshot(), next.LastUpdate))
	log.Info().Str("screen_id", next.ScreenID).Str("action", string(action)).Msg("screen updated")
	return next.Clone(), nil
}
