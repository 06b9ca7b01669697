package credentials

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/beacon/internal/model"
)

const (
	// no 0/O or 1/I so the PIN survives being read off a screen
	PINAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	PINLength   = 4

	ScreenIDPrefix = "scr_"
)

// Issuer hands out collision-free identities.
type Issuer struct {
	registry Registry

	// candidates tried before giving up on collisions
	MaxCollisions int
	// registry calls tried before reporting the registry unreachable
	RetryBudget   int
	RetryInterval time.Duration

	newPIN      func() (string, error)
	newScreenID func() string
}

func NewIssuer(registry Registry) *Issuer {
	return &Issuer{
		registry:      registry,
		MaxCollisions: 32,
		RetryBudget:   3,
		RetryInterval: 200 * time.Millisecond,
		newPIN:        RandomPIN,
		newScreenID:   RandomScreenID,
	}
}

// Issue generates a new identity and reserves it in the registry.
func (i *Issuer) Issue(ctx context.Context) (model.Identity, error) {
	return i.issue(ctx, "")
}

// RotatePIN keeps screenID and reserves a fresh PIN for it.
func (i *Issuer) RotatePIN(ctx context.Context, screenID string) (model.Identity, error) {
	return i.issue(ctx, screenID)
}

// Reserve re-holds an existing identity, e.g. after a restart or an unregister.
func (i *Issuer) Reserve(ctx context.Context, identity model.Identity) (bool, error) {
	return i.reserve(ctx, identity)
}

// Release drops the registry hold for a claimed identity.
func (i *Issuer) Release(ctx context.Context, identity model.Identity) error {
	var err error
	for attempt := 1; attempt <= i.RetryBudget; attempt++ {
		if err = i.registry.Release(ctx, identity); err == nil {
			return nil
		}
		if !i.wait(ctx, attempt) {
			break
		}
	}
	return fmt.Errorf("%w: release identity: %v", model.ErrStorageUnavailable, err)
}

func (i *Issuer) issue(ctx context.Context, screenID string) (model.Identity, error) {
	for n := 0; n < i.MaxCollisions; n++ {
		pin, err := i.newPIN()
		if err != nil {
			return model.Identity{}, fmt.Errorf("generate pin: %w", err)
		}
		candidate := model.Identity{PIN: pin, ScreenID: screenID}
		if candidate.ScreenID == "" {
			candidate.ScreenID = i.newScreenID()
		}

		reserve := i.registry.Reserve
		if screenID == "" {
			reserve = i.registry.ReserveNew
		}
		ok, err := i.reserveWith(ctx, candidate, reserve)
		if err != nil {
			return model.Identity{}, err
		}
		if ok {
			log.Info().Str("screen_id", candidate.ScreenID).Int("collisions", n).Msg("issued screen identity")
			return candidate, nil
		}
		log.Debug().Str("screen_id", candidate.ScreenID).Msg("identity collided with an unclaimed screen, retrying")
	}
	return model.Identity{}, fmt.Errorf("no free identity after %d candidates", i.MaxCollisions)
}

func (i *Issuer) reserve(ctx context.Context, identity model.Identity) (bool, error) {
	return i.reserveWith(ctx, identity, i.registry.Reserve)
}

func (i *Issuer) reserveWith(ctx context.Context, identity model.Identity, reserve func(context.Context, model.Identity) (bool, error)) (bool, error) {
	var err error
	for attempt := 1; attempt <= i.RetryBudget; attempt++ {
		var ok bool
		if ok, err = reserve(ctx, identity); err == nil {
			return ok, nil
		}
		log.Warn().Err(err).Int("attempt", attempt).Msg("identity registry unreachable")
		if !i.wait(ctx, attempt) {
			break
		}
	}
	return false, fmt.Errorf("%w: reserve identity: %v", model.ErrStorageUnavailable, err)
}

// wait sleeps between retries; it reports false when no retry should follow.
func (i *Issuer) wait(ctx context.Context, attempt int) bool {
	if attempt >= i.RetryBudget {
		return false
	}
	select {
	case <-ctx.Done():
		return false
	case <-time.After(i.RetryInterval):
		return true
	}
}

func RandomPIN() (string, error) {
	var b strings.Builder
	size := big.NewInt(int64(len(PINAlphabet)))
	for n := 0; n < PINLength; n++ {
		idx, err := rand.Int(rand.Reader, size)
		if err != nil {
			return "", err
		}
		b.WriteByte(PINAlphabet[idx.Int64()])
	}
	return b.String(), nil
}

func RandomScreenID() string {
	return ScreenIDPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")
}
