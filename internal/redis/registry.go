package redis

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/beacon/internal/credentials"
	"github.com/Nixie-Tech-LLC/beacon/internal/model"
)

const (
	pinKeyPrefix    = "pairing:pin:"
	screenKeyPrefix = "pairing:screen:"
)

// Registry stores unclaimed identities in Redis so that every screen sharing
// the instance draws PINs from the same pool.
type Registry struct {
	rdb *redis.Client
}

var _ credentials.Registry = (*Registry)(nil)

func NewRegistry(rdb *redis.Client) *Registry {
	return &Registry{rdb: rdb}
}

func (r *Registry) Reserve(ctx context.Context, identity model.Identity) (bool, error) {
	pinKey := pinKeyPrefix + identity.PIN
	screenKey := screenKeyPrefix + identity.ScreenID

	held, err := r.claimKey(ctx, pinKey, identity.ScreenID)
	if err != nil || !held {
		return false, err
	}

	previous, err := r.rdb.GetSet(ctx, screenKey, identity.PIN).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		// no owner record was written, so the pin must not stay held
		if relErr := r.releaseKey(ctx, pinKey, identity.ScreenID); relErr != nil {
			log.Warn().Err(relErr).Str("screen_id", identity.ScreenID).Msg("could not free pin after failed reservation")
		}
		return false, err
	}
	if previous != "" && previous != identity.PIN {
		// the screen rotated its PIN; free the old one
		if err := r.releaseKey(ctx, pinKeyPrefix+previous, identity.ScreenID); err != nil {
			log.Warn().Err(err).Str("screen_id", identity.ScreenID).Msg("could not free rotated pin")
		}
	}
	return true, nil
}

// ReserveNew holds a fresh identity only when neither key exists yet.
func (r *Registry) ReserveNew(ctx context.Context, identity model.Identity) (bool, error) {
	pinKey := pinKeyPrefix + identity.PIN
	screenKey := screenKeyPrefix + identity.ScreenID

	ok, err := r.rdb.SetNX(ctx, screenKey, identity.PIN, 0).Result()
	if err != nil || !ok {
		return false, err
	}
	ok, err = r.rdb.SetNX(ctx, pinKey, identity.ScreenID, 0).Result()
	if err != nil || !ok {
		if relErr := r.releaseKey(ctx, screenKey, identity.PIN); relErr != nil {
			log.Warn().Err(relErr).Str("screen_id", identity.ScreenID).Msg("could not free screen id after pin collision")
		}
		return false, err
	}
	return true, nil
}

func (r *Registry) Release(ctx context.Context, identity model.Identity) error {
	if err := r.releaseKey(ctx, pinKeyPrefix+identity.PIN, identity.ScreenID); err != nil {
		return err
	}
	return r.releaseKey(ctx, screenKeyPrefix+identity.ScreenID, identity.PIN)
}

// claimKey sets key to owner unless a different owner already holds it.
func (r *Registry) claimKey(ctx context.Context, key, owner string) (bool, error) {
	ok, err := r.rdb.SetNX(ctx, key, owner, 0).Result()
	if err != nil {
		return false, err
	}
	if ok {
		return true, nil
	}
	current, err := r.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		// released between the two calls; try once more
		return r.rdb.SetNX(ctx, key, owner, 0).Result()
	}
	if err != nil {
		return false, err
	}
	return current == owner, nil
}

// releaseKey deletes key only while it still holds value.
func (r *Registry) releaseKey(ctx context.Context, key, value string) error {
	current, err := r.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return err
	}
	if current != value {
		return nil
	}
	return r.rdb.Del(ctx, key).Err()
}
