package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/beacon/internal/db"
	"github.com/Nixie-Tech-LLC/beacon/internal/model"
)

const currentScreenKey = "screen:current"

// ScreenStore keeps the screen record as JSON under "screen:<id>". The key
// "screen:current" points at the record this process owns.
type ScreenStore struct {
	rdb *redis.Client
}

var _ db.ScreenStore = (*ScreenStore)(nil)

func NewScreenStore(rdb *redis.Client) *ScreenStore {
	return &ScreenStore{rdb: rdb}
}

func screenKey(id string) string {
	return "screen:" + id
}

func (s *ScreenStore) GetScreen(ctx context.Context) (model.Screen, error) {
	id, err := s.rdb.Get(ctx, currentScreenKey).Result()
	if errors.Is(err, redis.Nil) {
		return model.Screen{}, model.ErrNotFound
	}
	if err != nil {
		return model.Screen{}, err
	}

	var screen model.Screen
	if err := GetUnmarshalledJSON(ctx, s.rdb, screenKey(id), &screen); err != nil {
		return model.Screen{}, err
	}
	return screen, nil
}

func (s *ScreenStore) SaveScreen(ctx context.Context, screen model.Screen) error {
	data, err := json.Marshal(screen)
	if err != nil {
		return fmt.Errorf("encode screen: %w", err)
	}
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, screenKey(screen.ScreenID), data, 0)
		pipe.Set(ctx, currentScreenKey, screen.ScreenID, 0)
		return nil
	})
	if err != nil {
		log.Error().Err(err).Str("screen_id", screen.ScreenID).Msg("failed to save screen to redis")
	}
	return err
}

// GetUnmarshalledJSON reads key and decodes its JSON value into out.
func GetUnmarshalledJSON(ctx context.Context, rdb *redis.Client, key string, out any) error {
	raw, err := rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.ErrNotFound
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}
