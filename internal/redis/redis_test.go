package redis

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nixie-Tech-LLC/beacon/internal/model"
)

// These tests need a live Redis; set TEST_REDIS_ADDRESS to run them.
func newTestRegistry(t *testing.T) (*Registry, *ScreenStore) {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDRESS")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDRESS not set, skipping redis tests")
	}
	rdb, err := NewClient(context.Background(), addr, "", "")
	if err != nil {
		t.Skipf("redis not available, skipping test: %v", err)
	}
	t.Cleanup(func() {
		rdb.FlushDB(context.Background())
		rdb.Close()
	})
	return NewRegistry(rdb), NewScreenStore(rdb)
}

func TestRegistryReserveAndRelease(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()
	mine := model.Identity{PIN: "AB12", ScreenID: "scr_01"}

	ok, err := reg.Reserve(ctx, mine)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = reg.Reserve(ctx, mine)
	require.NoError(t, err)
	assert.True(t, ok, "owner can reserve again")

	ok, err = reg.Reserve(ctx, model.Identity{PIN: "AB12", ScreenID: "scr_02"})
	require.NoError(t, err)
	assert.False(t, ok, "pin is taken")

	require.NoError(t, reg.Release(ctx, mine))
	ok, err = reg.Reserve(ctx, model.Identity{PIN: "AB12", ScreenID: "scr_02"})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRegistryReserveNewRejectsHeldScreenID(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()

	ok, err := reg.Reserve(ctx, model.Identity{PIN: "ZZZZ", ScreenID: "scr_01"})
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = reg.ReserveNew(ctx, model.Identity{PIN: "AB12", ScreenID: "scr_01"})
	require.NoError(t, err)
	assert.False(t, ok)

	owner, err := reg.rdb.Get(ctx, pinKeyPrefix+"ZZZZ").Result()
	require.NoError(t, err)
	assert.Equal(t, "scr_01", owner, "other screen keeps its pin")
	assert.Zero(t, reg.rdb.Exists(ctx, pinKeyPrefix+"AB12").Val())

	ok, err = reg.ReserveNew(ctx, model.Identity{PIN: "ZZZZ", ScreenID: "scr_02"})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, reg.rdb.Exists(ctx, screenKeyPrefix+"scr_02").Val(), "screen id freed after pin collision")

	ok, err = reg.ReserveNew(ctx, model.Identity{PIN: "AB12", ScreenID: "scr_02"})
	require.NoError(t, err)
	assert.True(t, ok)
}

// failGetSet makes every GETSET fail as if the connection dropped.
type failGetSet struct{}

func (failGetSet) DialHook(next redis.DialHook) redis.DialHook { return next }

func (failGetSet) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		if cmd.Name() == "getset" {
			err := errors.New("connection reset")
			cmd.SetErr(err)
			return err
		}
		return next(ctx, cmd)
	}
}

func (failGetSet) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

func TestRegistryReserveFreesPINWhenOwnerRecordFails(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()
	reg.rdb.AddHook(failGetSet{})

	_, err := reg.Reserve(ctx, model.Identity{PIN: "AB12", ScreenID: "scr_01"})
	assert.Error(t, err)
	assert.Zero(t, reg.rdb.Exists(ctx, pinKeyPrefix+"AB12").Val())
}

func TestScreenStoreRoundTrip(t *testing.T) {
	_, store := newTestRegistry(t)
	ctx := context.Background()

	_, err := store.GetScreen(ctx)
	assert.ErrorIs(t, err, model.ErrNotFound)

	screen := model.Screen{Identity: model.Identity{PIN: "AB12", ScreenID: "scr_01"}, Content: []model.Slide{"A"}}
	require.NoError(t, store.SaveScreen(ctx, screen))

	got, err := store.GetScreen(ctx)
	require.NoError(t, err)
	assert.Equal(t, screen.Identity, got.Identity)
	assert.Equal(t, screen.Content, got.Content)
}
