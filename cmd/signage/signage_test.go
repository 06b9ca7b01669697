package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nixie-Tech-LLC/beacon/internal/config"
	"github.com/Nixie-Tech-LLC/beacon/internal/credentials"
	"github.com/Nixie-Tech-LLC/beacon/internal/db"
	"github.com/Nixie-Tech-LLC/beacon/internal/http/middleware"
	"github.com/Nixie-Tech-LLC/beacon/internal/model"
	"github.com/Nixie-Tech-LLC/beacon/internal/presentation"
)

func TestOpenBackendsSQLite(t *testing.T) {
	cfg := config.Default()
	cfg.SQLitePath = ":memory:"

	b, err := openBackends(context.Background(), cfg)
	require.NoError(t, err)
	defer b.Close()

	store := b.screenStore()
	_, isSQL := store.(*db.SQLStore)
	assert.True(t, isSQL)

	_, err = store.GetScreen(context.Background())
	assert.ErrorIs(t, err, model.ErrNotFound)

	replicas, err := b.replicaStore()
	require.NoError(t, err)
	list, err := replicas.ListReplicas(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)

	_, isMemory := b.registry().(*credentials.MemoryRegistry)
	assert.True(t, isMemory)
}

func TestReplicaStoreNeedsSQL(t *testing.T) {
	b := &backends{}
	_, err := b.replicaStore()
	assert.Error(t, err)
}

func TestHashPasswordCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"hash-password", "hunter2"})
	defer rootCmd.SetArgs(nil)

	require.NoError(t, rootCmd.Execute())
	hash := strings.TrimSpace(out.String())
	assert.True(t, middleware.CheckPassword(hash, "hunter2"))
}

func TestDisplayEngineAdvancesPastVideo(t *testing.T) {
	cfg := config.Default()
	clock := clockwork.NewFakeClock()
	engine := newDisplayEngine(cfg, clock)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	go engine.Run(ctx)

	engine.Replace([]model.Slide{`<video src="a.mp4"></video>`, "<p>B</p>"})
	require.Eventually(t, func() bool {
		return engine.Position() == presentation.Position{Mode: presentation.ModeVideoSlide, Index: 0}
	}, time.Second, time.Millisecond)

	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(cfg.Presentation.VideoDuration)
	require.Eventually(t, func() bool {
		return engine.Position() == presentation.Position{Mode: presentation.ModeSlide, Index: 1}
	}, time.Second, time.Millisecond)
}
