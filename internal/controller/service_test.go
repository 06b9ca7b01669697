package controller

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nixie-Tech-LLC/beacon/internal/db"
	"github.com/Nixie-Tech-LLC/beacon/internal/http/api/tv/packets"
	"github.com/Nixie-Tech-LLC/beacon/internal/model"
)

type fakeScreens struct {
	mu       sync.Mutex
	claims   []packets.ClaimRequest
	released []string
	content  map[string][]model.Slide
	names    map[string]string

	claimErr   error
	releaseErr error
}

func newFakeScreens() *fakeScreens {
	return &fakeScreens{content: map[string][]model.Slide{}, names: map[string]string{}}
}

func (f *fakeScreens) Claim(_ context.Context, _ string, req packets.ClaimRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.claimErr != nil {
		return f.claimErr
	}
	f.claims = append(f.claims, req)
	return nil
}

func (f *fakeScreens) Release(_ context.Context, _ string, screenID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.released = append(f.released, screenID)
	return f.releaseErr
}

func (f *fakeScreens) PushContent(_ context.Context, _ string, screenID string, slides []model.Slide) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.content[screenID] = slides
	return nil
}

func (f *fakeScreens) Rename(_ context.Context, _ string, screenID, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.names[screenID] = name
	return nil
}

func newTestService() (*Service, *fakeScreens, *db.MemoryStore) {
	screens := newFakeScreens()
	store := db.NewMemoryStore()
	return NewService(store, screens, "http://controller:8080/", clockwork.NewFakeClock()), screens, store
}

func TestClaimRecordsReplica(t *testing.T) {
	svc, screens, _ := newTestService()
	ctx := context.Background()

	replica, err := svc.Claim(ctx, "http://screen:3000/", "ab12", "scr_01")
	require.NoError(t, err)
	assert.Equal(t, "http://screen:3000", replica.ScreenURL)
	assert.Equal(t, "http://controller:8080", replica.ControllerURL)
	assert.True(t, replica.Registered)

	require.Len(t, screens.claims, 1)
	assert.Equal(t, packets.ClaimRequest{PIN: "AB12", ScreenID: "scr_01", ControllerURL: "http://controller:8080"}, screens.claims[0])

	got, err := svc.Lookup(ctx, "scr_01")
	require.NoError(t, err)
	assert.Equal(t, replica.ScreenURL, got.ScreenURL)
}

func TestClaimRejectedByScreen(t *testing.T) {
	svc, screens, _ := newTestService()
	screens.claimErr = model.ErrInvalidCredentials

	_, err := svc.Claim(context.Background(), "http://screen:3000", "WRONG", "scr_01")
	assert.ErrorIs(t, err, model.ErrInvalidCredentials)

	_, err = svc.Lookup(context.Background(), "scr_01")
	assert.ErrorIs(t, err, model.ErrScreenNotFound)
}

func TestClaimRequiresFields(t *testing.T) {
	svc, _, _ := newTestService()
	_, err := svc.Claim(context.Background(), "", "AB12", "scr_01")
	assert.ErrorIs(t, err, model.ErrMissingFields)
}

func TestReleaseDropsReplicaEvenWhenScreenIsOffline(t *testing.T) {
	svc, screens, _ := newTestService()
	ctx := context.Background()
	_, err := svc.Claim(ctx, "http://screen:3000", "AB12", "scr_01")
	require.NoError(t, err)

	screens.releaseErr = errors.Join(model.ErrChannel, errors.New("connection refused"))
	require.NoError(t, svc.Release(ctx, "scr_01"))
	assert.Equal(t, []string{"scr_01"}, screens.released)

	_, err = svc.Lookup(ctx, "scr_01")
	assert.ErrorIs(t, err, model.ErrScreenNotFound)

	assert.ErrorIs(t, svc.Release(ctx, "scr_01"), model.ErrScreenNotFound)
}

func TestReleaseStopsOnStorageFailureAtScreen(t *testing.T) {
	svc, screens, _ := newTestService()
	ctx := context.Background()
	_, err := svc.Claim(ctx, "http://screen:3000", "AB12", "scr_01")
	require.NoError(t, err)

	screens.releaseErr = model.ErrStorageUnavailable
	assert.ErrorIs(t, svc.Release(ctx, "scr_01"), model.ErrStorageUnavailable)

	_, err = svc.Lookup(ctx, "scr_01")
	assert.NoError(t, err)
}

func TestPushContentAndRename(t *testing.T) {
	svc, screens, _ := newTestService()
	ctx := context.Background()

	assert.ErrorIs(t, svc.PushContent(ctx, "scr_01", nil), model.ErrScreenNotFound)

	_, err := svc.Claim(ctx, "http://screen:3000", "AB12", "scr_01")
	require.NoError(t, err)

	require.NoError(t, svc.PushContent(ctx, "scr_01", []model.Slide{"A", "B"}))
	assert.Equal(t, []model.Slide{"A", "B"}, screens.content["scr_01"])

	require.NoError(t, svc.PushContent(ctx, "scr_01", nil))
	assert.NotNil(t, screens.content["scr_01"])
	assert.Empty(t, screens.content["scr_01"])

	_, err = svc.Rename(ctx, "scr_01", "")
	assert.ErrorIs(t, err, model.ErrMissingFields)

	replica, err := svc.Rename(ctx, "scr_01", "Lobby")
	require.NoError(t, err)
	require.NotNil(t, replica.Name)
	assert.Equal(t, "Lobby", *replica.Name)
	assert.Equal(t, "Lobby", screens.names["scr_01"])

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Lobby", *list[0].Name)
}
