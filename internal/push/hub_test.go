package push

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nixie-Tech-LLC/beacon/internal/model"
)

func snapshot(id string) model.Snapshot {
	return model.Snapshot{ScreenID: id, PIN: "AB12"}
}

func connected(id string) model.PushEvent {
	return model.NewConnected(snapshot(id), time.Now())
}

func update(id string, action model.Action) model.PushEvent {
	return model.NewScreenUpdate(action, snapshot(id), time.Now())
}

func receive(t *testing.T, sub *Subscription) model.PushEvent {
	t.Helper()
	select {
	case evt, ok := <-sub.Events():
		require.True(t, ok, "subscription closed")
		return evt
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return model.PushEvent{}
	}
}

func TestSubscribeDeliversConnectedFirst(t *testing.T) {
	hub := NewHub(4)
	defer hub.Close()

	sub := hub.Subscribe(connected("scr_01"))
	hub.Broadcast(update("scr_01", model.ActionContentUpdate))

	first := receive(t, sub)
	assert.Equal(t, model.EventConnected, first.Type)
	second := receive(t, sub)
	assert.Equal(t, model.EventScreenUpdate, second.Type)
	assert.Equal(t, model.ActionContentUpdate, second.Action)
}

func TestBroadcastOnlyReachesMatchingScreen(t *testing.T) {
	hub := NewHub(4)
	defer hub.Close()

	mine := hub.Subscribe(connected("scr_01"))
	other := hub.Subscribe(connected("scr_02"))
	receive(t, mine)
	receive(t, other)

	hub.Broadcast(update("scr_01", model.ActionNameUpdate))

	assert.Equal(t, model.ActionNameUpdate, receive(t, mine).Action)
	select {
	case evt := <-other.Events():
		t.Fatalf("unexpected event for other screen: %+v", evt)
	default:
	}
}

func TestSlowSubscriberIsDropped(t *testing.T) {
	hub := NewHub(2)
	defer hub.Close()

	slow := hub.Subscribe(connected("scr_01"))
	for i := 0; i < 5; i++ {
		hub.Broadcast(update("scr_01", model.ActionContentUpdate))
	}
	assert.Equal(t, 0, hub.Subscribers("scr_01"))

	// buffered events drain, then the stream ends
	count := 0
	for range slow.Events() {
		count++
	}
	assert.Equal(t, 3, count)
}

func TestCloseIsIdempotent(t *testing.T) {
	hub := NewHub(4)
	defer hub.Close()

	sub := hub.Subscribe(connected("scr_01"))
	assert.Equal(t, 1, hub.Subscribers("scr_01"))

	sub.Close()
	sub.Close()
	assert.Equal(t, 0, hub.Subscribers("scr_01"))

	// broadcasting after close must not panic on the closed channel
	hub.Broadcast(update("scr_01", model.ActionContentUpdate))
}

func TestHubCloseEndsSubscriptions(t *testing.T) {
	hub := NewHub(4)
	sub := hub.Subscribe(connected("scr_01"))
	hub.Close()

	receive(t, sub)
	_, ok := <-sub.Events()
	assert.False(t, ok)
	sub.Close()
}

type recordingMirror struct {
	mu     sync.Mutex
	events []model.PushEvent
	closed bool
}

func (m *recordingMirror) Publish(_ context.Context, evt model.PushEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, evt)
	return nil
}

func (m *recordingMirror) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
}

func (m *recordingMirror) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

func TestBroadcastIsMirrored(t *testing.T) {
	mirror := &recordingMirror{}
	hub := NewHub(4, mirror)

	hub.Broadcast(update("scr_01", model.ActionRegistration))
	hub.Broadcast(update("scr_02", model.ActionContentUpdate))

	require.Eventually(t, func() bool { return mirror.count() == 2 }, time.Second, 5*time.Millisecond)

	hub.Close()
	require.Eventually(t, func() bool {
		mirror.mu.Lock()
		defer mirror.mu.Unlock()
		return mirror.closed
	}, time.Second, 5*time.Millisecond)
}

func TestMirrorTopics(t *testing.T) {
	assert.Equal(t, "tv/scr_01/events", MQTTTopic("scr_01"))
	assert.Equal(t, "screens.scr_01.events", NATSSubject("scr_01"))
}
