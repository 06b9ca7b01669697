package presentation

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nixie-Tech-LLC/beacon/internal/model"
)

type recordingRenderer struct {
	mu    sync.Mutex
	calls []string
}

func (r *recordingRenderer) record(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, fmt.Sprintf(format, args...))
}

func (r *recordingRenderer) ShowPairing(id model.Identity) {
	r.record("pairing %s", id.PIN)
}

func (r *recordingRenderer) ShowWaiting() {
	r.record("waiting")
}

func (r *recordingRenderer) ShowSlide(i int, s model.Slide, k Kind) {
	r.record("slide %d %s", i, k)
}

func (r *recordingRenderer) HighlightItem(i, item, total int) {
	r.record("item %d %d/%d", i, item, total)
}

func (r *recordingRenderer) ShowReconnecting(v bool) {
	r.record("reconnecting %v", v)
}

func (r *recordingRenderer) ShowName(name string) {
	r.record("name %s", name)
}

func (r *recordingRenderer) last() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.calls) == 0 {
		return ""
	}
	return r.calls[len(r.calls)-1]
}

func (r *recordingRenderer) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

type engineHarness struct {
	engine   *Engine
	renderer *recordingRenderer
	clock    *clockwork.FakeClock
	ctx      context.Context
}

func startEngine(t *testing.T) *engineHarness {
	t.Helper()
	h := &engineHarness{renderer: &recordingRenderer{}, clock: clockwork.NewFakeClock()}
	h.engine = NewEngine(h.renderer, Config{
		SlideDwell:   10 * time.Second,
		ListInterval: 3 * time.Second,
		Clock:        h.clock,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	h.ctx = ctx
	done := make(chan struct{})
	go func() {
		defer close(done)
		h.engine.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return h
}

func (h *engineHarness) expect(t *testing.T, call string) {
	t.Helper()
	require.Eventually(t, func() bool { return h.renderer.last() == call }, time.Second, time.Millisecond,
		"expected %q, last call %q", call, h.renderer.last())
}

func (h *engineHarness) expectPosition(t *testing.T, want Position) {
	t.Helper()
	require.Eventually(t, func() bool { return h.engine.Position() == want }, time.Second, time.Millisecond,
		"expected %+v, got %+v", want, h.engine.Position())
}

// tick waits for the armed timer and fires it.
func (h *engineHarness) tick(t *testing.T, d time.Duration) {
	t.Helper()
	require.NoError(t, h.clock.BlockUntilContext(h.ctx, 1))
	h.clock.Advance(d)
}

func registered(content ...model.Slide) *model.Snapshot {
	url := "http://controller"
	return &model.Snapshot{ScreenID: "scr_01", PIN: "AB12", Registered: true, ControllerURL: &url, Content: content}
}

func TestCyclicRotation(t *testing.T) {
	h := startEngine(t)
	h.engine.Replace([]model.Slide{"A", "B", "C"})
	h.expect(t, "slide 0 plain")

	h.tick(t, 10*time.Second)
	h.expect(t, "slide 1 plain")
	h.tick(t, 10*time.Second)
	h.expect(t, "slide 2 plain")
	h.tick(t, 10*time.Second)
	h.expect(t, "slide 0 plain")
	h.expectPosition(t, Position{Mode: ModeSlide, Index: 0})
}

func TestVideoSlideWaitsForEnd(t *testing.T) {
	h := startEngine(t)
	h.engine.Replace([]model.Slide{"<video></video>", "B"})
	h.expect(t, "slide 0 video")

	h.clock.Advance(time.Hour)
	time.Sleep(20 * time.Millisecond)
	h.expect(t, "slide 0 video")

	h.engine.VideoEnded()
	h.expect(t, "slide 1 plain")

	// a stray end signal outside a video is ignored
	h.engine.VideoEnded()
	time.Sleep(20 * time.Millisecond)
	h.expect(t, "slide 1 plain")
}

func TestVideoSlideAdvancesAfterVideoDuration(t *testing.T) {
	renderer := &recordingRenderer{}
	clock := clockwork.NewFakeClock()
	engine := NewEngine(renderer, Config{SlideDwell: 10 * time.Second, VideoDuration: 30 * time.Second, Clock: clock})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	go engine.Run(ctx)

	engine.Replace([]model.Slide{"<video></video>", "B"})
	require.Eventually(t, func() bool { return renderer.last() == "slide 0 video" }, time.Second, time.Millisecond)

	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(30 * time.Second)
	require.Eventually(t, func() bool { return renderer.last() == "slide 1 plain" }, time.Second, time.Millisecond)
	require.Eventually(t, func() bool { return engine.Position() == Position{Mode: ModeSlide, Index: 1} }, time.Second, time.Millisecond)
}

func TestListSlideRotatesItemsThenAdvances(t *testing.T) {
	h := startEngine(t)
	list := model.Slide(`<li class="product-list-item">1</li><li class="product-list-item">2</li><li class="product-list-item">3</li>`)
	h.engine.Replace([]model.Slide{list, "B"})
	h.expect(t, "item 0 0/3")

	h.tick(t, 3*time.Second)
	h.expect(t, "item 0 1/3")
	h.tick(t, 3*time.Second)
	h.expect(t, "item 0 2/3")
	h.expectPosition(t, Position{Mode: ModeListSlide, Index: 0, Item: 2})

	// all items shown once: the outer slide moves on early, before the dwell
	h.tick(t, 3*time.Second)
	h.expect(t, "slide 1 plain")
}

func TestReplaceResetsIndexAndCancelsTimer(t *testing.T) {
	h := startEngine(t)
	h.engine.Replace([]model.Slide{"A", "B", "C"})
	h.expect(t, "slide 0 plain")
	h.tick(t, 10*time.Second)
	h.expect(t, "slide 1 plain")

	h.clock.Advance(5 * time.Second)
	h.engine.Replace([]model.Slide{"X", "Y"})
	h.expect(t, "slide 0 plain")

	// the old timer would have fired after 5 more seconds
	h.clock.Advance(5 * time.Second)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, Position{Mode: ModeSlide, Index: 0}, h.engine.Position())

	h.clock.Advance(5 * time.Second)
	h.expect(t, "slide 1 plain")
}

func TestEmptyContentIsIdle(t *testing.T) {
	h := startEngine(t)
	h.engine.Replace(nil)
	h.expect(t, "waiting")
	h.expectPosition(t, Position{Mode: ModeIdle})
}

func TestEventsDrivePresentation(t *testing.T) {
	h := startEngine(t)

	unregistered := &model.Snapshot{ScreenID: "scr_01", PIN: "AB12"}
	h.engine.HandleEvent(model.PushEvent{Type: model.EventConnected, ScreenID: "scr_01", Snapshot: unregistered})
	h.expect(t, "pairing AB12")
	h.expectPosition(t, Position{Mode: ModePairing})

	h.engine.HandleEvent(model.PushEvent{Type: model.EventScreenUpdate, Action: model.ActionRegistration, ScreenID: "scr_01", Snapshot: registered()})
	h.expect(t, "waiting")

	h.engine.HandleEvent(model.PushEvent{Type: model.EventScreenUpdate, Action: model.ActionContentUpdate, ScreenID: "scr_01", Snapshot: registered("A", "B")})
	h.expect(t, "slide 0 plain")

	named := registered("A", "B")
	name := "Lobby"
	named.Name = &name
	h.engine.HandleEvent(model.PushEvent{Type: model.EventScreenUpdate, Action: model.ActionNameUpdate, ScreenID: "scr_01", Snapshot: named})
	h.expect(t, "name Lobby")
	assert.Equal(t, ModeSlide, h.engine.Position().Mode)

	h.engine.HandleEvent(model.PushEvent{Type: model.EventScreenUpdate, Action: model.ActionRegistration, ScreenID: "scr_01", Snapshot: unregistered})
	h.expect(t, "pairing AB12")
}

func TestReconnectWithSameContentKeepsRotation(t *testing.T) {
	h := startEngine(t)
	h.engine.HandleEvent(model.PushEvent{Type: model.EventConnected, ScreenID: "scr_01", Snapshot: registered("A", "B")})
	h.expect(t, "slide 0 plain")
	h.tick(t, 10*time.Second)
	h.expect(t, "slide 1 plain")
	calls := h.renderer.count()

	h.engine.HandleEvent(model.PushEvent{Type: model.EventConnected, ScreenID: "scr_01", Snapshot: registered("A", "B")})
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, calls, h.renderer.count())
	assert.Equal(t, 1, h.engine.Position().Index)
}

func TestConnectionIndicator(t *testing.T) {
	h := startEngine(t)
	h.engine.ConnectionLost()
	h.expect(t, "reconnecting true")
	h.engine.ConnectionRestored()
	h.expect(t, "reconnecting false")
}
