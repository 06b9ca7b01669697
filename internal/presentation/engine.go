package presentation

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/beacon/internal/model"
)

type Mode int

const (
	ModePairing Mode = iota
	ModeIdle
	ModeSlide
	ModeListSlide
	ModeVideoSlide
)

func (m Mode) String() string {
	switch m {
	case ModePairing:
		return "pairing"
	case ModeIdle:
		return "idle"
	case ModeSlide:
		return "slide"
	case ModeListSlide:
		return "list_slide"
	case ModeVideoSlide:
		return "video_slide"
	default:
		return "unknown"
	}
}

type Config struct {
	SlideDwell   time.Duration
	ListInterval time.Duration
	// VideoDuration stands in for the end of playback on renderers that
	// cannot report it. Zero waits for VideoEnded.
	VideoDuration time.Duration
	Clock         clockwork.Clock
}

// Position is what the engine is showing right now.
type Position struct {
	Mode  Mode
	Index int
	Item  int
}

// Engine owns the slide rotation. All state lives on the Run goroutine and
// at most one timer drives advancement at any time.
type Engine struct {
	renderer Renderer
	clock    clockwork.Clock
	dwell    time.Duration
	interval time.Duration
	video    time.Duration

	cmds chan func()
	done chan struct{}

	// owned by Run
	slides []model.Slide
	kinds  []Classification
	timer  clockwork.Timer
	timerC <-chan time.Time
	pos    Position

	mu      sync.Mutex
	current Position
}

func NewEngine(renderer Renderer, cfg Config) *Engine {
	if cfg.SlideDwell <= 0 {
		cfg.SlideDwell = 10 * time.Second
	}
	if cfg.ListInterval <= 0 {
		cfg.ListInterval = 3 * time.Second
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	return &Engine{
		renderer: renderer,
		clock:    cfg.Clock,
		dwell:    cfg.SlideDwell,
		interval: cfg.ListInterval,
		video:    cfg.VideoDuration,
		cmds:     make(chan func(), 64),
		done:     make(chan struct{}),
		pos:      Position{Mode: ModePairing},
		current:  Position{Mode: ModePairing},
	}
}

// Run processes commands and timer ticks until ctx ends.
func (e *Engine) Run(ctx context.Context) error {
	defer close(e.done)
	defer e.cancelTimer()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case cmd := <-e.cmds:
			cmd()
		case <-e.timerC:
			e.timerC = nil
			e.tick()
		}
		e.publish()
	}
}

// Position returns the engine's current position.
func (e *Engine) Position() Position {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current
}

// HandleEvent folds a push event into the presentation.
func (e *Engine) HandleEvent(evt model.PushEvent) {
	e.send(func() { e.handleEvent(evt) })
}

// Replace swaps the slide list and starts again from the first slide.
func (e *Engine) Replace(slides []model.Slide) {
	slides = model.CloneSlides(slides)
	e.send(func() { e.replace(slides) })
}

// VideoEnded advances past the current video slide.
func (e *Engine) VideoEnded() {
	e.send(func() {
		if e.pos.Mode == ModeVideoSlide {
			e.advance()
		}
	})
}

func (e *Engine) ConnectionLost() {
	e.send(func() { e.renderer.ShowReconnecting(true) })
}

func (e *Engine) ConnectionRestored() {
	e.send(func() { e.renderer.ShowReconnecting(false) })
}

func (e *Engine) send(cmd func()) {
	select {
	case e.cmds <- cmd:
	case <-e.done:
	}
}

func (e *Engine) handleEvent(evt model.PushEvent) {
	if evt.Snapshot == nil {
		return
	}
	snap := evt.Snapshot

	switch {
	case evt.Type == model.EventConnected, evt.Action == model.ActionRegistration:
		if snap.Name != nil {
			e.renderer.ShowName(*snap.Name)
		}
		if !snap.Registered {
			e.showPairing(model.Identity{ScreenID: snap.ScreenID, PIN: snap.PIN})
			return
		}
		// a reconnect that reports the playing slides keeps the rotation going
		if evt.Type == model.EventConnected && e.presenting() && model.SlidesEqual(e.slides, snap.Content) {
			return
		}
		e.replace(model.CloneSlides(snap.Content))
	case evt.Action == model.ActionContentUpdate:
		if !snap.Registered {
			return
		}
		e.replace(model.CloneSlides(snap.Content))
	case evt.Action == model.ActionNameUpdate:
		if snap.Name != nil {
			e.renderer.ShowName(*snap.Name)
		}
	default:
		log.Debug().Str("type", string(evt.Type)).Str("action", string(evt.Action)).Msg("ignoring event")
	}
}

func (e *Engine) presenting() bool {
	switch e.pos.Mode {
	case ModeSlide, ModeListSlide, ModeVideoSlide:
		return true
	}
	return false
}

func (e *Engine) showPairing(identity model.Identity) {
	e.cancelTimer()
	e.slides, e.kinds = nil, nil
	e.pos = Position{Mode: ModePairing}
	e.renderer.ShowPairing(identity)
}

func (e *Engine) replace(slides []model.Slide) {
	e.cancelTimer()
	e.slides = slides
	e.kinds = make([]Classification, len(slides))
	for i, s := range slides {
		e.kinds[i] = Classify(s)
	}
	if len(slides) == 0 {
		e.pos = Position{Mode: ModeIdle}
		e.renderer.ShowWaiting()
		return
	}
	e.show(0)
}

// show switches to slide i. Switching is the one place timers are cancelled
// and re-armed, and the timer is armed before rendering.
func (e *Engine) show(i int) {
	e.cancelTimer()
	kind := e.kinds[i]
	slide := e.slides[i]

	switch kind.Kind {
	case KindVideo:
		e.pos = Position{Mode: ModeVideoSlide, Index: i}
		if e.video > 0 {
			e.arm(e.video)
		}
		e.renderer.ShowSlide(i, slide, KindVideo)
	case KindList:
		e.pos = Position{Mode: ModeListSlide, Index: i}
		e.arm(e.interval)
		e.renderer.ShowSlide(i, slide, KindList)
		e.renderer.HighlightItem(i, 0, kind.Items)
	default:
		e.pos = Position{Mode: ModeSlide, Index: i}
		e.arm(e.dwell)
		e.renderer.ShowSlide(i, slide, KindPlain)
	}
}

func (e *Engine) tick() {
	switch e.pos.Mode {
	case ModeSlide, ModeVideoSlide:
		e.advance()
	case ModeListSlide:
		total := e.kinds[e.pos.Index].Items
		next := e.pos.Item + 1
		if next >= total {
			e.advance()
			return
		}
		e.pos.Item = next
		e.arm(e.interval)
		e.renderer.HighlightItem(e.pos.Index, next, total)
	}
}

func (e *Engine) advance() {
	if len(e.slides) == 0 {
		return
	}
	e.show((e.pos.Index + 1) % len(e.slides))
}

func (e *Engine) arm(d time.Duration) {
	e.cancelTimer()
	e.timer = e.clock.NewTimer(d)
	e.timerC = e.timer.Chan()
}

func (e *Engine) cancelTimer() {
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	e.timerC = nil
}

func (e *Engine) publish() {
	e.mu.Lock()
	e.current = e.pos
	e.mu.Unlock()
}
