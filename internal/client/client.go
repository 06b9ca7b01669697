package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/beacon/internal/model"
)

type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateBackoff
	StateGaveUp
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateBackoff:
		return "backoff"
	case StateGaveUp:
		return "gave_up"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Handler receives the events and connection signals the client produces.
// Calls come from the client's Run goroutine, one at a time.
type Handler interface {
	HandleEvent(evt model.PushEvent)
	// ConnectionLost is called once the retry budget is spent.
	ConnectionLost()
	// ConnectionRestored is called on the first connection after ConnectionLost.
	ConnectionRestored()
}

type Config struct {
	BaseDelay   time.Duration
	MaxAttempts int
	ReinitDelay time.Duration
	// the stream is considered dead after MissedKeepalives intervals without a frame
	KeepaliveInterval time.Duration
	MissedKeepalives  int
	Clock             clockwork.Clock
}

func DefaultConfig() Config {
	return Config{
		BaseDelay:         3 * time.Second,
		MaxAttempts:       5,
		ReinitDelay:       time.Minute,
		KeepaliveInterval: 20 * time.Second,
		MissedKeepalives:  3,
	}
}

var errResetRequested = errors.New("reset requested")

// Client keeps one push connection to a screen alive, reconnecting with
// exponential backoff and giving up for a fixed delay after too many
// consecutive failures.
type Client struct {
	transport Transport
	status    StatusSource
	handler   Handler
	cfg       Config
	clock     clockwork.Clock

	// OnStateChange, when set, is called on every state transition.
	OnStateChange func(State)

	mu       sync.Mutex
	state    State
	attempts int

	// owned by the Run goroutine
	screenID string
	last     *model.Snapshot
	lost     bool

	resetCh chan struct{}
}

func New(transport Transport, status StatusSource, handler Handler, cfg Config) *Client {
	defaults := DefaultConfig()
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = defaults.BaseDelay
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaults.MaxAttempts
	}
	if cfg.ReinitDelay <= 0 {
		cfg.ReinitDelay = defaults.ReinitDelay
	}
	if cfg.KeepaliveInterval <= 0 {
		cfg.KeepaliveInterval = defaults.KeepaliveInterval
	}
	if cfg.MissedKeepalives <= 0 {
		cfg.MissedKeepalives = defaults.MissedKeepalives
	}
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Client{
		transport: transport,
		status:    status,
		handler:   handler,
		cfg:       cfg,
		clock:     clock,
		resetCh:   make(chan struct{}, 1),
	}
}

func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Attempts returns the number of consecutive failed connection attempts.
func (c *Client) Attempts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempts
}

// Reset abandons any pending backoff or give-up wait, or the current
// connection, and reconnects immediately.
func (c *Client) Reset() {
	select {
	case c.resetCh <- struct{}{}:
	default:
	}
}

// BackoffDelay is the wait after the given failed attempt: base * 2^(attempt-1).
func BackoffDelay(base time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return base << (attempt - 1)
}

// Run drives the connection until ctx is cancelled.
func (c *Client) Run(ctx context.Context) error {
	for {
		err := c.connectOnce(ctx)
		if ctx.Err() != nil {
			c.setState(StateDisconnected)
			return ctx.Err()
		}
		if errors.Is(err, errResetRequested) {
			log.Info().Msg("reset requested, reconnecting")
			c.setAttempts(0)
			continue
		}

		attempts := c.incrAttempts()
		log.Warn().Err(err).Int("attempt", attempts).Msg("push connection failed")

		if attempts >= c.cfg.MaxAttempts {
			c.setState(StateGaveUp)
			if !c.lost {
				c.lost = true
				c.handler.ConnectionLost()
			}
			log.Error().
				Int("attempts", attempts).
				Dur("reinit_delay", c.cfg.ReinitDelay).
				Msg("giving up on push connection until re-initialization")
			if _, ok := c.wait(ctx, c.cfg.ReinitDelay); !ok {
				c.setState(StateDisconnected)
				return ctx.Err()
			}
			c.reinitialize()
			continue
		}

		c.setState(StateBackoff)
		reset, ok := c.wait(ctx, BackoffDelay(c.cfg.BaseDelay, attempts))
		if !ok {
			c.setState(StateDisconnected)
			return ctx.Err()
		}
		if reset {
			c.setAttempts(0)
		}
	}
}

func (c *Client) connectOnce(ctx context.Context) error {
	c.setState(StateConnecting)
	if c.screenID == "" {
		identity, err := c.status.Identity(ctx)
		if err != nil {
			return fmt.Errorf("%w: fetch identity: %v", model.ErrChannel, err)
		}
		c.screenID = identity.ScreenID
		log.Info().Str("screen_id", c.screenID).Msg("display identity loaded")
	}

	sessionCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	stream, err := c.transport.Connect(sessionCtx)
	if err != nil {
		return fmt.Errorf("%w: %v", model.ErrChannel, err)
	}
	defer stream.Close()

	c.setAttempts(0)
	c.setState(StateConnected)
	if c.lost {
		c.lost = false
		c.handler.ConnectionRestored()
	}

	c.reconcile(sessionCtx)
	return c.pump(sessionCtx, stream)
}

// reconcile polls the screen once per connection and delivers its state
// when it differs from what the handler last saw.
func (c *Client) reconcile(ctx context.Context) {
	status, err := c.status.Status(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("status check failed")
		return
	}
	identity, err := c.status.Identity(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("identity refresh failed")
		return
	}
	if identity.ScreenID != c.screenID {
		return
	}
	content, err := c.status.Content(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("content refresh failed")
		return
	}

	snap := model.Snapshot{
		ScreenID:      identity.ScreenID,
		PIN:           identity.PIN,
		Name:          identity.Name,
		Registered:    identity.Registered && status.Operational,
		ControllerURL: identity.ControllerURL,
		Content:       content.Content,
		LastUpdate:    content.LastUpdate,
	}
	if !snap.Registered {
		snap.ControllerURL = nil
		snap.Content = nil
	}
	c.deliverSnapshot(model.NewConnected(snap, c.clock.Now()))
}

func (c *Client) pump(ctx context.Context, stream Stream) error {
	frames := make(chan Frame)
	errs := make(chan error, 1)
	go func() {
		for {
			frame, err := stream.Next(ctx)
			if err != nil {
				errs <- err
				return
			}
			select {
			case frames <- frame:
			case <-ctx.Done():
				return
			}
		}
	}()

	window := c.cfg.KeepaliveInterval * time.Duration(c.cfg.MissedKeepalives)
	watchdog := c.clock.NewTimer(window)
	defer watchdog.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.resetCh:
			return errResetRequested
		case err := <-errs:
			return err
		case <-watchdog.Chan():
			return fmt.Errorf("%w: no frame for %s", model.ErrChannel, window)
		case frame := <-frames:
			watchdog.Reset(window)
			if frame.Keepalive {
				continue
			}
			c.dispatch(frame.Event)
		}
	}
}

func (c *Client) dispatch(evt model.PushEvent) {
	if evt.ScreenID != c.screenID {
		log.Debug().
			Str("screen_id", c.screenID).
			Str("event_screen_id", evt.ScreenID).
			Msg("dropping event for another screen")
		return
	}
	if evt.Type == model.EventConnected {
		c.deliverSnapshot(evt)
		return
	}
	if evt.Snapshot != nil {
		snap := *evt.Snapshot
		c.last = &snap
	}
	c.handler.HandleEvent(evt)
}

// deliverSnapshot hands a full-state event to the handler unless it matches
// the last state delivered.
func (c *Client) deliverSnapshot(evt model.PushEvent) {
	if evt.Snapshot == nil {
		return
	}
	if c.last != nil && sameState(*c.last, *evt.Snapshot) {
		return
	}
	snap := *evt.Snapshot
	c.last = &snap
	c.handler.HandleEvent(evt)
}

func (c *Client) reinitialize() {
	log.Info().Msg("re-initializing display client")
	c.setAttempts(0)
	c.screenID = ""
	c.last = nil
}

// wait sleeps for d. reset reports an explicit Reset, ok is false when ctx ended.
func (c *Client) wait(ctx context.Context, d time.Duration) (reset, ok bool) {
	timer := c.clock.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false, false
	case <-c.resetCh:
		return true, true
	case <-timer.Chan():
		return false, true
	}
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	changed := c.state != s
	c.state = s
	hook := c.OnStateChange
	c.mu.Unlock()

	if changed {
		log.Debug().Str("state", s.String()).Msg("push client state changed")
		if hook != nil {
			hook(s)
		}
	}
}

func (c *Client) setAttempts(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attempts = n
}

func (c *Client) incrAttempts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attempts++
	return c.attempts
}

func sameState(a, b model.Snapshot) bool {
	return a.ScreenID == b.ScreenID &&
		a.PIN == b.PIN &&
		a.Registered == b.Registered &&
		equalPtr(a.Name, b.Name) &&
		equalPtr(a.ControllerURL, b.ControllerURL) &&
		model.SlidesEqual(a.Content, b.Content)
}

func equalPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
