package realtime

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/abase/abase-manager/internal/clock"
	apperrors "github.com/abase/abase-manager/internal/errors"
)

const (
	DefaultReconnectInterval    = 3 * time.Second
	DefaultMaxReconnectAttempts = 5
)

// Client holds at most one live stream. Every dial gets a new generation;
// callbacks carrying an older generation are ignored, so a superseded stream
// can never change state or schedule a reconnect.
type Client struct {
	sessions  SessionSource
	transport Transport
	handlers  Handlers
	notifier  Notifier
	onNotice  func(Notice)
	observer  Observer
	clock     clock.Clock
	logger    zerolog.Logger

	autoReconnect bool
	interval      time.Duration
	maxAttempts   int

	mu         sync.Mutex
	state      State
	attempts   int
	generation uint64
	connID     string
	stream     Stream
	cancel     context.CancelFunc // Ends the current generation's dial and stream
	timer      clock.Timer
	gaveUp     bool
}

// Option defines a function type to modify the Client instance.
type Option func(*Client)

func WithAutoReconnect(enabled bool) Option {
	return func(c *Client) {
		c.autoReconnect = enabled
	}
}

func WithReconnectInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.interval = d
		}
	}
}

func WithMaxReconnectAttempts(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.maxAttempts = n
		}
	}
}

// WithNotifier sets the passive consumer invoked for every parsed event.
func WithNotifier(n Notifier) Option {
	return func(c *Client) {
		c.notifier = n
	}
}

// WithOnNotice sets the sink for ConnectionLostNotice.
func WithOnNotice(fn func(Notice)) Option {
	return func(c *Client) {
		c.onNotice = fn
	}
}

// WithClock sets the clock (primarily for testing)
func WithClock(clk clock.Clock) Option {
	return func(c *Client) {
		c.clock = clk
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

func WithMetrics(o Observer) Option {
	return func(c *Client) {
		if o != nil {
			c.observer = o
		}
	}
}

func NewClient(sessions SessionSource, transport Transport, handlers Handlers, options ...Option) *Client {
	c := &Client{
		sessions:      sessions,
		transport:     transport,
		handlers:      make(Handlers, len(handlers)),
		observer:      noopObserver{},
		clock:         clock.Real(),
		logger:        log.Logger.With().Str("component", "realtime").Logger(),
		autoReconnect: true,
		interval:      DefaultReconnectInterval,
		maxAttempts:   DefaultMaxReconnectAttempts,
		state:         Idle,
	}
	for eventType, h := range handlers {
		c.handlers[eventType] = h
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Client) ReconnectAttempts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempts
}

func (c *Client) IsConnected() bool {
	return c.State() == Open
}

// Connect opens a stream for the current session. It does nothing while a
// dial is in flight or when there is no session. An open stream is closed
// and replaced. The reconnect budget starts over.
func (c *Client) Connect() {
	c.mu.Lock()
	if c.state == Connecting {
		c.mu.Unlock()
		c.logger.Debug().Msg("Connect ignored, already connecting")
		return
	}
	c.attempts = 0
	c.gaveUp = false
	stale, ok := c.startLocked()
	c.mu.Unlock()

	closeStream(stale)
	if ok {
		c.observer.StateChanged(Connecting)
	}
}

// Disconnect closes the stream, cancels a pending dial or reconnect and
// returns to Idle. It is safe to call in any state, any number of times.
// No frame starts dispatching after Disconnect returns; a handler or notifier
// call already running on the stream goroutine is not waited for.
func (c *Client) Disconnect() {
	c.mu.Lock()
	c.generation++
	stale := c.stream
	c.stream = nil
	c.cancelLocked()
	c.stopTimerLocked()
	changed := c.state != Idle
	c.state = Idle
	c.attempts = 0
	c.gaveUp = false
	connID := c.connID
	c.mu.Unlock()

	closeStream(stale)
	if changed {
		c.logger.Info().Str("conn_id", connID).Msg("Realtime disconnected")
		c.observer.StateChanged(Idle)
	}
}

// startLocked begins a dial for the current session and returns the stream
// it superseded. It reports false when there is no session.
func (c *Client) startLocked() (Stream, bool) {
	s, ok := c.sessions.Current()
	if !ok {
		return nil, false
	}

	c.generation++
	gen := c.generation
	stale := c.stream
	c.stream = nil
	c.cancelLocked()
	c.stopTimerLocked()

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.connID = uuid.NewString()
	c.state = Connecting

	target := Target{AccessToken: s.AccessToken, SubjectID: s.SubjectID}
	go c.run(ctx, gen, c.connID, target)
	return stale, true
}

func (c *Client) run(ctx context.Context, gen uint64, connID string, target Target) {
	logger := c.logger.With().Str("conn_id", connID).Str("subject_id", target.SubjectID).Logger()

	stream, err := c.transport.Dial(ctx, target)
	c.observer.Dialed(err)
	if err != nil {
		logger.Warn().Err(err).Msg("Realtime dial failed")
		c.closed(gen, apperrors.Join(apperrors.ErrTransport, err))
		return
	}

	c.mu.Lock()
	if c.generation != gen {
		c.mu.Unlock()
		closeStream(stream)
		return
	}
	c.stream = stream
	c.state = Open
	c.attempts = 0
	c.stopTimerLocked()
	c.mu.Unlock()

	logger.Info().Msg("Realtime connected")
	c.observer.StateChanged(Open)

	for {
		frame, err := stream.Next()
		if err != nil {
			logger.Info().Err(err).Msg("Realtime stream closed")
			c.closed(gen, apperrors.Join(apperrors.ErrTransport, err))
			return
		}
		c.dispatch(gen, logger, frame)
	}
}

func (c *Client) current(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation == gen
}

// dispatch hands one frame to its handler and then to the notifier. The
// generation is checked before each of them, so a handler that disconnects
// keeps the frame from the notifier.
func (c *Client) dispatch(gen uint64, logger zerolog.Logger, frame []byte) {
	if !c.current(gen) {
		return
	}
	ev, err := ParseEvent(frame)
	if err != nil {
		logger.Warn().Err(err).Int("size", len(frame)).Msg("Dropping malformed event")
		c.observer.EventMalformed()
		return
	}

	if h, ok := c.handlers[ev.Type]; ok {
		h(ev.Data)
		if !c.current(gen) {
			return
		}
	}
	if c.notifier != nil {
		c.notifier.Notify(ev)
	}
	logger.Debug().Str("event_type", ev.Type).Msg("Event dispatched")
	c.observer.EventDispatched(ev.Type)
}

// closed applies the reconnect policy after the stream of generation gen
// failed to open or ended.
func (c *Client) closed(gen uint64, cause error) {
	c.mu.Lock()
	if c.generation != gen {
		c.mu.Unlock()
		return
	}
	stale := c.stream
	c.stream = nil
	c.cancelLocked()
	c.state = Closed

	var (
		attempt  int
		schedule bool
		giveUp   bool
	)
	if c.autoReconnect {
		if c.attempts < c.maxAttempts {
			c.attempts++
			attempt = c.attempts
			schedule = true
			c.stopTimerLocked()
			c.timer = c.clock.AfterFunc(c.interval, func() { c.reconnect(gen) })
		} else if !c.gaveUp {
			c.gaveUp = true
			giveUp = true
		}
	}
	connID := c.connID
	c.mu.Unlock()

	closeStream(stale)
	c.observer.StateChanged(Closed)

	switch {
	case schedule:
		c.logger.Info().Str("conn_id", connID).Int("attempt", attempt).Dur("in", c.interval).Msg("Realtime reconnect scheduled")
		c.observer.ReconnectScheduled(attempt)
	case giveUp:
		c.logger.Error().Err(cause).Str("conn_id", connID).Int("attempt", c.maxAttempts).Msg("Realtime reconnect attempts exhausted")
		c.observer.GaveUp()
		if c.onNotice != nil {
			c.onNotice(ConnectionLostNotice)
		}
	}
}

// reconnect is the timer callback. It keeps the attempt counter.
func (c *Client) reconnect(gen uint64) {
	c.mu.Lock()
	if c.generation != gen || c.state != Closed {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	stale, ok := c.startLocked()
	if !ok {
		c.state = Idle
	}
	c.mu.Unlock()

	closeStream(stale)
	if ok {
		c.observer.StateChanged(Connecting)
	} else {
		c.observer.StateChanged(Idle)
	}
}

func (c *Client) cancelLocked() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

func (c *Client) stopTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func closeStream(s Stream) {
	if s == nil {
		return
	}
	if err := s.Close(); err != nil {
		log.Debug().Err(err).Msg("Closing realtime stream")
	}
}
