package realtime_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/abase/abase-manager/internal/clock"
	"github.com/abase/abase-manager/realtime"
	"github.com/abase/abase-manager/session"
	"github.com/stretchr/testify/require"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

var errRefused = errors.New("connection refused")

type fakeStream struct {
	frames chan []byte
	done   chan struct{}
	once   sync.Once
}

func newFakeStream() *fakeStream {
	return &fakeStream{frames: make(chan []byte, 16), done: make(chan struct{})}
}

func (s *fakeStream) Next() ([]byte, error) {
	select {
	case f := <-s.frames:
		return f, nil
	case <-s.done:
		return nil, io.EOF
	}
}

func (s *fakeStream) Close() error {
	s.once.Do(func() { close(s.done) })
	return nil
}

func (s *fakeStream) send(frame string) {
	s.frames <- []byte(frame)
}

func (s *fakeStream) isClosed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// fakeTransport fails while refuse is set and otherwise hands out a fresh
// fakeStream per dial. A non-nil gate blocks every dial until it is closed.
type fakeTransport struct {
	mu      sync.Mutex
	refuse  bool
	gate    chan struct{}
	targets []realtime.Target
	streams []*fakeStream
}

func (t *fakeTransport) Dial(ctx context.Context, target realtime.Target) (realtime.Stream, error) {
	t.mu.Lock()
	t.targets = append(t.targets, target)
	gate := t.gate
	t.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.refuse {
		return nil, errRefused
	}
	s := newFakeStream()
	t.streams = append(t.streams, s)
	return s, nil
}

func (t *fakeTransport) setRefuse(v bool) {
	t.mu.Lock()
	t.refuse = v
	t.mu.Unlock()
}

func (t *fakeTransport) dials() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.targets)
}

func (t *fakeTransport) latest() *fakeStream {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.streams) == 0 {
		return nil
	}
	return t.streams[len(t.streams)-1]
}

func (t *fakeTransport) openStreams() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, s := range t.streams {
		if !s.isClosed() {
			n++
		}
	}
	return n
}

// fakeSessions is a session source whose changes are driven by the test.
type fakeSessions struct {
	mu        sync.Mutex
	current   *session.Session
	observers []func(session.Change)
}

func (f *fakeSessions) Current() (session.Session, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.current == nil {
		return session.Session{}, false
	}
	return *f.current, true
}

func (f *fakeSessions) Subscribe(fn func(session.Change)) func() {
	f.mu.Lock()
	f.observers = append(f.observers, fn)
	idx := len(f.observers) - 1
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		f.observers[idx] = nil
		f.mu.Unlock()
	}
}

func (f *fakeSessions) start(subjectID, accessToken string) {
	s := &session.Session{SubjectID: subjectID, AccessToken: accessToken}
	f.mu.Lock()
	f.current = s
	observers := append([]func(session.Change){}, f.observers...)
	f.mu.Unlock()
	for _, fn := range observers {
		if fn != nil {
			fn(session.Change{Kind: session.Started, Session: s})
		}
	}
}

func (f *fakeSessions) end() {
	f.mu.Lock()
	f.current = nil
	observers := append([]func(session.Change){}, f.observers...)
	f.mu.Unlock()
	for _, fn := range observers {
		if fn != nil {
			fn(session.Change{Kind: session.Ended})
		}
	}
}

// recordingObserver counts lifecycle signals.
type recordingObserver struct {
	mu        sync.Mutex
	scheduled []int
	giveUps   int
	malformed int
	events    []string
}

func (o *recordingObserver) StateChanged(realtime.State) {}
func (o *recordingObserver) Dialed(error) {}

func (o *recordingObserver) ReconnectScheduled(attempt int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.scheduled = append(o.scheduled, attempt)
}

func (o *recordingObserver) GaveUp() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.giveUps++
}

func (o *recordingObserver) EventDispatched(eventType string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, eventType)
}

func (o *recordingObserver) EventMalformed() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.malformed++
}

func (o *recordingObserver) snapshot() (scheduled []int, giveUps, malformed int, events []string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]int(nil), o.scheduled...), o.giveUps, o.malformed, append([]string(nil), o.events...)
}

type handlerCall struct {
	eventType string
	data      string
}

type testFixture struct {
	sessions  *fakeSessions
	transport *fakeTransport
	clock     *clock.FakeClock
	observer  *recordingObserver
	client    *realtime.Client

	mu       sync.Mutex
	calls    []handlerCall
	notified []realtime.Event
	notices  []realtime.Notice
}

func setupTestFixture(t *testing.T, handledTypes []string, options ...realtime.Option) *testFixture {
	t.Helper()

	f := &testFixture{
		sessions:  &fakeSessions{current: &session.Session{SubjectID: "42", AccessToken: "access-1"}},
		transport: &fakeTransport{},
		clock:     clock.Fake(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)),
		observer:  &recordingObserver{},
	}

	handlers := realtime.Handlers{}
	for _, eventType := range handledTypes {
		handlers[eventType] = func(data json.RawMessage) {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.calls = append(f.calls, handlerCall{eventType: eventType, data: string(data)})
		}
	}

	opts := []realtime.Option{
		realtime.WithClock(f.clock),
		realtime.WithMetrics(f.observer),
		realtime.WithNotifier(realtime.NotifierFunc(func(ev realtime.Event) {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.notified = append(f.notified, ev)
		})),
		realtime.WithOnNotice(func(n realtime.Notice) {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.notices = append(f.notices, n)
		}),
	}
	f.client = realtime.NewClient(f.sessions, f.transport, handlers, append(opts, options...)...)
	t.Cleanup(f.client.Disconnect)
	return f
}

func (f *testFixture) handlerCalls() []handlerCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]handlerCall(nil), f.calls...)
}

func (f *testFixture) notifiedTypes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.notified))
	for _, ev := range f.notified {
		out = append(out, ev.Type)
	}
	return out
}

func (f *testFixture) noticeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.notices)
}

func (f *testFixture) waitState(t *testing.T, want realtime.State) {
	t.Helper()
	require.Eventually(t, func() bool { return f.client.State() == want }, waitFor, tick, "state never became %s", want)
}

// waitClosedWithTimer waits for a failed attempt to settle into Closed with
// exactly one reconnect pending.
func (f *testFixture) waitClosedWithTimer(t *testing.T, attempts int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return f.client.State() == realtime.Closed &&
			f.client.ReconnectAttempts() == attempts &&
			f.clock.Pending() == 1
	}, waitFor, tick, "no reconnect pending for attempt %d", attempts)
}

func (f *testFixture) connectOpen(t *testing.T) *fakeStream {
	t.Helper()
	f.client.Connect()
	f.waitState(t, realtime.Open)
	s := f.transport.latest()
	require.NotNil(t, s)
	return s
}
