// Package realtime keeps a receive-only event channel open while a session
// exists, dispatches inbound events by type and reconnects on a fixed
// interval up to a bounded number of attempts.
package realtime

import (
	"context"
	"encoding/json"

	"github.com/abase/abase-manager/session"
)

// State is the connection lifecycle state.
type State int

const (
	Idle State = iota
	Connecting
	Open
	Closed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Connecting:
		return "connecting"
	case Open:
		return "open"
	case Closed:
		return "closed"
	}
	return "unknown"
}

// HandlerFunc receives the data field of an event.
type HandlerFunc func(data json.RawMessage)

// Handlers maps event types to handlers. A Client copies it at
// construction; later changes to the map are not seen.
type Handlers map[string]HandlerFunc

// Notifier is the passive consumer that turns events into user-visible
// notices. It runs after the business handler for the same event.
type Notifier interface {
	Notify(ev Event)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ev Event)

func (f NotifierFunc) Notify(ev Event) {
	f(ev)
}

// Notice levels
const (
	LevelSuccess = "success"
	LevelInfo    = "info"
	LevelWarning = "warning"
	LevelError   = "error"
)

// Notice is a user-visible message.
type Notice struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Level       string `yaml:"level"`
}

// ConnectionLostNotice is emitted once when reconnect attempts run out.
var ConnectionLostNotice = Notice{
	Title:       "Conexão perdida",
	Description: "Não foi possível reconectar ao servidor. Recarregue a página.",
	Level:       LevelError,
}

// Target is what a transport needs to open a stream for one session.
type Target struct {
	AccessToken string
	SubjectID   string
}

// Transport opens streams to a fixed endpoint.
type Transport interface {
	Dial(ctx context.Context, target Target) (Stream, error)
}

// Stream is one open connection. Next blocks until a frame arrives or the
// connection ends; Close unblocks a pending Next.
type Stream interface {
	Next() ([]byte, error)
	Close() error
}

// SessionSource exposes the current session.
type SessionSource interface {
	Current() (session.Session, bool)
}

// Observer receives connection lifecycle signals, typically to feed metrics.
type Observer interface {
	StateChanged(s State)
	Dialed(err error)
	ReconnectScheduled(attempt int)
	GaveUp()
	EventDispatched(eventType string)
	EventMalformed()
}

type noopObserver struct{}

func (noopObserver) StateChanged(State) {}
func (noopObserver) Dialed(error) {}
func (noopObserver) ReconnectScheduled(int) {}
func (noopObserver) GaveUp() {}
func (noopObserver) EventDispatched(string) {}
func (noopObserver) EventMalformed() {}
