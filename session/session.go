package session

import (
	"time"

	"github.com/abase/abase-manager/users"
)

// State is the authentication lifecycle state.
type State int

const (
	Unauthenticated State = iota
	Authenticating
	Authenticated
)

func (s State) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	}
	return "unknown"
}

// Session is the authenticated identity and token pair. Only the Manager
// mutates it; everyone else receives copies.
type Session struct {
	SubjectID    string
	DisplayName  string
	Role         users.RoleType
	Profile      users.Profile
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
}

// ChangeKind says what happened to the session.
type ChangeKind int

const (
	Started   ChangeKind = iota // A new session was established
	Refreshed                   // Tokens of the current session were replaced
	Ended                       // The session is gone
)

func (k ChangeKind) String() string {
	switch k {
	case Started:
		return "started"
	case Refreshed:
		return "refreshed"
	case Ended:
		return "ended"
	}
	return "unknown"
}

// Change is delivered to observers after every session transition. Session
// is nil when Kind is Ended.
type Change struct {
	Kind    ChangeKind
	Session *Session
}

// Navigator moves the user to another screen or URL. Navigation is the only
// UI effect the manager performs and it is always delegated.
type Navigator interface {
	Navigate(path string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(path string)

func (f NavigatorFunc) Navigate(path string) {
	f(path)
}

// CallbackParams is what the identity provider put on the redirect back to
// the console.
type CallbackParams struct {
	Code             string
	Error            string
	ErrorDescription string
}
