package realtime

import "github.com/abase/abase-manager/session"

// Sessions is what Bind needs from the session manager.
type Sessions interface {
	SessionSource
	Subscribe(fn func(session.Change)) func()
}

// Bind keeps client connected exactly while sessions has a session: a new
// session (re)connects, the end of a session disconnects. Token refreshes
// do not touch the stream. If a session already exists the client connects
// immediately. The returned function unbinds and disconnects.
func Bind(sessions Sessions, client *Client) func() {
	unsubscribe := sessions.Subscribe(func(ch session.Change) {
		switch ch.Kind {
		case session.Started:
			client.Connect()
		case session.Ended:
			client.Disconnect()
		}
	})
	if _, ok := sessions.Current(); ok {
		client.Connect()
	}

	return func() {
		unsubscribe()
		client.Disconnect()
	}
}
