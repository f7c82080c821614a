package config

import "time"

const (
	TransportSSE       = "sse"
	TransportWebSocket = "ws"
)

type RealtimeConfig interface {
	GetRealtimeTransport() string
	GetRealtimeURL() string
	GetAutoReconnect() bool
	GetReconnectInterval() time.Duration
	GetMaxReconnectAttempts() int
	GetRealtimeNotifications() bool
}

var _ RealtimeConfig = mainConfig{}

func (c mainConfig) GetRealtimeTransport() string {
	return c.v.RealtimeTransport
}

// GetRealtimeURL is the base API endpoint plus the path suffix of the
// configured transport.
func (c mainConfig) GetRealtimeURL() string {
	if c.v.RealtimeTransport == TransportWebSocket {
		return c.v.APIURL + c.v.RealtimeWSPath
	}
	return c.v.APIURL + c.v.RealtimeSSEPath
}

func (c mainConfig) GetAutoReconnect() bool {
	return c.v.AutoReconnect
}

func (c mainConfig) GetReconnectInterval() time.Duration {
	return c.v.ReconnectInterval
}

func (c mainConfig) GetMaxReconnectAttempts() int {
	return c.v.MaxReconnectAttempts
}

func (c mainConfig) GetRealtimeNotifications() bool {
	return c.v.RealtimeNotifications
}
