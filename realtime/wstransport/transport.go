// Package wstransport reads realtime events from a WebSocket endpoint.
package wstransport

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	apperrors "github.com/abase/abase-manager/internal/errors"
	"github.com/abase/abase-manager/realtime"
)

var _ realtime.Transport = (*Transport)(nil)

type Transport struct {
	endpoint string
	dialer   *websocket.Dialer
}

type Option func(*Transport)

func WithDialer(d *websocket.Dialer) Option {
	return func(t *Transport) {
		t.dialer = d
	}
}

// New accepts http(s) or ws(s) endpoints; http schemes are mapped to their
// websocket counterparts.
func New(endpoint string, options ...Option) *Transport {
	t := &Transport{
		endpoint: websocketURL(endpoint),
		dialer:   websocket.DefaultDialer,
	}
	for _, opt := range options {
		opt(t)
	}
	return t
}

func (t *Transport) Dial(ctx context.Context, target realtime.Target) (realtime.Stream, error) {
	header := http.Header{}
	if target.AccessToken != "" {
		header.Set("Authorization", "Bearer "+target.AccessToken)
	}

	conn, resp, err := t.dialer.DialContext(ctx, t.endpoint, header)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return nil, apperrors.Join(apperrors.ErrUnauthorized, fmt.Errorf("[wstransport.Dial] %w", err))
		}
		return nil, fmt.Errorf("[wstransport.Dial] %w", err)
	}
	return &stream{conn: conn}, nil
}

func websocketURL(endpoint string) string {
	switch {
	case strings.HasPrefix(endpoint, "https://"):
		return "wss://" + strings.TrimPrefix(endpoint, "https://")
	case strings.HasPrefix(endpoint, "http://"):
		return "ws://" + strings.TrimPrefix(endpoint, "http://")
	}
	return endpoint
}

type stream struct {
	conn      *websocket.Conn
	closeOnce sync.Once
	closeErr  error
}

// Next returns the next text frame. Binary frames are skipped; the channel
// carries JSON text only.
func (s *stream) Next() ([]byte, error) {
	for {
		messageType, data, err := s.conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		if messageType == websocket.TextMessage {
			return data, nil
		}
	}
}

func (s *stream) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.conn.Close()
	})
	return s.closeErr
}
