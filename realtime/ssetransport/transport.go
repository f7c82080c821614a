// Package ssetransport reads realtime events from a Server-Sent Events
// endpoint.
package ssetransport

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/abase/abase-manager/internal/errors"
	"github.com/abase/abase-manager/realtime"
)

var _ realtime.Transport = (*Transport)(nil)

type Transport struct {
	endpoint   string
	httpClient *http.Client
}

type Option func(*Transport)

// WithHTTPClient replaces the default client. The client must not set a
// Timeout, which would cut long-lived streams.
func WithHTTPClient(c *http.Client) Option {
	return func(t *Transport) {
		t.httpClient = c
	}
}

func New(endpoint string, options ...Option) *Transport {
	t := &Transport{
		endpoint:   endpoint,
		httpClient: &http.Client{},
	}
	for _, opt := range options {
		opt(t)
	}
	return t
}

func (t *Transport) Dial(ctx context.Context, target realtime.Target) (realtime.Stream, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("[ssetransport.Dial] %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	if target.AccessToken != "" {
		req.Header.Set("Authorization", "Bearer "+target.AccessToken)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("[ssetransport.Dial] %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		err := fmt.Errorf("[ssetransport.Dial] unexpected status %d", resp.StatusCode)
		if resp.StatusCode == http.StatusUnauthorized {
			return nil, apperrors.Join(apperrors.ErrUnauthorized, err)
		}
		return nil, err
	}

	return &stream{body: resp.Body, r: bufio.NewReader(resp.Body)}, nil
}

type stream struct {
	body io.ReadCloser
	r    *bufio.Reader
}

// Next returns the data of the next event: its data lines joined by "\n".
// Comments and the event, id and retry fields are skipped.
func (s *stream) Next() ([]byte, error) {
	var data [][]byte
	for {
		line, err := s.r.ReadBytes('\n')
		if err != nil {
			return nil, err
		}
		line = bytes.TrimRight(line, "\r\n")

		if len(line) == 0 {
			if len(data) > 0 {
				return bytes.Join(data, []byte("\n")), nil
			}
			continue
		}
		if line[0] == ':' {
			continue
		}

		field, value, _ := bytes.Cut(line, []byte(":"))
		if string(field) == "data" {
			data = append(data, bytes.TrimPrefix(value, []byte(" ")))
		}
	}
}

func (s *stream) Close() error {
	return s.body.Close()
}
