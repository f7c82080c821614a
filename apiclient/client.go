package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	apperrors "github.com/abase/abase-manager/internal/errors"
)

const (
	headerRequestID     = "X-Request-ID"
	headerAuthorization = "Authorization"
	defaultTimeout      = 30 * time.Second
	refreshTimeout      = 15 * time.Second
)

// TokenSource supplies the bearer tokens of the active session.
type TokenSource interface {
	AccessToken() string
	RefreshToken() string
}

// ExpiringTokenSource is a TokenSource that knows its access token is about
// to expire. Do refreshes such a token before sending the request.
type ExpiringTokenSource interface {
	TokenSource
	AccessTokenExpired() bool
}

// RefreshFunc exchanges the refresh token for a new access token.
type RefreshFunc func(ctx context.Context) (string, error)

// Request describes one API call. Path is appended to the base URL.
type Request struct {
	Method string
	Path   string
	Body   any
	Header http.Header

	// Token overrides the TokenSource for this call.
	Token string
	// Anonymous sends no Authorization header at all.
	Anonymous bool
	// NoAuthRetry skips the 401 -> refresh -> retry path. Auth endpoints use
	// it so a failing refresh cannot recurse.
	NoAuthRetry bool
}

// Client talks JSON to the ABASE REST API on behalf of the active session.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	tokens         TokenSource
	refresh        RefreshFunc
	onUnauthorized func()
	onError        func(*APIError)

	refreshMu sync.Mutex
	inflight  *refreshCall
}

type refreshCall struct {
	done  chan struct{}
	token string
	err   error
}

// Option configures a Client.
type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) {
		c.tokens = ts
	}
}

func WithRefresher(fn RefreshFunc) Option {
	return func(c *Client) {
		c.refresh = fn
	}
}

// WithOnUnauthorized sets the hook fired when a call ends unauthorized after
// the refresh attempt. The session manager uses it as its global logout signal.
func WithOnUnauthorized(fn func()) Option {
	return func(c *Client) {
		c.onUnauthorized = fn
	}
}

// WithOnError sets a hook for every API error except 401.
func WithOnError(fn func(*APIError)) Option {
	return func(c *Client) {
		c.onError = fn
	}
}

func New(baseURL string, options ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// SetTokenSource, SetRefresher and SetOnUnauthorized wire the session after
// construction; the session manager and the client depend on each other.
func (c *Client) SetTokenSource(ts TokenSource) {
	c.tokens = ts
}

func (c *Client) SetRefresher(fn RefreshFunc) {
	c.refresh = fn
}

func (c *Client) SetOnUnauthorized(fn func()) {
	c.onUnauthorized = fn
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.Do(ctx, Request{Method: http.MethodGet, Path: path}, out)
}

func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, Request{Method: http.MethodPost, Path: path, Body: body}, out)
}

func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, Request{Method: http.MethodPut, Path: path, Body: body}, out)
}

func (c *Client) Patch(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, Request{Method: http.MethodPatch, Path: path, Body: body}, out)
}

func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.Do(ctx, Request{Method: http.MethodDelete, Path: path}, out)
}

// Do performs req and decodes a JSON answer into out (when out is non-nil and
// the API returned content). A 401 is retried once after a token refresh; if
// that does not help the unauthorized hook fires and the error wraps
// errors.ErrUnauthorized. A cancelled ctx never fires the hook.
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	fromSource := req.Token == "" && !req.Anonymous && c.tokens != nil
	token := req.Token
	if fromSource {
		token = c.tokens.AccessToken()
	}
	if req.Anonymous {
		token = ""
	}
	stale := ""
	if fromSource {
		stale = token
	}

	if fromSource && !req.NoAuthRetry && c.accessTokenExpired() && c.canRefresh() {
		fresh, err := c.refreshShared(ctx, stale)
		if err != nil {
			return c.refreshFailed(req, err)
		}
		token, stale = fresh, fresh
	}

	status, body, err := c.send(ctx, req, token)
	if err != nil {
		if !apperrors.IsContextDone(err) {
			c.reportError(&APIError{Status: 0, Message: err.Error(), Code: CodeNetworkError})
		}
		return fmt.Errorf("[apiclient.Do] %s %s: %w", req.Method, req.Path, err)
	}

	if status == http.StatusUnauthorized && !req.NoAuthRetry && c.canRefresh() {
		newToken, refreshErr := c.refreshShared(ctx, stale)
		if refreshErr != nil {
			return c.refreshFailed(req, refreshErr)
		}
		status, body, err = c.send(ctx, req, newToken)
		if err != nil {
			return fmt.Errorf("[apiclient.Do] retry %s %s: %w", req.Method, req.Path, err)
		}
	}

	if status == http.StatusUnauthorized {
		if !req.NoAuthRetry {
			c.signalUnauthorized()
		}
		return apperrors.Join(apperrors.ErrUnauthorized, newAPIError(status, body))
	}

	if status < 200 || status > 299 {
		apiErr := newAPIError(status, body)
		c.reportError(apiErr)
		return apiErr
	}

	if out == nil || status == http.StatusNoContent || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("[apiclient.Do] decode %s %s: %w", req.Method, req.Path, err)
	}
	return nil
}

// refreshFailed turns a failed refresh into the error Do returns. Only a
// real refresh failure ends the session; an abandoned wait does not.
func (c *Client) refreshFailed(req Request, err error) error {
	if apperrors.IsContextDone(err) {
		return fmt.Errorf("[apiclient.Do] refresh for %s %s: %w", req.Method, req.Path, err)
	}
	log.Err(err).Str("path", req.Path).Msg("Token refresh failed")
	c.signalUnauthorized()
	apiErr := &APIError{Status: http.StatusUnauthorized, Message: "Sessão expirada. Faça login novamente.", Code: CodeSessionExpired}
	c.reportError(apiErr)
	return apperrors.Join(apperrors.ErrUnauthorized, apiErr)
}

func (c *Client) send(ctx context.Context, req Request, token string) (int, []byte, error) {
	var reader io.Reader
	if req.Body != nil {
		payload, err := json.Marshal(req.Body)
		if err != nil {
			return 0, nil, fmt.Errorf("encode body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, c.baseURL+req.Path, reader)
	if err != nil {
		return 0, nil, err
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if httpReq.Header.Get(headerRequestID) == "" {
		httpReq.Header.Set(headerRequestID, uuid.New().String())
	}
	if token != "" {
		httpReq.Header.Set(headerAuthorization, "Bearer "+token)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read body: %w", err)
	}
	return resp.StatusCode, body, nil
}

func (c *Client) canRefresh() bool {
	return c.refresh != nil && c.tokens != nil && c.tokens.RefreshToken() != ""
}

func (c *Client) accessTokenExpired() bool {
	ets, ok := c.tokens.(ExpiringTokenSource)
	return ok && ets.AccessTokenExpired()
}

// refreshShared runs at most one refresh at a time; callers arriving while
// one is in flight wait for its result instead of starting another. A caller
// whose stale token was already replaced gets the current one. The refresh
// outlives the ctx of the caller that started it, bounded by refreshTimeout.
func (c *Client) refreshShared(ctx context.Context, stale string) (string, error) {
	c.refreshMu.Lock()
	call := c.inflight
	if call == nil {
		if current := c.tokens.AccessToken(); stale != "" && current != "" && current != stale {
			c.refreshMu.Unlock()
			return current, nil
		}
		call = &refreshCall{done: make(chan struct{})}
		c.inflight = call
		go c.runRefresh(context.WithoutCancel(ctx), call)
	}
	c.refreshMu.Unlock()

	select {
	case <-call.done:
		return call.token, call.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (c *Client) runRefresh(ctx context.Context, call *refreshCall) {
	ctx, cancel := context.WithTimeout(ctx, refreshTimeout)
	defer cancel()

	call.token, call.err = c.refresh(ctx)

	c.refreshMu.Lock()
	c.inflight = nil
	c.refreshMu.Unlock()
	close(call.done)
}

func (c *Client) signalUnauthorized() {
	if c.onUnauthorized != nil {
		c.onUnauthorized()
	}
}

func (c *Client) reportError(apiErr *APIError) {
	if c.onError != nil {
		c.onError(apiErr)
	}
}
