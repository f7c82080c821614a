package session_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/abase/abase-manager/authapi"
	"github.com/abase/abase-manager/clientstore/memrepo"
	"github.com/abase/abase-manager/internal/clock"
	"github.com/abase/abase-manager/internal/config"
	"github.com/abase/abase-manager/session"
	"github.com/abase/abase-manager/users"
	"github.com/stretchr/testify/require"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

type logoutCall struct {
	accessToken  string
	refreshToken string
	subjectID    string
	global       bool
}

type callbackCall struct {
	code        string
	verifier    string
	redirectURI string
}

// fakeAuth is a scriptable authapi.API. Unset hooks succeed with fixed
// tokens for subject 42.
type fakeAuth struct {
	mu sync.Mutex

	loginLocal func(ctx context.Context, identifier, secret string) (*authapi.TokenResponse, error)
	callback   func(ctx context.Context, code, verifier string) (*authapi.TokenResponse, error)
	refresh    func(ctx context.Context, refreshToken string) (*authapi.RefreshResponse, error)
	me         func(ctx context.Context, accessToken string) (*users.Profile, error)
	logoutErr  error

	callbacks []callbackCall
	logouts   []logoutCall
	refreshes []string
}

var _ authapi.API = (*fakeAuth)(nil)

func testProfile() *users.Profile {
	return &users.Profile{
		ID:       "42",
		Email:    "maria@abase.example",
		FullName: "Maria Silva",
		Active:   true,
		Roles:    []users.RoleType{users.RoleAnalista},
		Role:     users.RoleAnalista,
	}
}

func okTokens() *authapi.TokenResponse {
	return &authapi.TokenResponse{
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		TokenType:    "bearer",
		ExpiresIn:    900,
		User:         testProfile(),
	}
}

func (f *fakeAuth) LoginLocal(ctx context.Context, identifier, secret string) (*authapi.TokenResponse, error) {
	f.mu.Lock()
	fn := f.loginLocal
	f.mu.Unlock()
	if fn != nil {
		return fn(ctx, identifier, secret)
	}
	return okTokens(), nil
}

func (f *fakeAuth) OIDCCallback(ctx context.Context, code, verifier, redirectURI string) (*authapi.TokenResponse, error) {
	f.mu.Lock()
	f.callbacks = append(f.callbacks, callbackCall{code: code, verifier: verifier, redirectURI: redirectURI})
	fn := f.callback
	f.mu.Unlock()
	if fn != nil {
		return fn(ctx, code, verifier)
	}
	return okTokens(), nil
}

func (f *fakeAuth) Refresh(ctx context.Context, refreshToken string) (*authapi.RefreshResponse, error) {
	f.mu.Lock()
	f.refreshes = append(f.refreshes, refreshToken)
	fn := f.refresh
	f.mu.Unlock()
	if fn != nil {
		return fn(ctx, refreshToken)
	}
	return &authapi.RefreshResponse{AccessToken: "access-2", ExpiresIn: 900}, nil
}

func (f *fakeAuth) Logout(_ context.Context, accessToken, refreshToken, subjectID string, global bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logouts = append(f.logouts, logoutCall{accessToken, refreshToken, subjectID, global})
	return f.logoutErr
}

func (f *fakeAuth) Me(ctx context.Context, accessToken string) (*users.Profile, error) {
	f.mu.Lock()
	fn := f.me
	f.mu.Unlock()
	if fn != nil {
		return fn(ctx, accessToken)
	}
	return testProfile(), nil
}

func (f *fakeAuth) logoutCalls() []logoutCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]logoutCall(nil), f.logouts...)
}

func (f *fakeAuth) callbackCalls() []callbackCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]callbackCall(nil), f.callbacks...)
}

type navRecorder struct {
	mu    sync.Mutex
	paths []string
}

func (n *navRecorder) Navigate(path string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.paths = append(n.paths, path)
}

func (n *navRecorder) all() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.paths...)
}

func (n *navRecorder) last() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.paths) == 0 {
		return ""
	}
	return n.paths[len(n.paths)-1]
}

type changeRecorder struct {
	mu      sync.Mutex
	changes []session.Change
}

func (c *changeRecorder) record(ch session.Change) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.changes = append(c.changes, ch)
}

func (c *changeRecorder) kinds() []session.ChangeKind {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]session.ChangeKind, 0, len(c.changes))
	for _, ch := range c.changes {
		out = append(out, ch.Kind)
	}
	return out
}

type testFixture struct {
	cfg     config.Config
	auth    *fakeAuth
	store   *memrepo.InMemoryRepo
	nav     *navRecorder
	clock   *clock.FakeClock
	changes *changeRecorder
	manager *session.Manager
}

func setupTestFixture(t *testing.T, env map[string]string) *testFixture {
	t.Helper()

	vars := map[string]string{
		"OIDC_ISSUER":       "https://id.abase.example/realms/abase",
		"OIDC_CLIENT_ID":    "abase-web",
		"OIDC_REDIRECT_URL": "http://localhost:3000/auth/callback",
	}
	for k, v := range env {
		vars[k] = v
	}
	cfg, err := config.LoadFromMap(vars)
	require.NoError(t, err)

	f := &testFixture{
		cfg:     cfg,
		auth:    &fakeAuth{},
		store:   memrepo.New(),
		nav:     &navRecorder{},
		clock:   clock.Fake(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)),
		changes: &changeRecorder{},
	}
	f.manager, err = session.New(cfg, f.auth, f.store, f.nav, session.WithClock(f.clock))
	require.NoError(t, err)
	f.manager.Subscribe(f.changes.record)
	return f
}

func (f *testFixture) stored(t *testing.T, key string) (string, bool) {
	t.Helper()
	v, err := f.store.Get(key)
	if err != nil {
		return "", false
	}
	return v, true
}

func (f *testFixture) login(t *testing.T) {
	t.Helper()
	require.NoError(t, f.manager.LoginLocal(context.Background(), "maria", "s3cret"))
}
