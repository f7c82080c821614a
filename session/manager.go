package session

import (
	"errors"
	"sync"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/rs/zerolog/log"

	"github.com/abase/abase-manager/apiclient"
	"github.com/abase/abase-manager/authapi"
	"github.com/abase/abase-manager/clientstore"
	"github.com/abase/abase-manager/internal/clock"
	"github.com/abase/abase-manager/internal/config"
	apperrors "github.com/abase/abase-manager/internal/errors"
	"github.com/abase/abase-manager/token"
	"github.com/abase/abase-manager/users"
)

// Config is the part of the application configuration the manager reads.
type Config interface {
	config.APIConfig
	config.OIDCConfig
}

// Manager is the single source of truth for "is the user logged in". It owns
// the Session; construct one per application scope and pass it by reference.
type Manager struct {
	cfg   Config
	auth  authapi.API
	store clientstore.Repo
	nav   Navigator
	clock clock.Clock

	provider *oidc.Provider // Optional; set when discovery is used

	mu               sync.Mutex
	state            State
	session          *Session
	inFlight         bool // A login exchange is waiting on the collaborator
	federatedPending bool // LoginFederated navigated away; a callback is expected
	generation       uint64
	observers        map[int]func(Change)
	nextObserver     int
	redirectTimer    clock.Timer
	redirectSeq      uint64
}

// ManagerOption defines a function type to modify the Manager instance.
type ManagerOption func(*Manager)

// WithClock sets the clock (primarily for testing)
func WithClock(c clock.Clock) ManagerOption {
	return func(m *Manager) {
		m.clock = c
	}
}

// WithOIDCProvider uses a discovered provider's authorization endpoint
// instead of <issuer>/authorize.
func WithOIDCProvider(p *oidc.Provider) ManagerOption {
	return func(m *Manager) {
		m.provider = p
	}
}

var _ apiclient.ExpiringTokenSource = (*Manager)(nil)

// ExpiryLeeway is how early an access token counts as expired, so a request
// is not sent with a token that lapses in flight.
const ExpiryLeeway = 30 * time.Second

// New initializes a Manager with required dependencies.
func New(cfg Config, auth authapi.API, store clientstore.Repo, nav Navigator, options ...ManagerOption) (*Manager, error) {
	if cfg == nil {
		return nil, errors.New("[session.New] config is required")
	}
	if auth == nil {
		return nil, errors.New("[session.New] auth API is required")
	}
	if store == nil {
		return nil, errors.New("[session.New] client store is required")
	}
	if nav == nil {
		nav = NavigatorFunc(func(string) {})
	}

	m := &Manager{
		cfg:       cfg,
		auth:      auth,
		store:     store,
		nav:       nav,
		clock:     clock.Real(),
		state:     Unauthenticated,
		observers: make(map[int]func(Change)),
	}
	for _, opt := range options {
		opt(m)
	}
	return m, nil
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Current returns a copy of the active session.
func (m *Manager) Current() (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return Session{}, false
	}
	return *m.session, true
}

func (m *Manager) IsAuthenticated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == Authenticated && m.session != nil
}

// AccessToken and RefreshToken make the manager an apiclient.TokenSource.
func (m *Manager) AccessToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return ""
	}
	return m.session.AccessToken
}

func (m *Manager) RefreshToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return ""
	}
	return m.session.RefreshToken
}

// AccessTokenExpired reports whether the session's access token expires
// within ExpiryLeeway. It is false without a session.
func (m *Manager) AccessTokenExpired() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return false
	}
	return token.Expired(m.session.Expiry, ExpiryLeeway)
}

// Attach makes c send the session's bearer token, refresh through the
// manager and end the session when a call cannot be recovered.
func (m *Manager) Attach(c *apiclient.Client) {
	c.SetTokenSource(m)
	c.SetRefresher(m.RefreshAccessToken)
	c.SetOnUnauthorized(m.HandleUnauthorized)
}

// Subscribe registers fn for every session change and returns a function
// that removes it. fn runs on the goroutine that caused the change, with no
// manager lock held.
func (m *Manager) Subscribe(fn func(Change)) func() {
	m.mu.Lock()
	id := m.nextObserver
	m.nextObserver++
	m.observers[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.observers, id)
		m.mu.Unlock()
	}
}

// beginLogin enters Authenticating and returns the state to fall back to
// plus the generation the login belongs to. A second login while one is
// waiting on the collaborator is a caller error. allowPendingFederated lets
// the callback completion proceed after LoginFederated navigated away.
func (m *Manager) beginLogin(allowPendingFederated bool) (State, uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.inFlight {
		return m.state, m.generation, apperrors.ErrLoginInProgress
	}
	if m.state == Authenticating && !(allowPendingFederated && m.federatedPending) {
		return m.state, m.generation, apperrors.ErrLoginInProgress
	}

	prev := m.state
	if prev == Authenticating {
		prev = Unauthenticated
	}
	m.stopRedirectLocked()
	m.state = Authenticating
	m.inFlight = true
	return prev, m.generation, nil
}

// abortLogin returns to the state held before the login started. An existing
// session survives a failed re-login. Nothing happens if a logout or cancel
// already moved the manager on.
func (m *Manager) abortLogin(prev State, gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.generation != gen {
		return
	}
	m.inFlight = false
	m.federatedPending = false
	if m.session != nil {
		m.state = Authenticated
		return
	}
	m.state = prev
	if prev == Authenticated {
		m.state = Unauthenticated
	}
}

// establish installs a new session from a login answer and persists its
// tokens. A login overtaken by logout or cancel is discarded.
func (m *Manager) establish(gen uint64, accessToken, refreshToken string, expiresIn int, profile *users.Profile) (Session, error) {
	s := &Session{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Expiry:       token.ExpiryIn(expiresIn, accessToken, m.cfg.GetAccessTokenTTL()),
	}
	if profile != nil {
		s.Profile = *profile
		s.SubjectID = profile.ID
		s.DisplayName = profile.DisplayName()
		s.Role = profile.Role
	}
	if s.SubjectID == "" {
		if c, ok := token.Inspect(accessToken); ok {
			s.SubjectID = c.Subject
		}
	}

	m.mu.Lock()
	if m.generation != gen {
		m.mu.Unlock()
		return Session{}, apperrors.ErrLoginCancelled
	}
	m.session = s
	m.state = Authenticated
	m.inFlight = false
	m.federatedPending = false
	m.generation++
	snapshot := *s
	observers := m.observersLocked()
	m.mu.Unlock()

	m.persistTokens(accessToken, refreshToken)

	log.Info().Str("subject_id", snapshot.SubjectID).Str("role", string(snapshot.Role)).Msg("Session started")
	notify(observers, Change{Kind: Started, Session: &snapshot})
	return snapshot, nil
}

// teardown is the single convergence point of logout, refresh failure and
// unauthorized signals. Clearing an empty session is a no-op apart from the
// store cleanup. It reports whether a session existed.
func (m *Manager) teardown(reason string) bool {
	m.mu.Lock()
	existed := m.session != nil
	m.session = nil
	m.state = Unauthenticated
	m.inFlight = false
	m.federatedPending = false
	m.generation++
	m.stopRedirectLocked()
	observers := m.observersLocked()
	m.mu.Unlock()

	m.clearStoredTokens()

	if existed {
		log.Info().Str("reason", reason).Msg("Session ended")
		notify(observers, Change{Kind: Ended})
	}
	return existed
}

func (m *Manager) clearStoredTokens() {
	for _, key := range []string{clientstore.KeyAccessToken, clientstore.KeyRefreshToken} {
		if err := m.store.Delete(key); err != nil {
			log.Err(err).Str("key", key).Msg("Failed to clear stored token")
		}
	}
}

func (m *Manager) persistTokens(accessToken, refreshToken string) {
	if err := m.store.Set(clientstore.KeyAccessToken, accessToken); err != nil {
		log.Err(err).Msg("Failed to persist access token")
	}
	if refreshToken == "" {
		return
	}
	if err := m.store.Set(clientstore.KeyRefreshToken, refreshToken); err != nil {
		log.Err(err).Msg("Failed to persist refresh token")
	}
}

func (m *Manager) observersLocked() []func(Change) {
	out := make([]func(Change), 0, len(m.observers))
	for _, fn := range m.observers {
		out = append(out, fn)
	}
	return out
}

func (m *Manager) stopRedirectLocked() {
	m.redirectSeq++
	if m.redirectTimer != nil {
		m.redirectTimer.Stop()
		m.redirectTimer = nil
	}
}

func notify(observers []func(Change), c Change) {
	for _, fn := range observers {
		fn(c)
	}
}
