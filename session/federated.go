package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/abase/abase-manager/authapi"
	"github.com/abase/abase-manager/clientstore"
	"github.com/abase/abase-manager/internal/config"
	apperrors "github.com/abase/abase-manager/internal/errors"
)

var federatedScopes = []string{"openid", "profile", "email"}

// LoginFederated starts an authorization-code login with PKCE. The verifier
// and the optional return path are persisted so the flow survives the round
// trip through the identity provider. It returns the authorization URL it
// navigated to.
func (m *Manager) LoginFederated(ctx context.Context, returnPath string) (string, error) {
	prev, gen, err := m.beginLogin(false)
	if err != nil {
		return "", err
	}

	verifier := oauth2.GenerateVerifier()
	if err := m.store.Set(clientstore.KeyCodeVerifier, verifier); err != nil {
		m.abortLogin(prev, gen)
		return "", fmt.Errorf("[session.LoginFederated] persist verifier: %w", err)
	}
	if returnPath != "" {
		err = m.store.Set(clientstore.KeyAuthRedirect, returnPath)
	} else {
		err = m.store.Delete(clientstore.KeyAuthRedirect)
	}
	if err != nil {
		m.abortLogin(prev, gen)
		return "", fmt.Errorf("[session.LoginFederated] persist return path: %w", err)
	}

	authURL := m.authorizationURL(ctx, verifier)

	m.mu.Lock()
	if m.generation == gen {
		m.inFlight = false
		m.federatedPending = true
	}
	m.mu.Unlock()

	log.Info().Str("return_path", returnPath).Msg("Federated login started")
	m.nav.Navigate(authURL)
	return authURL, nil
}

// CompleteFederatedLogin finishes the flow LoginFederated started. Any
// failure leaves the manager Unauthenticated, ending a session that was still
// active, returns ErrCallback and sends the user back to the login path after
// the configured delay.
func (m *Manager) CompleteFederatedLogin(ctx context.Context, params CallbackParams) error {
	prev, gen, err := m.beginLogin(true)
	if err != nil {
		return err
	}

	verifier, err := m.store.Get(clientstore.KeyCodeVerifier)
	if err != nil {
		// A lost verifier is sent as empty; the API decides.
		verifier = ""
	}
	m.clearFlowKeys(clientstore.KeyCodeVerifier)

	switch {
	case params.Error != "":
		err = fmt.Errorf("provider returned %q: %s: %w", params.Error, params.ErrorDescription, apperrors.ErrCallback)
	case params.Code == "":
		err = apperrors.Join(apperrors.ErrCallback, apperrors.ErrMissingAuthCode)
	default:
		var tr *authapi.TokenResponse
		tr, err = m.auth.OIDCCallback(ctx, params.Code, verifier, m.cfg.GetOIDCRedirectURL())
		if err == nil {
			_, err = m.establish(gen, tr.AccessToken, tr.RefreshToken, tr.ExpiresIn, tr.UserProfile())
		}
	}
	if err != nil {
		m.clearFlowKeys(clientstore.KeyAuthRedirect)
		m.abortLogin(prev, gen)
		m.endForFailedCallback(gen)
		m.scheduleLoginRedirect()
		log.Err(err).Msg("Federated login callback failed")
		if !apperrors.Is(err, apperrors.ErrCallback) {
			err = apperrors.Join(apperrors.ErrCallback, err)
		}
		return fmt.Errorf("[session.CompleteFederatedLogin] %w", err)
	}

	target := m.cfg.GetDefaultPath()
	if p, err := m.store.Get(clientstore.KeyAuthRedirect); err == nil && p != "" {
		target = p
	}
	m.clearFlowKeys(clientstore.KeyAuthRedirect)
	m.nav.Navigate(target)
	return nil
}

// CancelLogin abandons a federated login that navigated away and never came
// back. It has no effect on an established session.
func (m *Manager) CancelLogin() {
	m.mu.Lock()
	if m.state != Authenticating {
		m.mu.Unlock()
		return
	}
	m.inFlight = false
	m.federatedPending = false
	m.generation++
	if m.session != nil {
		m.state = Authenticated
	} else {
		m.state = Unauthenticated
	}
	m.mu.Unlock()

	m.clearFlowKeys(clientstore.KeyCodeVerifier, clientstore.KeyAuthRedirect)
	log.Info().Msg("Federated login cancelled")
}

// authorizationURL builds the provider URL with response_type=code, the
// client id, redirect URI, scopes and the PKCE challenge.
func (m *Manager) authorizationURL(ctx context.Context, verifier string) string {
	oc := oauth2.Config{
		ClientID:    m.cfg.GetOIDCClientID(),
		RedirectURL: m.cfg.GetOIDCRedirectURL(),
		Scopes:      federatedScopes,
		Endpoint:    oauth2.Endpoint{AuthURL: m.authEndpoint(ctx)},
	}

	var opts []oauth2.AuthCodeOption
	if strings.EqualFold(m.cfg.GetOIDCChallengeMethod(), config.ChallengeMethodPlain) {
		opts = append(opts,
			oauth2.SetAuthURLParam("code_challenge", verifier),
			oauth2.SetAuthURLParam("code_challenge_method", config.ChallengeMethodPlain),
		)
	} else {
		opts = append(opts, oauth2.S256ChallengeOption(verifier))
	}
	return oc.AuthCodeURL("", opts...)
}

func (m *Manager) authEndpoint(ctx context.Context) string {
	if m.provider != nil {
		if u := m.provider.Endpoint().AuthURL; u != "" {
			return u
		}
	}
	return strings.TrimRight(m.cfg.GetOIDCIssuer(), "/") + "/authorize"
}

// endForFailedCallback tears down a session that outlived a failed callback,
// unless a logout or another login already moved the manager on.
func (m *Manager) endForFailedCallback(gen uint64) {
	m.mu.Lock()
	active := m.generation == gen && m.session != nil
	m.mu.Unlock()
	if active {
		m.teardown("federated callback failed")
	}
}

func (m *Manager) scheduleLoginRedirect() {
	loginPath := m.cfg.GetLoginPath()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopRedirectLocked()
	seq := m.redirectSeq
	m.redirectTimer = m.clock.AfterFunc(m.cfg.GetCallbackRedirectDelay(), func() {
		m.mu.Lock()
		current := m.redirectSeq == seq
		if current {
			m.redirectTimer = nil
		}
		m.mu.Unlock()
		if current {
			m.nav.Navigate(loginPath)
		}
	})
}

func (m *Manager) clearFlowKeys(keys ...string) {
	for _, key := range keys {
		if err := m.store.Delete(key); err != nil {
			log.Err(err).Str("key", key).Msg("Failed to clear login flow key")
		}
	}
}
