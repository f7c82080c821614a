package session

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	apperrors "github.com/abase/abase-manager/internal/errors"
	"github.com/abase/abase-manager/token"
)

// Logout tells the API to revoke the refresh token, then tears the session
// down whatever the API answered, and navigates to the login path. Calling
// it without a session only clears storage and navigates.
func (m *Manager) Logout(ctx context.Context) {
	current, ok := m.Current()
	if ok {
		err := m.auth.Logout(ctx, current.AccessToken, current.RefreshToken, current.SubjectID, false)
		if err != nil {
			log.Err(err).Str("subject_id", current.SubjectID).Msg("Logout request failed")
		}
	}

	m.teardown("logout")
	m.nav.Navigate(m.cfg.GetLoginPath())
}

// HandleUnauthorized is called when a request ended unauthorized and could
// not be recovered. The user is sent to the login path only when there was
// a session to lose.
func (m *Manager) HandleUnauthorized() {
	if m.teardown("unauthorized") {
		m.nav.Navigate(m.cfg.GetLoginPath())
	}
}

// RefreshAccessToken exchanges the refresh token for a new access token and
// returns it. A failure ends the session and sends the user to login, unless
// ctx ended before the API answered.
func (m *Manager) RefreshAccessToken(ctx context.Context) (string, error) {
	m.mu.Lock()
	if m.session == nil {
		m.mu.Unlock()
		return "", apperrors.ErrNoSession
	}
	gen := m.generation
	refreshToken := m.session.RefreshToken
	m.mu.Unlock()

	if refreshToken == "" {
		m.endIfCurrent(gen, "no refresh token")
		return "", apperrors.ErrNoRefreshToken
	}

	rr, err := m.auth.Refresh(ctx, refreshToken)
	if err != nil && apperrors.IsContextDone(err) {
		// Nobody rejected the refresh token; the session stays.
		log.Debug().Err(err).Msg("Token refresh abandoned")
		return "", fmt.Errorf("[session.RefreshAccessToken] %w", err)
	}
	if err != nil {
		log.Err(err).Msg("Token refresh failed")
		m.endIfCurrent(gen, "refresh failed")
		return "", fmt.Errorf("[session.RefreshAccessToken] %w", err)
	}

	expiry := token.ExpiryIn(rr.ExpiresIn, rr.AccessToken, m.cfg.GetAccessTokenTTL())

	m.mu.Lock()
	if m.generation != gen || m.session == nil {
		m.mu.Unlock()
		return "", apperrors.ErrNoSession
	}
	updated := *m.session
	updated.AccessToken = rr.AccessToken
	if rr.RefreshToken != "" {
		updated.RefreshToken = rr.RefreshToken
	}
	updated.Expiry = expiry
	m.session = &updated
	snapshot := updated
	observers := m.observersLocked()
	m.mu.Unlock()

	m.persistTokens(rr.AccessToken, rr.RefreshToken)
	log.Debug().Str("subject_id", snapshot.SubjectID).Time("expiry", snapshot.Expiry).Msg("Access token refreshed")
	notify(observers, Change{Kind: Refreshed, Session: &snapshot})
	return rr.AccessToken, nil
}

// endIfCurrent tears down only the session the caller started working on.
func (m *Manager) endIfCurrent(gen uint64, reason string) {
	m.mu.Lock()
	current := m.generation == gen
	m.mu.Unlock()
	if current && m.teardown(reason) {
		m.nav.Navigate(m.cfg.GetLoginPath())
	}
}
