package session

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/abase/abase-manager/clientstore"
	apperrors "github.com/abase/abase-manager/internal/errors"
)

// LoginLocal exchanges identifier and secret for a session and navigates to
// the default path. A rejection is returned as ErrInvalidCredentials joined
// with the API's message and is never retried.
func (m *Manager) LoginLocal(ctx context.Context, identifier, secret string) error {
	prev, gen, err := m.beginLogin(false)
	if err != nil {
		return err
	}

	tr, err := m.auth.LoginLocal(ctx, identifier, secret)
	if err != nil {
		m.abortLogin(prev, gen)
		log.Err(err).Msg("Local login failed")
		return fmt.Errorf("[session.LoginLocal] %w", err)
	}

	if _, err := m.establish(gen, tr.AccessToken, tr.RefreshToken, tr.ExpiresIn, tr.UserProfile()); err != nil {
		return fmt.Errorf("[session.LoginLocal] %w", err)
	}
	m.nav.Navigate(m.cfg.GetDefaultPath())
	return nil
}

// Restore resumes a session from tokens left in the durable store by an
// earlier run. A stored access token the API no longer accepts is refreshed
// once; if that fails the stored tokens are cleared. A cancelled ctx leaves
// them in place. Restore never navigates.
func (m *Manager) Restore(ctx context.Context) error {
	accessToken, err := m.store.Get(clientstore.KeyAccessToken)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			return apperrors.ErrNoSession
		}
		return fmt.Errorf("[session.Restore] %w", err)
	}
	refreshToken, err := m.store.Get(clientstore.KeyRefreshToken)
	if err != nil && !apperrors.Is(err, apperrors.ErrNotFound) {
		return fmt.Errorf("[session.Restore] %w", err)
	}

	prev, gen, err := m.beginLogin(false)
	if err != nil {
		return err
	}

	expiresIn := 0
	profile, err := m.auth.Me(ctx, accessToken)
	if err != nil && apperrors.Is(err, apperrors.ErrUnauthorized) && refreshToken != "" {
		log.Debug().Msg("Stored access token rejected, refreshing")
		rr, rerr := m.auth.Refresh(ctx, refreshToken)
		if rerr != nil {
			err = apperrors.Join(err, rerr)
		} else {
			accessToken = rr.AccessToken
			expiresIn = rr.ExpiresIn
			if rr.RefreshToken != "" {
				refreshToken = rr.RefreshToken
			}
			m.persistTokens(accessToken, rr.RefreshToken)
			profile, err = m.auth.Me(ctx, accessToken)
		}
	}
	if err != nil {
		m.abortLogin(prev, gen)
		if apperrors.IsContextDone(err) {
			return fmt.Errorf("[session.Restore] %w", err)
		}
		m.clearStoredTokens()
		log.Err(err).Msg("Stored session could not be restored")
		return fmt.Errorf("[session.Restore] %w", err)
	}

	if _, err := m.establish(gen, accessToken, refreshToken, expiresIn, profile); err != nil {
		return fmt.Errorf("[session.Restore] %w", err)
	}
	return nil
}
