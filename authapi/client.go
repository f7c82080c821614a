package authapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/abase/abase-manager/apiclient"
	apperrors "github.com/abase/abase-manager/internal/errors"
	"github.com/abase/abase-manager/users"
)

// API is the auth collaborator as seen by the session manager.
type API interface {
	LoginLocal(ctx context.Context, identifier, secret string) (*TokenResponse, error)
	OIDCCallback(ctx context.Context, code, verifier, redirectURI string) (*TokenResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*RefreshResponse, error)
	Logout(ctx context.Context, accessToken, refreshToken, subjectID string, globalLogout bool) error
	Me(ctx context.Context, accessToken string) (*users.Profile, error)
}

var _ API = (*Client)(nil)

// Client calls the auth routes through an apiclient.Client. Every call skips
// the refresh-and-retry path: auth answers are final.
type Client struct {
	api *apiclient.Client
}

func New(api *apiclient.Client) *Client {
	return &Client{api: api}
}

func (c *Client) LoginLocal(ctx context.Context, identifier, secret string) (*TokenResponse, error) {
	var tr TokenResponse
	err := c.api.Do(ctx, apiclient.Request{
		Method:      http.MethodPost,
		Path:        RouteLoginLocal,
		Body:        localLoginRequest{Provider: "local", Username: identifier, Password: secret},
		Anonymous:   true,
		NoAuthRetry: true,
	}, &tr)
	if err != nil {
		if isRejection(err) {
			return nil, apperrors.Join(apperrors.ErrInvalidCredentials, err)
		}
		return nil, fmt.Errorf("[authapi.LoginLocal] %w", err)
	}
	if tr.AccessToken == "" {
		return nil, fmt.Errorf("[authapi.LoginLocal] empty access token: %w", apperrors.ErrInvalidCredentials)
	}
	return &tr, nil
}

func (c *Client) OIDCCallback(ctx context.Context, code, verifier, redirectURI string) (*TokenResponse, error) {
	var tr TokenResponse
	err := c.api.Do(ctx, apiclient.Request{
		Method:      http.MethodPost,
		Path:        RouteOIDCCallback,
		Body:        callbackRequest{Code: code, CodeVerifier: verifier, RedirectURI: redirectURI},
		Anonymous:   true,
		NoAuthRetry: true,
	}, &tr)
	if err != nil {
		return nil, apperrors.Join(apperrors.ErrCallback, err)
	}
	if tr.AccessToken == "" {
		return nil, fmt.Errorf("[authapi.OIDCCallback] empty access token: %w", apperrors.ErrCallback)
	}
	return &tr, nil
}

func (c *Client) Refresh(ctx context.Context, refreshToken string) (*RefreshResponse, error) {
	if refreshToken == "" {
		return nil, apperrors.ErrNoRefreshToken
	}
	var rr RefreshResponse
	err := c.api.Do(ctx, apiclient.Request{
		Method:      http.MethodPost,
		Path:        RouteRefresh,
		Body:        refreshRequest{RefreshToken: refreshToken},
		Anonymous:   true,
		NoAuthRetry: true,
	}, &rr)
	if err != nil {
		return nil, fmt.Errorf("[authapi.Refresh] %w", err)
	}
	if rr.AccessToken == "" {
		return nil, fmt.Errorf("[authapi.Refresh] empty access token: %w", apperrors.ErrUnauthorized)
	}
	return &rr, nil
}

func (c *Client) Logout(ctx context.Context, accessToken, refreshToken, subjectID string, globalLogout bool) error {
	err := c.api.Do(ctx, apiclient.Request{
		Method:      http.MethodPost,
		Path:        RouteLogout,
		Body:        logoutRequest{RefreshToken: refreshToken, SubjectID: subjectID, GlobalLogout: globalLogout},
		Token:       accessToken,
		NoAuthRetry: true,
	}, nil)
	if err != nil {
		return fmt.Errorf("[authapi.Logout] %w", err)
	}
	return nil
}

func (c *Client) Me(ctx context.Context, accessToken string) (*users.Profile, error) {
	var p users.Profile
	err := c.api.Do(ctx, apiclient.Request{
		Method:      http.MethodGet,
		Path:        RouteMe,
		Token:       accessToken,
		NoAuthRetry: true,
	}, &p)
	if err != nil {
		return nil, fmt.Errorf("[authapi.Me] %w", err)
	}
	return &p, nil
}

// isRejection tells a credential rejection (401/400/403) apart from
// transport or server failures.
func isRejection(err error) bool {
	if errors.Is(err, apperrors.ErrUnauthorized) {
		return true
	}
	var apiErr *apiclient.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Status {
		case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusUnprocessableEntity:
			return true
		}
	}
	return false
}
