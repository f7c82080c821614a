package authapi

import "github.com/abase/abase-manager/users"

// Auth collaborator routes, relative to the base API endpoint.
const (
	RouteLoginLocal   = "/auth/login/local"
	RouteOIDCCallback = "/auth/oidc/callback"
	RouteRefresh      = "/auth/refresh"
	RouteLogout       = "/auth/logout"
	RouteMe           = "/auth/me"
)

// TokenResponse is returned by both login routes.
type TokenResponse struct {
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	TokenType    string         `json:"token_type,omitempty"`
	ExpiresIn    int            `json:"expires_in,omitempty"` // Seconds; 0 when the API gives no hint
	User         *users.Profile `json:"user,omitempty"`
	Profile      *users.Profile `json:"profile,omitempty"`
}

// UserProfile returns whichever of user/profile the API populated.
func (t *TokenResponse) UserProfile() *users.Profile {
	if t.User != nil {
		return t.User
	}
	return t.Profile
}

// RefreshResponse carries the new access token. RefreshToken is set only when
// the API rotates it.
type RefreshResponse struct {
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token,omitempty"`
	ExpiresIn    int            `json:"expires_in,omitempty"`
	User         *users.Profile `json:"user,omitempty"`
}

type localLoginRequest struct {
	Provider string `json:"provider"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type callbackRequest struct {
	Code         string `json:"code"`
	CodeVerifier string `json:"code_verifier"`
	RedirectURI  string `json:"redirect_uri,omitempty"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type logoutRequest struct {
	RefreshToken string `json:"refresh_token,omitempty"`
	SubjectID    string `json:"subject_id,omitempty"`
	GlobalLogout bool   `json:"global_logout"`
}
