package config

import "time"

type APIConfig interface {
	GetAPIURL() string
	GetDefaultPath() string
	GetLoginPath() string
	GetCallbackRedirectDelay() time.Duration
	GetAccessTokenTTL() time.Duration
}

var _ APIConfig = mainConfig{}

// GetAPIURL returns the base API endpoint without a trailing slash
// (e.g. "http://localhost:8000/api/v1").
func (c mainConfig) GetAPIURL() string {
	return c.v.APIURL
}

func (c mainConfig) GetDefaultPath() string {
	return c.v.DefaultPath
}

func (c mainConfig) GetLoginPath() string {
	return c.v.LoginPath
}

func (c mainConfig) GetCallbackRedirectDelay() time.Duration {
	return c.v.CallbackRedirectDelay
}

// GetAccessTokenTTL is the assumed access token lifetime when neither the
// token nor the API reports one.
func (c mainConfig) GetAccessTokenTTL() time.Duration {
	return c.v.AccessTokenTTL
}
