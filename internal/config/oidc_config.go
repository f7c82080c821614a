package config

const (
	ChallengeMethodS256  = "S256"
	ChallengeMethodPlain = "plain"
)

type OIDCConfig interface {
	GetOIDCIssuer() string
	GetOIDCClientID() string
	GetOIDCRedirectURL() string
	GetOIDCChallengeMethod() string
	GetOIDCDiscovery() bool
}

var _ OIDCConfig = mainConfig{}

func (c mainConfig) GetOIDCIssuer() string {
	return c.v.OIDCIssuer
}

func (c mainConfig) GetOIDCClientID() string {
	return c.v.OIDCClientID
}

func (c mainConfig) GetOIDCRedirectURL() string {
	return c.v.OIDCRedirectURL
}

func (c mainConfig) GetOIDCChallengeMethod() string {
	return c.v.OIDCChallengeMethod
}

// GetOIDCDiscovery reports whether the authorization endpoint should be read
// from the issuer's discovery document instead of assuming <issuer>/authorize.
func (c mainConfig) GetOIDCDiscovery() bool {
	return c.v.OIDCDiscovery
}
