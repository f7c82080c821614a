package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

const dotEnvPathVar = "DOTENV_PATH"

type Config interface {
	EnvConfig
	APIConfig
	OIDCConfig
	RealtimeConfig
	StoreConfig
}

// values is the raw environment snapshot. The Get... methods on mainConfig are
// the only way the rest of the module reads it.
type values struct {
	AppName  string `env:"APP_NAME" envDefault:"ABASE Manager"`
	Env      string `env:"ENV" envDefault:"DEV"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	APIURL                string        `env:"API_URL" envDefault:"http://localhost:8000/api/v1"`
	DefaultPath           string        `env:"DEFAULT_PATH" envDefault:"/dashboard"`
	LoginPath             string        `env:"LOGIN_PATH" envDefault:"/login"`
	CallbackRedirectDelay time.Duration `env:"CALLBACK_REDIRECT_DELAY" envDefault:"3s"`
	AccessTokenTTL        time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"15m"`

	OIDCIssuer          string `env:"OIDC_ISSUER"`
	OIDCClientID        string `env:"OIDC_CLIENT_ID"`
	OIDCRedirectURL     string `env:"OIDC_REDIRECT_URL" envDefault:"http://localhost:3000/auth/callback"`
	OIDCChallengeMethod string `env:"OIDC_CHALLENGE_METHOD" envDefault:"S256"`
	OIDCDiscovery       bool   `env:"OIDC_DISCOVERY" envDefault:"false"`

	RealtimeTransport     string        `env:"REALTIME_TRANSPORT" envDefault:"sse"`
	RealtimeSSEPath       string        `env:"REALTIME_SSE_PATH" envDefault:"/sse"`
	RealtimeWSPath        string        `env:"REALTIME_WS_PATH" envDefault:"/ws/updates"`
	AutoReconnect         bool          `env:"REALTIME_AUTO_RECONNECT" envDefault:"true"`
	ReconnectInterval     time.Duration `env:"REALTIME_RECONNECT_INTERVAL" envDefault:"3s"`
	MaxReconnectAttempts  int           `env:"REALTIME_MAX_RECONNECT_ATTEMPTS" envDefault:"5"`
	RealtimeNotifications bool          `env:"REALTIME_NOTIFICATIONS" envDefault:"true"`
	MetricsAddr           string        `env:"METRICS_ADDR"`

	StorePath  string `env:"STORE_PATH"`
	Identifier string `env:"ABASE_IDENTIFIER"`
	Secret     string `env:"ABASE_SECRET"`
}

type mainConfig struct {
	v values
}

// Load reads the process environment, overlaid by an optional .env file
// (DOTENV_PATH, default ".env").
func Load() (Config, error) {
	// A missing .env file is normal outside development.
	_ = godotenv.Load(GetEnv(dotEnvPathVar, ".env"))

	var v values
	if err := env.Parse(&v); err != nil {
		return nil, fmt.Errorf("parse env config: %w", err)
	}
	return newMainConfig(v)
}

// LoadFromMap builds a Config from an explicit variable map instead of the
// process environment. Unset variables take their defaults.
func LoadFromMap(vars map[string]string) (Config, error) {
	var v values
	if err := env.ParseWithOptions(&v, env.Options{Environment: vars}); err != nil {
		return nil, fmt.Errorf("parse env config: %w", err)
	}
	return newMainConfig(v)
}

func newMainConfig(v values) (Config, error) {
	v.OIDCChallengeMethod = strings.TrimSpace(v.OIDCChallengeMethod)
	if v.OIDCChallengeMethod != ChallengeMethodS256 && v.OIDCChallengeMethod != ChallengeMethodPlain {
		return nil, fmt.Errorf("OIDC_CHALLENGE_METHOD must be %q or %q, got %q", ChallengeMethodS256, ChallengeMethodPlain, v.OIDCChallengeMethod)
	}
	v.RealtimeTransport = strings.ToLower(strings.TrimSpace(v.RealtimeTransport))
	if v.RealtimeTransport != TransportSSE && v.RealtimeTransport != TransportWebSocket {
		return nil, fmt.Errorf("REALTIME_TRANSPORT must be %q or %q, got %q", TransportSSE, TransportWebSocket, v.RealtimeTransport)
	}
	if v.MaxReconnectAttempts < 0 {
		return nil, fmt.Errorf("REALTIME_MAX_RECONNECT_ATTEMPTS must not be negative")
	}
	if v.ReconnectInterval <= 0 {
		return nil, fmt.Errorf("REALTIME_RECONNECT_INTERVAL must be positive")
	}
	v.APIURL = strings.TrimRight(v.APIURL, "/")
	v.OIDCIssuer = strings.TrimRight(v.OIDCIssuer, "/")
	return mainConfig{v: v}, nil
}
