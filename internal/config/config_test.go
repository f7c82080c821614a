package config_test

import (
	"testing"
	"time"

	"github.com/abase/abase-manager/internal/config"
	"github.com/stretchr/testify/require"
)

func TestLoadFromMap_Defaults(t *testing.T) {
	c, err := config.LoadFromMap(map[string]string{})
	require.NoError(t, err)

	require.Equal(t, "ABASE Manager", c.GetAppName())
	require.Equal(t, "DEV", c.GetEnv())
	require.Equal(t, "http://localhost:8000/api/v1", c.GetAPIURL())
	require.Equal(t, "/dashboard", c.GetDefaultPath())
	require.Equal(t, "/login", c.GetLoginPath())
	require.Equal(t, 3*time.Second, c.GetCallbackRedirectDelay())
	require.Equal(t, config.ChallengeMethodS256, c.GetOIDCChallengeMethod())
	require.Equal(t, config.TransportSSE, c.GetRealtimeTransport())
	require.Equal(t, "http://localhost:8000/api/v1/sse", c.GetRealtimeURL())
	require.True(t, c.GetAutoReconnect())
	require.Equal(t, 3*time.Second, c.GetReconnectInterval())
	require.Equal(t, 5, c.GetMaxReconnectAttempts())
	require.True(t, c.GetRealtimeNotifications())
	require.Empty(t, c.GetStorePath())
}

func TestLoadFromMap_Overrides(t *testing.T) {
	c, err := config.LoadFromMap(map[string]string{
		"API_URL":                         "https://api.abase.example/api/v1/",
		"OIDC_ISSUER":                     "https://id.abase.example/",
		"OIDC_CHALLENGE_METHOD":           "plain",
		"REALTIME_TRANSPORT":              "WS",
		"REALTIME_MAX_RECONNECT_ATTEMPTS": "2",
		"REALTIME_RECONNECT_INTERVAL":     "250ms",
	})
	require.NoError(t, err)

	require.Equal(t, "https://api.abase.example/api/v1", c.GetAPIURL())
	require.Equal(t, "https://id.abase.example", c.GetOIDCIssuer())
	require.Equal(t, config.ChallengeMethodPlain, c.GetOIDCChallengeMethod())
	require.Equal(t, config.TransportWebSocket, c.GetRealtimeTransport())
	require.Equal(t, "https://api.abase.example/api/v1/ws/updates", c.GetRealtimeURL())
	require.Equal(t, 2, c.GetMaxReconnectAttempts())
	require.Equal(t, 250*time.Millisecond, c.GetReconnectInterval())
}

func TestLoadFromMap_Validation(t *testing.T) {
	t.Run("unknown challenge method", func(t *testing.T) {
		_, err := config.LoadFromMap(map[string]string{"OIDC_CHALLENGE_METHOD": "S512"})
		require.Error(t, err)
		require.Contains(t, err.Error(), "OIDC_CHALLENGE_METHOD")
	})

	t.Run("unknown transport", func(t *testing.T) {
		_, err := config.LoadFromMap(map[string]string{"REALTIME_TRANSPORT": "poll"})
		require.Error(t, err)
		require.Contains(t, err.Error(), "REALTIME_TRANSPORT")
	})

	t.Run("negative attempts", func(t *testing.T) {
		_, err := config.LoadFromMap(map[string]string{"REALTIME_MAX_RECONNECT_ATTEMPTS": "-1"})
		require.Error(t, err)
	})

	t.Run("zero interval", func(t *testing.T) {
		_, err := config.LoadFromMap(map[string]string{"REALTIME_RECONNECT_INTERVAL": "0s"})
		require.Error(t, err)
	})

	t.Run("malformed duration", func(t *testing.T) {
		_, err := config.LoadFromMap(map[string]string{"REALTIME_RECONNECT_INTERVAL": "soon"})
		require.Error(t, err)
	})
}
