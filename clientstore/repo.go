package clientstore

// Keys written by the session manager. They mirror what the web console kept
// in browser storage so a stored session can be shared with it.
const (
	KeyCodeVerifier = "code_verifier" // PKCE verifier, written on federated login start
	KeyAuthRedirect = "auth_redirect" // Post-login return path
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
)

// Repo is durable client-side key/value storage.
// Get returns errors.ErrNotFound for a missing key; Delete of a missing key
// is not an error.
type Repo interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
}
