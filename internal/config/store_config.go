package config

type StoreConfig interface {
	GetStorePath() string
}

var _ StoreConfig = mainConfig{}

// GetStorePath is the sqlite file backing durable client storage. Empty means
// an in-memory store that does not survive restarts.
func (c mainConfig) GetStorePath() string {
	return c.v.StorePath
}
