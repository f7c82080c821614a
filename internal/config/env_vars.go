package config

import (
	"os"
)

type EnvConfig interface {
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
	GetMetricsAddr() string
	GetIdentifier() string
	GetSecret() string
}

var _ EnvConfig = mainConfig{}

func (c mainConfig) GetAppName() string {
	return c.v.AppName
}

func (c mainConfig) GetEnv() string {
	if c.v.Env == "" {
		return "DEV"
	}
	return c.v.Env
}

func (c mainConfig) GetLogLevel() string {
	return c.v.LogLevel
}

// GetMetricsAddr is the listen address for the Prometheus endpoint; empty disables it.
func (c mainConfig) GetMetricsAddr() string {
	return c.v.MetricsAddr
}

// GetIdentifier and GetSecret are the local credentials used by the watcher
// when no stored session can be restored.
func (c mainConfig) GetIdentifier() string {
	return c.v.Identifier
}

func (c mainConfig) GetSecret() string {
	return c.v.Secret
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
