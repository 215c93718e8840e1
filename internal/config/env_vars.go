package config

import (
	"fmt"
	"os"
)

const (
	portEnvVar = "PORT"
	appNameVar = "APP_NAME"
)

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetBootstrapClientID() string
	GetBootstrapRedirectURI() string
}

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetPort() string {
	port := GetEnv(portEnvVar, "8080")
	if port != "" || port[0] != ':' {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "IdP Session Store")
}

func (EnvVars) GetEnv() string {
	env := os.Getenv("ENV")
	if env == "" {
		return "DEV"
	}
	return env
}

// GetBootstrapClientID returns the registered client seeded at startup so that
// stored sessions referencing it can be reconstructed.
func (EnvVars) GetBootstrapClientID() string {
	return GetEnv("BOOTSTRAP_CLIENT_ID", "default-client")
}

func (EnvVars) GetBootstrapRedirectURI() string {
	return GetEnv("BOOTSTRAP_REDIRECT_URI", "http://localhost:3000/callback")
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
