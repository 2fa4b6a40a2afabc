package config

import (
	"os"
	"time"
)

const (
	appNameVar      = "APP_NAME"
	folderEnvVar    = "FOLDER"
	logLevelEnvVar  = "LOG_LEVEL"
	otelEndpointVar = "OTEL_EXPORTER_OTLP_ENDPOINT"
	otelInsecureVar = "OTEL_EXPORTER_OTLP_INSECURE"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "Kitchen Sink")
}

func (EnvVars) GetDataFolder() string {
	return GetEnv(folderEnvVar, "./data")
}

func (EnvVars) GetLogLevel() string {
	return GetEnv(logLevelEnvVar, "info")
}

// GetOtelEndpoint returns the OTLP collector endpoint. Empty disables tracing.
func (EnvVars) GetOtelEndpoint() string {
	return GetEnv(otelEndpointVar, "")
}

func (EnvVars) GetOtelInsecure() bool {
	return GetEnv(otelInsecureVar, "false") == "true"
}

func (EnvVars) GetEnv() string {
	env := os.Getenv("ENV")
	if env == "" {
		return "DEV"
	}
	return env
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}

// GetDurationEnv parses envVar as a time.Duration, falling back to defaultValue
// when the variable is unset or malformed.
func GetDurationEnv(envVar string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return defaultValue
	}
	return d
}
