package config

import (
	"strings"
	"time"
)

type APIConfig interface {
	GetAPIBaseURL() string
	GetRequestTimeout() time.Duration
}

type API struct{}

var _ APIConfig = API{}

// GetAPIBaseURL returns the backend base URL without a trailing slash,
// e.g. "http://localhost:8080/api".
func (API) GetAPIBaseURL() string {
	return strings.TrimRight(GetEnv("SINK_API_URL", "http://localhost:8080/api"), "/")
}

func (API) GetRequestTimeout() time.Duration {
	return GetDurationEnv("SINK_REQUEST_TIMEOUT", 15*time.Second)
}
