package config

import "time"

type SessionConfig interface {
	GetRefreshInterval() time.Duration
	GetLoginEntryPoint() string
}

type Session struct{}

var _ SessionConfig = Session{}

// GetRefreshInterval is the Session Keeper cadence. The backend issues access
// tokens that live for 5 minutes.
func (Session) GetRefreshInterval() time.Duration {
	return GetDurationEnv("SINK_REFRESH_INTERVAL", 4*time.Minute)
}

// GetLoginEntryPoint is what users are told to run when their session ends.
func (Session) GetLoginEntryPoint() string {
	return GetEnv("SINK_LOGIN_ENTRY_POINT", "sink login")
}
