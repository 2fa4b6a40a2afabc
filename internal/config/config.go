package config

type Config interface {
	EnvConfig
	APIConfig
	SessionConfig
	StoreConfig
	OIDCConfig
}

type EnvConfig interface {
	GetAppName() string
	GetDataFolder() string
	GetLogLevel() string
	GetOtelEndpoint() string
	GetOtelInsecure() bool
	GetEnv() string
}

type mainConfig struct {
	EnvVars
	API
	Session
	Store
	OIDC
}

func New() Config {
	return mainConfig{}
}
