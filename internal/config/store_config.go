package config

type StoreKind string

const (
	StoreMemory StoreKind = "memory"
	StoreFile   StoreKind = "file"
	StoreRedis  StoreKind = "redis"
)

type StoreConfig interface {
	GetStoreKind() StoreKind
	GetRedisAddr() string
	GetRedisPassword() string
	GetRedisPrefix() string
}

type Store struct{}

var _ StoreConfig = Store{}

func (Store) GetStoreKind() StoreKind {
	switch kind := StoreKind(GetEnv("SINK_STORE", string(StoreFile))); kind {
	case StoreMemory, StoreFile, StoreRedis:
		return kind
	default:
		return StoreFile
	}
}

func (Store) GetRedisAddr() string {
	return GetEnv("SINK_REDIS_ADDR", "localhost:6379")
}

func (Store) GetRedisPassword() string {
	return GetEnv("SINK_REDIS_PASSWORD", "")
}

func (Store) GetRedisPrefix() string {
	return GetEnv("SINK_REDIS_PREFIX", "sink:")
}
