package credentials

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// RedisStore keeps the credentials document in a single redis key. The key has
// no TTL: a session lives until logout.
type RedisStore struct {
	persistedStore
	key string
}

var _ Store = (*RedisStore)(nil)

func NewRedisStore(client redis.Cmdable, prefix string) *RedisStore {
	rs := &RedisStore{key: prefix + "credentials"}
	rs.persistedStore.backend = redisBackend{client: client, key: rs.key}
	return rs
}

// Key returns the redis key holding the document.
func (rs *RedisStore) Key() string {
	return rs.key
}

type redisBackend struct {
	client redis.Cmdable
	key    string
}

func (b redisBackend) load(ctx context.Context) (document, error) {
	var doc document
	val, err := b.client.Get(ctx, b.key).Result()
	if err == redis.Nil {
		return doc, nil
	}
	if err != nil {
		return doc, errors.Wrap(err, "[RedisStore.load] get")
	}
	if err := json.Unmarshal([]byte(val), &doc); err != nil {
		return document{}, errors.Wrap(err, "[RedisStore.load] decode")
	}
	return doc, nil
}

func (b redisBackend) save(ctx context.Context, doc document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return errors.Wrap(err, "[RedisStore.save] encode")
	}
	return errors.Wrap(b.client.Set(ctx, b.key, data, 0).Err(), "[RedisStore.save] set")
}

func (b redisBackend) remove(ctx context.Context) error {
	return errors.Wrap(b.client.Del(ctx, b.key).Err(), "[RedisStore.remove] del")
}
