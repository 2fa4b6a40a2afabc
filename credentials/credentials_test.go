package credentials_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jrsteele09/go-sink-client/credentials"
	sinkerrors "github.com/jrsteele09/go-sink-client/internal/errors"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

// fakeRedis implements the subset of redis.Cmdable the store uses.
type fakeRedis struct {
	redis.Cmdable
	data map[string]string
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: make(map[string]string)}
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	cmd := redis.NewStringCmd(ctx, "get", key)
	if v, ok := f.data[key]; ok {
		cmd.SetVal(v)
	} else {
		cmd.SetErr(redis.Nil)
	}
	return cmd
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, _ time.Duration) *redis.StatusCmd {
	switch v := value.(type) {
	case []byte:
		f.data[key] = string(v)
	case string:
		f.data[key] = v
	}
	cmd := redis.NewStatusCmd(ctx, "set", key)
	cmd.SetVal("OK")
	return cmd
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	var n int64
	for _, k := range keys {
		if _, ok := f.data[k]; ok {
			delete(f.data, k)
			n++
		}
	}
	cmd := redis.NewIntCmd(ctx, "del")
	cmd.SetVal(n)
	return cmd
}

func stores(t *testing.T) map[string]credentials.Store {
	t.Helper()
	fs, err := credentials.NewFileStore(t.TempDir())
	require.NoError(t, err)
	return map[string]credentials.Store{
		"memory": credentials.NewInMemoryStore(),
		"file":   fs,
		"redis":  credentials.NewRedisStore(newFakeRedis(), "test:"),
	}
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			s, err := store.Session(ctx)
			require.NoError(t, err)
			require.True(t, s.IsZero())

			require.NoError(t, store.SetSession(ctx, credentials.Session{AccessToken: "a1", RefreshToken: "r1"}))
			require.NoError(t, store.SetProfile(ctx, credentials.Profile{Email: "alice@example.com", MemberID: 7, Role: credentials.RoleAdmin}))

			s, err = store.Session(ctx)
			require.NoError(t, err)
			require.Equal(t, credentials.Session{AccessToken: "a1", RefreshToken: "r1"}, s)

			p, err := store.Profile(ctx)
			require.NoError(t, err)
			require.Equal(t, int64(7), p.MemberID)
			require.True(t, p.IsAdmin())

			// Last write wins, both tokens replaced together
			require.NoError(t, store.SetSession(ctx, credentials.Session{AccessToken: "a2", RefreshToken: "r2"}))
			s, err = store.Session(ctx)
			require.NoError(t, err)
			require.Equal(t, credentials.Session{AccessToken: "a2", RefreshToken: "r2"}, s)

			require.NoError(t, store.Clear(ctx))
			s, err = store.Session(ctx)
			require.NoError(t, err)
			require.True(t, s.IsZero())
			p, err = store.Profile(ctx)
			require.NoError(t, err)
			require.Equal(t, credentials.Profile{}, p)
		})
	}
}

func TestStoreRejectsHalfSession(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.SetSession(ctx, credentials.Session{AccessToken: "a1", RefreshToken: "r1"}))

			err := store.SetSession(ctx, credentials.Session{AccessToken: "only-access"})
			require.ErrorIs(t, err, sinkerrors.ErrIncompleteSession)

			s, err := store.Session(ctx)
			require.NoError(t, err)
			require.Equal(t, "r1", s.RefreshToken)
		})
	}
}

func TestFileStoreSurvivesReload(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	first, err := credentials.NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, first.SetSession(ctx, credentials.Session{AccessToken: "a1", RefreshToken: "r1"}))

	info, err := os.Stat(first.Path())
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	second, err := credentials.NewFileStore(dir)
	require.NoError(t, err)
	s, err := second.Session(ctx)
	require.NoError(t, err)
	require.Equal(t, "a1", s.AccessToken)

	require.NoError(t, second.Clear(ctx))
	_, err = os.Stat(first.Path())
	require.True(t, os.IsNotExist(err))
}

func TestRedisStoreKey(t *testing.T) {
	ctx := context.Background()
	fake := newFakeRedis()
	store := credentials.NewRedisStore(fake, "sink:")
	require.Equal(t, "sink:credentials", store.Key())

	require.NoError(t, store.SetSession(ctx, credentials.Session{AccessToken: "a1", RefreshToken: "r1"}))
	require.Contains(t, fake.data["sink:credentials"], `"accessToken":"a1"`)
}

func TestRoleFromMarkers(t *testing.T) {
	require.Equal(t, credentials.RoleUser, credentials.RoleFromMarkers([]string{"ROLE_USER"}))
	require.Equal(t, credentials.RoleAdmin, credentials.RoleFromMarkers([]string{"ROLE_USER", "ROLE_ADMIN"}))
	require.Equal(t, credentials.RoleAdmin, credentials.RoleFromMarkers([]string{" role_admin "}))
	require.Equal(t, credentials.RoleUser, credentials.RoleFromMarkers(nil))

	require.Equal(t, credentials.RoleAdmin, credentials.ParseRole("admin"))
	require.Equal(t, credentials.RoleUser, credentials.ParseRole("user"))
}
