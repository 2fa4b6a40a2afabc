package session_test

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/go-sink-client/credentials"
	sinkerrors "github.com/jrsteele09/go-sink-client/internal/errors"
	"github.com/jrsteele09/go-sink-client/internal/fakebackend"
	"github.com/jrsteele09/go-sink-client/internal/metrics"
	"github.com/jrsteele09/go-sink-client/session"
	"github.com/jrsteele09/go-sink-client/sinkmodel"
	"github.com/jrsteele09/go-sink-client/token"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

var (
	alice = fakebackend.User{
		Username:    "alice",
		Password:    "pw1234",
		FirstName:   "Alice",
		LastName:    "Liddell",
		Email:       "alice@example.com",
		PhoneNumber: "555-0100",
	}
	root = fakebackend.User{
		Username:  "root",
		Password:  "toor1234",
		FirstName: "Ada",
		Email:     "root@example.com",
		Admin:     true,
	}
)

type redirectRecorder struct {
	mu      sync.Mutex
	reasons []error
}

func (r *redirectRecorder) redirect(_ context.Context, reason error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reasons = append(r.reasons, reason)
}

func (r *redirectRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.reasons)
}

type testFixture struct {
	backend   *fakebackend.Backend
	store     *credentials.InMemoryStore
	client    *session.Client
	redirects *redirectRecorder
	metrics   *metrics.Metrics
}

func setupTestFixture(t *testing.T, options ...session.ClientOption) *testFixture {
	t.Helper()
	backend := fakebackend.New(alice, root)
	t.Cleanup(backend.Close)

	f := &testFixture{
		backend:   backend,
		store:     credentials.NewInMemoryStore(),
		redirects: &redirectRecorder{},
		metrics:   metrics.New(prometheus.NewRegistry()),
	}
	options = append([]session.ClientOption{
		session.WithBaseURL(backend.APIURL()),
		session.WithLoginRedirect(f.redirects.redirect),
		session.WithMetrics(f.metrics),
	}, options...)

	client, err := session.New(f.store, options...)
	require.NoError(t, err)
	f.client = client
	return f
}

// seed stores a valid backend issued session for username.
func (f *testFixture) seed(t *testing.T, username string) credentials.Session {
	t.Helper()
	access, refresh := f.backend.IssueSession(username)
	s := credentials.Session{AccessToken: access, RefreshToken: refresh}
	require.NoError(t, f.store.SetSession(context.Background(), s))
	require.NoError(t, f.store.SetProfile(context.Background(), credentials.Profile{Email: "cached@example.com", Role: credentials.RoleUser}))
	return s
}

func (f *testFixture) requireStoreEmpty(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	s, err := f.store.Session(ctx)
	require.NoError(t, err)
	require.True(t, s.IsZero())
	p, err := f.store.Profile(ctx)
	require.NoError(t, err)
	require.Equal(t, credentials.Profile{}, p)
}

func TestNewRequiresStore(t *testing.T) {
	_, err := session.New(nil)
	require.Error(t, err)
}

func TestLoginStoresTokenPairAndFetchesProfileOnce(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	result, err := f.client.Login(ctx, "alice", "pw1234")
	require.NoError(t, err)
	require.NotEmpty(t, result.Session.AccessToken)
	require.NotEmpty(t, result.Session.RefreshToken)

	stored, err := f.store.Session(ctx)
	require.NoError(t, err)
	require.Equal(t, result.Session, stored)
	require.Equal(t, 1, f.backend.Calls(fakebackend.RouteGetProfile))
	require.Equal(t, 0, f.backend.Calls(fakebackend.RouteRefresh))

	profile, err := f.store.Profile(ctx)
	require.NoError(t, err)
	require.Equal(t, "alice@example.com", profile.Email)
	require.Equal(t, "Alice Liddell", profile.FullName())
	require.Equal(t, "555-0100", profile.PhoneNumber)
	require.NotZero(t, profile.MemberID)
	require.Equal(t, credentials.RoleUser, result.Role())

	headers := f.backend.AuthHeaders()
	require.Equal(t, "Bearer "+result.Session.AccessToken, headers[len(headers)-1])
}

func TestLoginByEmail(t *testing.T) {
	f := setupTestFixture(t)
	result, err := f.client.Login(context.Background(), "alice@example.com", "pw1234")
	require.NoError(t, err)
	require.Equal(t, "alice@example.com", result.Profile.Email)
}

func TestLoginRole(t *testing.T) {
	tests := []struct {
		name     string
		user     fakebackend.User
		setup    func(b *fakebackend.Backend)
		expected credentials.Role
	}{
		{name: "user list", user: alice, expected: credentials.RoleUser},
		{name: "admin list", user: root, expected: credentials.RoleAdmin},
		{name: "admin string", user: root, setup: func(b *fakebackend.Backend) { b.RoleAsString = true }, expected: credentials.RoleAdmin},
		{name: "user string", user: alice, setup: func(b *fakebackend.Backend) { b.RoleAsString = true }, expected: credentials.RoleUser},
		{name: "admin from token claims", user: root, setup: func(b *fakebackend.Backend) { b.OmitLoginRole = true }, expected: credentials.RoleAdmin},
		{name: "user from token claims", user: alice, setup: func(b *fakebackend.Backend) { b.OmitLoginRole = true }, expected: credentials.RoleUser},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupTestFixture(t)
			if tt.setup != nil {
				tt.setup(f.backend)
			}
			result, err := f.client.Login(context.Background(), tt.user.Username, tt.user.Password)
			require.NoError(t, err)
			require.Equal(t, tt.expected, result.Role())

			profile, err := f.store.Profile(context.Background())
			require.NoError(t, err)
			require.Equal(t, tt.expected, profile.Role)
		})
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	f := setupTestFixture(t)

	result, err := f.client.Login(context.Background(), "alice", "wrong")
	require.Nil(t, result)

	var authErr *session.AuthError
	require.True(t, errors.As(err, &authErr))
	require.Equal(t, "alice", authErr.Identifier)
	require.True(t, errors.Is(err, sinkerrors.ErrInvalidCredentials))
	require.Equal(t, 0, f.backend.Calls(fakebackend.RouteGetProfile))
	f.requireStoreEmpty(t)
	require.Equal(t, 0, f.redirects.count())
}

func TestLoginNetworkFailure(t *testing.T) {
	f := setupTestFixture(t)
	f.backend.Close()

	_, err := f.client.Login(context.Background(), "alice", "pw1234")
	var authErr *session.AuthError
	require.True(t, errors.As(err, &authErr))
	require.True(t, errors.Is(err, sinkerrors.ErrNetwork))
	f.requireStoreEmpty(t)
}

func TestLoginProfileFailureClearsTokens(t *testing.T) {
	f := setupTestFixture(t)
	f.backend.FailRoute(fakebackend.RouteGetProfile, http.StatusInternalServerError)

	_, err := f.client.Login(context.Background(), "alice", "pw1234")
	var authErr *session.AuthError
	require.True(t, errors.As(err, &authErr))
	require.Equal(t, 1, f.backend.Calls(fakebackend.RouteGetProfile))
	f.requireStoreEmpty(t)
}

func TestLoginVerifier(t *testing.T) {
	t.Run("trusted issuer", func(t *testing.T) {
		f := setupTestFixture(t)
		f.client = mustClient(t, f, session.WithVerifier(token.NewStaticVerifier(f.backend.Issuer.URL, f.backend.Issuer.PublicKey())))
		_, err := f.client.Login(context.Background(), "alice", "pw1234")
		require.NoError(t, err)
	})

	t.Run("foreign key", func(t *testing.T) {
		f := setupTestFixture(t)
		foreign := fakebackend.NewIssuer(f.backend.Issuer.URL)
		f.client = mustClient(t, f, session.WithVerifier(token.NewStaticVerifier(foreign.URL, foreign.PublicKey())))
		_, err := f.client.Login(context.Background(), "alice", "pw1234")
		var authErr *session.AuthError
		require.True(t, errors.As(err, &authErr))
		require.Equal(t, 0, f.backend.Calls(fakebackend.RouteGetProfile))
		f.requireStoreEmpty(t)
	})
}

func TestLoginWithDiscoveredVerifier(t *testing.T) {
	f := setupTestFixture(t)
	verifier, err := token.NewOIDCVerifier(context.Background(), f.backend.Issuer.URL)
	require.NoError(t, err)
	f.client = mustClient(t, f, session.WithVerifier(verifier))

	result, err := f.client.Login(context.Background(), "root", "toor1234")
	require.NoError(t, err)
	require.Equal(t, credentials.RoleAdmin, result.Role())
}

func mustClient(t *testing.T, f *testFixture, options ...session.ClientOption) *session.Client {
	t.Helper()
	options = append([]session.ClientOption{
		session.WithBaseURL(f.backend.APIURL()),
		session.WithLoginRedirect(f.redirects.redirect),
	}, options...)
	client, err := session.New(f.store, options...)
	require.NoError(t, err)
	return client
}

func TestRefreshRotatesBothTokens(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	before := f.seed(t, "alice")

	accessToken, err := f.client.Refresh(ctx)
	require.NoError(t, err)

	after, err := f.store.Session(ctx)
	require.NoError(t, err)
	require.Equal(t, accessToken, after.AccessToken)
	require.NotEqual(t, before.AccessToken, after.AccessToken)
	require.NotEqual(t, before.RefreshToken, after.RefreshToken)

	// profile cache is untouched by a refresh
	profile, err := f.store.Profile(ctx)
	require.NoError(t, err)
	require.Equal(t, "cached@example.com", profile.Email)
	require.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Refreshes("success")))
	require.Equal(t, 0, f.redirects.count())
}

func TestSequentialRefreshLastWriteWins(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	f.seed(t, "alice")

	first, err := f.client.Refresh(ctx)
	require.NoError(t, err)
	firstPair, err := f.store.Session(ctx)
	require.NoError(t, err)

	second, err := f.client.Refresh(ctx)
	require.NoError(t, err)
	require.NotEqual(t, first, second)

	stored, err := f.store.Session(ctx)
	require.NoError(t, err)
	require.Equal(t, second, stored.AccessToken)
	require.NotEqual(t, firstPair.RefreshToken, stored.RefreshToken)
	require.Equal(t, 2, f.backend.Calls(fakebackend.RouteRefresh))
}

func TestRefreshFailureEndsSession(t *testing.T) {
	tests := []struct {
		name  string
		setup func(f *testFixture)
	}{
		{
			name: "rejected refresh token",
			setup: func(f *testFixture) {
				require.NoError(t, f.store.SetSession(context.Background(), credentials.Session{AccessToken: "stale", RefreshToken: "unknown"}))
			},
		},
		{
			name: "backend error",
			setup: func(f *testFixture) {
				f.seed(t, "alice")
				f.backend.FailRoute(fakebackend.RouteRefresh, http.StatusServiceUnavailable)
			},
		},
		{
			name: "network failure",
			setup: func(f *testFixture) {
				f.seed(t, "alice")
				f.backend.Close()
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupTestFixture(t)
			tt.setup(f)

			accessToken, err := f.client.Refresh(context.Background())
			require.Empty(t, accessToken)

			var refreshErr *session.RefreshError
			require.True(t, errors.As(err, &refreshErr))
			require.True(t, errors.Is(err, sinkerrors.ErrSessionEnded))
			f.requireStoreEmpty(t)
			require.Equal(t, 1, f.redirects.count())
			require.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Logouts(metrics.ReasonRefreshFailed)))
			require.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Refreshes("failure")))
		})
	}
}

func TestRefreshWithoutRefreshToken(t *testing.T) {
	f := setupTestFixture(t)

	_, err := f.client.Refresh(context.Background())
	require.True(t, errors.Is(err, sinkerrors.ErrNoRefreshToken))
	require.True(t, errors.Is(err, sinkerrors.ErrSessionEnded))
	require.Equal(t, 0, f.backend.Calls(fakebackend.RouteRefresh))
	require.Equal(t, 1, f.redirects.count())
}

func TestConcurrentRefreshSharesOneCall(t *testing.T) {
	f := setupTestFixture(t)
	f.seed(t, "alice")
	release := f.backend.HoldRefresh()

	const callers = 5
	tokens := make([]string, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tokens[i], errs[i] = f.client.Refresh(context.Background())
		}(i)
	}

	require.Eventually(t, func() bool {
		return f.backend.Calls(fakebackend.RouteRefresh) == 1
	}, time.Second, 5*time.Millisecond)
	// give the remaining callers time to join the in-flight exchange
	time.Sleep(100 * time.Millisecond)
	release()
	wg.Wait()

	stored, err := f.store.Session(context.Background())
	require.NoError(t, err)
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		require.Equal(t, stored.AccessToken, tokens[i])
	}
	require.Equal(t, 1, f.backend.Calls(fakebackend.RouteRefresh))
}

func TestConcurrentRefreshFailureRedirectsOnce(t *testing.T) {
	f := setupTestFixture(t)
	require.NoError(t, f.store.SetSession(context.Background(), credentials.Session{AccessToken: "stale", RefreshToken: "unknown"}))
	release := f.backend.HoldRefresh()

	const callers = 5
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.client.Refresh(context.Background())
		}(i)
	}

	require.Eventually(t, func() bool {
		return f.backend.Calls(fakebackend.RouteRefresh) == 1
	}, time.Second, 5*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	release()
	wg.Wait()

	for _, err := range errs {
		require.True(t, errors.Is(err, sinkerrors.ErrSessionEnded))
	}
	require.Equal(t, 1, f.redirects.count())
	f.requireStoreEmpty(t)
}

func TestRefreshCallerCancellation(t *testing.T) {
	f := setupTestFixture(t)
	f.seed(t, "alice")
	release := f.backend.HoldRefresh()
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := f.client.Refresh(ctx)
	require.True(t, errors.Is(err, context.DeadlineExceeded))

	// the shared exchange still completes and stores the new pair
	release()
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(f.metrics.Refreshes("success")) == 1
	}, time.Second, 5*time.Millisecond)
	require.Equal(t, 0, f.redirects.count())
}

func TestRegister(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	result := f.client.Register(ctx, sinkmodel.RegistrationForm{
		Username:       "bob",
		FirstName:      "Bob",
		LastName:       "Builder",
		Email:          "bob@example.com",
		PhoneNumber:    "555-0101",
		Password:       "secret12",
		RepeatPassword: "secret12",
	})
	require.True(t, result.Success)
	require.Equal(t, "User registered successfully", result.Message)
	require.Empty(t, result.Errors)

	result = f.client.Register(ctx, sinkmodel.RegistrationForm{
		Username:       "alice",
		FirstName:      "Alice",
		Email:          "other@example.com",
		Password:       "a",
		RepeatPassword: "b",
	})
	require.False(t, result.Success)
	require.ElementsMatch(t, []string{"Username already exists", "Passwords do not match"}, result.Errors)

	f.backend.FailRoute(fakebackend.RouteRegister, http.StatusInternalServerError)
	result = f.client.Register(ctx, sinkmodel.RegistrationForm{Username: "carol"})
	require.False(t, result.Success)
	require.Equal(t, []string{session.MsgRegistrationFailed}, result.Errors)

	// registration never touches the credential store
	f.requireStoreEmpty(t)
	require.Equal(t, 0, f.redirects.count())
}

func TestRegisterNetworkFailure(t *testing.T) {
	f := setupTestFixture(t)
	f.backend.Close()

	result := f.client.Register(context.Background(), sinkmodel.RegistrationForm{Username: "bob"})
	require.False(t, result.Success)
	require.Equal(t, []string{session.MsgNetworkError}, result.Errors)
}

func TestCheckUsernameAvailability(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	available, err := f.client.CheckUsernameAvailability(ctx, "alice")
	require.NoError(t, err)
	require.False(t, available)

	available, err = f.client.CheckUsernameAvailability(ctx, "new user&role=admin")
	require.NoError(t, err)
	require.True(t, available)
	require.Equal(t, 2, f.backend.Calls(fakebackend.RouteCheckUsername))
}

func TestLogout(t *testing.T) {
	f := setupTestFixture(t)
	f.seed(t, "alice")

	require.NoError(t, f.client.Logout(context.Background(), nil))
	f.requireStoreEmpty(t)
	require.Equal(t, 1, f.redirects.count())
	require.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Logouts(metrics.ReasonUser)))

	require.NoError(t, f.client.Logout(context.Background(), sinkerrors.ErrUnauthorized))
	require.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Logouts(metrics.ReasonUnauthorized)))
}

func TestTokenAndAccessToken(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	accessToken, err := f.client.AccessToken(ctx)
	require.NoError(t, err)
	require.Empty(t, accessToken)

	seeded := f.seed(t, "alice")
	accessToken, err = f.client.AccessToken(ctx)
	require.NoError(t, err)
	require.Equal(t, seeded.AccessToken, accessToken)

	tok, err := f.client.Token(ctx)
	require.NoError(t, err)
	require.Equal(t, seeded.RefreshToken, tok.RefreshToken)
	require.Equal(t, "Bearer", tok.TokenType)
	require.False(t, tok.Expiry.IsZero())
}

func TestFetchProfileKeepsCachedRole(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	_, err := f.client.Login(ctx, "root", "toor1234")
	require.NoError(t, err)

	profile, err := f.client.FetchProfile(ctx)
	require.NoError(t, err)
	require.Equal(t, "root@example.com", profile.Email)
	require.Equal(t, credentials.RoleAdmin, profile.Role)
	require.Equal(t, 2, f.backend.Calls(fakebackend.RouteGetProfile))
}

func TestFetchProfileWithoutSession(t *testing.T) {
	f := setupTestFixture(t)
	_, err := f.client.FetchProfile(context.Background())
	require.True(t, errors.Is(err, sinkerrors.ErrSessionEnded))
}

func TestFetchProfileUnauthorizedEndsSession(t *testing.T) {
	f := setupTestFixture(t)
	f.seed(t, "alice")
	f.backend.RevokeAccessTokens()

	_, err := f.client.FetchProfile(context.Background())
	require.True(t, errors.Is(err, sinkerrors.ErrUnauthorized))
	f.requireStoreEmpty(t)
	require.Equal(t, 1, f.redirects.count())
	require.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Logouts(metrics.ReasonUnauthorized)))
	require.Equal(t, 0, f.backend.Calls(fakebackend.RouteRefresh))
}

// profileFailingStore accepts tokens but refuses to cache a profile.
type profileFailingStore struct {
	*credentials.InMemoryStore
}

func (s profileFailingStore) SetProfile(context.Context, credentials.Profile) error {
	return errors.New("disk full")
}

func TestLoginProfileWriteFailureClearsTokens(t *testing.T) {
	f := setupTestFixture(t)
	store := profileFailingStore{InMemoryStore: credentials.NewInMemoryStore()}
	client, err := session.New(store, session.WithBaseURL(f.backend.APIURL()))
	require.NoError(t, err)

	_, err = client.Login(context.Background(), "alice", "pw1234")
	var authErr *session.AuthError
	require.True(t, errors.As(err, &authErr))

	s, err := store.Session(context.Background())
	require.NoError(t, err)
	require.True(t, s.IsZero())
}
