// Package session owns the client's authentication state: it logs members in,
// keeps their token pair fresh and ends the session when the backend stops
// accepting it.
package session

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/jrsteele09/go-sink-client/credentials"
	sinkerrors "github.com/jrsteele09/go-sink-client/internal/errors"
	"github.com/jrsteele09/go-sink-client/internal/metrics"
	"github.com/jrsteele09/go-sink-client/token"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

const (
	pathLogin         = "/auth/login"
	pathRefresh       = "/auth/refresh-token"
	pathRegister      = "/auth/register"
	pathCheckUsername = "/auth/check-username"
	pathProfile       = "/dashboard/profile"

	defaultBaseURL = "http://localhost:8080/api"
	defaultTimeout = 15 * time.Second
)

// LoginRedirect sends the user back to the login entry point once their
// session has been cleared. reason is the failure that ended the session.
type LoginRedirect func(ctx context.Context, reason error)

// Client is the only writer of the token pair in the Credential Store.
type Client struct {
	store      credentials.Store
	baseURL    string
	httpClient *http.Client
	redirect   LoginRedirect
	verifier   token.Verifier
	metrics    *metrics.Metrics
	nowTime    func() time.Time

	refreshGroup singleflight.Group
}

// ClientOption defines a function type to modify the Client instance.
type ClientOption func(*Client)

// WithBaseURL sets the backend API base URL, e.g. "https://sink.example.com/api".
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithHTTPClient sets the client used for the unauthenticated auth endpoints.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLoginRedirect sets what happens after a forced logout.
func WithLoginRedirect(redirect LoginRedirect) ClientOption {
	return func(c *Client) {
		c.redirect = redirect
	}
}

// WithVerifier makes Login reject access tokens the verifier does not accept.
func WithVerifier(verifier token.Verifier) ClientOption {
	return func(c *Client) {
		c.verifier = verifier
	}
}

// WithMetrics records refreshes and logouts on m.
func WithMetrics(m *metrics.Metrics) ClientOption {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ClientOption {
	return func(c *Client) {
		c.nowTime = nowFunc
	}
}

// New creates a session client over store.
func New(store credentials.Store, options ...ClientOption) (*Client, error) {
	if store == nil {
		return nil, errors.New("[session.New] credential store is required")
	}
	c := &Client{
		store:      store,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
		redirect:   logRedirect,
		nowTime:    time.Now,
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

func logRedirect(_ context.Context, reason error) {
	log.Warn().AnErr("reason", reason).Msg("Session ended, redirecting to login")
}

// BaseURL returns the backend API base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Store returns the Credential Store the client writes to.
func (c *Client) Store() credentials.Store {
	return c.store
}

func (c *Client) url(path string) string {
	return c.baseURL + path
}

// AccessToken returns the stored access token, or "" when there is none.
func (c *Client) AccessToken(ctx context.Context) (string, error) {
	s, err := c.store.Session(ctx)
	if err != nil {
		return "", errors.Wrap(err, "[Client.AccessToken] store.Session")
	}
	return s.AccessToken, nil
}

// Token returns the stored token pair as an oauth2.Token.
func (c *Client) Token(ctx context.Context) (*oauth2.Token, error) {
	s, err := c.store.Session(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "[Client.Token] store.Session")
	}
	return token.OAuth2Token(s.AccessToken, s.RefreshToken), nil
}

// Profile returns the cached profile.
func (c *Client) Profile(ctx context.Context) (credentials.Profile, error) {
	p, err := c.store.Profile(ctx)
	return p, errors.Wrap(err, "[Client.Profile] store.Profile")
}

// SaveProfile overwrites the cached profile, e.g. after a profile edit.
func (c *Client) SaveProfile(ctx context.Context, profile credentials.Profile) error {
	return errors.Wrap(c.store.SetProfile(ctx, profile), "[Client.SaveProfile] store.SetProfile")
}

// Logout clears the Credential Store and redirects to login. reason is nil
// for a user initiated logout.
func (c *Client) Logout(ctx context.Context, reason error) error {
	return c.logout(ctx, reason, logoutReason(reason))
}

func (c *Client) logout(ctx context.Context, reason error, label string) error {
	err := c.store.Clear(ctx)
	if err != nil {
		log.Err(err).Msg("Logout: failed to clear credential store")
	}
	c.metrics.LoggedOut(label)
	if c.redirect != nil {
		c.redirect(ctx, reason)
	}
	return errors.Wrap(err, "[Client.Logout] store.Clear")
}

func logoutReason(reason error) string {
	switch {
	case reason == nil:
		return metrics.ReasonUser
	case errors.Is(reason, sinkerrors.ErrUnauthorized):
		return metrics.ReasonUnauthorized
	default:
		return metrics.ReasonRefreshFailed
	}
}
