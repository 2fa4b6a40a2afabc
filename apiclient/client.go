// Package apiclient is the authenticated Kitchen Sink API client. Every call
// goes through a transport chain that authorizes the request and ends the
// session on a 401.
package apiclient

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/jrsteele09/go-sink-client/credentials"
	sinkerrors "github.com/jrsteele09/go-sink-client/internal/errors"
	"github.com/jrsteele09/go-sink-client/internal/rest"
	"github.com/jrsteele09/go-sink-client/sinkmodel"
	"github.com/pkg/errors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const defaultTimeout = 15 * time.Second

// StatusError is a non-2xx answer from the backend.
type StatusError = sinkmodel.StatusError

// Session is what the API client needs from the session layer.
type Session interface {
	BaseURL() string
	AccessToken(ctx context.Context) (string, error)
	Refresh(ctx context.Context) (string, error)
	Logout(ctx context.Context, reason error) error
	Profile(ctx context.Context) (credentials.Profile, error)
	SaveProfile(ctx context.Context, profile credentials.Profile) error
}

// Client calls the bearer protected endpoints.
type Client struct {
	session    Session
	baseURL    string
	httpClient *http.Client
}

type clientOptions struct {
	timeout time.Duration
	base    http.RoundTripper
	baseURL string
}

// Option defines a function type to modify the Client's construction.
type Option func(*clientOptions)

// WithTimeout bounds every API call. Defaults to 15 seconds.
func WithTimeout(d time.Duration) Option {
	return func(o *clientOptions) {
		o.timeout = d
	}
}

// WithTransport sets the innermost transport. Defaults to http.DefaultTransport.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *clientOptions) {
		o.base = rt
	}
}

// WithBaseURL overrides the session's base URL.
func WithBaseURL(baseURL string) Option {
	return func(o *clientOptions) {
		o.baseURL = baseURL
	}
}

// New builds a Client whose transport chain is request id, authorizer, guard,
// then the traced base transport.
func New(sess Session, options ...Option) *Client {
	opts := clientOptions{
		timeout: defaultTimeout,
		base:    http.DefaultTransport,
		baseURL: sess.BaseURL(),
	}
	for _, opt := range options {
		opt(&opts)
	}

	transport := Chain(otelhttp.NewTransport(opts.base),
		RequestID(),
		Authorizer(sess),
		Guard(sess),
	)
	return &Client{
		session: sess,
		baseURL: strings.TrimRight(opts.baseURL, "/"),
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   opts.timeout,
		},
	}
}

// HTTPClient exposes the authorized client for calls this package does not wrap.
func (c *Client) HTTPClient() *http.Client {
	return c.httpClient
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	return rest.Do(ctx, c.httpClient, method, c.baseURL+path, in, out)
}

// requireAdmin gates admin calls on the cached role so non-admins never hit the network.
func (c *Client) requireAdmin(ctx context.Context) error {
	profile, err := c.session.Profile(ctx)
	if err != nil {
		return errors.Wrap(err, "[Client.requireAdmin] read profile")
	}
	if !profile.IsAdmin() {
		return sinkerrors.ErrAdminRequired
	}
	return nil
}
