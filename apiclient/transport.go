package apiclient

import (
	"net/http"

	"github.com/google/uuid"
	sinkerrors "github.com/jrsteele09/go-sink-client/internal/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const HeaderRequestID = "X-Request-ID"

// RoundTripperFunc adapts a function to http.RoundTripper.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

func (f RoundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// Middleware decorates a RoundTripper.
type Middleware func(next http.RoundTripper) http.RoundTripper

// Chain wraps base so that mw[0] sees the request first.
func Chain(base http.RoundTripper, mw ...Middleware) http.RoundTripper {
	chained := base
	// Apply middleware in reverse order
	for i := len(mw) - 1; i >= 0; i-- {
		chained = mw[i](chained)
	}
	return chained
}

// RequestID tags each outgoing request with a correlation id unless it already has one.
func RequestID() Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			if req.Header.Get(HeaderRequestID) != "" {
				return next.RoundTrip(req)
			}
			clone := req.Clone(req.Context())
			id := uuid.NewString()
			clone.Header.Set(HeaderRequestID, id)
			log.Debug().Str("requestId", id).Str("method", req.Method).Str("url", req.URL.String()).Msg("API request")
			return next.RoundTrip(clone)
		})
	}
}

// Authorizer attaches the stored access token as a bearer credential. When the
// store holds no access token it refreshes first; the token's expiry is never
// checked, a stale token is discovered through a 401.
func Authorizer(sess Session) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			ctx := req.Context()
			accessToken, err := sess.AccessToken(ctx)
			if err == nil && accessToken == "" {
				log.Debug().Str("url", req.URL.String()).Msg("No access token, refreshing before request")
				accessToken, err = sess.Refresh(ctx)
			}
			if err != nil {
				closeBody(req)
				return nil, err
			}

			clone := req.Clone(ctx)
			(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}).SetAuthHeader(clone)
			return next.RoundTrip(clone)
		})
	}
}

// Guard ends the session when the backend answers 401. The response is passed
// through unchanged and the request is not replayed.
func Guard(sess Session) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			resp, err := next.RoundTrip(req)
			if err != nil || resp.StatusCode != http.StatusUnauthorized {
				return resp, err
			}
			log.Warn().Str("url", req.URL.String()).Msg("Backend rejected access token, logging out")
			if logoutErr := sess.Logout(req.Context(), sinkerrors.ErrUnauthorized); logoutErr != nil {
				log.Err(logoutErr).Msg("Guard: logout failed")
			}
			return resp, nil
		})
	}
}

func closeBody(req *http.Request) {
	if req.Body != nil {
		_ = req.Body.Close()
	}
}
