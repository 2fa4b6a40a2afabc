package session

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jrsteele09/go-sink-client/credentials"
	sinkerrors "github.com/jrsteele09/go-sink-client/internal/errors"
	"github.com/jrsteele09/go-sink-client/internal/metrics"
	"github.com/jrsteele09/go-sink-client/internal/rest"
	"github.com/jrsteele09/go-sink-client/sinkmodel"
	"github.com/jrsteele09/go-sink-client/token"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const refreshKey = "refresh"

// RefreshError is returned when a refresh fails. By the time it is returned
// the Credential Store has been cleared and the login redirect issued.
type RefreshError struct {
	Err error
}

func (e *RefreshError) Error() string {
	return fmt.Sprintf("token refresh failed: %v", e.Err)
}

// Unwrap matches both ErrSessionEnded and the underlying cause.
func (e *RefreshError) Unwrap() []error {
	return []error{sinkerrors.ErrSessionEnded, e.Err}
}

// Refresh exchanges the stored refresh token for a new token pair and returns
// the new access token. Concurrent callers share a single exchange and its
// outcome. Any failure ends the session; the exchange is never retried.
func (c *Client) Refresh(ctx context.Context) (string, error) {
	ch := c.refreshGroup.DoChan(refreshKey, func() (interface{}, error) {
		// The shared exchange must not be cancelled by whichever caller started it.
		return c.refresh(context.WithoutCancel(ctx))
	})

	select {
	case <-ctx.Done():
		return "", errors.Wrap(ctx.Err(), "[Client.Refresh]")
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

func (c *Client) refresh(ctx context.Context) (string, error) {
	current, err := c.store.Session(ctx)
	if err != nil {
		return "", c.endSession(ctx, errors.Wrap(err, "read refresh token"))
	}
	if current.RefreshToken == "" {
		return "", c.endSession(ctx, sinkerrors.ErrNoRefreshToken)
	}

	var resp sinkmodel.RefreshResponse
	err = rest.Do(ctx, c.httpClient, http.MethodPost, c.url(pathRefresh),
		sinkmodel.RefreshRequest{RefreshToken: current.RefreshToken}, &resp)
	if err != nil {
		return "", c.endSession(ctx, err)
	}

	next := credentials.Session{AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken}
	if err := c.store.SetSession(ctx, next); err != nil {
		return "", c.endSession(ctx, err)
	}

	c.metrics.RefreshSucceeded()
	evt := log.Debug().Str("expiresIn", resp.ExpiresIn)
	if claims, err := token.Inspect(next.AccessToken); err == nil {
		evt = evt.Dur("validFor", claims.ExpiresIn(c.nowTime()))
	}
	evt.Msg("Access token refreshed")
	return next.AccessToken, nil
}

// endSession clears the store and issues the redirect for a failed refresh.
func (c *Client) endSession(ctx context.Context, cause error) error {
	c.metrics.RefreshFailed()
	log.Err(cause).Msg("Refresh failed, ending session")
	_ = c.logout(ctx, cause, metrics.ReasonRefreshFailed)
	return &RefreshError{Err: cause}
}
