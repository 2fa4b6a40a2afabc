package session

import (
	"context"
	"net/http"
	"net/url"

	sinkerrors "github.com/jrsteele09/go-sink-client/internal/errors"
	"github.com/jrsteele09/go-sink-client/internal/rest"
	"github.com/jrsteele09/go-sink-client/sinkmodel"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	MsgRegistrationSuccessful = "Registration successful"
	MsgRegistrationFailed     = "Registration failed"
	MsgNetworkError           = "Network error. Please try again."
)

// Register submits a registration form. It never touches the Credential Store
// and never returns an error: failures are described by the result.
func (c *Client) Register(ctx context.Context, form sinkmodel.RegistrationForm) sinkmodel.RegistrationResult {
	var body sinkmodel.ErrorBody
	err := rest.Do(ctx, c.httpClient, http.MethodPost, c.url(pathRegister), form, &body)

	var se *sinkmodel.StatusError
	switch {
	case err == nil, errors.Is(err, sinkerrors.ErrUnexpectedReply):
		// a 2xx without a JSON body is still a success
		msg := body.Message
		if msg == "" {
			msg = MsgRegistrationSuccessful
		}
		return sinkmodel.RegistrationResult{Success: true, Message: msg}
	case errors.As(err, &se):
		result := sinkmodel.RegistrationResult{Message: se.Message, Errors: se.Errors}
		if result.Message == "" {
			result.Message = MsgRegistrationFailed
		}
		if len(result.Errors) == 0 {
			result.Errors = []string{MsgRegistrationFailed}
		}
		return result
	default:
		log.Err(err).Str("username", form.Username).Msg("Register: request failed")
		return sinkmodel.RegistrationResult{Errors: []string{MsgNetworkError}}
	}
}

// CheckUsernameAvailability reports whether username is free to register.
func (c *Client) CheckUsernameAvailability(ctx context.Context, username string) (bool, error) {
	var resp sinkmodel.UsernameAvailability
	endpoint := c.url(pathCheckUsername) + "?username=" + url.QueryEscape(username)
	if err := rest.Do(ctx, c.httpClient, http.MethodGet, endpoint, nil, &resp); err != nil {
		return false, errors.Wrap(err, "[Client.CheckUsernameAvailability]")
	}
	return resp.Available, nil
}
