package apiclient

import (
	"strings"

	sinkerrors "github.com/jrsteele09/go-sink-client/internal/errors"
	"github.com/pkg/errors"
)

const (
	MsgInvalidCredentials = "Invalid credentials"
	MsgSessionExpired     = "Your session has expired. Please log in again."
	MsgAdminRequired      = "Admin access required."
	MsgForbidden          = "You are not allowed to do that."
	MsgNotFound           = "Not found."
	MsgTryAgain           = "Something went wrong, please try again."
)

// UserMessage turns any client failure into the text shown to the user.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var se *StatusError
	switch {
	case errors.Is(err, sinkerrors.ErrInvalidCredentials):
		return MsgInvalidCredentials
	case errors.Is(err, sinkerrors.ErrSessionEnded), errors.Is(err, sinkerrors.ErrUnauthorized):
		return MsgSessionExpired
	case errors.Is(err, sinkerrors.ErrAdminRequired):
		return MsgAdminRequired
	case errors.As(err, &se) && se.IsValidation():
		if len(se.Errors) > 0 {
			return strings.Join(se.Errors, "\n")
		}
		if se.Message != "" {
			return se.Message
		}
		return MsgTryAgain
	case errors.Is(err, sinkerrors.ErrForbidden):
		return MsgForbidden
	case errors.Is(err, sinkerrors.ErrNotFound):
		return MsgNotFound
	default:
		return MsgTryAgain
	}
}
