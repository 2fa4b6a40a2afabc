package cli

import (
	"github.com/jrsteele09/go-sink-client/apiclient"
	sinkerrors "github.com/jrsteele09/go-sink-client/internal/errors"
	"github.com/pkg/errors"
)

// Error codes reported by the formatter.
const (
	codeConfig     = "E_CONFIG"
	codeUsage      = "E_USAGE"
	codeAuth       = "E_AUTH"
	codeSession    = "E_SESSION"
	codeAdmin      = "E_ADMIN"
	codeValidation = "E_VALIDATION"
	codeNetwork    = "E_NETWORK"
	codeBackend    = "E_BACKEND"
)

// fail reports err to the user and converts it to an ExitError.
func fail(out *OutputFormatter, err error) error {
	code, exit := classify(err)
	msg := apiclient.UserMessage(err)
	_ = out.Error(code, msg, err.Error())
	return WrapExitError(exit, msg, err)
}

func classify(err error) (string, int) {
	var se *apiclient.StatusError
	switch {
	case errors.Is(err, sinkerrors.ErrInvalidCredentials):
		return codeAuth, ExitFailure
	case errors.Is(err, sinkerrors.ErrSessionEnded), errors.Is(err, sinkerrors.ErrUnauthorized):
		return codeSession, ExitLoginNeeded
	case errors.Is(err, sinkerrors.ErrAdminRequired), errors.Is(err, sinkerrors.ErrForbidden):
		return codeAdmin, ExitFailure
	case errors.As(err, &se) && se.IsValidation():
		return codeValidation, ExitFailure
	case errors.Is(err, sinkerrors.ErrNetwork):
		return codeNetwork, ExitFailure
	default:
		return codeBackend, ExitFailure
	}
}

func usage(out *OutputFormatter, message string) error {
	_ = out.Error(codeUsage, message, nil)
	return NewExitError(ExitCommandError, message)
}
