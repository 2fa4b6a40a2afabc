package errors

import "errors"

// Common error types for the Kitchen Sink client
var (
	// Authentication errors
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrAdminRequired      = errors.New("admin role required")
	ErrForbidden          = errors.New("forbidden")

	// Session errors
	ErrNoRefreshToken    = errors.New("no refresh token available")
	ErrIncompleteSession = errors.New("access and refresh tokens must both be set")
	ErrInvalidToken      = errors.New("invalid token")
	ErrSessionEnded      = errors.New("session ended, login required")

	// Transport errors
	ErrNetwork         = errors.New("network error")
	ErrUnexpectedReply = errors.New("unexpected response from backend")

	// General errors
	ErrNotFound = errors.New("not found")
)
