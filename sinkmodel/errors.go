package sinkmodel

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	sinkerrors "github.com/jrsteele09/go-sink-client/internal/errors"
)

// ErrorBody is the backend's error envelope. Validation failures carry Errors;
// other failures carry Message.
type ErrorBody struct {
	Status  int      `json:"status,omitempty"`
	Message string   `json:"message,omitempty"`
	Error   string   `json:"error,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}

// StatusError is a non-2xx response from the backend.
type StatusError struct {
	StatusCode int
	Message    string
	Errors     []string
}

// NewStatusError builds a StatusError from resp, decoding the error envelope
// when the body has one. The body is consumed but not closed.
func NewStatusError(resp *http.Response) *StatusError {
	se := &StatusError{StatusCode: resp.StatusCode}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil || len(data) == 0 {
		return se
	}
	var body ErrorBody
	if err := json.Unmarshal(data, &body); err != nil {
		se.Message = strings.TrimSpace(string(data))
		return se
	}
	se.Message = body.Message
	if se.Message == "" {
		se.Message = body.Error
	}
	se.Errors = body.Errors
	return se
}

func (e *StatusError) Error() string {
	msg := e.Message
	if msg == "" && len(e.Errors) > 0 {
		msg = strings.Join(e.Errors, "; ")
	}
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("backend returned %d: %s", e.StatusCode, msg)
}

// Unwrap maps well known statuses onto the client's sentinel errors.
func (e *StatusError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusUnauthorized:
		return sinkerrors.ErrUnauthorized
	case http.StatusForbidden:
		return sinkerrors.ErrForbidden
	case http.StatusNotFound:
		return sinkerrors.ErrNotFound
	default:
		return nil
	}
}

// IsValidation reports whether the backend rejected the request's content.
func (e *StatusError) IsValidation() bool {
	return e.StatusCode == http.StatusBadRequest || e.StatusCode == http.StatusUnprocessableEntity
}
