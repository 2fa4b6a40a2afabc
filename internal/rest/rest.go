// Package rest performs JSON requests against the backend and classifies failures.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	sinkerrors "github.com/jrsteele09/go-sink-client/internal/errors"
	"github.com/jrsteele09/go-sink-client/sinkmodel"
	"github.com/pkg/errors"
)

// Do sends in (if non-nil) as JSON and decodes the response into out (if non-nil).
// Non-2xx answers become *sinkmodel.StatusError; transport failures wrap
// ErrNetwork unless the transport already ended the session.
func Do(ctx context.Context, client *http.Client, method, url string, in, out interface{}) error {
	req, err := NewRequest(ctx, method, url, in)
	if err != nil {
		return err
	}
	return Send(client, req, out)
}

// NewRequest builds a JSON request.
func NewRequest(ctx context.Context, method, url string, in interface{}) (*http.Request, error) {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return nil, errors.Wrap(err, "[rest.NewRequest] encode body")
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, errors.Wrap(err, "[rest.NewRequest]")
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// Send executes req and decodes the response as Do does.
func Send(client *http.Client, req *http.Request, out interface{}) error {
	resp, err := client.Do(req)
	if err != nil {
		if errors.Is(err, sinkerrors.ErrSessionEnded) {
			return err
		}
		return fmt.Errorf("%w: %w", sinkerrors.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return sinkmodel.NewStatusError(resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %w", sinkerrors.ErrUnexpectedReply, err)
	}
	return nil
}
