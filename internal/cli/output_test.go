package cli_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/jrsteele09/go-sink-client/internal/cli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type sample struct {
	MemberID int64  `json:"memberId"`
	Email    string `json:"userEmail"`
}

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &cli.OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, formatter.Success(sample{MemberID: 7, Email: "a@example.com"}, "ignored"))

	var resp struct {
		Status string `json:"status"`
		Data   sample `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, int64(7), resp.Data.MemberID)
	assert.NotContains(t, buf.String(), "ignored")
}

func TestOutputFormatter_YAMLUsesWireNames(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &cli.OutputFormatter{Format: "yaml", Writer: buf}

	require.NoError(t, formatter.Success(sample{MemberID: 7, Email: "a@example.com"}, ""))

	var resp map[string]interface{}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp["status"])
	data, ok := resp["data"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "a@example.com", data["userEmail"])
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &cli.OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, formatter.Error("E_AUTH", "Invalid credentials", nil))

	var resp cli.CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E_AUTH", resp.Error.Code)
	assert.Equal(t, "Invalid credentials", resp.Error.Message)
}

func TestOutputFormatter_Text(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &cli.OutputFormatter{Format: "text", Writer: buf}

	require.NoError(t, formatter.Success(sample{}, "Logged out"))
	require.NoError(t, formatter.Error("E_NETWORK", "Something went wrong", "dial tcp"))
	assert.Equal(t, "Logged out\nError [E_NETWORK]: Something went wrong\n", buf.String())

	buf.Reset()
	formatter.Verbose = true
	require.NoError(t, formatter.Error("E_NETWORK", "Something went wrong", "dial tcp"))
	assert.Contains(t, buf.String(), "Details: dial tcp")
}

func TestOutputFormatter_NoticeGoesToErrWriter(t *testing.T) {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	formatter := &cli.OutputFormatter{Format: "json", Writer: out, ErrWriter: errOut}
	formatter.Notice("refreshing every %s", "4m0s")
	assert.Empty(t, out.String())
	assert.Equal(t, "refreshing every 4m0s\n", errOut.String())
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, cli.ExitSuccess, cli.GetExitCode(nil))
	assert.Equal(t, cli.ExitFailure, cli.GetExitCode(errors.New("boom")))
	assert.Equal(t, cli.ExitLoginNeeded, cli.GetExitCode(cli.NewExitError(cli.ExitLoginNeeded, "login")))

	wrapped := cli.WrapExitError(cli.ExitCommandError, "usage", errors.New("bad flag"))
	assert.Equal(t, cli.ExitCommandError, cli.GetExitCode(wrapped))
	assert.Equal(t, "usage: bad flag", wrapped.Error())
}
