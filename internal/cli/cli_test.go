package cli_test

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/jrsteele09/go-sink-client/internal/cli"
	"github.com/jrsteele09/go-sink-client/internal/config"
	"github.com/jrsteele09/go-sink-client/internal/fakebackend"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	alice = fakebackend.User{Username: "alice", Password: "pw1234", FirstName: "Alice", LastName: "Liddell", Email: "alice@example.com"}
	root  = fakebackend.User{Username: "root", Password: "toor1234", FirstName: "Ada", LastName: "Root", Email: "root@example.com", Admin: true}
)

type result struct {
	stdout string
	stderr string
	err    error
}

func (r result) code() int {
	return cli.GetExitCode(r.err)
}

// setupBackend points the CLI configuration at a fresh fake backend and an
// empty file store.
func setupBackend(t *testing.T) *fakebackend.Backend {
	t.Helper()
	backend := fakebackend.New(alice, root)
	t.Cleanup(backend.Close)
	t.Setenv("SINK_API_URL", backend.APIURL())
	t.Setenv("SINK_STORE", "file")
	t.Setenv("FOLDER", t.TempDir())
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("SINK_OIDC_ISSUER", "")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	return backend
}

func execute(ctx context.Context, stdin string, args ...string) result {
	cmd := cli.NewRootCommand(config.New())
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	return result{stdout: out.String(), stderr: errOut.String(), err: err}
}

func run(t *testing.T, args ...string) result {
	t.Helper()
	return execute(context.Background(), "", args...)
}

func login(t *testing.T, u fakebackend.User) {
	t.Helper()
	res := run(t, "login", u.Username, "--password", u.Password)
	require.NoError(t, res.err, res.stdout)
}

func decode(t *testing.T, res result) map[string]interface{} {
	t.Helper()
	var resp struct {
		Status string                 `json:"status"`
		Data   map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &resp), res.stdout)
	require.Equal(t, "ok", resp.Status)
	return resp.Data
}

func TestRootCommand(t *testing.T) {
	cmd := cli.NewRootCommand(config.New())
	assert.Equal(t, "sink", cmd.Use)

	for _, name := range []string{"login", "logout", "refresh", "register", "check-username", "whoami", "profile", "posts", "comments", "admin", "keep"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)
	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
}

func TestInvalidFormat(t *testing.T) {
	setupBackend(t)
	res := run(t, "whoami", "--format", "xml")
	assert.Equal(t, cli.ExitCommandError, res.code())
	assert.Contains(t, res.stdout, "invalid format")
}

func TestLoginWhoAmILogout(t *testing.T) {
	setupBackend(t)

	res := run(t, "login", "alice", "--password", "pw1234")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "Logged in as Alice Liddell (User)")

	res = run(t, "whoami", "--format", "json")
	require.NoError(t, res.err)
	data := decode(t, res)
	assert.Equal(t, "alice@example.com", data["userEmail"])
	assert.Equal(t, "User", data["userRole"])

	res = run(t, "logout")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "Logged out")
	assert.NotContains(t, res.stderr, "sink login")

	res = run(t, "whoami")
	assert.Equal(t, cli.ExitLoginNeeded, res.code())
	assert.Contains(t, res.stdout, "Not logged in")
}

func TestLoginReadsPasswordFromStdin(t *testing.T) {
	setupBackend(t)
	res := execute(context.Background(), "toor1234\n", "login", "root@example.com")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "(Admin)")

	res = execute(context.Background(), "", "login", "root")
	assert.Equal(t, cli.ExitCommandError, res.code())
}

func TestLoginVerifiesTokensWithConfiguredIssuer(t *testing.T) {
	backend := setupBackend(t)
	t.Setenv("SINK_OIDC_ISSUER", backend.Issuer.URL)

	res := run(t, "login", "alice", "--password", "pw1234")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "Logged in as Alice Liddell")

	t.Setenv("SINK_OIDC_ISSUER", backend.URL+"/realms/missing")
	res = run(t, "whoami")
	assert.Equal(t, cli.ExitCommandError, res.code())
	assert.Contains(t, res.stdout, "E_CONFIG")
}

func TestLoginInvalidCredentials(t *testing.T) {
	backend := setupBackend(t)
	res := run(t, "login", "alice", "--password", "nope")
	assert.Equal(t, cli.ExitFailure, res.code())
	assert.Contains(t, res.stdout, "Error [E_AUTH]: Invalid credentials")
	assert.Equal(t, 0, backend.Calls(fakebackend.RouteGetProfile))
}

func TestRefreshCommand(t *testing.T) {
	backend := setupBackend(t)
	login(t, alice)

	res := run(t, "refresh")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "Session refreshed")
	assert.Equal(t, 1, backend.Calls(fakebackend.RouteRefresh))

	run(t, "logout")
	res = run(t, "refresh")
	assert.Equal(t, cli.ExitLoginNeeded, res.code())
	assert.Equal(t, 1, strings.Count(res.stderr, "run `sink login`"))
}

func TestRegisterAndCheckUsername(t *testing.T) {
	setupBackend(t)

	res := run(t, "check-username", "bob")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "bob is available")

	res = run(t, "register", "bob", "--first-name", "Bob", "--email", "bob@example.com", "--password", "secret12")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "User registered successfully")

	res = run(t, "check-username", "bob", "--format", "json")
	require.NoError(t, res.err)
	assert.Equal(t, false, decode(t, res)["available"])

	res = run(t, "register", "bob", "--first-name", "Bob", "--email", "bob@example.com", "--password", "a", "--repeat-password", "b")
	assert.Equal(t, cli.ExitFailure, res.code())
	assert.Contains(t, res.stdout, "Username already exists")
	assert.Contains(t, res.stdout, "Passwords do not match")
}

func TestProfileCommands(t *testing.T) {
	setupBackend(t)
	login(t, alice)

	res := run(t, "profile", "get")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "Alice Liddell (alice)")

	res = run(t, "profile", "update")
	assert.Equal(t, cli.ExitCommandError, res.code())

	res = run(t, "profile", "update", "--phone", "555-0142")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "phone: 555-0142")

	res = run(t, "whoami", "--format", "json")
	require.NoError(t, res.err)
	assert.Equal(t, "555-0142", decode(t, res)["phoneNumber"])
}

func TestPostsAndComments(t *testing.T) {
	backend := setupBackend(t)
	login(t, alice)

	res := run(t, "posts", "create", "Hello sink", "--content", "first post", "--format", "json")
	require.NoError(t, res.err)
	postID, ok := decode(t, res)["id"].(string)
	require.True(t, ok)

	res = run(t, "posts", "create", "Another", "--content", "second post")
	require.NoError(t, res.err)

	res = run(t, "comments", "add", postID, "nice one", "--format", "json")
	require.NoError(t, res.err)
	commentID, ok := decode(t, res)["id"].(string)
	require.True(t, ok)

	res = run(t, "posts", "list")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "Hello sink")
	assert.Contains(t, res.stdout, "page 1 of 1 (2 posts)")

	res = run(t, "posts", "list", "--filter", "hello", "--format", "json")
	require.NoError(t, res.err)
	content, ok := decode(t, res)["content"].([]interface{})
	require.True(t, ok)
	assert.Len(t, content, 1)

	res = run(t, "posts", "list", "--sort", "comments", "--format", "json")
	require.NoError(t, res.err)
	content = decode(t, res)["content"].([]interface{})
	require.Len(t, content, 2)
	assert.Equal(t, postID, content[0].(map[string]interface{})["id"])

	require.NoError(t, run(t, "comments", "delete", commentID).err)
	assert.Equal(t, 1, backend.Calls(fakebackend.RouteDeleteComment))
	require.NoError(t, run(t, "posts", "delete", postID).err)

	res = run(t, "posts", "delete", postID)
	assert.Equal(t, cli.ExitFailure, res.code())
	assert.Contains(t, res.stdout, "Not found.")
}

func TestAdminCommands(t *testing.T) {
	backend := setupBackend(t)
	login(t, alice)

	res := run(t, "admin", "users")
	assert.Equal(t, cli.ExitFailure, res.code())
	assert.Contains(t, res.stdout, "E_ADMIN")
	assert.Equal(t, 0, backend.Calls(fakebackend.RouteAdminUsers))

	login(t, root)
	res = run(t, "admin", "users")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "alice@example.com")

	res = run(t, "admin", "analytics", "--format", "yaml")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "totalUsers: 2")

	res = run(t, "admin", "elevate", "alice")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "alice is now admin")
}

func TestUnauthorizedEndsSessionWithOneNotice(t *testing.T) {
	backend := setupBackend(t)
	login(t, alice)
	backend.RevokeAccessTokens()

	res := run(t, "posts", "list")
	assert.Equal(t, cli.ExitLoginNeeded, res.code())
	assert.Equal(t, 1, strings.Count(res.stderr, "run `sink login`"))
	assert.Equal(t, 0, backend.Calls(fakebackend.RouteRefresh))

	res = run(t, "whoami")
	assert.Equal(t, cli.ExitLoginNeeded, res.code())
}

func TestKeepRefreshesUntilCancelled(t *testing.T) {
	backend := setupBackend(t)
	login(t, alice)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan result, 1)
	go func() {
		done <- execute(ctx, "", "keep", "--interval", "20ms")
	}()

	require.Eventually(t, func() bool {
		return backend.Calls(fakebackend.RouteRefresh) >= 2
	}, 2*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case res := <-done:
		require.NoError(t, res.err)
		assert.Contains(t, res.stdout, "Stopped")
		assert.Contains(t, res.stderr, "refreshing every 20ms")
	case <-time.After(2 * time.Second):
		t.Fatal("keep did not stop")
	}

	// the rotated session is still usable
	require.NoError(t, run(t, "profile", "get").err)
}

func TestKeepExitsWhenSessionEnds(t *testing.T) {
	setupBackend(t)

	res := execute(context.Background(), "", "keep", "--interval", "10ms")
	assert.Equal(t, cli.ExitLoginNeeded, res.code())
	assert.Equal(t, 1, strings.Count(res.stderr, "run `sink login`"))
}
