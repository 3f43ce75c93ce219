package cli

import (
	"bytes"
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"listings/config"
	"listings/startup"
)

func init() {
	color.NoColor = true
}

func testEnv(t *testing.T) {
	t.Helper()
	t.Setenv("APP_ENV", "test")
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("LOG_FORMAT", "console")
	t.Setenv("PORT", "8000")
	t.Setenv("WORKERS", "3")
}

// closedAddr returns a loopback address nothing is listening on
func closedAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	return addr
}

func runCommand(t *testing.T, opts *rootOptions, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(opts)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRootCommandTree(t *testing.T) {
	root := NewRootCmd()

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"serve", "wait", "migrate", "collectstatic", "createadmin", "seed", "seed-properties", "startup"} {
		assert.Contains(t, names, want)
	}
	assert.True(t, root.SilenceUsage)
}

func TestWaitCommandExplicitAddress(t *testing.T) {
	testEnv(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	_, err = runCommand(t, &rootOptions{fs: afero.NewMemMapFs()}, "wait", "svc", ln.Addr().String(), "--timeout", "2s")
	assert.NoError(t, err)
}

func TestWaitCommandTimesOut(t *testing.T) {
	testEnv(t)

	start := time.Now()
	_, err := runCommand(t, &rootOptions{fs: afero.NewMemMapFs()},
		"wait", "svc", closedAddr(t), "--interval", "10ms", "--timeout", "50ms")
	require.Error(t, err)
	assert.ErrorIs(t, err, startup.ErrWaitTimeout)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestWaitCommandArgs(t *testing.T) {
	testEnv(t)

	_, err := runCommand(t, &rootOptions{fs: afero.NewMemMapFs()}, "wait", "only-name")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 0 or 2 args")

	_, err = runCommand(t, &rootOptions{fs: afero.NewMemMapFs()}, "wait", "svc", "127.0.0.1:1", "--interval", "0s")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--interval must be positive")
}

func TestCollectStaticCommand(t *testing.T) {
	testEnv(t)
	t.Setenv("STATIC_DIRS", "static")
	t.Setenv("STATIC_ROOT", "staticfiles")

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "static/css/site.css", []byte("body{}"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "static/js/app.js", []byte("1"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "staticfiles/stale.txt", []byte("old"), 0o644))

	out, err := runCommand(t, &rootOptions{fs: fs}, "collectstatic")
	require.NoError(t, err)
	assert.Equal(t, "2 static files copied to 'staticfiles'.\n", out)

	exists, err := afero.Exists(fs, "staticfiles/css/site.css")
	require.NoError(t, err)
	assert.True(t, exists)

	stale, err := afero.Exists(fs, "staticfiles/stale.txt")
	require.NoError(t, err)
	assert.False(t, stale, "the static root is cleared first")
}

func TestServeFlagValidation(t *testing.T) {
	testEnv(t)

	_, err := runCommand(t, &rootOptions{fs: afero.NewMemMapFs()}, "serve", "--workers", "0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--workers")

	_, err = runCommand(t, &rootOptions{fs: afero.NewMemMapFs()}, "serve", "--port", "70000")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")
}

func TestServesRequests(t *testing.T) {
	t.Setenv("FIBER_PREFORK_CHILD", "")

	assert.True(t, servesRequests(1), "a single worker serves in-process")
	assert.False(t, servesRequests(3), "the prefork master only supervises")

	t.Setenv("FIBER_PREFORK_CHILD", "1")
	assert.True(t, servesRequests(3), "prefork children serve")
}

func TestInvalidConfigFailsBeforeCommand(t *testing.T) {
	testEnv(t)
	t.Setenv("PORT", "70000")

	_, err := runCommand(t, &rootOptions{fs: afero.NewMemMapFs()}, "collectstatic")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config validation failed")
}

func TestPipelineOrder(t *testing.T) {
	s := newSession(&config.Config{}, afero.NewMemMapFs(), &bytes.Buffer{})
	assert.Equal(t,
		[]string{"wait-for-database", "wait-for-redis", "migrate", "collectstatic", "createadmin", "seed"},
		s.pipeline().Steps())
}

func startupConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		DBWaitAddr:    closedAddr(t),
		RedisWaitAddr: closedAddr(t),
		WaitInterval:  10 * time.Millisecond,
		WaitTimeout:   50 * time.Millisecond,
		StaticRoot:    "staticfiles",
		ServerBinary:  "/app/listings",
	}
}

func TestRunStartupStopsAtFirstFailure(t *testing.T) {
	called := false
	handoff = func(string, []string, []string) error {
		called = true
		return nil
	}
	t.Cleanup(func() { handoff = defaultHandoff })

	var out bytes.Buffer
	err := runStartup(context.Background(), startupConfig(t), afero.NewMemMapFs(), &out, true)
	require.Error(t, err)

	var stepErr *startup.StepError
	require.True(t, errors.As(err, &stepErr))
	assert.Equal(t, "wait-for-database", stepErr.Step)
	assert.Equal(t, 1, startup.ExitCode(err))
	assert.False(t, called, "the server must not start after a failed step")
	assert.Empty(t, out.String())
}

func TestRunStartupDelayHonoursCancellation(t *testing.T) {
	cfg := startupConfig(t)
	cfg.StartupDelay = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := runStartup(ctx, cfg, afero.NewMemMapFs(), &bytes.Buffer{}, false)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExit(t *testing.T) {
	var out bytes.Buffer
	assert.Equal(t, 0, Exit(&out, nil))
	assert.Empty(t, out.String())

	code := Exit(&out, &startup.StepError{Step: "migrate", Err: errors.New("boom"), Code: 1})
	assert.Equal(t, 1, code)
	assert.Contains(t, out.String(), `Error: startup step "migrate" failed: boom`)

	out.Reset()
	assert.Equal(t, 1, Exit(&out, errors.New("plain")))
	assert.Equal(t, "Error: plain\n", out.String())
}
