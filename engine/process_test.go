package engine

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeScript drops an executable shell script into a temp dir and returns
// its path. Tests use scripts as stand-ins for the real CLI binary.
func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fake-claude")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))
	return path
}

// readAll drains a handle's PTY until the stream ends.
func readAll(h *Handle) string {
	var b strings.Builder
	buf := make([]byte, 1024)
	for {
		n, err := h.Read(buf)
		b.Write(buf[:n])
		if err != nil {
			return b.String()
		}
	}
}

func waitDone(t *testing.T, h *Handle) {
	t.Helper()
	select {
	case <-h.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("subprocess did not exit")
	}
}

func TestSpawnCapturesOutput(t *testing.T) {
	script := writeScript(t, `printf 'hello from pty\n'`)

	h, err := Spawn(SpawnSpec{Path: script})
	require.NoError(t, err)
	defer h.Kill()

	out := readAll(h)
	waitDone(t, h)

	assert.Contains(t, out, "hello from pty")
	assert.Zero(t, h.ExitCode())
	assert.False(t, h.Alive())
	assert.Positive(t, h.Pid())
}

func TestSpawnExitCode(t *testing.T) {
	script := writeScript(t, `exit 7`)

	h, err := Spawn(SpawnSpec{Path: script})
	require.NoError(t, err)
	defer h.Kill()

	readAll(h)
	waitDone(t, h)
	assert.Equal(t, 7, h.ExitCode())
}

func TestSpawnAppliesContractEnv(t *testing.T) {
	script := writeScript(t, `printf '%s|%s\n' "$CI" "$TERM"`)

	h, err := Spawn(SpawnSpec{
		Path: script,
		Env:  map[string]string{"TERM": "dumb"},
	})
	require.NoError(t, err)
	defer h.Kill()

	out := readAll(h)
	waitDone(t, h)

	// The contract always wins over caller overrides.
	assert.Contains(t, out, "true|xterm-256color")
}

func TestSpawnWorkingDir(t *testing.T) {
	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	script := writeScript(t, `pwd`)

	h, err := Spawn(SpawnSpec{Path: script, Dir: dir})
	require.NoError(t, err)
	defer h.Kill()

	out := readAll(h)
	waitDone(t, h)
	assert.Contains(t, out, dir)
}

func TestSpawnMissingExecutable(t *testing.T) {
	_, err := Spawn(SpawnSpec{Path: "/no/such/binary"})
	assert.Error(t, err)
}

func TestKillTerminatesProcess(t *testing.T) {
	script := writeScript(t, `sleep 30`)

	h, err := Spawn(SpawnSpec{Path: script})
	require.NoError(t, err)

	require.True(t, h.Alive())
	h.Kill()
	waitDone(t, h)
	assert.False(t, h.Alive())
	assert.NotZero(t, h.ExitCode())

	// Kill after exit is a no-op.
	h.Kill()
}

func TestCloseReleasesTerminal(t *testing.T) {
	script := writeScript(t, `printf 'done\n'`)

	h, err := Spawn(SpawnSpec{Path: script})
	require.NoError(t, err)

	readAll(h)
	waitDone(t, h)

	h.Close()
	// Repeated Close is a no-op, and Kill after Close must not re-close.
	h.Close()
	h.Kill()

	_, err = h.Read(make([]byte, 1))
	assert.Error(t, err)
}

func TestBuildEnvMergesOverrides(t *testing.T) {
	t.Setenv("PROCESS_TEST_BASE", "orig")

	env := buildEnv(map[string]string{
		"PROCESS_TEST_BASE":  "replaced",
		"PROCESS_TEST_EXTRA": "added",
	})

	assert.Contains(t, env, "PROCESS_TEST_BASE=replaced")
	assert.Contains(t, env, "PROCESS_TEST_EXTRA=added")
	assert.Contains(t, env, "CI=true")
	assert.Contains(t, env, "TERM=xterm-256color")
	assert.NotContains(t, env, "PROCESS_TEST_BASE=orig")
}

func TestSetEnvVar(t *testing.T) {
	env := []string{"A=1", "B=2"}

	env = setEnvVar(env, "A", "9")
	assert.Equal(t, []string{"A=9", "B=2"}, env)

	env = setEnvVar(env, "C", "3")
	assert.Equal(t, []string{"A=9", "B=2", "C=3"}, env)
}
