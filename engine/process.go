package engine

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/creack/pty"

	"github.com/ignission/claude-code-manager/claudecontract"
)

// SpawnSpec describes one subprocess launch.
type SpawnSpec struct {
	// Path is the executable to launch.
	Path string

	// Args are the command arguments, excluding the executable name.
	Args []string

	// Dir is the working directory the process is bound to.
	Dir string

	// Env holds environment overrides merged over the parent environment.
	// The contract variables (CI, TERM) are always applied on top.
	Env map[string]string

	// Cols and Rows pin the pseudo-terminal geometry. Zero values fall
	// back to the contract defaults.
	Cols uint16
	Rows uint16
}

// Handle owns one subprocess attached to a pseudo-terminal. It exposes the
// ordered output byte stream via Read, a termination signal via Done, and
// best-effort forced termination via Kill.
type Handle struct {
	cmd  *exec.Cmd
	ptmx *os.File

	done     chan struct{}
	exitCode int

	killOnce  sync.Once
	closeOnce sync.Once
}

// Spawn launches the subprocess described by spec with a pseudo-terminal
// attached. The PTY makes the CLI behave as if connected to a real
// terminal while the engine captures its output programmatically.
func Spawn(spec SpawnSpec) (*Handle, error) {
	path, err := resolvePath(spec.Path, spec.Dir)
	if err != nil {
		return nil, fmt.Errorf("locate executable: %w", err)
	}

	cmd := exec.Command(path, spec.Args...)
	cmd.Dir = spec.Dir
	cmd.Env = buildEnv(spec.Env)

	cols, rows := spec.Cols, spec.Rows
	if cols == 0 {
		cols = claudecontract.DefaultCols
	}
	if rows == 0 {
		rows = claudecontract.DefaultRows
	}

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Cols: cols, Rows: rows})
	if err != nil {
		return nil, fmt.Errorf("start with pty: %w", err)
	}

	h := &Handle{
		cmd:  cmd,
		ptmx: ptmx,
		done: make(chan struct{}),
	}
	go h.wait()

	return h, nil
}

// wait reaps the subprocess and records its exit code.
func (h *Handle) wait() {
	err := h.cmd.Wait()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			h.exitCode = exitErr.ExitCode()
		} else {
			h.exitCode = -1
		}
	}
	close(h.done)
}

// Read reads the next chunk of subprocess output. It returns an error once
// the process has exited and the stream is drained; on Linux a closed PTY
// surfaces as EIO rather than io.EOF, and callers should treat any read
// error as end of stream.
func (h *Handle) Read(p []byte) (int, error) {
	return h.ptmx.Read(p)
}

// Done is closed when the subprocess has exited and been reaped.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// ExitCode returns the subprocess exit code. Valid only after Done is
// closed; zero means natural successful exit.
func (h *Handle) ExitCode() int {
	return h.exitCode
}

// Pid returns the subprocess pid, or 0 if unavailable.
func (h *Handle) Pid() int {
	if h.cmd.Process == nil {
		return 0
	}
	return h.cmd.Process.Pid
}

// Kill forcefully terminates the subprocess and any children it spawned.
// Idempotent and safe to call after natural exit. The PTY is closed so
// pending reads unblock.
func (h *Handle) Kill() {
	h.killOnce.Do(func() {
		select {
		case <-h.done:
			// Already exited; just release the terminal.
		default:
			if h.cmd.Process != nil {
				// The PTY start put the child in its own session, so the
				// negative pid reaches the whole process group: Claude Code
				// spawns subprocesses (test runners, MCP servers) that must
				// not be orphaned.
				_ = syscall.Kill(-h.cmd.Process.Pid, syscall.SIGKILL)
			}
		}
	})
	h.Close()
}

// Close releases the PTY master. It must be called once the stream is
// drained, including after natural exit; the fd is not released anywhere
// else. Idempotent.
func (h *Handle) Close() {
	h.closeOnce.Do(func() {
		_ = h.ptmx.Close()
	})
}

// Alive reports whether the subprocess has not yet exited.
func (h *Handle) Alive() bool {
	select {
	case <-h.done:
		return false
	default:
		return true
	}
}

// resolvePath resolves the executable to an absolute path. Needed because
// exec does not perform PATH lookup for relative names once cmd.Dir is set.
func resolvePath(path, dir string) (string, error) {
	if path == "" {
		path = "claude"
	}
	if filepath.IsAbs(path) || dir == "" {
		return path, nil
	}
	return exec.LookPath(path)
}

// buildEnv merges override variables over the parent environment, then
// applies the subprocess contract (CI, TERM) on top so callers cannot
// accidentally unpin the terminal behavior.
func buildEnv(overrides map[string]string) []string {
	env := os.Environ()
	for k, v := range overrides {
		env = setEnvVar(env, k, v)
	}
	for k, v := range claudecontract.Environ() {
		env = setEnvVar(env, k, v)
	}
	return env
}

// setEnvVar updates or adds an environment variable in an env slice.
func setEnvVar(env []string, key, value string) []string {
	prefix := key + "="
	for i, e := range env {
		if strings.HasPrefix(e, prefix) {
			env[i] = prefix + value
			return env
		}
	}
	return append(env, prefix+value)
}
