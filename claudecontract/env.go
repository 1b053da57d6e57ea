package claudecontract

// Environment contract for spawned CLI processes.
//
// The CLI changes its output formatting when it detects an interactive
// terminal, and waits on interactive prompts unless it believes it runs
// under CI. The manager attaches a pseudo-terminal for faithful capture,
// so both signals must be pinned explicitly.
const (
	// EnvCI tells the CLI it runs non-interactively. Without it the
	// subprocess may block on confirmation prompts.
	EnvCI = "CI"

	// EnvCIValue is the value set for EnvCI.
	EnvCIValue = "true"

	// EnvTerm pins the terminal type so escape-sequence output is stable
	// across hosts.
	EnvTerm = "TERM"

	// EnvTermValue is the pinned terminal type.
	EnvTermValue = "xterm-256color"
)

// Pinned pseudo-terminal geometry. Fixed dimensions keep line wrapping
// deterministic regardless of the controlling environment.
const (
	// DefaultCols is the pinned terminal width.
	DefaultCols = 200

	// DefaultRows is the pinned terminal height.
	DefaultRows = 50
)

// Environ returns the environment overrides every spawned CLI process must
// receive, as a key to value map.
func Environ() map[string]string {
	return map[string]string{
		EnvCI:   EnvCIValue,
		EnvTerm: EnvTermValue,
	}
}
