package engine

// Option configures an Engine.
type Option func(*Engine)

// WithClaudePath sets the path to the claude binary.
// Default: "claude", resolved from PATH.
func WithClaudePath(path string) Option {
	return func(e *Engine) { e.claudePath = path }
}

// WithModel sets the default model for all sends.
func WithModel(model string) Option {
	return func(e *Engine) { e.model = model }
}

// WithFallbackModel sets a fallback model to use if the primary is overloaded.
func WithFallbackModel(model string) Option {
	return func(e *Engine) { e.fallbackModel = model }
}

// WithEnv adds environment variables for spawned subprocesses. The
// contract variables (CI, TERM) are always applied last and cannot be
// overridden here.
func WithEnv(env map[string]string) Option {
	return func(e *Engine) {
		if e.extraEnv == nil {
			e.extraEnv = make(map[string]string)
		}
		for k, v := range env {
			e.extraEnv[k] = v
		}
	}
}

// WithTerminalSize pins the pseudo-terminal geometry for spawned
// subprocesses.
func WithTerminalSize(cols, rows uint16) Option {
	return func(e *Engine) {
		e.cols = cols
		e.rows = rows
	}
}

// WithEventBuffer sets the per-subscriber bus channel capacity.
func WithEventBuffer(n int) Option {
	return func(e *Engine) { e.busBuffer = n }
}

// WithAllowedTools sets the default tool whitelist for all sends.
func WithAllowedTools(tools []string) Option {
	return func(e *Engine) { e.allowedTools = tools }
}

// WithDisallowedTools sets the default tool blacklist for all sends.
func WithDisallowedTools(tools []string) Option {
	return func(e *Engine) { e.disallowedTools = tools }
}

// WithPermissionMode sets the CLI permission mode for all sends.
func WithPermissionMode(mode string) Option {
	return func(e *Engine) { e.permissionMode = mode }
}

// WithDangerouslySkipPermissions skips all CLI permission prompts.
// Required for unattended operation in trusted environments.
func WithDangerouslySkipPermissions() Option {
	return func(e *Engine) { e.skipPermissions = true }
}

// WithMaxBudgetUSD limits spending per send.
func WithMaxBudgetUSD(amount float64) Option {
	return func(e *Engine) { e.maxBudgetUSD = amount }
}

// WithMaxTurns limits the number of agentic turns per send.
func WithMaxTurns(n int) Option {
	return func(e *Engine) { e.maxTurns = n }
}

// sendConfig holds per-send overrides of the engine defaults.
type sendConfig struct {
	model      string
	jsonSchema string
	maxTurns   int
	addDirs    []string
}

// SendOption configures a single Send call.
type SendOption func(*sendConfig)

// SendWithModel overrides the model for this send only.
func SendWithModel(model string) SendOption {
	return func(c *sendConfig) { c.model = model }
}

// SendWithJSONSchema forces structured output matching the given JSON
// schema for this send. See claudecontract.SchemaFor for generating one
// from a Go type.
func SendWithJSONSchema(schema string) SendOption {
	return func(c *sendConfig) { c.jsonSchema = schema }
}

// SendWithMaxTurns overrides the turn limit for this send only.
func SendWithMaxTurns(n int) SendOption {
	return func(c *sendConfig) { c.maxTurns = n }
}

// SendWithAddDir grants the subprocess access to an additional directory
// for this send.
func SendWithAddDir(dir string) SendOption {
	return func(c *sendConfig) { c.addDirs = append(c.addDirs, dir) }
}
