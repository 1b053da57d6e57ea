// Package config loads and validates claude-code-manager configuration.
//
// Configuration comes from three layers, later layers winning: built-in
// defaults, an optional TOML file, and CCM_* environment variables.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/ignission/claude-code-manager/engine"
)

// Config is the full configuration tree.
type Config struct {
	Claude   ClaudeConfig   `toml:"claude"`
	Terminal TerminalConfig `toml:"terminal"`
	Events   EventsConfig   `toml:"events"`
	Log      LogConfig      `toml:"log"`
}

// ClaudeConfig controls how the CLI subprocess is invoked.
type ClaudeConfig struct {
	// Path is the claude executable, resolved from PATH when relative.
	Path string `toml:"path"`

	// Model and FallbackModel select the model for every send.
	Model         string `toml:"model"`
	FallbackModel string `toml:"fallback_model"`

	// PermissionMode is passed through to the CLI. See the CLI docs for
	// accepted values.
	PermissionMode string `toml:"permission_mode"`

	// SkipPermissions disables all CLI permission prompts. Required for
	// unattended operation.
	SkipPermissions bool `toml:"skip_permissions"`

	AllowedTools    []string `toml:"allowed_tools"`
	DisallowedTools []string `toml:"disallowed_tools"`

	// MaxBudgetUSD caps spending per send; zero means no cap.
	MaxBudgetUSD float64 `toml:"max_budget_usd"`

	// MaxTurns caps agentic turns per send; zero means no cap.
	MaxTurns int `toml:"max_turns"`

	// Env holds extra environment variables for spawned subprocesses.
	Env map[string]string `toml:"env"`
}

// TerminalConfig pins the pseudo-terminal geometry.
type TerminalConfig struct {
	Cols uint16 `toml:"cols"`
	Rows uint16 `toml:"rows"`
}

// EventsConfig tunes the event bus.
type EventsConfig struct {
	// Buffer is the per-subscriber channel capacity. A subscriber that
	// falls this far behind starts losing events.
	Buffer int `toml:"buffer"`
}

// LogConfig controls structured logging.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `toml:"level"`

	// Format is text or json.
	Format string `toml:"format"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Claude: ClaudeConfig{
			Path: "claude",
		},
		Terminal: TerminalConfig{
			Cols: 200,
			Rows: 50,
		},
		Events: EventsConfig{
			Buffer: 256,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads configuration from the given TOML file, layered over the
// defaults and under the environment. A missing file is not an error;
// the defaults and environment still apply.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("reading config: %w", err)
		}
	} else if _, err := toml.Decode(string(data), &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnv overrides config fields from CCM_* environment variables.
func (c *Config) applyEnv() {
	if v := os.Getenv("CCM_CLAUDE_PATH"); v != "" {
		c.Claude.Path = v
	}
	if v := os.Getenv("CCM_MODEL"); v != "" {
		c.Claude.Model = v
	}
	if v := os.Getenv("CCM_FALLBACK_MODEL"); v != "" {
		c.Claude.FallbackModel = v
	}
	if v := os.Getenv("CCM_PERMISSION_MODE"); v != "" {
		c.Claude.PermissionMode = v
	}
	if v := os.Getenv("CCM_SKIP_PERMISSIONS"); v != "" {
		c.Claude.SkipPermissions = v == "true" || v == "1"
	}
	if v := os.Getenv("CCM_MAX_TURNS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Claude.MaxTurns = n
		}
	}
	if v := os.Getenv("CCM_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("CCM_LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}
}

// Validate checks field values that have a closed domain.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q", c.Log.Level)
	}

	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format %q", c.Log.Format)
	}

	if c.Claude.Path == "" {
		return fmt.Errorf("claude.path must not be empty")
	}
	if c.Claude.MaxBudgetUSD < 0 {
		return fmt.Errorf("claude.max_budget_usd must not be negative")
	}
	if c.Claude.MaxTurns < 0 {
		return fmt.Errorf("claude.max_turns must not be negative")
	}
	if c.Events.Buffer < 0 {
		return fmt.Errorf("events.buffer must not be negative")
	}
	return nil
}

// EngineOptions translates the configuration into engine options.
func (c *Config) EngineOptions() []engine.Option {
	opts := []engine.Option{
		engine.WithClaudePath(c.Claude.Path),
		engine.WithTerminalSize(c.Terminal.Cols, c.Terminal.Rows),
		engine.WithEventBuffer(c.Events.Buffer),
	}
	if c.Claude.Model != "" {
		opts = append(opts, engine.WithModel(c.Claude.Model))
	}
	if c.Claude.FallbackModel != "" {
		opts = append(opts, engine.WithFallbackModel(c.Claude.FallbackModel))
	}
	if c.Claude.PermissionMode != "" {
		opts = append(opts, engine.WithPermissionMode(c.Claude.PermissionMode))
	}
	if c.Claude.SkipPermissions {
		opts = append(opts, engine.WithDangerouslySkipPermissions())
	}
	if len(c.Claude.AllowedTools) > 0 {
		opts = append(opts, engine.WithAllowedTools(c.Claude.AllowedTools))
	}
	if len(c.Claude.DisallowedTools) > 0 {
		opts = append(opts, engine.WithDisallowedTools(c.Claude.DisallowedTools))
	}
	if c.Claude.MaxBudgetUSD > 0 {
		opts = append(opts, engine.WithMaxBudgetUSD(c.Claude.MaxBudgetUSD))
	}
	if c.Claude.MaxTurns > 0 {
		opts = append(opts, engine.WithMaxTurns(c.Claude.MaxTurns))
	}
	if len(c.Claude.Env) > 0 {
		opts = append(opts, engine.WithEnv(c.Claude.Env))
	}
	return opts
}

// Logger builds a slog logger per the log section.
func (c *Config) Logger() *slog.Logger {
	var level slog.Level
	switch strings.ToLower(c.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if strings.EqualFold(c.Log.Format, "json") {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}
