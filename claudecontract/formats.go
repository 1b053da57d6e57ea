package claudecontract

// Output formats for CLI output.
const (
	// FormatText is plain text output (default).
	FormatText = "text"

	// FormatJSON is structured JSON output.
	FormatJSON = "json"

	// FormatStreamJSON is newline-delimited JSON for streaming.
	FormatStreamJSON = "stream-json"
)

// Permission modes accepted by the CLI.
const (
	// PermissionModeDefault uses the CLI's normal permission prompts.
	PermissionModeDefault = ""

	// PermissionModeAcceptEdits auto-accepts file edits.
	PermissionModeAcceptEdits = "acceptEdits"

	// PermissionModeBypassPermissions skips all permission checks.
	PermissionModeBypassPermissions = "bypassPermissions"
)
