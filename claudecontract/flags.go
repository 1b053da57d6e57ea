package claudecontract

// CLI flag names - update here when CLI changes.
// These are the exact flag names as used by the claude CLI binary.
//
// Source: https://code.claude.com/docs/en/cli-reference
const (
	// Core flags
	FlagPrint        = "--print"         // -p, Run in non-interactive mode
	FlagOutputFormat = "--output-format" // Output format: text, json, stream-json
	FlagVerbose      = "--verbose"       // Enable verbose output (required for stream-json)

	// Model flags
	FlagModel         = "--model"          // Claude model to use
	FlagFallbackModel = "--fallback-model" // Fallback model if primary fails

	// Session flags
	FlagSessionID = "--session-id" // UUID for session
	FlagResume    = "--resume"     // -r, Resume specific session by ID

	// Tool flags (note: CLI accepts both camelCase and kebab-case!)
	FlagAllowedTools    = "--allowedTools"    // Tools to allow (repeatable)
	FlagDisallowedTools = "--disallowedTools" // Tools to disallow (repeatable)

	// Permission flags
	FlagDangerouslySkipPermissions = "--dangerously-skip-permissions" // Skip all permission prompts
	FlagPermissionMode             = "--permission-mode"              // Permission mode

	// Directory flags
	FlagAddDir = "--add-dir" // Additional directories Claude can access (repeatable)

	// Budget and limits flags
	FlagMaxBudgetUSD = "--max-budget-usd" // Maximum budget in USD
	FlagMaxTurns     = "--max-turns"      // Maximum conversation turns

	// Schema flags
	FlagJSONSchema = "--json-schema" // JSON Schema for structured output
)
