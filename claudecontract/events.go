package claudecontract

// Stream event kinds from CLI stream-json output. Each output line is one
// JSON object tagged with a "type" discriminator. Unknown kinds must be
// ignored by consumers, not treated as errors.
const (
	// EventTypeSystem is used for init and other session-level notices.
	EventTypeSystem = "system"

	// EventTypeAssistant is for assistant messages (model responses).
	EventTypeAssistant = "assistant"

	// EventTypeUser is for user messages (including tool results).
	EventTypeUser = "user"

	// EventTypeResult is the final result message with stats.
	EventTypeResult = "result"

	// EventTypeToolUse is a flat tool invocation event. Older CLI builds
	// emit tool use as a top-level line rather than a content block.
	EventTypeToolUse = "tool_use"

	// EventTypeToolResult is a flat tool result event, the counterpart of
	// EventTypeToolUse.
	EventTypeToolResult = "tool_result"

	// EventTypeError is an error event carrying a failure payload.
	EventTypeError = "error"
)

// System event subtypes.
const (
	// SubtypeInit is the initialization event at session start.
	SubtypeInit = "init"
)

// Result subtypes indicating how the turn ended.
const (
	// ResultSubtypeSuccess indicates successful completion.
	ResultSubtypeSuccess = "success"

	// ResultSubtypeErrorMaxTurns indicates max turns limit reached.
	ResultSubtypeErrorMaxTurns = "error_max_turns"

	// ResultSubtypeErrorDuringExecution indicates an error occurred during execution.
	ResultSubtypeErrorDuringExecution = "error_during_execution"
)

// Content block types within assistant and user messages.
const (
	// ContentTypeText is a text content block.
	ContentTypeText = "text"

	// ContentTypeToolUse is a tool invocation request.
	ContentTypeToolUse = "tool_use"

	// ContentTypeToolResult is the result of a tool invocation.
	ContentTypeToolResult = "tool_result"

	// ContentTypeThinking is a thinking block (for models with thinking capability).
	ContentTypeThinking = "thinking"
)
