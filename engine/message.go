package engine

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus is the lifecycle state of a session.
type SessionStatus string

// Session lifecycle states. Only the engine transitions a session between
// states; callers observe them through Get, List, and bus events.
const (
	// StatusIdle means no subprocess is running for the session.
	StatusIdle SessionStatus = "idle"

	// StatusActive means a subprocess is running and being drained.
	StatusActive SessionStatus = "active"

	// StatusStopped is terminal: the session was explicitly stopped and
	// removed from the registry.
	StatusStopped SessionStatus = "stopped"

	// StatusError means the last subprocess failed to spawn or exited
	// abnormally. The session can still accept another Send.
	StatusError SessionStatus = "error"
)

// Session is one logical conversation bound to a working directory,
// independent of how many subprocesses have served it over time.
// Identity and working directory are immutable after creation; Status is
// owned exclusively by the engine.
type Session struct {
	ID         string        `json:"id"`
	WorkingDir string        `json:"workingDir"`
	Status     SessionStatus `json:"status"`
	CreatedAt  time.Time     `json:"createdAt"`
}

// Role identifies who a message is attributed to.
type Role string

// Message roles.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// MessageType identifies the kind of content a message carries.
type MessageType string

// Message types.
const (
	TypeText       MessageType = "text"
	TypeToolUse    MessageType = "tool_use"
	TypeToolResult MessageType = "tool_result"
	TypeError      MessageType = "error"
)

// InteractionMessage is one discrete message in a session's transcript.
// Messages are immutable after creation and ordered by emission time
// within a session.
type InteractionMessage struct {
	ID        string      `json:"id"`
	SessionID string      `json:"sessionId"`
	Role      Role        `json:"role"`
	Type      MessageType `json:"type"`
	Content   string      `json:"content"`
	Timestamp time.Time   `json:"timestamp"`
}

// StreamChunk is an incremental assistant-text fragment. The sequence of
// chunks for one reply is ordered and terminated by a Completion event.
type StreamChunk struct {
	SessionID string      `json:"sessionId"`
	Text      string      `json:"text"`
	Type      MessageType `json:"type"`
}

// Completion marks the end of one interaction turn. MessageID is freshly
// generated: completion is a structural signal, not content, so it does
// not reuse the id of any emitted message.
type Completion struct {
	SessionID string  `json:"sessionId"`
	MessageID string  `json:"messageId"`
	ExitCode  int     `json:"exitCode"`
	CostUSD   float64 `json:"costUsd,omitempty"`
	NumTurns  int     `json:"numTurns,omitempty"`
}

// newMessage builds an InteractionMessage with a fresh id and timestamp.
func newMessage(sessionID string, role Role, typ MessageType, content string) InteractionMessage {
	return InteractionMessage{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Role:      role,
		Type:      typ,
		Content:   content,
		Timestamp: time.Now(),
	}
}
