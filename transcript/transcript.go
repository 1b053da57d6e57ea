// Package transcript reads the session history files the CLI persists on
// disk.
//
// The CLI writes one JSONL file per session at
//
//	~/.claude/projects/{normalized-workdir}/{sessionId}.jsonl
//
// where the working directory is normalized by replacing path separators
// with dashes. These files are the durable record of a session and outlive
// the subprocesses that produced them; this package reads them for history
// backfill and follows them live for monitoring.
package transcript

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ignission/claude-code-manager/engine"
)

// Message is one line of a persisted session file.
type Message struct {
	Type       string  `json:"type"`
	Timestamp  string  `json:"timestamp"`
	SessionID  string  `json:"sessionId"`
	UUID       string  `json:"uuid"`
	ParentUUID *string `json:"parentUuid,omitempty"`
	Message    *Body   `json:"message,omitempty"`
}

// Body is the content envelope in a user or assistant line.
type Body struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
	Model   string          `json:"model,omitempty"`
	Usage   *Usage          `json:"usage,omitempty"`
}

// Usage is per-message token accounting, present on assistant lines.
type Usage struct {
	InputTokens              int `json:"input_tokens"`
	OutputTokens             int `json:"output_tokens"`
	CacheCreationInputTokens int `json:"cache_creation_input_tokens,omitempty"`
	CacheReadInputTokens     int `json:"cache_read_input_tokens,omitempty"`
}

// contentBlock is one element of a message content array.
type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
	Name string `json:"name"`
}

// ParseMessage decodes one transcript line. An empty or malformed line is
// an error; callers typically skip it and continue.
func ParseMessage(line []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(line, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// IsUser reports whether the line is a user message.
func (m *Message) IsUser() bool {
	return m.Type == "user"
}

// IsAssistant reports whether the line is an assistant message.
func (m *Message) IsAssistant() bool {
	return m.Type == "assistant"
}

// Text returns the concatenated text content of the message.
func (m *Message) Text() string {
	if m.Message == nil || len(m.Message.Content) == 0 {
		return ""
	}

	raw := m.Message.Content
	if raw[0] == '"' {
		var s string
		if json.Unmarshal(raw, &s) == nil {
			return s
		}
	}

	var blocks []contentBlock
	if json.Unmarshal(raw, &blocks) != nil {
		return ""
	}

	var b strings.Builder
	for _, block := range blocks {
		if block.Type != "text" || block.Text == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(block.Text)
	}
	return b.String()
}

// Interaction converts a transcript line into the engine's message shape
// for history backfill. Lines without displayable text convert to ok=false.
func (m *Message) Interaction(sessionID string) (engine.InteractionMessage, bool) {
	text := m.Text()
	if text == "" {
		return engine.InteractionMessage{}, false
	}

	role := engine.RoleSystem
	switch {
	case m.IsUser():
		role = engine.RoleUser
	case m.IsAssistant():
		role = engine.RoleAssistant
	}

	ts, err := time.Parse(time.RFC3339, m.Timestamp)
	if err != nil {
		ts = time.Time{}
	}

	return engine.InteractionMessage{
		ID:        m.UUID,
		SessionID: sessionID,
		Role:      role,
		Type:      engine.TypeText,
		Content:   text,
		Timestamp: ts,
	}, true
}

// NormalizeProjectPath converts an absolute working directory into the
// directory name the CLI uses under ~/.claude/projects.
// Example: /home/user/repos/app becomes -home-user-repos-app.
func NormalizeProjectPath(workingDir string) string {
	normalized := strings.TrimPrefix(workingDir, "/")
	normalized = strings.ReplaceAll(normalized, "/", "-")
	return "-" + normalized
}

// SessionFilePath returns the transcript file path for a session run in the
// given working directory. An empty homeDir falls back to the current
// user's home.
func SessionFilePath(homeDir, workingDir, sessionID string) string {
	if homeDir == "" {
		var err error
		homeDir, err = os.UserHomeDir()
		if err != nil {
			return ""
		}
	}
	return filepath.Join(homeDir, ".claude", "projects",
		NormalizeProjectPath(workingDir), sessionID+".jsonl")
}

// FindSessionFiles lists every transcript file under a projects directory.
func FindSessionFiles(projectsDir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(projectsDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() && strings.HasSuffix(path, ".jsonl") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}
