package engine

import (
	"encoding/json"
	"strings"

	"github.com/ignission/claude-code-manager/claudecontract"
)

// Output is one classified product of a single cleaned stream line.
// Exactly one of Chunk and Message is set; Meta may accompany a Message
// produced from a final result event.
type Output struct {
	// Chunk is an assistant-text fragment, or the raw line when the line
	// was not decodable structured data.
	Chunk *StreamChunk

	// Message is a discrete transcript message.
	Message *InteractionMessage

	// Meta carries final-result statistics when the line was a result
	// event. The engine folds it into the turn's Completion.
	Meta *ResultMeta
}

// ResultMeta holds statistics reported by the CLI's final result event.
type ResultMeta struct {
	IsError  bool
	CostUSD  float64
	NumTurns int
}

// rawEvent is the transient decode target for one stream line. It covers
// both the nested message shape current CLI builds emit and the flat shape
// older builds used; unused fields simply decode to zero values.
type rawEvent struct {
	Type    string `json:"type"`
	Subtype string `json:"subtype"`

	// Nested message (assistant and user events).
	Message *rawEventMessage `json:"message"`

	// Flat payloads.
	Text    string          `json:"text"`
	Name    string          `json:"name"`
	Input   json.RawMessage `json:"input"`
	Content json.RawMessage `json:"content"`

	// Result event fields. Some emitters use "result", others "content".
	Result string `json:"result"`

	// Error event fields.
	ErrorMessage string `json:"error"`

	// Result statistics.
	IsError      bool    `json:"is_error"`
	NumTurns     int     `json:"num_turns"`
	TotalCostUSD float64 `json:"total_cost_usd"`
}

// rawEventMessage is the nested message envelope in assistant/user events.
type rawEventMessage struct {
	Role    string            `json:"role"`
	Content []rawContentBlock `json:"content"`
}

// rawContentBlock is one content block within a nested message.
type rawContentBlock struct {
	Type      string          `json:"type"`
	Text      string          `json:"text"`
	Name      string          `json:"name"`
	Input     json.RawMessage `json:"input"`
	ToolUseID string          `json:"tool_use_id"`
	Content   json.RawMessage `json:"content"`
}

// Classify maps one cleaned output line onto zero or more typed events.
// It is state-free: every call depends only on its arguments.
//
// A line that does not decode as a structured event is not an error; it is
// emitted as a raw text chunk so plain-text subprocess output still reaches
// subscribers. Structured lines with an unrecognized type are dropped for
// forward compatibility.
func Classify(sessionID, line string) []Output {
	var ev rawEvent
	if err := json.Unmarshal([]byte(line), &ev); err != nil || ev.Type == "" {
		return []Output{{Chunk: &StreamChunk{SessionID: sessionID, Text: line, Type: TypeText}}}
	}

	switch ev.Type {
	case claudecontract.EventTypeAssistant:
		return classifyAssistant(sessionID, &ev)

	case claudecontract.EventTypeUser:
		return classifyUser(sessionID, &ev)

	case claudecontract.EventTypeToolUse:
		content := ev.Name
		if len(ev.Input) > 0 {
			content += " " + string(ev.Input)
		}
		msg := newMessage(sessionID, RoleAssistant, TypeToolUse, content)
		return []Output{{Message: &msg}}

	case claudecontract.EventTypeToolResult:
		msg := newMessage(sessionID, RoleSystem, TypeToolResult, rawToString(ev.Content))
		return []Output{{Message: &msg}}

	case claudecontract.EventTypeResult:
		content := ev.Result
		if content == "" {
			content = rawToString(ev.Content)
		}
		msg := newMessage(sessionID, RoleAssistant, TypeText, content)
		return []Output{{
			Message: &msg,
			Meta: &ResultMeta{
				IsError:  ev.IsError,
				CostUSD:  ev.TotalCostUSD,
				NumTurns: ev.NumTurns,
			},
		}}

	case claudecontract.EventTypeError:
		content := ev.ErrorMessage
		if content == "" {
			content = rawToString(ev.Content)
		}
		if content == "" {
			content = "Unknown error"
		}
		msg := newMessage(sessionID, RoleSystem, TypeError, content)
		return []Output{{Message: &msg}}
	}

	// Unknown kinds (system/init, hook output, future event types) are
	// intentionally ignored.
	return nil
}

// classifyAssistant expands an assistant event's content blocks: text
// blocks become stream chunks, tool_use blocks become tool messages.
func classifyAssistant(sessionID string, ev *rawEvent) []Output {
	var outputs []Output

	// Flat shape: {"type":"assistant","text":"..."}.
	if ev.Message == nil {
		if ev.Text == "" {
			return nil
		}
		return []Output{{Chunk: &StreamChunk{SessionID: sessionID, Text: ev.Text, Type: TypeText}}}
	}

	for _, block := range ev.Message.Content {
		switch block.Type {
		case claudecontract.ContentTypeText:
			if block.Text == "" {
				continue
			}
			outputs = append(outputs, Output{
				Chunk: &StreamChunk{SessionID: sessionID, Text: block.Text, Type: TypeText},
			})

		case claudecontract.ContentTypeToolUse:
			content := block.Name
			if len(block.Input) > 0 {
				content += " " + string(block.Input)
			}
			msg := newMessage(sessionID, RoleAssistant, TypeToolUse, content)
			outputs = append(outputs, Output{Message: &msg})
		}
	}
	return outputs
}

// classifyUser extracts tool_result blocks from a user event.
func classifyUser(sessionID string, ev *rawEvent) []Output {
	if ev.Message == nil {
		return nil
	}

	var outputs []Output
	for _, block := range ev.Message.Content {
		if block.Type != claudecontract.ContentTypeToolResult {
			continue
		}
		msg := newMessage(sessionID, RoleSystem, TypeToolResult, rawToString(block.Content))
		outputs = append(outputs, Output{Message: &msg})
	}
	return outputs
}

// rawToString renders a raw JSON payload as display text: strings are
// unquoted, block arrays have their text concatenated, anything else is
// passed through as raw JSON.
func rawToString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	}

	if raw[0] == '[' {
		var blocks []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		}
		if err := json.Unmarshal(raw, &blocks); err == nil {
			var b strings.Builder
			for i, block := range blocks {
				if i > 0 {
					b.WriteString("\n")
				}
				b.WriteString(block.Text)
			}
			return b.String()
		}
	}

	return string(raw)
}
