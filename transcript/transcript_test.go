package transcript

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignission/claude-code-manager/engine"
)

const sampleTranscript = `{"type":"user","timestamp":"2026-08-30T10:00:00Z","sessionId":"s1","uuid":"u1","message":{"role":"user","content":"fix the bug"}}
{"type":"assistant","timestamp":"2026-08-30T10:00:05Z","sessionId":"s1","uuid":"u2","message":{"role":"assistant","content":[{"type":"text","text":"Looking into it."}],"model":"claude-opus-4","usage":{"input_tokens":100,"output_tokens":20}}}
not valid json
{"type":"queue-operation","timestamp":"2026-08-30T10:00:06Z","sessionId":"s1","uuid":"u3"}
`

func writeTranscript(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "s1.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadAllSkipsMalformedLines(t *testing.T) {
	path := writeTranscript(t, sampleTranscript)

	messages, err := ReadFile(path)
	require.NoError(t, err)
	require.Len(t, messages, 3)

	assert.True(t, messages[0].IsUser())
	assert.Equal(t, "fix the bug", messages[0].Text())

	assert.True(t, messages[1].IsAssistant())
	assert.Equal(t, "Looking into it.", messages[1].Text())
	require.NotNil(t, messages[1].Message.Usage)
	assert.Equal(t, 100, messages[1].Message.Usage.InputTokens)

	assert.Equal(t, "queue-operation", messages[2].Type)
	assert.Empty(t, messages[2].Text())
}

func TestReadFromResumesAtOffset(t *testing.T) {
	path := writeTranscript(t, sampleTranscript)

	r, err := NewReader(path)
	require.NoError(t, err)
	defer r.Close()

	first, offset, err := r.ReadFrom(0)
	require.NoError(t, err)
	assert.Len(t, first, 3)

	// Nothing new at the recorded offset.
	again, offset2, err := r.ReadFrom(offset)
	require.NoError(t, err)
	assert.Empty(t, again)
	assert.Equal(t, offset, offset2)

	// Appended lines appear on the next incremental read.
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(`{"type":"user","sessionId":"s1","uuid":"u4","message":{"role":"user","content":"more"}}` + "\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	more, _, err := r.ReadFrom(offset)
	require.NoError(t, err)
	require.Len(t, more, 1)
	assert.Equal(t, "more", more[0].Text())
}

func TestTailDeliversAppendedMessages(t *testing.T) {
	path := writeTranscript(t, sampleTranscript)

	r, err := NewReader(path)
	require.NoError(t, err)
	defer r.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := r.Tail(ctx)

	// Give the watcher a moment to arm before appending.
	time.Sleep(200 * time.Millisecond)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(`{"type":"assistant","sessionId":"s1","uuid":"u5","message":{"role":"assistant","content":[{"type":"text","text":"tailed"}]}}` + "\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	select {
	case msg := <-ch:
		assert.Equal(t, "tailed", msg.Text())
	case <-time.After(5 * time.Second):
		t.Fatal("tailed message never arrived")
	}

	cancel()
	for range ch {
	}
}

func TestInteractionConversion(t *testing.T) {
	messages, err := ReadFile(writeTranscript(t, sampleTranscript))
	require.NoError(t, err)

	msg, ok := messages[0].Interaction("local-id")
	require.True(t, ok)
	assert.Equal(t, "u1", msg.ID)
	assert.Equal(t, "local-id", msg.SessionID)
	assert.Equal(t, engine.RoleUser, msg.Role)
	assert.Equal(t, engine.TypeText, msg.Type)
	assert.Equal(t, "fix the bug", msg.Content)
	assert.Equal(t, 2026, msg.Timestamp.Year())

	// Lines without displayable text do not convert.
	_, ok = messages[2].Interaction("local-id")
	assert.False(t, ok)
}

func TestNormalizeProjectPath(t *testing.T) {
	assert.Equal(t, "-home-user-repos-app", NormalizeProjectPath("/home/user/repos/app"))
	assert.Equal(t, "-", NormalizeProjectPath("/"))
}

func TestSessionFilePath(t *testing.T) {
	path := SessionFilePath("/home/user", "/work/repo", "abc-123")
	assert.Equal(t, "/home/user/.claude/projects/-work-repo/abc-123.jsonl", path)
}

func TestFindSessionFiles(t *testing.T) {
	root := t.TempDir()
	projDir := filepath.Join(root, "-work-repo")
	require.NoError(t, os.MkdirAll(projDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(projDir, "a.jsonl"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(projDir, "ignore.txt"), nil, 0o644))

	files, err := FindSessionFiles(root)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "a.jsonl", filepath.Base(files[0]))
}
