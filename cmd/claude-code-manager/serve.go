package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/ignission/claude-code-manager/config"
	"github.com/ignission/claude-code-manager/engine"
	"github.com/ignission/claude-code-manager/transcript"
)

// command is one stdin request line.
type command struct {
	Op         string `json:"op"`
	SessionID  string `json:"sessionId,omitempty"`
	WorkingDir string `json:"workingDir,omitempty"`
	Text       string `json:"text,omitempty"`
	Model      string `json:"model,omitempty"`
	MaxTurns   int    `json:"maxTurns,omitempty"`
	Path       string `json:"path,omitempty"`
}

// response is a direct reply to a command, distinct from bus events.
type response struct {
	Type     string                      `json:"type"`
	Op       string                      `json:"op"`
	OK       bool                        `json:"ok"`
	Error    string                      `json:"error,omitempty"`
	Session  *engine.Session             `json:"session,omitempty"`
	Sessions []engine.Session            `json:"sessions,omitempty"`
	Messages []engine.InteractionMessage `json:"messages,omitempty"`
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	slog.SetDefault(cfg.Logger())

	e := engine.New(cfg.EngineOptions()...)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Stdout carries interleaved events and responses; one encoder with
	// a lock keeps every line intact.
	out := &lockedEncoder{enc: json.NewEncoder(os.Stdout)}

	events, unsubscribe := e.Subscribe()
	defer unsubscribe()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for ev := range events {
			out.encode(ev)
		}
	}()

	serveStdin(ctx, e, os.Stdin, out)

	// Stop every session before the bus closes so their final events
	// still reach stdout.
	e.Close()
	wg.Wait()
	return nil
}

// serveStdin processes command lines until the input closes or ctx is
// done. The reader goroutine selects on ctx so it does not stay blocked
// on the channel after shutdown.
func serveStdin(ctx context.Context, e *engine.Engine, in io.Reader, out *lockedEncoder) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if line == "" {
				continue
			}
			handle(ctx, e, out, line)
		}
	}
}

func handle(ctx context.Context, e *engine.Engine, out *lockedEncoder, line string) {
	var cmd command
	if err := json.Unmarshal([]byte(line), &cmd); err != nil {
		out.encode(response{Type: "response", OK: false, Error: "malformed command: " + err.Error()})
		return
	}

	switch cmd.Op {
	case "start":
		sess, err := e.Start(cmd.WorkingDir)
		if err != nil {
			out.encode(errResponse(cmd.Op, err))
			return
		}
		out.encode(response{Type: "response", Op: cmd.Op, OK: true, Session: &sess})

	case "send":
		var opts []engine.SendOption
		if cmd.Model != "" {
			opts = append(opts, engine.SendWithModel(cmd.Model))
		}
		if cmd.MaxTurns > 0 {
			opts = append(opts, engine.SendWithMaxTurns(cmd.MaxTurns))
		}
		if err := e.Send(ctx, cmd.SessionID, cmd.Text, opts...); err != nil {
			out.encode(errResponse(cmd.Op, err))
			return
		}
		out.encode(response{Type: "response", Op: cmd.Op, OK: true})

	case "stop":
		e.Stop(cmd.SessionID)
		out.encode(response{Type: "response", Op: cmd.Op, OK: true})

	case "list":
		out.encode(response{Type: "response", Op: cmd.Op, OK: true, Sessions: e.List()})

	case "history":
		messages, err := readHistory(cmd)
		if err != nil {
			out.encode(errResponse(cmd.Op, err))
			return
		}
		out.encode(response{Type: "response", Op: cmd.Op, OK: true, Messages: messages})

	default:
		out.encode(errResponse(cmd.Op, fmt.Errorf("unknown op %q", cmd.Op)))
	}
}

// readHistory backfills messages from a persisted CLI transcript, either a
// named file or the newest transcript for a working directory.
func readHistory(cmd command) ([]engine.InteractionMessage, error) {
	path := cmd.Path
	if path == "" && cmd.WorkingDir != "" {
		files, err := transcript.FindSessionFiles(projectsDirFor(cmd.WorkingDir))
		if err != nil || len(files) == 0 {
			return nil, fmt.Errorf("no transcript for %s", cmd.WorkingDir)
		}
		path = newestFile(files)
	}
	if path == "" {
		return nil, fmt.Errorf("history requires path or workingDir")
	}

	raw, err := transcript.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var messages []engine.InteractionMessage
	for _, m := range raw {
		if msg, ok := m.Interaction(cmd.SessionID); ok {
			messages = append(messages, msg)
		}
	}
	return messages, nil
}

func projectsDirFor(workingDir string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return home + "/.claude/projects/" + transcript.NormalizeProjectPath(workingDir)
}

func newestFile(files []string) string {
	newest := files[0]
	var newestMod int64
	for _, f := range files {
		info, err := os.Stat(f)
		if err != nil {
			continue
		}
		if mod := info.ModTime().UnixNano(); mod > newestMod {
			newestMod = mod
			newest = f
		}
	}
	return newest
}

func errResponse(op string, err error) response {
	return response{Type: "response", Op: op, OK: false, Error: err.Error()}
}

// lockedEncoder serializes concurrent JSON line writes.
type lockedEncoder struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func (l *lockedEncoder) encode(v any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.enc.Encode(v); err != nil && err != io.ErrClosedPipe {
		slog.Error("write stdout", "error", err)
	}
}
