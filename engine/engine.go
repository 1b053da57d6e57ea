package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/ignission/claude-code-manager/claudecontract"
	"github.com/ignission/claude-code-manager/termline"
)

// Engine is the session process engine. It owns the session registry,
// spawns one CLI subprocess per Send, drains each subprocess's
// pseudo-terminal output through the line parser and classifier, and
// republishes the classified events on the bus.
//
// All methods are safe for concurrent use. Operations on different
// sessions never block one another.
type Engine struct {
	registry *Registry
	bus      *Bus
	wg       sync.WaitGroup

	// closeMu fences Start/Send against Close: drain goroutines are only
	// added while a read lock shows the engine open, so Close's Wait can
	// never race a concurrent Add.
	closeMu sync.RWMutex
	closed  bool

	spawn func(SpawnSpec) (*Handle, error)

	claudePath      string
	model           string
	fallbackModel   string
	extraEnv        map[string]string
	cols, rows      uint16
	busBuffer       int
	allowedTools    []string
	disallowedTools []string
	permissionMode  string
	skipPermissions bool
	maxBudgetUSD    float64
	maxTurns        int
}

// New creates an engine with its own registry and event bus.
func New(opts ...Option) *Engine {
	e := &Engine{
		claudePath: "claude",
		spawn:      Spawn,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.registry = NewRegistry()
	e.bus = NewBus(e.busBuffer)
	return e
}

// Subscribe registers a subscriber on the engine's event bus.
func (e *Engine) Subscribe() (<-chan Event, func()) {
	return e.bus.Subscribe()
}

// Get returns a snapshot of the session record.
func (e *Engine) Get(sessionID string) (Session, bool) {
	return e.registry.Get(sessionID)
}

// List returns a snapshot of all sessions.
func (e *Engine) List() []Session {
	return e.registry.List()
}

// Start creates a new idle session bound to the given working directory
// and publishes session.created. The engine does not deduplicate sessions
// per directory; that is the caller's responsibility.
func (e *Engine) Start(workingDir string) (Session, error) {
	e.closeMu.RLock()
	defer e.closeMu.RUnlock()
	if e.closed {
		return Session{}, newError("start", "", ErrEngineClosed)
	}

	sess := e.registry.Create(workingDir)

	slog.Info("session created", "sessionId", sess.ID, "workingDir", workingDir)
	e.bus.Publish(Event{Type: EventSessionCreated, SessionID: sess.ID, Session: &sess})

	return sess, nil
}

// Send dispatches one interaction to the session: it emits the user
// message synchronously, transitions the session to Active, spawns the
// CLI subprocess in the session's working directory, and drains its
// output asynchronously.
//
// Send fails fast with ErrSessionNotFound or ErrAlreadyRunning. A spawn
// failure is absorbed: it surfaces as an Error message on the bus and an
// Error status, never as a returned error, so the consuming UI always
// sees what happened.
func (e *Engine) Send(ctx context.Context, sessionID, text string, opts ...SendOption) error {
	e.closeMu.RLock()
	defer e.closeMu.RUnlock()
	if e.closed {
		return newError("send", sessionID, ErrEngineClosed)
	}
	if err := ctx.Err(); err != nil {
		return newError("send", sessionID, err)
	}

	var cfg sendConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	if err := e.registry.Reserve(sessionID); err != nil {
		return newError("send", sessionID, err)
	}

	sess, ok := e.registry.Get(sessionID)
	if !ok {
		e.registry.ReleaseReservation(sessionID)
		return newError("send", sessionID, ErrSessionNotFound)
	}

	// The user message goes out before any subprocess output so
	// transcripts always show the prompt first.
	userMsg := newMessage(sessionID, RoleUser, TypeText, text)
	e.bus.Publish(Event{Type: EventMessageReceived, SessionID: sessionID, Message: &userMsg})

	if updated, ok := e.registry.SetStatus(sessionID, StatusActive); ok {
		e.bus.Publish(Event{Type: EventSessionUpdated, SessionID: sessionID, Session: &updated})
	}

	handle, err := e.spawn(SpawnSpec{
		Path: e.claudePath,
		Args: e.buildSendArgs(text, cfg),
		Dir:  sess.WorkingDir,
		Env:  e.extraEnv,
		Cols: e.cols,
		Rows: e.rows,
	})
	if err != nil {
		e.registry.ReleaseReservation(sessionID)
		e.absorbFailure(sessionID, fmt.Errorf("spawn claude: %w", err))
		return nil
	}

	if err := e.registry.AttachProcess(sessionID, handle); err != nil {
		// The session vanished between Reserve and Attach (concurrent
		// stop). The process is already running; tear it down.
		handle.Kill()
		return nil
	}

	slog.Debug("subprocess started",
		"sessionId", sessionID, "pid", handle.Pid(), "workingDir", sess.WorkingDir)

	e.wg.Add(1)
	go e.drain(sessionID, handle)

	return nil
}

// Stop kills any live subprocess for the session, marks it Stopped,
// publishes session.stopped, and removes it from the registry. Stopping
// an unknown session is a silent no-op.
func (e *Engine) Stop(sessionID string) {
	if _, ok := e.registry.Get(sessionID); !ok {
		return
	}

	if h := e.registry.Handle(sessionID); h != nil {
		h.Kill()
	}

	e.registry.SetStatus(sessionID, StatusStopped)
	e.registry.Remove(sessionID)

	slog.Info("session stopped", "sessionId", sessionID)
	e.bus.Publish(Event{Type: EventSessionStopped, SessionID: sessionID})
}

// StopAll stops every registered session. Used at shutdown.
func (e *Engine) StopAll() {
	for _, sess := range e.registry.List() {
		e.Stop(sess.ID)
	}
}

// Close stops all sessions, waits for their drain loops to finish, and
// closes the bus. Start and Send fail with ErrEngineClosed afterwards;
// closing twice is a no-op.
func (e *Engine) Close() {
	e.closeMu.Lock()
	if e.closed {
		e.closeMu.Unlock()
		return
	}
	e.closed = true
	e.closeMu.Unlock()

	e.StopAll()
	e.wg.Wait()
	e.bus.Close()
}

// drain reads the subprocess's output until the stream ends, pushing
// every complete line through the classifier and onto the bus, then
// settles the session according to the exit code.
//
// The parse buffer lives in the session's registry entry and is touched
// only here; events for one session therefore come out in exactly the
// order their source lines were read.
func (e *Engine) drain(sessionID string, h *Handle) {
	defer e.wg.Done()
	// Detaching reopens the session for the next Send, so it must come
	// after every event of this turn is published.
	defer e.registry.DetachProcess(sessionID, h)
	defer h.Close()

	var lastMeta *ResultMeta

	buf := make([]byte, 4096)
	for {
		n, err := h.Read(buf)
		if n > 0 {
			for _, line := range e.registry.Feed(sessionID, buf[:n]) {
				if meta := e.emitLine(sessionID, line); meta != nil {
					lastMeta = meta
				}
			}
		}
		if err != nil {
			// A PTY read error is the normal end-of-stream signal.
			break
		}
	}

	// The final line may lack a line break; it still gets classified.
	if line, ok := e.registry.FlushBuffer(sessionID); ok {
		if meta := e.emitLine(sessionID, line); meta != nil {
			lastMeta = meta
		}
	}

	<-h.Done()
	code := h.ExitCode()
	// Release the terminal before publishing so a completion event never
	// precedes the fd release it implies.
	h.Close()

	// A concurrent Stop may have removed the session; in that case
	// session.stopped was the final event and nothing more is emitted.
	if _, ok := e.registry.Get(sessionID); !ok {
		return
	}

	if code == 0 {
		if updated, ok := e.registry.SetStatus(sessionID, StatusIdle); ok {
			e.bus.Publish(Event{Type: EventSessionUpdated, SessionID: sessionID, Session: &updated})
		}
	} else {
		slog.Warn("subprocess exited abnormally", "sessionId", sessionID, "exitCode", code)
		errMsg := newMessage(sessionID, RoleSystem, TypeError,
			fmt.Sprintf("process exited with code %d", code))
		e.bus.Publish(Event{Type: EventMessageReceived, SessionID: sessionID, Message: &errMsg})
		if updated, ok := e.registry.SetStatus(sessionID, StatusError); ok {
			e.bus.Publish(Event{Type: EventSessionUpdated, SessionID: sessionID, Session: &updated})
		}
	}

	completion := Completion{
		SessionID: sessionID,
		MessageID: uuid.NewString(),
		ExitCode:  code,
	}
	if lastMeta != nil {
		completion.CostUSD = lastMeta.CostUSD
		completion.NumTurns = lastMeta.NumTurns
	}
	e.bus.Publish(Event{Type: EventMessageComplete, SessionID: sessionID, Completion: &completion})
}

// emitLine cleans one raw line, classifies it, and publishes the results.
// Lines that clean to nothing produce no events.
func (e *Engine) emitLine(sessionID, raw string) *ResultMeta {
	line := termline.Clean(raw)
	if line == "" {
		return nil
	}

	var lastMeta *ResultMeta
	for _, out := range Classify(sessionID, line) {
		switch {
		case out.Chunk != nil:
			e.bus.Publish(Event{Type: EventMessageStream, SessionID: sessionID, Chunk: out.Chunk})
		case out.Message != nil:
			e.bus.Publish(Event{Type: EventMessageReceived, SessionID: sessionID, Message: out.Message})
		}
		if out.Meta != nil {
			lastMeta = out.Meta
		}
	}
	return lastMeta
}

// absorbFailure converts a subprocess failure into an Error message and
// status transition instead of propagating it to the caller.
func (e *Engine) absorbFailure(sessionID string, err error) {
	slog.Error("subprocess failure", "sessionId", sessionID, "error", err)

	msg := newMessage(sessionID, RoleSystem, TypeError, err.Error())
	e.bus.Publish(Event{Type: EventMessageReceived, SessionID: sessionID, Message: &msg})

	if updated, ok := e.registry.SetStatus(sessionID, StatusError); ok {
		e.bus.Publish(Event{Type: EventSessionUpdated, SessionID: sessionID, Session: &updated})
	}
}

// buildSendArgs constructs the CLI argument list for one interaction in
// non-interactive stream-json mode.
func (e *Engine) buildSendArgs(text string, cfg sendConfig) []string {
	args := []string{
		claudecontract.FlagPrint,
		claudecontract.FlagOutputFormat, claudecontract.FormatStreamJSON,
		claudecontract.FlagVerbose,
	}

	model := e.model
	if cfg.model != "" {
		model = cfg.model
	}
	if model != "" {
		args = append(args, claudecontract.FlagModel, model)
	}
	if e.fallbackModel != "" {
		args = append(args, claudecontract.FlagFallbackModel, e.fallbackModel)
	}

	for _, tool := range e.allowedTools {
		args = append(args, claudecontract.FlagAllowedTools, tool)
	}
	for _, tool := range e.disallowedTools {
		args = append(args, claudecontract.FlagDisallowedTools, tool)
	}

	if e.skipPermissions {
		args = append(args, claudecontract.FlagDangerouslySkipPermissions)
	}
	if e.permissionMode != "" {
		args = append(args, claudecontract.FlagPermissionMode, e.permissionMode)
	}

	for _, dir := range cfg.addDirs {
		args = append(args, claudecontract.FlagAddDir, dir)
	}

	if e.maxBudgetUSD > 0 {
		args = append(args, claudecontract.FlagMaxBudgetUSD, fmt.Sprintf("%.6f", e.maxBudgetUSD))
	}

	maxTurns := e.maxTurns
	if cfg.maxTurns > 0 {
		maxTurns = cfg.maxTurns
	}
	if maxTurns > 0 {
		args = append(args, claudecontract.FlagMaxTurns, fmt.Sprintf("%d", maxTurns))
	}

	if cfg.jsonSchema != "" {
		args = append(args, claudecontract.FlagJSONSchema, cfg.jsonSchema)
	}

	// The prompt is a positional argument, not a flag.
	if prompt := strings.TrimSpace(text); prompt != "" {
		args = append(args, prompt)
	}

	return args
}
