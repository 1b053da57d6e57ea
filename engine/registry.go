package engine

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ignission/claude-code-manager/termline"
)

// Registry is the concurrency-safe owner of session lifetime. It maps a
// session id to its record, the optional live process handle, and the
// accumulated parse buffer. All session state mutations flow through it;
// callers receive value copies and must not mutate them.
//
// Lock granularity is per session: the registry mutex only guards the map,
// and each entry carries its own mutex, so sessions never contend.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

// entry bundles the mutable state of one session.
type entry struct {
	mu       sync.Mutex
	sess     Session
	handle   *Handle
	spawning bool   // reserved by a Send that has not yet attached
	buf      []byte // trailing incomplete output line; owned by the drain loop
}

// NewRegistry creates an empty session registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*entry)}
}

// Create allocates a fresh session bound to the given working directory,
// with status Idle and no process attached.
func (r *Registry) Create(workingDir string) Session {
	sess := Session{
		ID:         uuid.NewString(),
		WorkingDir: workingDir,
		Status:     StatusIdle,
		CreatedAt:  time.Now(),
	}

	r.mu.Lock()
	r.entries[sess.ID] = &entry{sess: sess}
	r.mu.Unlock()

	return sess
}

// Get returns a snapshot of the session record.
func (r *Registry) Get(sessionID string) (Session, bool) {
	ent := r.lookup(sessionID)
	if ent == nil {
		return Session{}, false
	}

	ent.mu.Lock()
	defer ent.mu.Unlock()
	return ent.sess, true
}

// List returns a snapshot of all session records. Order is not significant.
func (r *Registry) List() []Session {
	r.mu.RLock()
	entries := make([]*entry, 0, len(r.entries))
	for _, ent := range r.entries {
		entries = append(entries, ent)
	}
	r.mu.RUnlock()

	sessions := make([]Session, 0, len(entries))
	for _, ent := range entries {
		ent.mu.Lock()
		sessions = append(sessions, ent.sess)
		ent.mu.Unlock()
	}
	return sessions
}

// Count returns the number of registered sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Reserve marks the session as about to spawn a process. It fails with
// ErrAlreadyRunning if a handle is attached or another Send holds the
// reservation, so two concurrent Sends can never spawn overlapping
// processes. An attached handle counts as running even after its process
// exited: the turn is not over until its drain loop has flushed the parse
// buffer, settled status, and called DetachProcess. The caller must follow
// up with AttachProcess or ReleaseReservation.
func (r *Registry) Reserve(sessionID string) error {
	ent := r.lookup(sessionID)
	if ent == nil {
		return ErrSessionNotFound
	}

	ent.mu.Lock()
	defer ent.mu.Unlock()

	if ent.spawning || ent.handle != nil {
		return ErrAlreadyRunning
	}
	ent.spawning = true
	return nil
}

// ReleaseReservation clears a reservation after a failed spawn.
func (r *Registry) ReleaseReservation(sessionID string) {
	if ent := r.lookup(sessionID); ent != nil {
		ent.mu.Lock()
		ent.spawning = false
		ent.mu.Unlock()
	}
}

// AttachProcess binds a live handle to the session, resets the parse
// buffer for the new turn, and clears the spawn reservation. Fails with
// ErrSessionNotFound if the session is gone and ErrAlreadyRunning if a
// handle is still attached.
func (r *Registry) AttachProcess(sessionID string, h *Handle) error {
	ent := r.lookup(sessionID)
	if ent == nil {
		return ErrSessionNotFound
	}

	ent.mu.Lock()
	defer ent.mu.Unlock()

	if ent.handle != nil {
		return ErrAlreadyRunning
	}
	ent.handle = h
	ent.spawning = false
	ent.buf = nil
	return nil
}

// DetachProcess clears the handle after its drain loop finished. Only
// this reopens the session for the next Send. The handle argument guards
// against detaching a newer process attached by a subsequent Send.
func (r *Registry) DetachProcess(sessionID string, h *Handle) {
	ent := r.lookup(sessionID)
	if ent == nil {
		return
	}

	ent.mu.Lock()
	if ent.handle == h {
		ent.handle = nil
	}
	ent.mu.Unlock()
}

// Handle returns the live process handle for the session, if any.
func (r *Registry) Handle(sessionID string) *Handle {
	ent := r.lookup(sessionID)
	if ent == nil {
		return nil
	}

	ent.mu.Lock()
	defer ent.mu.Unlock()
	return ent.handle
}

// SetStatus transitions the session status and returns the updated
// snapshot. The registry does not validate transitions; the engine is the
// sole caller and the state machine lives there.
func (r *Registry) SetStatus(sessionID string, status SessionStatus) (Session, bool) {
	ent := r.lookup(sessionID)
	if ent == nil {
		return Session{}, false
	}

	ent.mu.Lock()
	defer ent.mu.Unlock()
	ent.sess.Status = status
	return ent.sess, true
}

// Remove detaches and discards the session. Safe to call on an unknown id.
func (r *Registry) Remove(sessionID string) {
	r.mu.Lock()
	delete(r.entries, sessionID)
	r.mu.Unlock()
}

// Feed appends a chunk of subprocess output to the session's parse buffer
// and returns all complete lines. The buffer is append-then-drain: bytes
// are never reordered or dropped except the consumed complete-line prefix.
// Only the session's own drain loop calls this, so lines come out in the
// exact order the bytes arrived.
func (r *Registry) Feed(sessionID string, chunk []byte) []string {
	ent := r.lookup(sessionID)
	if ent == nil {
		return nil
	}

	ent.mu.Lock()
	defer ent.mu.Unlock()

	lines, rest := termline.Feed(ent.buf, chunk)
	ent.buf = rest
	return lines
}

// FlushBuffer drains any trailing incomplete line after process exit.
func (r *Registry) FlushBuffer(sessionID string) (string, bool) {
	ent := r.lookup(sessionID)
	if ent == nil {
		return "", false
	}

	ent.mu.Lock()
	defer ent.mu.Unlock()

	line, ok := termline.Flush(ent.buf)
	ent.buf = nil
	return line, ok
}

// lookup fetches the live entry for a session id.
func (r *Registry) lookup(sessionID string) *entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.entries[sessionID]
}
