// Package engine implements the session process engine: it spawns one
// Claude CLI subprocess per outgoing interaction, attached to a
// pseudo-terminal, parses the subprocess's stream-json output into typed
// messages, and advances a per-session state machine exposed through a
// publish/subscribe event bus.
//
// Sessions are independent: each drain loop runs in its own goroutine and
// sessions never block one another. Within one session, events are
// published in the exact order their source lines were read.
package engine
