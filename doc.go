// Package claudecodemanager coordinates long-running Claude Code sessions,
// each bound to an isolated working directory, and exposes their interaction
// as ordered event streams.
//
// The module is organized so each subpackage can be used independently:
//
//   - engine: the session process engine: registry, PTY process handles,
//     stream classification, and the pub/sub event bus
//   - claudecontract: the Claude CLI invocation contract (flags, stream
//     event types, environment)
//   - termline: incremental line splitting and terminal escape cleaning
//   - transcript: reading and tailing Claude Code's session JSONL files
//   - config: TOML configuration for the manager
//   - workspace: the working-directory provider boundary
//
// # Quick Start
//
//	eng := engine.New(engine.WithClaudePath("/usr/local/bin/claude"))
//	events, unsubscribe := eng.Subscribe()
//	defer unsubscribe()
//
//	sess, _ := eng.Start("/path/to/worktree")
//	_ = eng.Send(ctx, sess.ID, "fix the failing test")
//	for ev := range events {
//	    // forward to the transport layer
//	}
//
// One subprocess is spawned per Send call; its pseudo-terminal output is
// parsed line by line into typed events and republished on the bus in the
// order the lines arrived.
package claudecodemanager
