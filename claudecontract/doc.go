// Package claudecontract defines the invocation contract with the Claude
// Code CLI binary: flag names, stream-json event discriminators, and the
// environment the manager pins for deterministic subprocess output.
//
// The engine treats the CLI as a black box honoring this contract. Flag
// names and event types are centralized here so a CLI change is a
// single-package update.
package claudecontract
