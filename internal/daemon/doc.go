// Package daemon coordinates the long-running recipeforge process.
//
// It wires configuration, the entity store, the LLM collaborators, the
// executors and the worker pool into a single lifecycle guarded by a
// flock-based lock so only one daemon owns a data directory. Workers and the
// HTTP control surface run under a suture supervision tree; a crashed worker
// is restarted without taking the API down.
//
// Keep orchestration here: executor semantics live in their own packages and
// the daemon focuses on startup, shutdown and wiring.
package daemon
