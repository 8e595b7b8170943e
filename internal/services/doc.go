// Package services defines shared utilities consumed by the job executors and
// external collaborator clients.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, task IDs, worker lanes, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper so failures classify
//     consistently into API error codes and retry decisions.
//
// Use these helpers when wiring new executor logic so operational behaviour
// (error handling, observability, retries) stays uniform across the pipeline.
package services
