// Package worker runs generation and translation jobs on a bounded pool of
// supervised workers consuming the durable tasks table.
//
// A Lane binds a task kind to a handler and a worker count. Each worker is a
// suture service that claims the next due task of its kind, keeps the task's
// heartbeat fresh while the handler runs, and records the outcome. Tasks whose
// worker disappeared are returned to the queue by the reclaimer once their
// heartbeat is older than workers.heartbeat_timeout, so work survives a
// restart.
package worker
