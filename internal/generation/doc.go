// Package generation runs batch recipe generation jobs.
//
// Create de-duplicates the requested dish names against existing recipe
// titles and stores a pending job; the one-active-job-per-collection rule is
// enforced by the store's atomic insert. Execute is called by the worker pool
// and processes names sequentially from the job's cursor, isolating each
// item's failure. Control implements the start/pause/resume/cancel state
// machine. Cancel interrupts an outstanding collaborator call; pause takes
// effect before the next item.
package generation
