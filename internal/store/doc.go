// Package store persists recipes, taxonomy, collections, jobs and the durable
// task queue in SQLite or PostgreSQL.
//
// Uniqueness rules for active jobs are enforced by partial unique indexes, so
// duplicate-creation races resolve inside the database. Status changes are
// compare-and-set updates guarded by the expected source statuses.
package store
