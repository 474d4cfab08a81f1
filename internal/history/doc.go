// Package history records published state changes in SQLite.
//
// The audit trail backs the admin history endpoint; retention is enforced
// by periodic pruning. Recording is best-effort and never blocks the
// publish path.
package history
