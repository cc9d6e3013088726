// Package history persists local publish records and the render-job queue in
// SQLite. The tracking system remains the source of truth for published
// assets; this store exists so the CLI can show what was published from this
// workstation and so render jobs survive between invocations of the worker.
package history
