// Package jobs submits queued render jobs to the render farm. The publish
// pipeline only enqueues; this package owns the queued-to-submitted half of
// the job lifecycle, guarded by a file lock so a single worker drains the
// queue at a time.
package jobs
