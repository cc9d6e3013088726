// Package publish implements the session publish pipeline: collecting items
// from the open host session, and driving each matched plugin through the
// accept, validate, publish and finalize phases. Validation failures reject a
// task before anything is written; failures after the tracking record exists
// are reported without rollback.
package publish
