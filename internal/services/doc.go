// Package services provides the shared error taxonomy and context annotation
// helpers used across the publish pipeline. Errors produced by plugin phases
// and external clients are tagged with sentinel markers so failures can be
// classified without string matching.
package services
