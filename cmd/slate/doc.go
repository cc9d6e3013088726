// Package main hosts the slate CLI entrypoint and command graph.
//
// The Cobra-based command tree drives publish runs, inspects the template
// registry and publish history, and operates the render job queue. It
// centralizes configuration resolution and logging setup so subcommands can
// focus on user experience instead of wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
