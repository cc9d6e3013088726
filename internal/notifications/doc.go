// Package notifications delivers publish and render events via ntfy.
//
// The default implementation posts to the topic configured in config.toml
// and gracefully degrades to a no-op when no topic is set. Event categories
// (publishes, renders, errors) can be suppressed individually.
//
// All pipeline code depends only on the Service interface; extend this
// package for alternative transports.
package notifications
