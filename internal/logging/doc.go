// Package logging wires log/slog for the publish pipeline: console and JSON
// handlers, attribute helpers, and loggers enriched with run/item/plugin
// fields carried on the context.
package logging
