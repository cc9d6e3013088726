// Package tracking integrates with the production tracking server: publish
// registration, entity lookups, and the context-driven selection of work and
// publish template names.
package tracking
