// Package template implements named, parametrized path patterns used to
// validate and construct file-system paths consistently across the pipeline.
// Patterns embed {token} placeholders backed by typed key definitions and
// are matched against the tail of normalized paths.
package template
