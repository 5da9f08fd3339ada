// Package logging wraps log/slog with the handlers and helpers used across
// the pipeline: a human-oriented console handler, a JSON handler for
// machine consumption, typed attribute constructors, and standardized field
// names threaded through context.
package logging
