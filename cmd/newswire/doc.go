// Command newswire is the pipeline CLI: run stages, drain the backlog,
// inspect row counts, retry failures, and manage configuration.
package main
