// Package store persists pipeline state in SQLite and is the single source
// of truth for lifecycle semantics.
//
// Three tables: source_documents (deduplicated ingested items, immutable
// after insert), articles (one per document, carrying the forward-only
// review status plus the independent publishing status), and stage_log
// (append-only audit trail of stage executions and provider attempts).
//
// Stage eligibility is expressed as queries here, and every status advance
// is a conditional UPDATE guarded by the status observed at claim time, so
// concurrent workers and replays cannot double-process a row.
//
// The database is operator state, not an archive. Schema changes bump the
// version in store.go; operators run 'newswire db reset' to adopt the new
// schema.
package store
