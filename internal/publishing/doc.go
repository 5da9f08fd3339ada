// Package publishing upserts approved articles to the remote site. The
// stored external post ID is the idempotency guard: once set, every retry
// updates that post instead of creating another.
package publishing
