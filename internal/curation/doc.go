// Package curation derives highlight tiers for recently published articles
// from their editorial scores. Tiers are recomputed from scratch on every
// pass and mirrored, best effort, onto the remote site's category terms.
package curation
