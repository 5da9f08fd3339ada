// Package wordpress publishes articles to a WordPress site over the REST v2
// API. Posts are upserted by their stored remote ID so replays update in
// place instead of duplicating, and tag names are resolved to term IDs with
// create-on-miss semantics.
package wordpress
