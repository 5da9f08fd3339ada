// Package ingest pulls candidate documents from configured sources and
// inserts the ones the store has not seen. Sources live in a YAML file and
// come in two kinds: RSS/Atom feeds and HTML listing pages scraped with
// selectors. Dedup is by canonical URL hash; a known URL is a silent skip.
package ingest
