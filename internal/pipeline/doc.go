// Package pipeline sequences the content stages in their fixed order:
// ingestion, judging, generation, revision, publishing, curation, media.
// Each stage run is independent; the database row is the queue between them.
package pipeline
