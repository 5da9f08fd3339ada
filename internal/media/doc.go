// Package media synthesizes audio renditions for highlighted published
// articles through the TTS collaborator. Audio failures are non-fatal to the
// pipeline.
package media
