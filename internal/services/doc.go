// Package services carries the cross-cutting plumbing shared by stage
// implementations and external collaborators: the error taxonomy used to
// classify failures (transport vs. content quality vs. infrastructure) and
// the context keys that thread item/stage/correlation identity through
// logging and persistence.
package services
