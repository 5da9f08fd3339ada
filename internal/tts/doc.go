// Package tts renders article narrations through an external speech
// synthesis service.
package tts
