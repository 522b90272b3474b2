package main

import (
	"vocatext/capture"
	"vocatext/notify"
	"vocatext/playback"
	"vocatext/transcribe"
)

// EventSink abstracts the display layer so the Bubble Tea TUI and the
// headless console runner receive the same state changes.
type EventSink interface {
	RecordingState(state capture.State, elapsed int)
	AudioLevel(level float64)
	PlaybackState(st playback.Status)
	Submission(st transcribe.Status)
	SourceChanged(name string, bytes int, duration float64)
	Notification(n notify.Notification)
}

// nopSink is used before a display attaches.
type nopSink struct{}

func (nopSink) RecordingState(capture.State, int)  {}
func (nopSink) AudioLevel(float64)                 {}
func (nopSink) PlaybackState(playback.Status)      {}
func (nopSink) Submission(transcribe.Status)       {}
func (nopSink) SourceChanged(string, int, float64) {}
func (nopSink) Notification(notify.Notification)   {}
