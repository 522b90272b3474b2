// Package playback owns the currently loaded audio artifact and its
// transport state. Every platform signal (metadata, duration change,
// can-play, ended, seek completion) is a named event consumed by the
// controller's state machine, so the duration-correction race and the
// seek-then-resume behavior are testable without a sound card.
package playback

import "vocatext/media"

type Event int

const (
	EventLoadedMetadata Event = iota
	EventDurationChange
	EventCanPlay
	EventEnded
	EventSeeked
)

func (e Event) String() string {
	switch e {
	case EventLoadedMetadata:
		return "loadedmetadata"
	case EventDurationChange:
		return "durationchange"
	case EventCanPlay:
		return "canplay"
	case EventEnded:
		return "ended"
	case EventSeeked:
		return "seeked"
	default:
		return "unknown"
	}
}

// Handle is one playable instance of an AudioSource. A handle holds a
// finite platform resource; whoever opens one must Close it before
// opening a replacement for the same slot.
type Handle interface {
	Play() error
	Pause()
	// SeekTo requests a position change; completion is signaled with
	// EventSeeked, not by this call returning.
	SeekTo(seconds float64)
	Position() float64
	// Duration may be NaN or +Inf for buffer-backed sources until the
	// payload has been fully indexed.
	Duration() float64
	SetVolume(v float64)
	Events() <-chan Event
	Close()
}

// Opener creates a handle for a source. The controller owns the result.
type Opener func(src *media.AudioSource) (Handle, error)
