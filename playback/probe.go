package playback

import (
	"math"
	"time"

	"vocatext/media"
)

// CorrectedDuration opens a disposable handle for src and runs the
// duration-correction procedure against it: accept a finite metadata
// duration directly, otherwise force full indexing with an extreme
// seek and read the duration back on seek completion. Returns 0 when
// nothing finite could be learned within the window. Capture
// finalization uses this before publishing an artifact as ready.
func CorrectedDuration(open Opener, src *media.AudioSource, window time.Duration) float64 {
	h, err := open(src)
	if err != nil {
		return 0
	}
	defer h.Close()

	deadline := time.NewTimer(window)
	defer deadline.Stop()

	for {
		select {
		case ev, ok := <-h.Events():
			if !ok {
				return sanitizeDuration(h.Duration())
			}
			switch ev {
			case EventLoadedMetadata:
				if d := h.Duration(); isFinitePositive(d) {
					return d
				}
				h.SeekTo(correctionSeekTarget)
			case EventDurationChange, EventSeeked:
				if d := h.Duration(); isFinitePositive(d) {
					return d
				}
			}
		case <-deadline.C:
			return sanitizeDuration(h.Duration())
		}
	}
}

func sanitizeDuration(d float64) float64 {
	if math.IsNaN(d) || math.IsInf(d, 0) || d < 0 {
		return 0
	}
	return d
}
