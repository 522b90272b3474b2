package playback

import (
	"math"
	"sync"
)

// FakeHandle is a scripted handle for tests. The test decides when
// metadata arrives, what duration it reports, and when seeks complete,
// which makes the correction race reproducible.
type FakeHandle struct {
	mu sync.Mutex

	events      chan Event
	duration    float64
	indexedDur  float64 // duration revealed by an extreme seek, 0 = none
	position    float64
	volume      float64
	playing     bool
	closed      bool
	pendingSeek float64
	hasPending  bool

	PlayErr error

	seeks  []float64
	plays  int
	pauses int
}

// NewFakeHandle reports dur from metadata. Pass math.Inf(1) plus a
// RevealOnIndex duration to model the buffer-source defect.
func NewFakeHandle(dur float64) *FakeHandle {
	return &FakeHandle{
		events:   make(chan Event, 32),
		duration: dur,
		volume:   1.0,
	}
}

// RevealOnIndex sets the duration an extreme seek will uncover.
func (h *FakeHandle) RevealOnIndex(dur float64) { h.mu.Lock(); h.indexedDur = dur; h.mu.Unlock() }

func (h *FakeHandle) Play() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.plays++
	if h.PlayErr != nil {
		return h.PlayErr
	}
	h.playing = true
	return nil
}

func (h *FakeHandle) Pause() {
	h.mu.Lock()
	h.playing = false
	h.pauses++
	h.mu.Unlock()
}

func (h *FakeHandle) SeekTo(seconds float64) {
	h.mu.Lock()
	h.seeks = append(h.seeks, seconds)
	h.pendingSeek = seconds
	h.hasPending = true
	h.mu.Unlock()
}

func (h *FakeHandle) Position() float64 { h.mu.Lock(); defer h.mu.Unlock(); return h.position }
func (h *FakeHandle) Duration() float64 { h.mu.Lock(); defer h.mu.Unlock(); return h.duration }

func (h *FakeHandle) SetVolume(v float64) { h.mu.Lock(); h.volume = v; h.mu.Unlock() }
func (h *FakeHandle) Volume() float64     { h.mu.Lock(); defer h.mu.Unlock(); return h.volume }

func (h *FakeHandle) Events() <-chan Event { return h.events }

func (h *FakeHandle) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	close(h.events)
}

func (h *FakeHandle) IsClosed() bool  { h.mu.Lock(); defer h.mu.Unlock(); return h.closed }
func (h *FakeHandle) IsPlaying() bool { h.mu.Lock(); defer h.mu.Unlock(); return h.playing }
func (h *FakeHandle) Seeks() []float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]float64, len(h.seeks))
	copy(out, h.seeks)
	return out
}
func (h *FakeHandle) Plays() int { h.mu.Lock(); defer h.mu.Unlock(); return h.plays }

func (h *FakeHandle) emit(ev Event) {
	h.mu.Lock()
	closed := h.closed
	h.mu.Unlock()
	if closed {
		return
	}
	h.events <- ev
}

// EmitMetadata delivers loadedmetadata with the configured duration.
func (h *FakeHandle) EmitMetadata() { h.emit(EventLoadedMetadata) }

// EmitCanPlay delivers canplay.
func (h *FakeHandle) EmitCanPlay() { h.emit(EventCanPlay) }

// EmitDurationChange delivers durationchange; dur may be non-finite to
// test regression protection.
func (h *FakeHandle) EmitDurationChange(dur float64) {
	h.mu.Lock()
	h.duration = dur
	h.mu.Unlock()
	h.emit(EventDurationChange)
}

// EmitEnded delivers ended.
func (h *FakeHandle) EmitEnded() {
	h.mu.Lock()
	h.playing = false
	h.mu.Unlock()
	h.emit(EventEnded)
}

// FinishSeek applies the pending seek the way the platform would: an
// extreme target against a non-finite duration indexes the stream and
// fixes the duration, then the position clamps and seeked fires.
func (h *FakeHandle) FinishSeek() {
	h.mu.Lock()
	if !h.hasPending {
		h.mu.Unlock()
		return
	}
	target := h.pendingSeek
	h.hasPending = false
	if (math.IsInf(h.duration, 1) || math.IsNaN(h.duration)) && h.indexedDur > 0 {
		h.duration = h.indexedDur
	}
	if !math.IsInf(h.duration, 0) && !math.IsNaN(h.duration) && target > h.duration {
		target = h.duration
	}
	if target < 0 {
		target = 0
	}
	h.position = target
	h.mu.Unlock()
	h.emit(EventSeeked)
}
