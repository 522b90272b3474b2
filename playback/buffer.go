package playback

import (
	"math"
	"sync"

	"vocatext/media"
)

// BufferHandle plays an in-memory AudioSource. Like the platform media
// elements it models, it reports only the container-declared duration
// until the payload is forced through full indexing by an extreme seek.
type BufferHandle struct {
	mu       sync.Mutex
	data     []byte
	mime     string
	pcm      *media.PCM // nil until indexed
	duration float64    // +Inf until known
	posFrame int
	volume   float64
	playing  bool
	stopPlay func()
	player   player
	events   chan Event
	closed   bool
}

// OpenBuffer is the Opener for real audio sources.
func OpenBuffer(src *media.AudioSource) (Handle, error) {
	d, err := media.HeaderDuration(src.Data, src.MIMEType)
	if err != nil {
		return nil, err
	}
	h := &BufferHandle{
		data:     src.Data,
		mime:     src.MIMEType,
		duration: d,
		volume:   1.0,
		events:   make(chan Event, 32),
	}
	go func() {
		h.emit(EventLoadedMetadata)
		h.emit(EventCanPlay)
	}()
	return h, nil
}

func (h *BufferHandle) emit(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	select {
	case h.events <- ev:
	default:
		// A stalled consumer loses the oldest semantics anyway; never
		// block the audio thread.
	}
}

// index decodes the payload, fixing the duration. Caller holds h.mu.
func (h *BufferHandle) indexLocked() error {
	if h.pcm != nil {
		return nil
	}
	pcm, err := media.DecodePCM(h.data, h.mime)
	if err != nil {
		return err
	}
	h.pcm = pcm
	was := h.duration
	h.duration = pcm.DurationSeconds()
	if math.IsInf(was, 1) || math.IsNaN(was) {
		go h.emit(EventDurationChange)
	}
	return nil
}

func (h *BufferHandle) Duration() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.duration
}

func (h *BufferHandle) Position() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.positionLocked()
}

func (h *BufferHandle) positionLocked() float64 {
	if h.pcm == nil || h.pcm.SampleRate == 0 {
		return 0
	}
	return float64(h.posFrame) / float64(h.pcm.SampleRate)
}

func (h *BufferHandle) SetVolume(v float64) {
	h.mu.Lock()
	h.volume = v
	h.mu.Unlock()
}

func (h *BufferHandle) Events() <-chan Event { return h.events }

func (h *BufferHandle) Play() error {
	h.mu.Lock()
	if h.playing {
		h.mu.Unlock()
		return nil
	}
	if err := h.indexLocked(); err != nil {
		h.mu.Unlock()
		return err
	}
	if h.player == nil {
		p, err := newPlayer()
		if err != nil {
			h.mu.Unlock()
			return err
		}
		h.player = p
	}
	start := h.posFrame
	pcm := h.pcm
	stop, err := h.player.start(pcm, start,
		func() float64 {
			h.mu.Lock()
			defer h.mu.Unlock()
			return h.volume
		},
		func(frame int) {
			h.mu.Lock()
			h.posFrame = frame
			h.mu.Unlock()
		},
		func(finished bool) {
			h.mu.Lock()
			h.playing = false
			if finished {
				h.posFrame = len(pcm.Samples) / pcm.Channels
			}
			h.mu.Unlock()
			if finished {
				h.emit(EventEnded)
			}
		})
	if err != nil {
		h.mu.Unlock()
		return err
	}
	h.playing = true
	h.stopPlay = stop
	h.mu.Unlock()
	return nil
}

func (h *BufferHandle) Pause() {
	h.mu.Lock()
	stop := h.stopPlay
	h.playing = false
	h.stopPlay = nil
	h.mu.Unlock()
	if stop != nil {
		stop()
	}
}

// SeekTo completes asynchronously with EventSeeked. A target past the
// known end of a non-finite-duration payload forces full indexing
// first; that is the duration-correction hook.
func (h *BufferHandle) SeekTo(seconds float64) {
	go func() {
		h.Pause()
		h.mu.Lock()
		if h.closed {
			h.mu.Unlock()
			return
		}
		if err := h.indexLocked(); err != nil {
			h.mu.Unlock()
			h.emit(EventSeeked)
			return
		}
		if seconds < 0 {
			seconds = 0
		}
		if seconds > h.duration {
			seconds = h.duration
		}
		h.posFrame = int(seconds * float64(h.pcm.SampleRate))
		maxFrame := len(h.pcm.Samples) / h.pcm.Channels
		if h.posFrame > maxFrame {
			h.posFrame = maxFrame
		}
		h.mu.Unlock()
		h.emit(EventSeeked)
	}()
}

func (h *BufferHandle) Close() {
	h.Pause()
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	close(h.events)
	h.mu.Unlock()
}
