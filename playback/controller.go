package playback

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"vocatext/i18n"
	"vocatext/media"
	"vocatext/notify"
)

type Transport int

const (
	TransportLoading Transport = iota
	TransportReady
	TransportPlaying
	TransportStopped
)

func (t Transport) String() string {
	switch t {
	case TransportLoading:
		return "loading"
	case TransportReady:
		return "ready"
	case TransportPlaying:
		return "playing"
	default:
		return "stopped"
	}
}

var (
	ErrNotReady        = errors.New("playback not ready")
	ErrUnknownDuration = errors.New("duration not yet known")
)

// PlaybackError wraps a platform play failure (autoplay refusal,
// resource gone). Transport reverts to stopped when it occurs.
type PlaybackError struct{ Err error }

func (e *PlaybackError) Error() string { return fmt.Sprintf("playback failed: %v", e.Err) }
func (e *PlaybackError) Unwrap() error { return e.Err }

type Status struct {
	Transport Transport
	Position  float64
	Duration  float64 // 0 while unknown
	Volume    float64
}

// GraceWindow bounds how long a load may sit in loading before the
// controller force-transitions to ready: transport controls don't need
// an exact duration, only a best-effort one.
const GraceWindow = 2 * time.Second

// correctionSeekTarget is far past any real recording; seeking there
// forces the platform to index the whole stream.
const correctionSeekTarget = 1e9

type Controller struct {
	open     Opener
	notifier notify.Notifier
	texts    *i18n.Table
	onChange func(Status) // fired outside the lock

	mu              sync.Mutex
	handle          Handle
	source          *media.AudioSource
	gen             int
	transport       Transport
	position        float64
	duration        float64
	volume          float64
	correcting      bool
	resumeAfterSeek bool
	graceTimer      *time.Timer
	grace           time.Duration
}

func New(open Opener, notifier notify.Notifier, texts *i18n.Table, onChange func(Status)) *Controller {
	if onChange == nil {
		onChange = func(Status) {}
	}
	return &Controller{
		open:      open,
		notifier:  notifier,
		texts:     texts,
		onChange:  onChange,
		transport: TransportStopped,
		volume:    1.0,
		grace:     GraceWindow,
	}
}

// SetGraceWindow overrides the loading grace window. Tests use it to
// avoid waiting out the full window.
func (c *Controller) SetGraceWindow(d time.Duration) {
	c.mu.Lock()
	c.grace = d
	c.mu.Unlock()
}

func (c *Controller) Source() *media.AudioSource {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.source
}

func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.statusLocked()
}

func (c *Controller) statusLocked() Status {
	pos := c.position
	if c.handle != nil && c.transport == TransportPlaying {
		pos = c.handle.Position()
	}
	dur := c.duration
	if !isFinitePositive(dur) {
		dur = 0
	}
	if isFinitePositive(dur) && pos > dur {
		pos = dur
	}
	return Status{Transport: c.transport, Position: pos, Duration: dur, Volume: c.volume}
}

// Load makes src the active artifact. The previous handle is released
// first; callbacks and timers belonging to it become no-ops.
func (c *Controller) Load(src *media.AudioSource) error {
	c.mu.Lock()
	c.releaseLocked()
	c.gen++
	gen := c.gen
	c.source = src
	c.position = 0
	c.duration = 0
	c.correcting = false
	c.resumeAfterSeek = false
	c.transport = TransportLoading

	h, err := c.open(src)
	if err != nil {
		c.transport = TransportStopped
		c.source = nil
		st := c.statusLocked()
		c.mu.Unlock()
		c.onChange(st)
		c.notifyPlaybackFailure()
		return &PlaybackError{Err: err}
	}
	c.handle = h
	h.SetVolume(c.volume)

	grace := c.grace
	c.graceTimer = time.AfterFunc(grace, func() { c.graceExpired(gen) })
	st := c.statusLocked()
	c.mu.Unlock()

	go c.eventLoop(gen, h)
	c.onChange(st)
	return nil
}

func (c *Controller) eventLoop(gen int, h Handle) {
	for ev := range h.Events() {
		c.handleEvent(gen, ev)
	}
}

func (c *Controller) handleEvent(gen int, ev Event) {
	c.mu.Lock()
	if gen != c.gen || c.handle == nil {
		// Event from a superseded load.
		c.mu.Unlock()
		return
	}

	var resume bool
	switch ev {
	case EventLoadedMetadata, EventCanPlay:
		d := c.handle.Duration()
		if isFinitePositive(d) {
			c.duration = d
		} else if ev == EventLoadedMetadata && !c.correcting {
			// Non-finite duration from a buffer-backed source: force
			// the platform to index the stream, then read it back on
			// seek completion.
			c.correcting = true
			c.handle.SeekTo(correctionSeekTarget)
		}
		if c.transport == TransportLoading {
			c.transport = TransportReady
			c.stopGraceLocked()
		}
	case EventDurationChange:
		// Never regress an accepted finite duration to non-finite.
		if d := c.handle.Duration(); isFinitePositive(d) {
			c.duration = d
		}
	case EventSeeked:
		if c.correcting {
			c.correcting = false
			if d := c.handle.Duration(); isFinitePositive(d) {
				c.duration = d
			}
			c.handle.SeekTo(0)
			c.position = 0
		} else {
			c.position = c.handle.Position()
			if c.resumeAfterSeek {
				c.resumeAfterSeek = false
				resume = true
			}
		}
	case EventEnded:
		c.transport = TransportStopped
		if isFinitePositive(c.duration) {
			c.position = c.duration
		}
	}
	st := c.statusLocked()
	c.mu.Unlock()
	c.onChange(st)

	if resume {
		// Seek completion does not preserve playing state on every
		// platform; restart explicitly.
		c.play()
	}
}

func (c *Controller) graceExpired(gen int) {
	c.mu.Lock()
	if gen != c.gen || c.transport != TransportLoading {
		c.mu.Unlock()
		return
	}
	c.transport = TransportReady
	st := c.statusLocked()
	c.mu.Unlock()
	c.onChange(st)
}

// TogglePlay starts or pauses playback. No-op while loading or without
// a source.
func (c *Controller) TogglePlay() error {
	c.mu.Lock()
	if c.handle == nil || c.transport == TransportLoading {
		c.mu.Unlock()
		return ErrNotReady
	}
	if c.transport == TransportPlaying {
		c.handle.Pause()
		c.position = c.handle.Position()
		c.transport = TransportStopped
		st := c.statusLocked()
		c.mu.Unlock()
		c.onChange(st)
		return nil
	}
	c.mu.Unlock()
	return c.play()
}

func (c *Controller) play() error {
	c.mu.Lock()
	if c.handle == nil {
		c.mu.Unlock()
		return ErrNotReady
	}
	err := c.handle.Play()
	if err != nil {
		c.transport = TransportStopped
		st := c.statusLocked()
		c.mu.Unlock()
		c.onChange(st)
		c.notifyPlaybackFailure()
		return &PlaybackError{Err: err}
	}
	c.transport = TransportPlaying
	st := c.statusLocked()
	c.mu.Unlock()
	c.onChange(st)
	return nil
}

// Seek maps a fraction of the known duration to an absolute position.
// Valid only once the duration is finite. If playback was active it is
// resumed once the seek completes.
func (c *Controller) Seek(frac float64) error {
	if frac < 0 {
		frac = 0
	} else if frac > 1 {
		frac = 1
	}
	c.mu.Lock()
	if c.handle == nil || c.transport == TransportLoading {
		c.mu.Unlock()
		return ErrNotReady
	}
	if !isFinitePositive(c.duration) {
		c.mu.Unlock()
		return ErrUnknownDuration
	}
	target := frac * c.duration
	if c.transport == TransportPlaying {
		c.resumeAfterSeek = true
		c.handle.Pause()
		c.transport = TransportStopped
	}
	c.position = target
	c.handle.SeekTo(target)
	c.mu.Unlock()
	return nil
}

// Restart rewinds to the beginning and forces stopped, whatever the
// prior transport state.
func (c *Controller) Restart() {
	c.mu.Lock()
	if c.handle == nil {
		c.mu.Unlock()
		return
	}
	if c.transport == TransportPlaying {
		c.handle.Pause()
	}
	c.resumeAfterSeek = false
	c.position = 0
	c.handle.SeekTo(0)
	if c.transport != TransportLoading {
		c.transport = TransportStopped
	}
	st := c.statusLocked()
	c.mu.Unlock()
	c.onChange(st)
}

// Stop pauses without touching position. Used when recording starts.
func (c *Controller) Stop() {
	c.mu.Lock()
	if c.handle != nil && c.transport == TransportPlaying {
		c.handle.Pause()
		c.position = c.handle.Position()
		c.transport = TransportStopped
	}
	st := c.statusLocked()
	c.mu.Unlock()
	c.onChange(st)
}

func (c *Controller) SetVolume(v float64) {
	if v < 0 {
		v = 0
	} else if v > 1 {
		v = 1
	}
	c.mu.Lock()
	c.volume = v
	if c.handle != nil {
		c.handle.SetVolume(v)
	}
	st := c.statusLocked()
	c.mu.Unlock()
	c.onChange(st)
}

// Clear releases the active source and handle.
func (c *Controller) Clear() {
	c.mu.Lock()
	c.releaseLocked()
	c.gen++
	c.source = nil
	c.position = 0
	c.duration = 0
	c.transport = TransportStopped
	st := c.statusLocked()
	c.mu.Unlock()
	c.onChange(st)
}

func (c *Controller) releaseLocked() {
	c.stopGraceLocked()
	if c.handle != nil {
		c.handle.Close()
		c.handle = nil
	}
}

func (c *Controller) stopGraceLocked() {
	if c.graceTimer != nil {
		c.graceTimer.Stop()
		c.graceTimer = nil
	}
}

func (c *Controller) notifyPlaybackFailure() {
	if c.notifier == nil {
		return
	}
	c.notifier.Notify(notify.Notification{
		Title:       c.texts.T("playbackFailed").Join(),
		Description: c.texts.T("playbackFailedDesc").Join(),
		Severity:    notify.Destructive,
		Duration:    5 * time.Second,
	})
}

func isFinitePositive(f float64) bool {
	return f > 0 && !math.IsInf(f, 0) && !math.IsNaN(f)
}
