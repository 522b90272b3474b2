// Package capture owns the microphone recording session: permission
// gating, stream constraints, encoding negotiation, chunk accumulation
// and the asynchronous finalization that turns a session into a
// playable AudioSource.
package capture

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"vocatext/audio"
	"vocatext/encoder"
	"vocatext/gate"
	"vocatext/i18n"
	"vocatext/log"
	"vocatext/media"
	"vocatext/notify"
	"vocatext/playback"
)

type State int

const (
	StateIdle State = iota
	StateRecording
	// StatePaused is reserved; no transition reaches it.
	StatePaused
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateRecording:
		return "recording"
	case StatePaused:
		return "paused"
	case StateStopped:
		return "stopped"
	default:
		return "idle"
	}
}

// ErrorKind classifies a failed start so the surface can render
// distinct guidance per cause.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindRecordingUnsupported
	KindPermissionDenied
	KindDeviceNotFound
	KindSecurityBlocked
)

func (k ErrorKind) String() string {
	switch k {
	case KindRecordingUnsupported:
		return "recording-unsupported"
	case KindPermissionDenied:
		return "permission-denied"
	case KindDeviceNotFound:
		return "device-not-found"
	case KindSecurityBlocked:
		return "security-blocked"
	default:
		return "unknown"
	}
}

type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("capture: %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("capture: %s", e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

var ErrAlreadyRecording = errors.New("a recording session is already active")

// preferredMIMEs is tried in order against the local encoder registry;
// the first supported entry becomes the session's media type.
var preferredMIMEs = []string{
	"audio/webm;codecs=opus",
	"audio/webm",
	"audio/mp4",
	"audio/wav",
	"audio/ogg;codecs=opus",
	"audio/mpeg",
}

// PreferredConfig asks for processed speech capture. Backends that
// cannot honor it reject with ErrConstraintsRejected and the engine
// retries unconstrained.
func PreferredConfig() audio.CaptureConfig {
	return audio.CaptureConfig{
		SampleRate:       48000,
		MinSampleRate:    16000,
		Channels:         1,
		EchoCancellation: true,
		NoiseSuppression: true,
		AutoGain:         true,
	}
}

// lowLevelRMS is the normalized level under which a whole session
// counts as silent.
const lowLevelRMS = 0.005

type Config struct {
	Audio    audio.Context
	Gate     *gate.Gate
	Device   *audio.DeviceInfo // nil = platform default
	Notifier notify.Notifier
	Texts    *i18n.Table

	// OnStart runs after the gate clears and before the stream opens.
	// main uses it to stop playback and release the prior source.
	OnStart func()
	// OnTick reports elapsed whole seconds while recording.
	OnTick func(seconds int)
	// OnLevel reports the normalized RMS of each arriving chunk.
	OnLevel func(rms float64)
	// OnFinalized delivers the completed artifact and its corrected
	// duration in seconds.
	OnFinalized func(src *media.AudioSource, duration float64)

	// Opener backs the duration-correction probe during finalization.
	// Defaults to playback.OpenBuffer.
	Opener playback.Opener
}

type Engine struct {
	cfg          Config
	tickInterval time.Duration
	probeWindow  time.Duration

	mu       sync.Mutex
	state    State
	gen      int
	device   audio.CaptureDevice
	mime     string
	chunks   [][]byte
	elapsed  int
	level    float64
	peak     float64
	stopTick chan struct{}
}

func New(cfg Config) *Engine {
	if cfg.Opener == nil {
		cfg.Opener = playback.OpenBuffer
	}
	return &Engine{
		cfg:          cfg,
		tickInterval: time.Second,
		probeWindow:  playback.GraceWindow,
		state:        StateIdle,
	}
}

// SetTickInterval overrides the elapsed ticker cadence. Tests use it.
func (e *Engine) SetTickInterval(d time.Duration) {
	e.mu.Lock()
	e.tickInterval = d
	e.mu.Unlock()
}

// SetProbeWindow bounds the finalization duration probe. Tests use it.
func (e *Engine) SetProbeWindow(d time.Duration) {
	e.mu.Lock()
	e.probeWindow = d
	e.mu.Unlock()
}

func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Engine) Elapsed() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.elapsed
}

// Level is the normalized RMS of the most recent chunk.
func (e *Engine) Level() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.level
}

// MIMEType is the negotiated media type of the active or last session.
func (e *Engine) MIMEType() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mime
}

// Start opens a capture session. The permission gate is consulted
// first and a platform prompt is requested when the state is not yet
// granted. Failures are typed and reported through the notifier.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.state == StateRecording {
		e.mu.Unlock()
		return ErrAlreadyRecording
	}
	e.mu.Unlock()

	if e.cfg.Gate != nil {
		if ok, _ := e.cfg.Gate.CheckEnvironmentSupport(); !ok {
			// The gate raises its own notification on request failure.
			err := e.cfg.Gate.RequestPermission(ctx)
			return &Error{Kind: KindRecordingUnsupported, Err: err}
		}
		if e.cfg.Gate.Permission() != gate.PermissionGranted {
			if err := e.cfg.Gate.RequestPermission(ctx); err != nil {
				return &Error{Kind: kindForGate(err), Err: err}
			}
		}
	}

	if e.cfg.OnStart != nil {
		e.cfg.OnStart()
	}

	dev, err := e.openStream()
	if err != nil {
		kind := classifyOpenError(err)
		e.notifyStartFailure(kind)
		return &Error{Kind: kind, Err: err}
	}

	mime := negotiateMIME()

	e.mu.Lock()
	e.gen++
	gen := e.gen
	e.state = StateRecording
	e.device = dev
	e.mime = mime
	e.chunks = nil
	e.elapsed = 0
	e.level = 0
	e.peak = 0
	e.stopTick = make(chan struct{})
	stop := e.stopTick
	interval := e.tickInterval
	e.mu.Unlock()

	dev.SetCallback(func(data []byte, _ uint32) {
		e.onChunk(gen, data)
	})
	if err := dev.Start(); err != nil {
		dev.ClearCallback()
		dev.Close()
		e.mu.Lock()
		e.state = StateIdle
		e.device = nil
		close(e.stopTick)
		e.stopTick = nil
		e.mu.Unlock()
		kind := classifyOpenError(err)
		e.notifyStartFailure(kind)
		return &Error{Kind: kind, Err: err}
	}

	go e.tickLoop(gen, stop, interval)

	e.notify("recordingStarted", "recordingStartedDesc", notify.Info, 3*time.Second)
	log.Infof("recording started mime=%s", mime)
	return nil
}

// Stop ends the active session and finalizes asynchronously. No-op in
// any other state.
func (e *Engine) Stop() {
	e.mu.Lock()
	if e.state != StateRecording {
		e.mu.Unlock()
		return
	}
	e.state = StateStopped
	dev := e.device
	e.device = nil
	if e.stopTick != nil {
		close(e.stopTick)
		e.stopTick = nil
	}
	chunks := e.chunks
	e.chunks = nil
	mime := e.mime
	elapsed := e.elapsed
	peak := e.peak
	window := e.probeWindow
	e.mu.Unlock()

	if dev != nil {
		dev.ClearCallback()
		dev.Stop()
		dev.Close()
	}

	go e.finalize(chunks, mime, elapsed, peak, window)
}

func (e *Engine) onChunk(gen int, data []byte) {
	buf := make([]byte, len(data))
	copy(buf, data)
	rms := chunkRMS(buf)

	e.mu.Lock()
	if gen != e.gen || e.state != StateRecording {
		e.mu.Unlock()
		return
	}
	e.chunks = append(e.chunks, buf)
	e.level = rms
	if rms > e.peak {
		e.peak = rms
	}
	e.mu.Unlock()

	if e.cfg.OnLevel != nil {
		e.cfg.OnLevel(rms)
	}
}

func (e *Engine) tickLoop(gen int, stop <-chan struct{}, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			e.mu.Lock()
			if gen != e.gen || e.state != StateRecording {
				e.mu.Unlock()
				return
			}
			e.elapsed++
			sec := e.elapsed
			e.mu.Unlock()
			if e.cfg.OnTick != nil {
				e.cfg.OnTick(sec)
			}
		}
	}
}

func (e *Engine) finalize(chunks [][]byte, mime string, elapsed int, peak float64, window time.Duration) {
	if len(chunks) == 0 {
		e.notify("noVoiceDetected", "noVoiceDetectedDesc", notify.Warning, 5*time.Second)
		if e.cfg.OnFinalized != nil {
			e.cfg.OnFinalized(nil, 0)
		}
		return
	}

	data, err := encodeSession(chunks, mime)
	if err != nil {
		log.Errorf("finalizing recording: %v", err)
		e.notify("recordingFailed", "recordingFailedDesc", notify.Destructive, 5*time.Second)
		if e.cfg.OnFinalized != nil {
			e.cfg.OnFinalized(nil, 0)
		}
		return
	}

	src := &media.AudioSource{
		Origin:   media.OriginCaptured,
		MIMEType: media.BaseMIME(mime),
		Data:     data,
	}
	dur := playback.CorrectedDuration(e.cfg.Opener, src, window)
	log.Recording(src.MIMEType, elapsed, len(data))

	if peak < lowLevelRMS {
		e.notify("noVoiceDetected", "noVoiceDetectedDesc", notify.Warning, 5*time.Second)
	} else {
		e.notify("recordingCompletedTitle", "recordingCompletedDesc", notify.Success, 4*time.Second)
	}
	if e.cfg.OnFinalized != nil {
		e.cfg.OnFinalized(src, dur)
	}
}

// openStream tries the preferred constraint set and falls back to the
// unconstrained default when the platform rejects it.
func (e *Engine) openStream() (audio.CaptureDevice, error) {
	dev, err := e.cfg.Audio.NewCapture(e.cfg.Device, PreferredConfig())
	if errors.Is(err, audio.ErrConstraintsRejected) {
		dev, err = e.cfg.Audio.NewCapture(e.cfg.Device, audio.DefaultConfig())
	}
	return dev, err
}

// negotiateMIME probes the preference list against the encoder
// registry and falls back to the platform default.
func negotiateMIME() string {
	for _, m := range preferredMIMEs {
		if encoder.Supported(m) {
			return m
		}
	}
	return encoder.DefaultMIME
}

func encodeSession(chunks [][]byte, mime string) ([]byte, error) {
	enc, err := encoder.New(mime)
	if err != nil {
		enc, err = encoder.New(encoder.DefaultMIME)
		if err != nil {
			return nil, err
		}
	}

	total := 0
	for _, c := range chunks {
		total += len(c) / 2
	}
	samples := make([]int16, 0, total)
	for _, c := range chunks {
		for i := 0; i+1 < len(c); i += 2 {
			samples = append(samples, int16(binary.LittleEndian.Uint16(c[i:])))
		}
	}

	for off := 0; off < len(samples); off += encoder.BlockSize {
		end := off + encoder.BlockSize
		if end > len(samples) {
			end = len(samples)
		}
		if err := enc.EncodeBlock(samples[off:end]); err != nil {
			return nil, err
		}
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return enc.Bytes(), nil
}

func chunkRMS(data []byte) float64 {
	n := len(data) / 2
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i+1 < len(data); i += 2 {
		s := float64(int16(binary.LittleEndian.Uint16(data[i:])))
		sum += s * s
	}
	return math.Sqrt(sum/float64(n)) / 32768.0
}

func classifyOpenError(err error) ErrorKind {
	switch {
	case errors.Is(err, audio.ErrNoDevice):
		return KindDeviceNotFound
	case errors.Is(err, audio.ErrConstraintsRejected):
		return KindRecordingUnsupported
	default:
		return KindUnknown
	}
}

func kindForGate(err error) ErrorKind {
	var de *gate.DeniedError
	if !errors.As(err, &de) {
		return KindUnknown
	}
	switch de.Reason {
	case gate.ReasonNotAllowed:
		return KindPermissionDenied
	case gate.ReasonNotFound:
		return KindDeviceNotFound
	case gate.ReasonNotSupported:
		return KindRecordingUnsupported
	case gate.ReasonSecurity:
		return KindSecurityBlocked
	default:
		return KindUnknown
	}
}

func (e *Engine) notifyStartFailure(kind ErrorKind) {
	switch kind {
	case KindDeviceNotFound:
		e.notify("noMicrophoneFound", "noMicrophoneFoundDesc", notify.Destructive, 5*time.Second)
	case KindSecurityBlocked:
		e.notify("securityError", "securityErrorDesc", notify.Destructive, 5*time.Second)
	case KindRecordingUnsupported:
		e.notify("recordingNotSupported", "recordingNotSupportedDesc", notify.Destructive, 5*time.Second)
	default:
		e.notify("recordingFailed", "recordingFailedDesc", notify.Destructive, 5*time.Second)
	}
}

func (e *Engine) notify(titleKey, descKey string, sev notify.Severity, d time.Duration) {
	if e.cfg.Notifier == nil {
		return
	}
	e.cfg.Notifier.Notify(notify.Notification{
		Title:       e.cfg.Texts.T(titleKey).Join(),
		Description: e.cfg.Texts.T(descKey).Join(),
		Severity:    sev,
		Duration:    d,
	})
}

// FormatElapsed renders whole seconds as mm:ss for the recording
// indicator.
func FormatElapsed(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
