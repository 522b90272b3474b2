package playback

import (
	"errors"
	"math"
	"testing"
	"time"

	"vocatext/i18n"
	"vocatext/media"
	"vocatext/notify"
)

func testSource() *media.AudioSource {
	return &media.AudioSource{
		Origin:   media.OriginCaptured,
		MIMEType: "audio/wav",
		Data:     []byte{1, 2, 3},
	}
}

func openerFor(h Handle) Opener {
	return func(*media.AudioSource) (Handle, error) { return h, nil }
}

func newTestController(h Handle) (*Controller, *notify.Recorder) {
	rec := &notify.Recorder{}
	c := New(openerFor(h), rec, i18n.Default(), nil)
	return c, rec
}

func waitFor(t *testing.T, cond func() bool, what string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestLoadFiniteDuration(t *testing.T) {
	h := NewFakeHandle(3.5)
	c, _ := newTestController(h)

	if err := c.Load(testSource()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := c.Status().Transport; got != TransportLoading {
		t.Fatalf("transport = %v, want loading", got)
	}

	h.EmitMetadata()
	waitFor(t, func() bool { return c.Status().Transport == TransportReady }, "ready")

	st := c.Status()
	if st.Duration != 3.5 {
		t.Errorf("duration = %v, want 3.5", st.Duration)
	}
	if len(h.Seeks()) != 0 {
		t.Errorf("unexpected correction seeks: %v", h.Seeks())
	}
}

func TestLoadCorrectsInfiniteDuration(t *testing.T) {
	h := NewFakeHandle(math.Inf(1))
	h.RevealOnIndex(7.25)
	c, _ := newTestController(h)

	if err := c.Load(testSource()); err != nil {
		t.Fatalf("Load: %v", err)
	}

	h.EmitMetadata()
	waitFor(t, func() bool { return len(h.Seeks()) == 1 }, "correction seek")
	if target := h.Seeks()[0]; target < 1e6 {
		t.Fatalf("correction seek target = %v, want far past the end", target)
	}
	if got := c.Status().Duration; got != 0 {
		t.Errorf("duration before correction = %v, want 0", got)
	}

	h.FinishSeek()
	// Correction completion records the duration and rewinds.
	waitFor(t, func() bool { return len(h.Seeks()) == 2 && h.Seeks()[1] == 0 }, "rewind seek")
	h.FinishSeek()

	waitFor(t, func() bool { return c.Status().Duration == 7.25 }, "corrected duration")
	st := c.Status()
	if st.Position != 0 {
		t.Errorf("position = %v, want 0", st.Position)
	}
	if st.Transport != TransportReady {
		t.Errorf("transport = %v, want ready", st.Transport)
	}
}

func TestGraceWindowForcesReady(t *testing.T) {
	h := NewFakeHandle(math.Inf(1))
	c, _ := newTestController(h)
	c.SetGraceWindow(10 * time.Millisecond)

	if err := c.Load(testSource()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	waitFor(t, func() bool { return c.Status().Transport == TransportReady }, "grace expiry")

	if got := c.Status().Duration; got != 0 {
		t.Errorf("duration = %v, want 0 while unknown", got)
	}
}

func TestDurationChangeNeverRegresses(t *testing.T) {
	h := NewFakeHandle(4.0)
	c, _ := newTestController(h)

	if err := c.Load(testSource()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	h.EmitMetadata()
	waitFor(t, func() bool { return c.Status().Duration == 4.0 }, "initial duration")

	h.EmitDurationChange(math.NaN())
	h.EmitDurationChange(5.0)
	waitFor(t, func() bool { return c.Status().Duration == 5.0 }, "updated duration")
}

func TestTogglePlayWhileLoading(t *testing.T) {
	h := NewFakeHandle(2.0)
	c, _ := newTestController(h)

	if err := c.Load(testSource()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := c.TogglePlay(); !errors.Is(err, ErrNotReady) {
		t.Fatalf("TogglePlay while loading = %v, want ErrNotReady", err)
	}
}

func TestTogglePlayAndPause(t *testing.T) {
	h := NewFakeHandle(2.0)
	c, _ := newTestController(h)

	if err := c.Load(testSource()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	h.EmitMetadata()
	waitFor(t, func() bool { return c.Status().Transport == TransportReady }, "ready")

	if err := c.TogglePlay(); err != nil {
		t.Fatalf("TogglePlay: %v", err)
	}
	if got := c.Status().Transport; got != TransportPlaying {
		t.Fatalf("transport = %v, want playing", got)
	}

	if err := c.TogglePlay(); err != nil {
		t.Fatalf("TogglePlay (pause): %v", err)
	}
	if got := c.Status().Transport; got != TransportStopped {
		t.Fatalf("transport = %v, want stopped", got)
	}
	if h.IsPlaying() {
		t.Error("handle still playing after pause")
	}
}

func TestPlayFailureRevertsToStopped(t *testing.T) {
	h := NewFakeHandle(2.0)
	h.PlayErr = errors.New("output busy")
	c, rec := newTestController(h)

	if err := c.Load(testSource()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	h.EmitMetadata()
	waitFor(t, func() bool { return c.Status().Transport == TransportReady }, "ready")

	err := c.TogglePlay()
	var pe *PlaybackError
	if !errors.As(err, &pe) {
		t.Fatalf("TogglePlay = %v, want *PlaybackError", err)
	}
	if got := c.Status().Transport; got != TransportStopped {
		t.Errorf("transport = %v, want stopped", got)
	}
	last, ok := rec.Last()
	if !ok || last.Severity != notify.Destructive {
		t.Errorf("notification = %+v, want destructive", last)
	}
}

func TestSeekRequiresKnownDuration(t *testing.T) {
	h := NewFakeHandle(math.Inf(1))
	c, _ := newTestController(h)
	c.SetGraceWindow(10 * time.Millisecond)

	if err := c.Load(testSource()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	waitFor(t, func() bool { return c.Status().Transport == TransportReady }, "ready")

	if err := c.Seek(0.5); !errors.Is(err, ErrUnknownDuration) {
		t.Fatalf("Seek = %v, want ErrUnknownDuration", err)
	}
}

func TestSeekResumesPlayback(t *testing.T) {
	h := NewFakeHandle(10.0)
	c, _ := newTestController(h)

	if err := c.Load(testSource()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	h.EmitMetadata()
	waitFor(t, func() bool { return c.Status().Transport == TransportReady }, "ready")

	if err := c.TogglePlay(); err != nil {
		t.Fatalf("TogglePlay: %v", err)
	}
	if err := c.Seek(0.5); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	// Playback pauses for the seek and resumes once it completes.
	if got := c.Status().Transport; got != TransportStopped {
		t.Fatalf("transport during seek = %v, want stopped", got)
	}
	h.FinishSeek()
	waitFor(t, func() bool { return c.Status().Transport == TransportPlaying }, "resume")

	if got := h.Position(); got != 5.0 {
		t.Errorf("position = %v, want 5.0", got)
	}
	if got := h.Plays(); got != 2 {
		t.Errorf("play calls = %d, want 2", got)
	}
}

func TestSeekWhileStoppedDoesNotResume(t *testing.T) {
	h := NewFakeHandle(10.0)
	c, _ := newTestController(h)

	if err := c.Load(testSource()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	h.EmitMetadata()
	waitFor(t, func() bool { return c.Status().Transport == TransportReady }, "ready")

	if err := c.Seek(0.25); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	h.FinishSeek()
	waitFor(t, func() bool { return c.Status().Position == 2.5 }, "seek completion")

	if got := c.Status().Transport; got == TransportPlaying {
		t.Error("seek from stopped started playback")
	}
}

func TestEndedStopsAtDuration(t *testing.T) {
	h := NewFakeHandle(3.0)
	c, _ := newTestController(h)

	if err := c.Load(testSource()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	h.EmitMetadata()
	waitFor(t, func() bool { return c.Status().Transport == TransportReady }, "ready")

	if err := c.TogglePlay(); err != nil {
		t.Fatalf("TogglePlay: %v", err)
	}
	h.EmitEnded()
	waitFor(t, func() bool { return c.Status().Transport == TransportStopped }, "ended")

	if got := c.Status().Position; got != 3.0 {
		t.Errorf("position = %v, want duration 3.0", got)
	}
}

func TestLoadReleasesPreviousHandle(t *testing.T) {
	first := NewFakeHandle(2.0)
	second := NewFakeHandle(4.0)
	handles := []Handle{first, second}
	i := 0
	open := func(*media.AudioSource) (Handle, error) {
		h := handles[i]
		i++
		return h, nil
	}
	c := New(open, &notify.Recorder{}, i18n.Default(), nil)

	if err := c.Load(testSource()); err != nil {
		t.Fatalf("first Load: %v", err)
	}
	first.EmitMetadata()
	waitFor(t, func() bool { return c.Status().Duration == 2.0 }, "first duration")

	if err := c.Load(testSource()); err != nil {
		t.Fatalf("second Load: %v", err)
	}
	if !first.IsClosed() {
		t.Error("first handle not closed by second Load")
	}

	second.EmitMetadata()
	waitFor(t, func() bool { return c.Status().Duration == 4.0 }, "second duration")
}

func TestStaleGraceTimerIgnored(t *testing.T) {
	first := NewFakeHandle(math.Inf(1))
	second := NewFakeHandle(6.0)
	handles := []Handle{first, second}
	i := 0
	open := func(*media.AudioSource) (Handle, error) {
		h := handles[i]
		i++
		return h, nil
	}
	c := New(open, &notify.Recorder{}, i18n.Default(), nil)
	c.SetGraceWindow(20 * time.Millisecond)

	if err := c.Load(testSource()); err != nil {
		t.Fatalf("first Load: %v", err)
	}
	if err := c.Load(testSource()); err != nil {
		t.Fatalf("second Load: %v", err)
	}
	second.EmitMetadata()
	waitFor(t, func() bool { return c.Status().Duration == 6.0 }, "second duration")

	// Wait past the first load's grace window; the active load's state
	// must be untouched by its timer.
	time.Sleep(40 * time.Millisecond)
	if got := c.Status().Duration; got != 6.0 {
		t.Errorf("duration = %v after stale timer, want 6.0", got)
	}
}

func TestClearReleasesSource(t *testing.T) {
	h := NewFakeHandle(2.0)
	c, _ := newTestController(h)

	if err := c.Load(testSource()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	h.EmitMetadata()
	waitFor(t, func() bool { return c.Status().Transport == TransportReady }, "ready")

	c.Clear()
	if !h.IsClosed() {
		t.Error("handle not closed by Clear")
	}
	if c.Source() != nil {
		t.Error("source still set after Clear")
	}
	st := c.Status()
	if st.Transport != TransportStopped || st.Position != 0 || st.Duration != 0 {
		t.Errorf("status after Clear = %+v", st)
	}
}

func TestSetVolumeClamps(t *testing.T) {
	h := NewFakeHandle(2.0)
	c, _ := newTestController(h)
	if err := c.Load(testSource()); err != nil {
		t.Fatalf("Load: %v", err)
	}

	c.SetVolume(1.7)
	if got := c.Status().Volume; got != 1.0 {
		t.Errorf("volume = %v, want 1.0", got)
	}
	c.SetVolume(-0.3)
	if got := c.Status().Volume; got != 0 {
		t.Errorf("volume = %v, want 0", got)
	}
	c.SetVolume(0.4)
	if got := h.Volume(); got != 0.4 {
		t.Errorf("handle volume = %v, want 0.4", got)
	}
}

func TestCorrectedDurationProbe(t *testing.T) {
	h := NewFakeHandle(math.Inf(1))
	h.RevealOnIndex(12.5)
	open := openerFor(h)

	go func() {
		h.EmitMetadata()
		waitSeek := func() bool { return len(h.Seeks()) > 0 }
		for !waitSeek() {
			time.Sleep(time.Millisecond)
		}
		h.FinishSeek()
	}()

	if got := CorrectedDuration(open, testSource(), time.Second); got != 12.5 {
		t.Fatalf("CorrectedDuration = %v, want 12.5", got)
	}
	if !h.IsClosed() {
		t.Error("probe handle not closed")
	}
}

func TestCorrectedDurationTimeout(t *testing.T) {
	h := NewFakeHandle(math.NaN())
	open := openerFor(h)

	if got := CorrectedDuration(open, testSource(), 20*time.Millisecond); got != 0 {
		t.Fatalf("CorrectedDuration = %v, want 0 on timeout", got)
	}
}
