package transcribe

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"sync"
	"testing"
	"time"

	"vocatext/i18n"
	"vocatext/media"
	"vocatext/notify"
)

type fakeDoer struct {
	mu      sync.Mutex
	resp    *TracedResponse
	err     error
	release chan struct{} // when set, Do blocks until closed

	contentType string
	body        []byte
}

func (f *fakeDoer) Do(req *http.Request) (*TracedResponse, error) {
	body, _ := io.ReadAll(req.Body)
	f.mu.Lock()
	f.contentType = req.Header.Get("Content-Type")
	f.body = body
	release := f.release
	f.mu.Unlock()
	if release != nil {
		<-release
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func (f *fakeDoer) request() (contentType string, body []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.contentType, f.body
}

func okResponse(body string) *TracedResponse {
	return &TracedResponse{
		Body:       []byte(body),
		StatusCode: http.StatusOK,
		Metrics:    &NetworkMetrics{},
	}
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

func captureSource() *media.AudioSource {
	return &media.AudioSource{
		Origin:   media.OriginCaptured,
		MIMEType: "audio/wav",
		Data:     []byte("RIFFdata"),
	}
}

func newTestPipeline(doer Doer) (*Pipeline, *notify.Recorder) {
	rec := notify.NewRecorder()
	p := NewPipeline(doer, "http://localhost:5000/transcribe", rec, i18n.Default(), nil)
	p.SetTimings(5*time.Millisecond, 20*time.Millisecond)
	p.SetRandFloat(func() float64 { return 0.5 })
	return p, rec
}

func TestSubmitRejectsMissingAudio(t *testing.T) {
	p, rec := newTestPipeline(&fakeDoer{resp: okResponse("{}")})

	if err := p.Submit(context.Background(), nil); !errors.Is(err, ErrNoAudio) {
		t.Fatalf("Submit(nil) = %v, want ErrNoAudio", err)
	}
	empty := &media.AudioSource{MIMEType: "audio/wav"}
	if err := p.Submit(context.Background(), empty); !errors.Is(err, ErrNoAudio) {
		t.Fatalf("Submit(empty) = %v, want ErrNoAudio", err)
	}
	if last, ok := rec.Last(); !ok || last.Severity != notify.Warning {
		t.Errorf("notification = %+v, want warning", last)
	}
	if got := p.Status().State; got != StateIdle {
		t.Errorf("state = %v, want idle", got)
	}
}

func TestSubmitRejectsConcurrent(t *testing.T) {
	release := make(chan struct{})
	doer := &fakeDoer{resp: okResponse(`{"text":"hi"}`), release: release}
	p, _ := newTestPipeline(doer)

	if err := p.Submit(context.Background(), captureSource()); err != nil {
		t.Fatalf("first Submit: %v", err)
	}
	if err := p.Submit(context.Background(), captureSource()); !errors.Is(err, ErrBusy) {
		t.Fatalf("second Submit = %v, want ErrBusy", err)
	}
	close(release)
	waitFor(t, func() bool { return p.Status().State == StateCompleted }, "completion")
}

func TestMultipartRequestShape(t *testing.T) {
	doer := &fakeDoer{resp: okResponse(`{"text":"hi"}`)}
	p, _ := newTestPipeline(doer)

	if err := p.Submit(context.Background(), captureSource()); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	waitFor(t, func() bool { return p.Status().State == StateCompleted }, "completion")

	contentType, body := doer.request()
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil || mediaType != "multipart/form-data" {
		t.Fatalf("content type = %q (%v)", contentType, err)
	}
	mr := multipart.NewReader(bytes.NewReader(body), params["boundary"])
	part, err := mr.NextPart()
	if err != nil {
		t.Fatalf("reading part: %v", err)
	}
	if got := part.FormName(); got != "audio" {
		t.Errorf("part name = %q, want audio", got)
	}
	if got := part.FileName(); got != "recording.wav" {
		t.Errorf("filename = %q, want recording.wav", got)
	}
	data, _ := io.ReadAll(part)
	if string(data) != "RIFFdata" {
		t.Errorf("part payload = %q", data)
	}
}

func TestUploadedFilenameForwarded(t *testing.T) {
	doer := &fakeDoer{resp: okResponse(`{"text":"hi"}`)}
	p, _ := newTestPipeline(doer)

	src := &media.AudioSource{
		Origin:   media.OriginUploaded,
		Name:     "meeting.mp3",
		MIMEType: "audio/mpeg",
		Data:     []byte("x"),
	}
	if err := p.Submit(context.Background(), src); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	waitFor(t, func() bool { return p.Status().State == StateCompleted }, "completion")

	contentType, body := doer.request()
	_, params, _ := mime.ParseMediaType(contentType)
	mr := multipart.NewReader(bytes.NewReader(body), params["boundary"])
	part, err := mr.NextPart()
	if err != nil {
		t.Fatalf("reading part: %v", err)
	}
	if got := part.FileName(); got != "meeting.mp3" {
		t.Errorf("filename = %q, want meeting.mp3", got)
	}
}

func TestTransportUnreachableFallsBackToMock(t *testing.T) {
	doer := &fakeDoer{err: errors.New("dial tcp: connection refused")}
	p, rec := newTestPipeline(doer)
	texts := i18n.Default()

	if err := p.Submit(context.Background(), captureSource()); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	waitFor(t, func() bool { return p.Status().State == StateCompleted }, "completion")

	res := p.Result()
	if res == nil {
		t.Fatal("no result")
	}
	if want := texts.T("mockTranscript").Join(); res.Corrected != want {
		t.Errorf("corrected = %q, want mock transcript", res.Corrected)
	}
	if !res.HasConfidence || res.Confidence != 0.99 {
		t.Errorf("confidence = %v (has=%v), want exactly 0.99", res.Confidence, res.HasConfidence)
	}
	if last, ok := rec.Last(); !ok || last.Severity != notify.Warning {
		t.Errorf("notification = %+v, want warning", last)
	}
}

func TestServiceUnavailableSoftFailure(t *testing.T) {
	doer := &fakeDoer{resp: &TracedResponse{StatusCode: http.StatusServiceUnavailable}}
	p, rec := newTestPipeline(doer)
	texts := i18n.Default()

	if err := p.Submit(context.Background(), captureSource()); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	waitFor(t, func() bool { return p.Status().State == StateCompleted }, "completion")

	res := p.Result()
	if res == nil {
		t.Fatal("no result")
	}
	if want := texts.T("unavailableTranscript").Join(); res.Corrected != want {
		t.Errorf("corrected = %q, want unavailable transcript", res.Corrected)
	}
	if res.HasConfidence {
		t.Error("service-down substitute must not claim a confidence")
	}
	if last, ok := rec.Last(); !ok || last.Severity != notify.Warning {
		t.Errorf("notification = %+v, want warning", last)
	}
}

func TestHardFailure(t *testing.T) {
	doer := &fakeDoer{resp: &TracedResponse{StatusCode: http.StatusInternalServerError}}
	p, rec := newTestPipeline(doer)

	if err := p.Submit(context.Background(), captureSource()); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	waitFor(t, func() bool { return p.Status().State == StateFailed }, "failure")

	if p.Result() != nil {
		t.Error("failed submission should not leave a result")
	}
	if last, ok := rec.Last(); !ok || last.Severity != notify.Destructive {
		t.Errorf("notification = %+v, want destructive", last)
	}
}

func TestProgressRampMonotonicThenResets(t *testing.T) {
	release := make(chan struct{})
	doer := &fakeDoer{resp: okResponse(`{"text":"hi"}`), release: release}

	var mu sync.Mutex
	var seen []Status
	rec := notify.NewRecorder()
	p := NewPipeline(doer, "http://localhost:5000/transcribe", rec, i18n.Default(), func(st Status) {
		mu.Lock()
		seen = append(seen, st)
		mu.Unlock()
	})
	p.SetTimings(5*time.Millisecond, 20*time.Millisecond)
	p.SetRandFloat(func() float64 { return 0.5 })

	if err := p.Submit(context.Background(), captureSource()); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	waitFor(t, func() bool { return p.Status().Progress == 90 }, "ramp top")

	// Held at 90 until the outcome arrives.
	time.Sleep(30 * time.Millisecond)
	if got := p.Status().Progress; got != 90 {
		t.Fatalf("progress = %d while holding, want 90", got)
	}

	close(release)
	waitFor(t, func() bool { return p.Status().State == StateCompleted }, "completion")
	waitFor(t, func() bool { return p.Status().Progress == 0 }, "progress reset")

	if got := p.Status().State; got != StateCompleted {
		t.Errorf("state = %v after reset, want completed", got)
	}

	mu.Lock()
	defer mu.Unlock()
	last := -1
	for _, st := range seen {
		if st.Progress != 0 && st.Progress < last {
			t.Fatalf("progress regressed: %d after %d", st.Progress, last)
		}
		if st.Progress != 0 {
			last = st.Progress
		}
	}
}

func TestClearDiscardsInFlightOutcome(t *testing.T) {
	release := make(chan struct{})
	doer := &fakeDoer{resp: okResponse(`{"text":"late"}`), release: release}
	p, _ := newTestPipeline(doer)

	if err := p.Submit(context.Background(), captureSource()); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	p.Clear()
	close(release)

	time.Sleep(30 * time.Millisecond)
	st := p.Status()
	if st.State != StateIdle || st.Result != nil || st.Progress != 0 {
		t.Errorf("status after Clear = %+v, want idle and empty", st)
	}
}

func TestExtractResultPrecedence(t *testing.T) {
	fixed := func() float64 { return 0.5 } // placeholder = 0.85
	tests := []struct {
		name     string
		body     string
		wantRaw  string
		wantCorr string
		wantConf float64
		hasConf  bool
	}{
		{
			name:     "full payload",
			body:     `{"corrected_transcription":"C","raw_transcription":"R","confidence":0.93}`,
			wantRaw:  "R",
			wantCorr: "C",
			wantConf: 0.93,
			hasConf:  true,
		},
		{
			name:     "corrected wins over transcription and text",
			body:     `{"corrected_transcription":"C","transcription":"T","text":"X","confidence":0.8}`,
			wantRaw:  "C",
			wantCorr: "C",
			wantConf: 0.8,
			hasConf:  true,
		},
		{
			name:     "transcription fallback",
			body:     `{"transcription":"T","confidence":0.8}`,
			wantRaw:  "T",
			wantCorr: "T",
			wantConf: 0.8,
			hasConf:  true,
		},
		{
			name:     "text fallback with placeholder confidence",
			body:     `{"text":"X"}`,
			wantRaw:  "X",
			wantCorr: "X",
			wantConf: 0.85,
			hasConf:  true,
		},
		{
			name:     "non-json body used verbatim",
			body:     "plain words",
			wantRaw:  "plain words",
			wantCorr: "plain words",
			wantConf: 0.85,
			hasConf:  true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extractResult([]byte(tt.body), fixed)
			if got.Raw != tt.wantRaw {
				t.Errorf("raw = %q, want %q", got.Raw, tt.wantRaw)
			}
			if got.Corrected != tt.wantCorr {
				t.Errorf("corrected = %q, want %q", got.Corrected, tt.wantCorr)
			}
			if got.HasConfidence != tt.hasConf {
				t.Errorf("hasConfidence = %v, want %v", got.HasConfidence, tt.hasConf)
			}
			if diff := got.Confidence - tt.wantConf; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("confidence = %v, want %v", got.Confidence, tt.wantConf)
			}
		})
	}
}

func TestPlaceholderConfidenceRange(t *testing.T) {
	for _, r := range []float64{0, 0.5, 0.999999} {
		v := placeholderConfidence(func() float64 { return r })
		if v < 0.7 || v >= 1.0 {
			t.Errorf("placeholder for %v = %v, want [0.7, 1.0)", r, v)
		}
	}
}
