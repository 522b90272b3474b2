package main

import (
	"context"
	"sync"
	"time"

	"vocatext/audio"
	"vocatext/beep"
	"vocatext/capture"
	"vocatext/clipboard"
	"vocatext/export"
	"vocatext/gate"
	"vocatext/i18n"
	"vocatext/log"
	"vocatext/media"
	"vocatext/notify"
	"vocatext/playback"
	"vocatext/transcribe"
)

// App wires the capture engine, playback controller and submission
// pipeline around the single active audio source. All methods are safe
// to call from the TUI or the hotkey goroutine.
type App struct {
	texts    *i18n.Table
	console  *notify.Console
	gate     *gate.Gate
	engine   *capture.Engine
	player   *playback.Controller
	pipeline *transcribe.Pipeline

	exportDir string
	language  string

	mu       sync.Mutex
	sink     EventSink
	source   *media.AudioSource
	duration float64
}

type appConfig struct {
	audioCtx   audio.Context
	device     *audio.DeviceInfo
	serviceURL string
	language   string
	exportDir  string
}

func newApp(cfg appConfig) *App {
	a := &App{
		texts:     i18n.Default(),
		console:   notify.NewConsole(log.Logger()),
		sink:      nopSink{},
		exportDir: cfg.exportDir,
		language:  cfg.language,
	}

	notifier := notify.Func(a.dispatchNotification)

	a.gate = gate.New(gate.DetectEnvironment(cfg.audioCtx != nil), nil, cfg.audioCtx, notifier, a.texts)
	a.player = playback.New(playback.OpenBuffer, notifier, a.texts, func(st playback.Status) {
		a.currentSink().PlaybackState(st)
	})
	a.engine = capture.New(capture.Config{
		Audio:    cfg.audioCtx,
		Gate:     a.gate,
		Device:   cfg.device,
		Notifier: notifier,
		Texts:    a.texts,
		OnStart:  a.releaseForRecording,
		OnTick: func(sec int) {
			a.currentSink().RecordingState(capture.StateRecording, sec)
		},
		OnLevel: func(rms float64) {
			a.currentSink().AudioLevel(rms)
		},
		OnFinalized: a.recordingFinalized,
	})
	client := transcribe.NewTracedClient()
	a.pipeline = transcribe.NewPipeline(
		client,
		cfg.serviceURL,
		notifier,
		a.texts,
		func(st transcribe.Status) { a.currentSink().Submission(st) },
	)
	go func() {
		if d := client.WarmConnection(cfg.serviceURL); d > 0 {
			log.Infof("service connection warmed, tls handshake %s", d)
		}
	}()
	return a
}

// AttachSink connects the display layer and replays the current state
// into it.
func (a *App) AttachSink(sink EventSink) {
	a.mu.Lock()
	a.sink = sink
	src := a.source
	dur := a.duration
	a.mu.Unlock()

	sink.RecordingState(a.engine.State(), a.engine.Elapsed())
	sink.PlaybackState(a.player.Status())
	sink.Submission(a.pipeline.Status())
	if src != nil {
		sink.SourceChanged(src.Filename(), src.ByteSize(), dur)
	}
}

func (a *App) currentSink() EventSink {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sink
}

func (a *App) dispatchNotification(n notify.Notification) {
	a.console.Notify(n)
	a.currentSink().Notification(n)
}

// CheckEnvironment reports startup deficiencies once, before any
// recording attempt.
func (a *App) CheckEnvironment() {
	if ok, issues := a.gate.CheckEnvironmentSupport(); !ok {
		desc := a.texts.T("recordingNotSupportedDesc").Join()
		for _, issue := range issues {
			desc += " " + issue + "."
		}
		a.dispatchNotification(notify.Notification{
			Title:       a.texts.T("recordingNotSupported").Join(),
			Description: desc,
			Severity:    notify.Destructive,
			Duration:    8 * time.Second,
		})
	}
	log.Infof("permission state: %s", a.gate.QueryPermission())
}

// releaseForRecording stops playback and drops the previous artifact
// before a new session opens the stream.
func (a *App) releaseForRecording() {
	a.player.Clear()
	a.mu.Lock()
	a.source = nil
	a.duration = 0
	a.mu.Unlock()
}

func (a *App) recordingFinalized(src *media.AudioSource, duration float64) {
	if src == nil {
		a.currentSink().RecordingState(capture.StateIdle, 0)
		return
	}
	a.setSource(src, duration)
	a.currentSink().RecordingState(capture.StateStopped, a.engine.Elapsed())
}

func (a *App) setSource(src *media.AudioSource, duration float64) {
	a.mu.Lock()
	a.source = src
	a.duration = duration
	a.mu.Unlock()

	if err := a.player.Load(src); err != nil {
		log.Errorf("loading playback source: %v", err)
	}
	a.currentSink().SourceChanged(src.Filename(), src.ByteSize(), duration)
}

func (a *App) Source() *media.AudioSource {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.source
}

// ToggleRecording starts or stops the capture session. Start runs
// asynchronously because the first call may block on the permission
// prompt.
func (a *App) ToggleRecording() {
	if a.engine.State() == capture.StateRecording {
		a.engine.Stop()
		beep.Play(beep.CueRecordStop)
		return
	}
	go func() {
		if err := a.engine.Start(context.Background()); err != nil {
			log.Errorf("recording start: %v", err)
			beep.Play(beep.CueError)
			a.currentSink().RecordingState(a.engine.State(), 0)
			return
		}
		beep.Play(beep.CueRecordStart)
		a.currentSink().RecordingState(capture.StateRecording, 0)
	}()
}

func (a *App) TogglePlay() {
	if err := a.player.TogglePlay(); err != nil {
		log.Warnf("toggle play: %v", err)
	}
}

// SeekBy moves the playhead by a fraction of the total duration.
func (a *App) SeekBy(delta float64) {
	st := a.player.Status()
	if st.Duration <= 0 {
		return
	}
	frac := st.Position/st.Duration + delta
	if err := a.player.Seek(frac); err != nil {
		log.Warnf("seek: %v", err)
	}
}

func (a *App) Restart() { a.player.Restart() }

func (a *App) VolumeBy(delta float64) {
	a.player.SetVolume(a.player.Status().Volume + delta)
}

// Submit sends the active source to the transcription service.
func (a *App) Submit() {
	if err := a.pipeline.Submit(context.Background(), a.Source()); err != nil {
		log.Warnf("submit: %v", err)
	}
}

// LoadFile brings an uploaded audio file in as the active source.
func (a *App) LoadFile(path string) {
	src, err := media.LoadFile(path)
	if err != nil {
		titleKey, descKey := "invalidFileType", "invalidFileTypeDesc"
		if err == media.ErrTooLarge {
			titleKey, descKey = "fileTooLarge", "fileTooLargeDesc"
		}
		a.dispatchNotification(notify.Notification{
			Title:       a.texts.T(titleKey).Join(),
			Description: a.texts.T(descKey).Join(),
			Severity:    notify.Destructive,
			Duration:    5 * time.Second,
		})
		return
	}
	a.player.Clear()
	a.pipeline.Clear()
	a.setSource(src, 0)
	a.dispatchNotification(notify.Notification{
		Title:       a.texts.T("fileUploadedSuccess").Join(),
		Description: src.Name + " " + a.texts.T("fileUploadedDesc").Join(),
		Severity:    notify.Success,
		Duration:    4 * time.Second,
	})
}

func (a *App) transcript(raw bool) (text string, ok bool) {
	res := a.pipeline.Result()
	if res == nil {
		return "", false
	}
	if raw {
		return res.Raw, true
	}
	return res.Corrected, true
}

func variantFor(raw bool) export.Variant {
	if raw {
		return export.Raw
	}
	return export.Corrected
}

// Copy puts the selected transcript variant on the clipboard.
func (a *App) Copy(raw bool) {
	text, ok := a.transcript(raw)
	if !ok {
		return
	}
	label := a.texts.T("corrected").Join()
	if raw {
		label = a.texts.T("raw").Join()
	}
	notifier := notify.Func(a.dispatchNotification)
	if err := clipboard.CopyTranscript(text, label, notifier, a.texts); err != nil {
		log.Errorf("clipboard copy: %v", err)
	}
}

// SaveText exports the selected transcript variant as plain text.
func (a *App) SaveText(raw bool) {
	text, ok := a.transcript(raw)
	if !ok {
		return
	}
	notifier := notify.Func(a.dispatchNotification)
	if err := export.SaveText(a.exportDir, text, variantFor(raw), notifier, a.texts); err != nil {
		log.Errorf("export txt: %v", err)
	}
}

// SaveDoc exports the selected transcript variant as a Word-compatible
// document.
func (a *App) SaveDoc(raw bool) {
	text, ok := a.transcript(raw)
	if !ok {
		return
	}
	res := a.pipeline.Result()
	doc := export.Document{
		Text:       text,
		Variant:    variantFor(raw),
		Language:   a.language,
		Confidence: res.Confidence,
		HasConf:    res.HasConfidence,
	}
	notifier := notify.Func(a.dispatchNotification)
	if err := export.SaveDoc(a.exportDir, doc, notifier, a.texts); err != nil {
		log.Errorf("export doc: %v", err)
	}
}

// ClearAll resets every component to idle and releases the source.
func (a *App) ClearAll() {
	if a.engine.State() == capture.StateRecording {
		a.engine.Stop()
	}
	a.player.Clear()
	a.pipeline.Clear()

	a.mu.Lock()
	a.source = nil
	a.duration = 0
	a.mu.Unlock()

	sink := a.currentSink()
	sink.SourceChanged("", 0, 0)
	sink.RecordingState(capture.StateIdle, 0)
	a.dispatchNotification(notify.Notification{
		Title:       a.texts.T("cleared").Join(),
		Description: a.texts.T("clearedDesc").Join(),
		Severity:    notify.Info,
		Duration:    3 * time.Second,
	})
}
