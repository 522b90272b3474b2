package main

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"vocatext/capture"
	"vocatext/notify"
	"vocatext/playback"
	"vocatext/transcribe"
)

// TUI message types, one per EventSink callback.
type RecordingMsg struct {
	State   capture.State
	Elapsed int
}
type AudioLevelMsg struct{ Level float64 }
type PlaybackMsg struct{ Status playback.Status }
type SubmissionMsg struct{ Status transcribe.Status }
type SourceMsg struct {
	Name     string
	Bytes    int
	Duration float64
}
type NotificationMsg struct{ Notification notify.Notification }
type tickMsg time.Time

// tuiSink forwards app events into the Bubble Tea program.
type tuiSink struct {
	program *tea.Program
}

func (s tuiSink) RecordingState(state capture.State, elapsed int) {
	s.program.Send(RecordingMsg{State: state, Elapsed: elapsed})
}
func (s tuiSink) AudioLevel(level float64) { s.program.Send(AudioLevelMsg{Level: level}) }
func (s tuiSink) PlaybackState(st playback.Status) {
	s.program.Send(PlaybackMsg{Status: st})
}
func (s tuiSink) Submission(st transcribe.Status) {
	s.program.Send(SubmissionMsg{Status: st})
}
func (s tuiSink) SourceChanged(name string, bytes int, duration float64) {
	s.program.Send(SourceMsg{Name: name, Bytes: bytes, Duration: duration})
}
func (s tuiSink) Notification(n notify.Notification) {
	s.program.Send(NotificationMsg{Notification: n})
}

type tuiModel struct {
	app *App

	recState capture.State
	elapsed  int
	level    float64
	peak     float64

	playback   playback.Status
	submission transcribe.Status

	sourceName  string
	sourceBytes int
	sourceDur   float64

	showRaw bool

	notice         notify.Notification
	noticeDeadline time.Time

	frame         int
	width, height int
	deviceLine    string
	serviceLine   string
}

var (
	titleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
	recStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	idleStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	readyStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	faintStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("239"))
	textStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	meterStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	progressStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	warnStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	errStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	okStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
)

func NewTUIProgram(app *App, deviceLine, serviceLine string) *tea.Program {
	m := tuiModel{
		app:         app,
		deviceLine:  deviceLine,
		serviceLine: serviceLine,
	}
	return tea.NewProgram(m, tea.WithAltScreen())
}

func tuiTick() tea.Cmd {
	return tea.Tick(80*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m tuiModel) Init() tea.Cmd {
	return tuiTick()
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tickMsg:
		m.frame++
		return m, tuiTick()

	case RecordingMsg:
		if msg.State == capture.StateRecording && m.recState != capture.StateRecording {
			m.peak = 0
		}
		m.recState = msg.State
		m.elapsed = msg.Elapsed
		if msg.State != capture.StateRecording {
			m.level = 0
		}

	case AudioLevelMsg:
		if m.recState == capture.StateRecording {
			m.level = m.level*0.6 + msg.Level*0.4
			if msg.Level > m.peak {
				m.peak = msg.Level
			}
		}

	case PlaybackMsg:
		m.playback = msg.Status

	case SubmissionMsg:
		m.submission = msg.Status

	case SourceMsg:
		m.sourceName = msg.Name
		m.sourceBytes = msg.Bytes
		m.sourceDur = msg.Duration

	case NotificationMsg:
		m.notice = msg.Notification
		dur := msg.Notification.Duration
		if dur <= 0 {
			dur = 4 * time.Second
		}
		m.noticeDeadline = time.Now().Add(dur)
	}
	return m, nil
}

func (m tuiModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "r":
		m.app.ToggleRecording()
	case " ", "p":
		m.app.TogglePlay()
	case "left", "h":
		m.app.SeekBy(-0.05)
	case "right", "l":
		m.app.SeekBy(0.05)
	case "0":
		m.app.Restart()
	case "+", "=":
		m.app.VolumeBy(0.1)
	case "-":
		m.app.VolumeBy(-0.1)
	case "t", "enter":
		m.app.Submit()
	case "v":
		m.showRaw = !m.showRaw
	case "c":
		m.app.Copy(m.showRaw)
	case "s":
		m.app.SaveText(m.showRaw)
	case "w":
		m.app.SaveDoc(m.showRaw)
	case "x":
		m.app.ClearAll()
	}
	return m, nil
}

func (m tuiModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	const leftWidth = 38

	var left []string
	left = append(left, titleStyle.Render("vocatext"), "")
	left = append(left, m.statusLine())

	if m.recState == capture.StateRecording {
		left = append(left, meterStyle.Render(levelMeter(m.level, 24)))
		if m.elapsed > 1 && m.peak < 0.02 {
			left = append(left, warnStyle.Render("  no voice detected"))
		}
	} else {
		left = append(left, "")
	}
	left = append(left, "")

	left = append(left, m.sourceLines()...)
	left = append(left, "")
	left = append(left, m.playbackLines()...)
	left = append(left, "")
	left = append(left, m.submissionLines()...)
	left = append(left, "")

	if m.deviceLine != "" {
		left = append(left, idleStyle.Render(m.deviceLine))
	}
	if m.serviceLine != "" {
		left = append(left, idleStyle.Render(m.serviceLine))
	}
	left = append(left, "")
	left = append(left, m.helpLines()...)

	rightWidth := m.width - leftWidth - 1
	if rightWidth < 20 {
		rightWidth = 20
	}
	right := m.transcriptPanel(rightWidth - 2)

	leftPanel := lipgloss.NewStyle().
		Width(leftWidth).
		Height(m.height).
		PaddingLeft(1).
		Render(strings.Join(left, "\n"))
	rightPanel := lipgloss.NewStyle().
		Width(rightWidth).
		Height(m.height).
		PaddingLeft(1).
		Render(right)

	return lipgloss.JoinHorizontal(lipgloss.Top, leftPanel, rightPanel)
}

func (m tuiModel) statusLine() string {
	switch m.recState {
	case capture.StateRecording:
		blink := "●"
		if m.frame%8 < 4 {
			blink = "○"
		}
		return recStyle.Render(fmt.Sprintf("%s REC %s", blink, capture.FormatElapsed(m.elapsed)))
	case capture.StateStopped:
		return readyStyle.Render("■ RECORDED " + capture.FormatElapsed(m.elapsed))
	default:
		return idleStyle.Render("○ STANDBY")
	}
}

func (m tuiModel) sourceLines() []string {
	if m.sourceName == "" {
		return []string{faintStyle.Render("no audio loaded")}
	}
	size := fmt.Sprintf("%.1f KB", float64(m.sourceBytes)/1024)
	if m.sourceBytes >= 1<<20 {
		size = fmt.Sprintf("%.1f MB", float64(m.sourceBytes)/(1<<20))
	}
	return []string{
		dimStyle.Render(m.sourceName),
		faintStyle.Render(size),
	}
}

func (m tuiModel) playbackLines() []string {
	st := m.playback
	if m.sourceName == "" {
		return nil
	}
	var mark string
	switch st.Transport {
	case playback.TransportLoading:
		mark = dimStyle.Render("… loading")
	case playback.TransportPlaying:
		mark = okStyle.Render("▶ playing")
	default:
		mark = dimStyle.Render("■ stopped")
	}
	lines := []string{mark}
	if st.Duration > 0 {
		lines = append(lines,
			progressStyle.Render(transportBar(st.Position/st.Duration, 24)),
			faintStyle.Render(fmt.Sprintf("%s / %s  vol %d%%",
				clockTime(st.Position), clockTime(st.Duration), int(st.Volume*100+0.5))))
	}
	return lines
}

func (m tuiModel) submissionLines() []string {
	st := m.submission
	switch st.State {
	case transcribe.StateUploading:
		return []string{
			dimStyle.Render("transcribing"),
			progressStyle.Render(transportBar(float64(st.Progress)/100, 24) + fmt.Sprintf(" %d%%", st.Progress)),
		}
	case transcribe.StateCompleted:
		if st.Progress > 0 {
			return []string{okStyle.Render(fmt.Sprintf("transcribed %d%%", st.Progress))}
		}
		return []string{okStyle.Render("transcribed")}
	case transcribe.StateFailed:
		return []string{errStyle.Render("transcription failed")}
	}
	return nil
}

func (m tuiModel) helpLines() []string {
	bold := faintStyle.Bold(true)
	keys := []struct{ key, what string }{
		{"r", "record"},
		{"space", "play"},
		{"←/→", "seek"},
		{"t", "transcribe"},
		{"v", "raw/corrected"},
		{"c", "copy"},
		{"s/w", "save txt/docx"},
		{"x", "clear"},
		{"q", "quit"},
	}
	var lines []string
	for i := 0; i+1 < len(keys); i += 2 {
		lines = append(lines, fmt.Sprintf("%s %s  %s %s",
			bold.Render(keys[i].key), faintStyle.Render(keys[i].what),
			bold.Render(keys[i+1].key), faintStyle.Render(keys[i+1].what)))
	}
	if len(keys)%2 == 1 {
		last := keys[len(keys)-1]
		lines = append(lines, fmt.Sprintf("%s %s", bold.Render(last.key), faintStyle.Render(last.what)))
	}
	return lines
}

func (m tuiModel) transcriptPanel(wrapWidth int) string {
	if wrapWidth < 10 {
		wrapWidth = 10
	}

	var b strings.Builder

	res := m.submission.Result
	if res != nil {
		label := "Corrected transcription"
		text := res.Corrected
		if m.showRaw {
			label = "Raw transcription"
			text = res.Raw
		}
		b.WriteString(dimStyle.Render(label))
		if res.HasConfidence {
			b.WriteString(faintStyle.Render(fmt.Sprintf("  (%d%% confidence)", int(res.Confidence*100+0.5))))
		}
		b.WriteString("\n\n")
		for _, line := range wrapText(text, wrapWidth) {
			b.WriteString(textStyle.Render(line) + "\n")
		}
	} else {
		b.WriteString(idleStyle.Render("No transcription yet"))
	}

	if m.notice.Title != "" && time.Now().Before(m.noticeDeadline) {
		style := okStyle
		switch m.notice.Severity {
		case notify.Warning:
			style = warnStyle
		case notify.Destructive:
			style = errStyle
		case notify.Info:
			style = dimStyle
		}
		b.WriteString("\n" + style.Render(m.notice.Title))
		for _, line := range wrapText(m.notice.Description, wrapWidth) {
			b.WriteString("\n" + faintStyle.Render(line))
		}
	}

	return b.String()
}

func levelMeter(level float64, width int) string {
	filled := int(level * 8 * float64(width))
	if filled > width {
		filled = width
	}
	return strings.Repeat("▰", filled) + strings.Repeat("▱", width-filled)
}

func transportBar(frac float64, width int) string {
	if frac < 0 {
		frac = 0
	}
	if frac > 1 {
		frac = 1
	}
	filled := int(frac * float64(width))
	return strings.Repeat("━", filled) + "●" + strings.Repeat("─", width-filled)
}

func clockTime(seconds float64) string {
	s := int(seconds)
	return fmt.Sprintf("%d:%02d", s/60, s%60)
}

func wrapText(text string, width int) []string {
	var lines []string
	for _, paragraph := range strings.Split(text, "\n") {
		words := strings.Fields(paragraph)
		if len(words) == 0 {
			lines = append(lines, "")
			continue
		}
		current := words[0]
		for _, word := range words[1:] {
			if len(current)+1+len(word) > width {
				lines = append(lines, current)
				current = word
			} else {
				current += " " + word
			}
		}
		lines = append(lines, current)
	}
	return lines
}
