// Package notify carries user-facing outcome notifications from the
// core components to whatever surface renders them. Fire and forget;
// the core never reads anything back.
package notify

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

type Severity int

const (
	Info Severity = iota
	Success
	Warning
	// Destructive marks failures the user must act on.
	Destructive
)

func (s Severity) String() string {
	switch s {
	case Success:
		return "success"
	case Warning:
		return "warning"
	case Destructive:
		return "error"
	default:
		return "info"
	}
}

type Notification struct {
	Title       string
	Description string
	Severity    Severity
	Duration    time.Duration
}

type Notifier interface {
	Notify(n Notification)
}

// Console writes notifications as structured log events. Used when no
// TUI is attached (doctor mode, headless runs).
type Console struct {
	log zerolog.Logger
}

func NewConsole(log zerolog.Logger) *Console {
	return &Console{log: log}
}

func (c *Console) Notify(n Notification) {
	ev := c.log.Info()
	switch n.Severity {
	case Warning:
		ev = c.log.Warn()
	case Destructive:
		ev = c.log.Error()
	}
	ev.Str("title", n.Title).Msg(n.Description)
}

// Recorder retains notifications for assertions in tests.
type Recorder struct {
	mu   sync.Mutex
	sent []Notification
}

func NewRecorder() *Recorder { return &Recorder{} }

func (r *Recorder) Notify(n Notification) {
	r.mu.Lock()
	r.sent = append(r.sent, n)
	r.mu.Unlock()
}

func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notification, len(r.sent))
	copy(out, r.sent)
	return out
}

func (r *Recorder) Last() (Notification, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.sent) == 0 {
		return Notification{}, false
	}
	return r.sent[len(r.sent)-1], true
}

// Func adapts a function to the Notifier interface.
type Func func(Notification)

func (f Func) Notify(n Notification) { f(n) }
