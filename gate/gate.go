// Package gate decides whether the environment can record audio at all
// and owns the microphone permission state. Nothing else touches the
// permission; the capture engine reads it through here before opening a
// stream.
package gate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"vocatext/audio"
	"vocatext/i18n"
	"vocatext/notify"
)

type Permission int

const (
	PermissionUnknown Permission = iota
	PermissionPrompt
	PermissionDenied
	PermissionGranted
)

func (p Permission) String() string {
	switch p {
	case PermissionPrompt:
		return "prompt"
	case PermissionDenied:
		return "denied"
	case PermissionGranted:
		return "granted"
	default:
		return "unknown"
	}
}

// Reason classifies why a permission request failed.
type Reason int

const (
	ReasonNotAllowed Reason = iota // user refused
	ReasonNotFound                 // no capture device
	ReasonNotSupported             // recording API missing
	ReasonSecurity                 // blocked by the environment
	ReasonOther
)

func (r Reason) String() string {
	switch r {
	case ReasonNotAllowed:
		return "not-allowed"
	case ReasonNotFound:
		return "not-found"
	case ReasonNotSupported:
		return "not-supported"
	case ReasonSecurity:
		return "security"
	default:
		return "other"
	}
}

type DeniedError struct {
	Reason Reason
	Err    error
}

func (e *DeniedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("permission request failed (%s): %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("permission request failed (%s)", e.Reason)
}

func (e *DeniedError) Unwrap() error { return e.Err }

// Environment answers the two static capability questions.
type Environment interface {
	SecureContext() bool
	RecorderAvailable() bool
}

// Registry is the platform permission store, when one exists. Desktop
// sessions usually have none, in which case queries report unknown.
type Registry interface {
	Query() (Permission, error)
}

type Gate struct {
	env      Environment
	reg      Registry // may be nil
	audio    audio.Context
	notifier notify.Notifier
	texts    *i18n.Table

	mu    sync.Mutex
	state Permission
}

func New(env Environment, reg Registry, ctx audio.Context, notifier notify.Notifier, texts *i18n.Table) *Gate {
	return &Gate{
		env:      env,
		reg:      reg,
		audio:    ctx,
		notifier: notifier,
		texts:    texts,
		state:    PermissionUnknown,
	}
}

// CheckEnvironmentSupport reports whether recording is possible here at
// all, with one human-readable line per deficiency. Pure; callable any
// number of times.
func (g *Gate) CheckEnvironmentSupport() (bool, []string) {
	var issues []string
	if !g.env.SecureContext() {
		issues = append(issues, "secure local session required for microphone access")
	}
	if !g.env.RecorderAvailable() {
		issues = append(issues, "audio capture API not available")
	}
	return len(issues) == 0, issues
}

// Permission returns the gate's current view without consulting the
// registry.
func (g *Gate) Permission() Permission {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// QueryPermission consults the platform permission registry. Without a
// registry the answer is unknown. Never errors, no side effects beyond
// refreshing the cached state.
func (g *Gate) QueryPermission() Permission {
	if g.reg == nil {
		return PermissionUnknown
	}
	p, err := g.reg.Query()
	if err != nil {
		return PermissionUnknown
	}
	g.mu.Lock()
	if p == PermissionGranted || p == PermissionDenied {
		g.state = p
	}
	g.mu.Unlock()
	return p
}

// RequestPermission opens and immediately closes a trial capture
// session, solely to trigger the platform prompt. Success sets the
// state to granted; explicit refusal sets denied; every outcome is
// reported through the notifier.
func (g *Gate) RequestPermission(ctx context.Context) error {
	if ok, issues := g.CheckEnvironmentSupport(); !ok {
		g.notifier.Notify(notify.Notification{
			Title:       g.texts.T("recordingNotSupported").Join(),
			Description: g.texts.T("recordingNotSupportedDesc").Join() + " " + strings.Join(issues, ", "),
			Severity:    notify.Destructive,
			Duration:    5 * time.Second,
		})
		return &DeniedError{Reason: ReasonNotSupported}
	}
	if err := ctx.Err(); err != nil {
		return &DeniedError{Reason: ReasonOther, Err: err}
	}

	trial, err := g.audio.NewCapture(nil, audio.DefaultConfig())
	if err == nil {
		err = trial.Start()
		trial.Stop()
		trial.Close()
	}
	if err != nil {
		reason := classify(err)
		if reason == ReasonNotAllowed {
			g.mu.Lock()
			g.state = PermissionDenied
			g.mu.Unlock()
			g.notifier.Notify(notify.Notification{
				Title:       g.texts.T("microphoneAccessDenied").Join(),
				Description: g.texts.T("microphoneAccessDeniedDesc").Join(),
				Severity:    notify.Destructive,
				Duration:    5 * time.Second,
			})
		} else {
			g.notifier.Notify(notify.Notification{
				Title:       g.texts.T("permissionRequestFailed").Join(),
				Description: g.texts.T("permissionRequestFailedDesc").Join(),
				Severity:    notify.Destructive,
				Duration:    5 * time.Second,
			})
		}
		return &DeniedError{Reason: reason, Err: err}
	}

	g.mu.Lock()
	g.state = PermissionGranted
	g.mu.Unlock()
	g.notifier.Notify(notify.Notification{
		Title:       g.texts.T("microphoneAccessGranted").Join(),
		Description: g.texts.T("microphoneAccessGrantedDesc").Join(),
		Severity:    notify.Success,
		Duration:    4 * time.Second,
	})
	return nil
}

func classify(err error) Reason {
	if err == nil {
		return ReasonOther
	}
	if errors.Is(err, audio.ErrNoDevice) {
		return ReasonNotFound
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "denied") || strings.Contains(msg, "not allowed"):
		return ReasonNotAllowed
	case strings.Contains(msg, "no such device") || strings.Contains(msg, "no device"):
		return ReasonNotFound
	case strings.Contains(msg, "permission") || strings.Contains(msg, "access"):
		return ReasonSecurity
	default:
		return ReasonOther
	}
}
