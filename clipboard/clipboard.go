// Package clipboard puts the displayed transcript on the system
// clipboard.
package clipboard

import (
	"time"

	cb "github.com/atotto/clipboard"

	"vocatext/i18n"
	"vocatext/notify"
)

func Copy(text string) error {
	return cb.WriteAll(text)
}

func Read() (string, error) {
	return cb.ReadAll()
}

// CopyTranscript copies text and reports the outcome. label names the
// variant ("Raw" or "Corrected") in the confirmation.
func CopyTranscript(text, label string, notifier notify.Notifier, texts *i18n.Table) error {
	err := Copy(text)
	if notifier == nil {
		return err
	}
	if err != nil {
		notifier.Notify(notify.Notification{
			Title:       texts.T("copiedToClipboard").Join(),
			Description: err.Error(),
			Severity:    notify.Destructive,
			Duration:    4 * time.Second,
		})
		return err
	}
	notifier.Notify(notify.Notification{
		Title:       texts.T("copiedToClipboard").Join(),
		Description: label + " " + texts.T("copiedToClipboardDesc").Join(),
		Severity:    notify.Success,
		Duration:    3 * time.Second,
	})
	return nil
}
