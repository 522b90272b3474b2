// Package export saves the displayed transcript to disk, as plain
// text or as a Word-compatible HTML document.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"vocatext/i18n"
	"vocatext/notify"
)

// Variant selects which transcript is exported and names the output
// file.
type Variant int

const (
	Corrected Variant = iota
	Raw
)

func (v Variant) String() string {
	if v == Raw {
		return "raw"
	}
	return "corrected"
}

func (v Variant) label(texts *i18n.Table) string {
	if v == Raw {
		return texts.T("raw").Join()
	}
	return texts.T("corrected").Join()
}

// Document carries everything the Word export puts in its header.
type Document struct {
	Text       string
	Variant    Variant
	Language   string
	Confidence float64
	HasConf    bool
}

// TextFilename is the plain-text output name for a variant.
func TextFilename(v Variant) string {
	return fmt.Sprintf("transcription_%s.txt", v)
}

// DocFilename is the Word-compatible output name for a variant.
func DocFilename(v Variant) string {
	return fmt.Sprintf("transcription_%s.docx", v)
}

// SaveText writes the transcript as plain text into dir and reports
// the outcome.
func SaveText(dir, text string, v Variant, notifier notify.Notifier, texts *i18n.Table) error {
	name := TextFilename(v)
	err := os.WriteFile(filepath.Join(dir, name), []byte(text), 0o644)
	report(err, name, v, notifier, texts)
	return err
}

// SaveDoc writes the transcript as an HTML document Word can open,
// with a header carrying date, language, variant and confidence.
func SaveDoc(dir string, doc Document, notifier notify.Notifier, texts *i18n.Table) error {
	name := DocFilename(doc.Variant)
	err := os.WriteFile(filepath.Join(dir, name), []byte(renderHTML(doc)), 0o644)
	report(err, name, doc.Variant, notifier, texts)
	return err
}

func renderHTML(doc Document) string {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>Transcription</title>\n</head>\n<body>\n")
	b.WriteString("<h1>Audio Transcription</h1>\n")
	fmt.Fprintf(&b, "<p><strong>Generated:</strong> %s</p>\n", time.Now().Format("2006-01-02 15:04:05"))
	if doc.Language != "" {
		fmt.Fprintf(&b, "<p><strong>Language:</strong> %s</p>\n", doc.Language)
	}
	kind := "Grammar corrected"
	if doc.Variant == Raw {
		kind = "Raw transcription"
	}
	fmt.Fprintf(&b, "<p><strong>Type:</strong> %s</p>\n", kind)
	if doc.HasConf {
		fmt.Fprintf(&b, "<p><strong>Confidence:</strong> %d%%</p>\n", int(doc.Confidence*100+0.5))
	}
	b.WriteString("<hr>\n<div style=\"line-height: 1.6; font-family: Arial, sans-serif;\">\n")
	for _, line := range strings.Split(doc.Text, "\n") {
		fmt.Fprintf(&b, "<p>%s</p>\n", htmlEscape(line))
	}
	b.WriteString("</div>\n</body>\n</html>\n")
	return b.String()
}

func htmlEscape(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	return r.Replace(s)
}

func report(err error, name string, v Variant, notifier notify.Notifier, texts *i18n.Table) {
	if notifier == nil {
		return
	}
	if err != nil {
		notifier.Notify(notify.Notification{
			Title:       texts.T("downloadStarted").Join(),
			Description: err.Error(),
			Severity:    notify.Destructive,
			Duration:    4 * time.Second,
		})
		return
	}
	notifier.Notify(notify.Notification{
		Title:       texts.T("downloadStarted").Join(),
		Description: fmt.Sprintf("%s %s %s", v.label(texts), texts.T("downloadStartedDesc").Join(), name),
		Severity:    notify.Success,
		Duration:    3 * time.Second,
	})
}
