// Package i18n maps fixed message keys to display text. A value may be
// a single string or a list of strings; callers join lists with spaces.
// The built-in table is English; a TOML file can override or extend it.
package i18n

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

// Text is one looked-up message: either a single string or a list.
type Text []string

// Join flattens the text with single spaces, the way every caller of
// the lookup collaborator consumes it.
func (t Text) Join() string {
	return strings.Join(t, " ")
}

type Table struct {
	entries map[string]Text
}

func Default() *Table {
	entries := make(map[string]Text, len(defaultMessages))
	for k, v := range defaultMessages {
		entries[k] = v
	}
	return &Table{entries: entries}
}

// T looks up a message key. Unknown keys return the key itself so a
// missing translation degrades visibly instead of blanking the UI.
func (t *Table) T(key string) Text {
	if v, ok := t.entries[key]; ok {
		return v
	}
	return Text{key}
}

// Load merges overrides from a TOML file. Values may be strings or
// arrays of strings; anything else is rejected.
func (t *Table) Load(path string) error {
	var raw map[string]any
	if _, err := toml.DecodeFile(path, &raw); err != nil {
		return fmt.Errorf("loading message table: %w", err)
	}
	for key, val := range raw {
		switch v := val.(type) {
		case string:
			t.entries[key] = Text{v}
		case []any:
			var parts Text
			for _, item := range v {
				s, ok := item.(string)
				if !ok {
					return fmt.Errorf("message %q: list items must be strings", key)
				}
				parts = append(parts, s)
			}
			t.entries[key] = parts
		default:
			return fmt.Errorf("message %q: value must be a string or list of strings", key)
		}
	}
	return nil
}
