// Package hotkey exposes a global key chord that toggles recording
// from anywhere on the desktop.
package hotkey

type Hotkey interface {
	Register() error
	Unregister()
	Keydown() <-chan struct{}
	Keyup() <-chan struct{}
}
