// Package hotkey delivers global Ctrl+Shift+Space presses so recording can
// be toggled while another window has focus.
package hotkey

type Hotkey interface {
	Register() error
	Unregister()
	// Presses fires once per completed combo press.
	Presses() <-chan struct{}
}
