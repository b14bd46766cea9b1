// Package input describes what the user is doing during one frame.
package input

// Snapshot is the state of the movement and action controls, sampled once
// per frame by the window.
type Snapshot struct {
	Forward  bool
	Backward bool
	Left     bool
	Right    bool
	Up       bool
	Down     bool

	// Click is the primary mouse button.
	Click bool

	// CursorX and CursorY are in window coordinates with Y growing upwards.
	CursorX float64
	CursorY float64
}

// Moving reports whether any movement control is held.
func (s Snapshot) Moving() bool {
	return s.Forward || s.Backward || s.Left || s.Right || s.Up || s.Down
}
