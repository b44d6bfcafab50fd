package waveform

import "sync"

// Offset is the user's manual trace shift, in display steps. Any value
// is legal; large offsets scroll the trace off screen.
type Offset struct {
	DeltaX int `json:"dx"`
	DeltaY int `json:"dy"`
}

// View holds the display cells driven by user input: the trace offset
// and the pause flag. It is safe for concurrent use.
type View struct {
	mu     sync.Mutex
	offset Offset
	paused bool
}

// ViewState is a copy of the View cells.
type ViewState struct {
	Offset
	Paused bool `json:"paused"`
}

func NewView() *View {
	return &View{}
}

func (v *View) Left()  { v.shift(-1, 0) }
func (v *View) Right() { v.shift(1, 0) }
func (v *View) Up()    { v.shift(0, 1) }
func (v *View) Down()  { v.shift(0, -1) }

// Center resets both offsets to zero.
func (v *View) Center() {
	v.mu.Lock()
	v.offset = Offset{}
	v.mu.Unlock()
}

func (v *View) shift(dx, dy int) {
	v.mu.Lock()
	v.offset.DeltaX += dx
	v.offset.DeltaY += dy
	v.mu.Unlock()
}

// SetOffset replaces the trace offset.
func (v *View) SetOffset(o Offset) {
	v.mu.Lock()
	v.offset = o
	v.mu.Unlock()
}

// TogglePause flips the pause flag and returns the new value.
func (v *View) TogglePause() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.paused = !v.paused
	return v.paused
}

func (v *View) SetPaused(paused bool) {
	v.mu.Lock()
	v.paused = paused
	v.mu.Unlock()
}

func (v *View) Paused() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.paused
}

func (v *View) Offset() Offset {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.offset
}

// Snapshot returns all cells read under one lock.
func (v *View) Snapshot() ViewState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return ViewState{Offset: v.offset, Paused: v.paused}
}

// Command names accepted by Apply, shared by the terminal and web
// front ends.
const (
	CmdLeft   = "left"
	CmdRight  = "right"
	CmdUp     = "up"
	CmdDown   = "down"
	CmdCenter = "center"
	CmdPause  = "pause"
)

// Apply executes a named display command. It reports false for unknown
// commands.
func (v *View) Apply(cmd string) bool {
	switch cmd {
	case CmdLeft:
		v.Left()
	case CmdRight:
		v.Right()
	case CmdUp:
		v.Up()
	case CmdDown:
		v.Down()
	case CmdCenter:
		v.Center()
	case CmdPause:
		v.TogglePause()
	default:
		return false
	}
	return true
}
