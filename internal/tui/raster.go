package tui

import (
	"math"
	"strings"

	termbox "github.com/nsf/termbox-go"

	"oszifox-viewer/internal/decoder"
	"oszifox-viewer/internal/waveform"
)

const (
	traceRune = '*'
	levelRune = '-'
	majorRune = '|'
	minorRune = ':'
	crossRune = '+'

	overlayY = 0.96
	labelY   = 0.06
)

// Cell is one character cell of the terminal.
type Cell struct {
	Ch rune
	Fg termbox.Attribute
	Bg termbox.Attribute
}

// Canvas is an off-screen cell buffer in row-major order.
type Canvas struct {
	W, H  int
	Cells []Cell
}

func NewCanvas(w, h int) *Canvas {
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	return &Canvas{W: w, H: h, Cells: make([]Cell, w*h)}
}

// Set writes a cell; coordinates off the canvas are ignored.
func (c *Canvas) Set(x, y int, ch rune, fg termbox.Attribute) {
	if x < 0 || y < 0 || x >= c.W || y >= c.H {
		return
	}
	c.Cells[y*c.W+x] = Cell{Ch: ch, Fg: fg, Bg: termbox.ColorBlack}
}

// At returns the rune at x, y, or a space.
func (c *Canvas) At(x, y int) rune {
	if x < 0 || y < 0 || x >= c.W || y >= c.H {
		return ' '
	}
	if ch := c.Cells[y*c.W+x].Ch; ch != 0 {
		return ch
	}
	return ' '
}

// Text writes s starting at x, y.
func (c *Canvas) Text(x, y int, s string, fg termbox.Attribute) {
	for _, r := range s {
		c.Set(x, y, r, fg)
		x++
	}
}

// Row returns row y as a string.
func (c *Canvas) Row(y int) string {
	var b strings.Builder
	for x := 0; x < c.W; x++ {
		b.WriteRune(c.At(x, y))
	}
	return b.String()
}

func (c *Canvas) String() string {
	rows := make([]string, c.H)
	for y := range rows {
		rows[y] = c.Row(y)
	}
	return strings.Join(rows, "\n")
}

// col and row map scene coordinates, 0..1 with y up, to cells.
func (c *Canvas) col(x float64) int {
	return int(math.Floor(x*float64(c.W-1) + 0.5))
}

func (c *Canvas) row(y float64) int {
	return int(math.Floor((1-y)*float64(c.H-1) + 0.5))
}

// Scene is everything one screen shows.
type Scene struct {
	Waiting bool
	Paused  bool
	Config  decoder.Config
	Points  []waveform.Point
	Axis    waveform.Axis
}

// Rasterize draws the scene into c: graticule and labels, the trace,
// then the overlay text on top.
func Rasterize(c *Canvas, s Scene) {
	if c.W == 0 || c.H == 0 {
		return
	}
	if s.Waiting {
		msg := "WAITING FOR DATA"
		c.Text((c.W-len(msg))/2, c.H/2, msg, termbox.ColorWhite|termbox.AttrBold)
		return
	}

	top, bottom := c.row(waveform.YMax), c.row(waveform.YMin)
	for _, y := range s.Axis.Levels {
		r := c.row(y)
		for x := 0; x < c.W; x++ {
			c.Set(x, r, levelRune, termbox.ColorGreen)
		}
	}
	vertical := func(t waveform.Tick, ch rune) {
		x := c.col(t.X)
		for y := top; y <= bottom; y++ {
			if c.At(x, y) == levelRune {
				c.Set(x, y, crossRune, termbox.ColorGreen)
			} else {
				c.Set(x, y, ch, termbox.ColorGreen)
			}
		}
	}
	for _, t := range s.Axis.Minor {
		vertical(t, minorRune)
	}
	for _, t := range s.Axis.Major {
		vertical(t, majorRune)
		c.Text(c.col(t.X)+1, c.row(labelY), t.Label, termbox.ColorGreen)
	}

	for i := 1; i < len(s.Points); i++ {
		c.line(s.Points[i-1], s.Points[i])
	}
	if len(s.Points) == 1 {
		c.Set(c.col(s.Points[0].X), c.row(s.Points[0].Y), traceRune, termbox.ColorYellow)
	}

	cfg := s.Config
	oy := c.row(overlayY)
	c.Text(0, oy, "TRIG: "+cfg.Trigger.String(), termbox.ColorWhite)
	c.Text(c.W*3/10, oy, "RANGE: "+cfg.Range.String()+"V", termbox.ColorWhite)
	c.Text(c.W/2, oy, "COUPLING: "+cfg.Coupling.String(), termbox.ColorWhite)
	if s.Paused {
		c.Text(c.W-len("PAUSED")-1, oy, "PAUSED", termbox.ColorRed|termbox.AttrBold)
	}
}

// line plots a segment of the trace, skipping cells off the canvas.
func (c *Canvas) line(a, b waveform.Point) {
	x0, y0 := a.X*float64(c.W-1), (1-a.Y)*float64(c.H-1)
	x1, y1 := b.X*float64(c.W-1), (1-b.Y)*float64(c.H-1)
	steps := int(math.Ceil(math.Max(math.Abs(x1-x0), math.Abs(y1-y0))))
	if steps < 1 {
		steps = 1
	}
	for i := 0; i <= steps; i++ {
		f := float64(i) / float64(steps)
		x := int(math.Floor(x0 + f*(x1-x0) + 0.5))
		y := int(math.Floor(y0 + f*(y1-y0) + 0.5))
		c.Set(x, y, traceRune, termbox.ColorYellow)
	}
}
