package waveform

import (
	"fmt"

	"oszifox-viewer/internal/frame"
)

// Tick is a vertical graticule line at a sample position.
type Tick struct {
	Sample int     `json:"sample"`
	X      float64 `json:"x"`
	Label  string  `json:"label,omitempty"` // set on major lines only
}

// Axis describes the calibrated time axis for one timebase.
type Axis struct {
	Unit    string    `json:"unit"`
	Spacing int       `json:"spacing"` // samples between major lines
	Major   []Tick    `json:"major"`
	Minor   []Tick    `json:"minor"`
	Levels  []float64 `json:"levels"` // horizontal graticule y positions
}

// TimeAxis lays out the graticule and its labels for a timebase given in
// seconds per sample.
func TimeAxis(timebase float64) Axis {
	unitName, unit := timeUnit(timebase)

	// Major lines every 50 samples when that lands on a whole number of
	// units, every 40 otherwise.
	spacing := 40
	if t := 50 * timebase / unit; int(10*t+0.5)%10 == 0 {
		spacing = 50
	}

	ax := Axis{Unit: unitName, Spacing: spacing}
	for i := 0; i < frame.NumSamples; i++ {
		x := float64(i) / frame.NumSamples
		switch {
		case i%spacing == 0:
			tick := Tick{Sample: i, X: x, Label: "0"}
			if i > 0 {
				tick.Label = fmt.Sprintf("%.0f%s", timebase*float64(i)/unit, unitName)
			}
			ax.Major = append(ax.Major, tick)
		case i%10 == 0:
			ax.Minor = append(ax.Minor, Tick{Sample: i, X: x})
		}
	}
	for i := 0; i <= 10; i++ {
		ax.Levels = append(ax.Levels, YMin+(YMax-YMin)*float64(i)/10)
	}
	return ax
}

// timeUnit picks the display unit for the span of one screen.
func timeUnit(timebase float64) (string, float64) {
	t := timebase * 99
	switch {
	case t < 1e-6:
		return "ns", 1e-9
	case t < 1e-3:
		return "us", 1e-6
	}
	return "ms", 1e-3
}
