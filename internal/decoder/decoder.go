// Package decoder interprets the header bytes of an instrument frame.
package decoder

import (
	"fmt"

	"oszifox-viewer/internal/frame"
)

// Header byte positions
const (
	hdrInput    = 0 // coupling (bits 4-5) and range (bits 2-3)
	hdrTimebase = 1 // timebase code
	hdrTrigger  = 2 // trigger source/polarity flags
)

type Coupling int

const (
	CouplingGND      Coupling = 0
	CouplingAC       Coupling = 1
	CouplingDC       Coupling = 2
	CouplingReserved Coupling = 3
)

func (c Coupling) String() string {
	switch c {
	case CouplingGND:
		return "GND"
	case CouplingAC:
		return "AC"
	case CouplingDC:
		return "DC"
	case CouplingReserved:
		return "?"
	}
	return fmt.Sprintf("Coupling(%d)", int(c))
}

// Range is the input range selector, in volts full scale.
type Range int

const (
	Range1V       Range = 0
	Range10V      Range = 1
	Range100V     Range = 2
	RangeReserved Range = 3
)

func (r Range) String() string {
	switch r {
	case Range1V:
		return "1"
	case Range10V:
		return "10"
	case Range100V:
		return "100"
	case RangeReserved:
		return "?"
	}
	return fmt.Sprintf("Range(%d)", int(r))
}

// Volts returns the full scale voltage, or 0 for the reserved selector.
func (r Range) Volts() float64 {
	switch r {
	case Range1V:
		return 1
	case Range10V:
		return 10
	case Range100V:
		return 100
	}
	return 0
}

type Trigger int

const (
	TriggerAuto Trigger = iota
	TriggerInternalPos
	TriggerInternalNeg
	TriggerExternalPos
	TriggerExternalNeg
)

func (t Trigger) String() string {
	switch t {
	case TriggerAuto:
		return "AUTO"
	case TriggerInternalPos:
		return "+INTERNAL"
	case TriggerInternalNeg:
		return "-INTERNAL"
	case TriggerExternalPos:
		return "+EXTERNAL"
	case TriggerExternalNeg:
		return "-EXTERNAL"
	}
	return fmt.Sprintf("Trigger(%d)", int(t))
}

// timebases maps a timebase code to seconds per sample.
var timebases = [...]float64{
	50e-9,  // 0
	100e-9, // 1
	0.5e-6, // 2
	1.0e-6, // 3
	5.0e-6, // 4
	10e-6,  // 5
	50e-6,  // 6
	0.1e-3, // 7
	0.5e-3, // 8
	1.0e-3, // 9
}

// Timebase returns seconds per sample for a timebase code. Codes past
// the table select the slowest timebase.
func Timebase(code byte) float64 {
	if int(code) >= len(timebases) {
		return timebases[len(timebases)-1]
	}
	return timebases[code]
}

// Config is the instrument configuration carried by a frame header.
type Config struct {
	Coupling     Coupling
	Range        Range
	Trigger      Trigger
	TimebaseCode byte
	Timebase     float64 // seconds per sample
}

func (c Config) String() string {
	return fmt.Sprintf("TRIG: %s  RANGE: %sV  COUPLING: %s  TIMEBASE: %gs",
		c.Trigger, c.Range, c.Coupling, c.Timebase)
}

// Decode extracts the configuration from a frame header. Every header
// decodes to some configuration; the fields are bit tested, never range
// checked.
func Decode(f frame.Frame) Config {
	h := f.Header()
	return Config{
		Coupling:     Coupling(3 & (h[hdrInput] >> 4)),
		Range:        Range(3 & (h[hdrInput] >> 2)),
		Trigger:      decodeTrigger(h[hdrTrigger]),
		TimebaseCode: h[hdrTimebase],
		Timebase:     Timebase(h[hdrTimebase]),
	}
}

// decodeTrigger tests the flags in priority order; the first set bit wins.
func decodeTrigger(b byte) Trigger {
	switch {
	case b&(1<<6) != 0:
		return TriggerInternalPos
	case b&(1<<5) != 0:
		return TriggerInternalNeg
	case b&(1<<4) != 0:
		return TriggerExternalPos
	case b&(1<<3) != 0:
		return TriggerExternalNeg
	}
	return TriggerAuto
}
