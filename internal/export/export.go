// Package export serialises reconstructed traces for the web viewer, the
// capture reader and external tools.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"oszifox-viewer/internal/acquire"
	"oszifox-viewer/internal/waveform"
)

// Trace is one displayable frame: decoded settings, the reconstructed
// line strip and its graticule.
type Trace struct {
	Seq      uint64    `json:"seq"`
	Received time.Time `json:"received"`

	Trigger  string  `json:"trigger"`
	Range    string  `json:"range"`
	Coupling string  `json:"coupling"`
	Timebase float64 `json:"timebase"`
	Overlay  string  `json:"overlay"`

	Header  []int `json:"header"`
	Samples []int `json:"samples"`

	Kernel     string             `json:"kernel,omitempty"`
	Oversample int                `json:"oversample,omitempty"`
	View       waveform.ViewState `json:"view"`

	Points []waveform.Point `json:"points"`
	Axis   waveform.Axis    `json:"axis"`
}

// NewTrace builds a trace from a snapshot and its reconstruction.
func NewTrace(snap acquire.Snapshot, points []waveform.Point, axis waveform.Axis) *Trace {
	cfg := snap.Config
	hdr := snap.Frame.Header()
	samples := snap.Frame.Samples()

	t := &Trace{
		Seq:      snap.Seq,
		Received: snap.Received,
		Trigger:  cfg.Trigger.String(),
		Range:    cfg.Range.String(),
		Coupling: cfg.Coupling.String(),
		Timebase: cfg.Timebase,
		Overlay:  cfg.String(),
		Header:   make([]int, len(hdr)),
		Samples:  make([]int, len(samples)),
		Points:   points,
		Axis:     axis,
	}
	for i, b := range hdr {
		t.Header[i] = int(b)
	}
	for i, b := range samples {
		t.Samples[i] = int(b)
	}
	return t
}

// WithReconstructor records the kernel and oversampling the points were
// made with.
func (t *Trace) WithReconstructor(r *waveform.Reconstructor) *Trace {
	t.Kernel = r.Kernel().Name
	t.Oversample = r.Oversample()
	return t
}

// WriteJSON writes the trace as indented JSON.
func WriteJSON(w io.Writer, t *Trace) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(t); err != nil {
		return fmt.Errorf("failed to encode trace: %w", err)
	}
	return nil
}

// WriteCSV writes one row per point: index, x, y.
func WriteCSV(w io.Writer, points []waveform.Point) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"index", "x", "y"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for i, p := range points {
		row := []string{
			strconv.Itoa(i),
			strconv.FormatFloat(p.X, 'f', 6, 64),
			strconv.FormatFloat(p.Y, 'f', 6, 64),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write point %d: %w", i, err)
		}
	}
	writer.Flush()
	return writer.Error()
}
