// Package waveform reconstructs a dense display trace from the raw
// instrument samples, and holds the user's display offsets.
package waveform

import (
	"fmt"

	"oszifox-viewer/internal/filter"
	"oszifox-viewer/internal/frame"
)

// Display band, in normalized screen coordinates.
const (
	YMin = 0.1
	YMax = 0.9

	// YStep is the vertical shift of one DeltaY unit.
	YStep = 0.01

	DefaultOversample = 5
)

// Point is one vertex of the trace line strip.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Reconstructor resamples the 128 instrument samples through an
// interpolation kernel.
type Reconstructor struct {
	kernel     filter.Kernel
	oversample int
}

// New returns a reconstructor producing oversample output points per
// input sample interval.
func New(kernel filter.Kernel, oversample int) (*Reconstructor, error) {
	if oversample < 1 {
		return nil, fmt.Errorf("waveform: oversample must be at least 1, got %d", oversample)
	}
	if kernel.Support < 1 {
		return nil, fmt.Errorf("waveform: kernel %q has no support", kernel.Name)
	}
	return &Reconstructor{kernel: kernel, oversample: oversample}, nil
}

func (r *Reconstructor) Kernel() filter.Kernel { return r.kernel }
func (r *Reconstructor) Oversample() int       { return r.oversample }

// Len returns the number of points produced per reconstruction.
func (r *Reconstructor) Len() int {
	return r.oversample * (frame.NumSamples + 2)
}

// Amplitudes returns the reconstructed amplitude at every output position,
// left to right, from one sample interval before the first sample to one
// after the last.
//
// Sample indices outside the frame read the nearest edge sample, but the
// kernel is still weighted by the true distance to the index.
func (r *Reconstructor) Amplitudes(samples [frame.NumSamples]byte) []float64 {
	var (
		over    = r.oversample
		support = r.kernel.Support
		out     = make([]float64, 0, r.Len())
	)

	var levels [frame.NumSamples]float64
	for i, s := range samples {
		levels[i] = float64(s) / frame.SampleScale
	}

	for i := -over; i < over*(frame.NumSamples+1); i++ {
		pos := float64(i) / float64(over)
		jb := i / over // truncates toward zero
		l := 0.0
		for j := jb - support; j <= jb+support; j++ {
			var v float64
			switch {
			case j <= 0:
				v = levels[0]
			case j < frame.NumSamples:
				v = levels[j]
			default:
				v = levels[frame.NumSamples-1]
			}
			l += v * r.kernel.At(pos-float64(j))
		}
		out = append(out, l)
	}
	return out
}

// Reconstruct returns the trace as an ordered line strip, shifted by the
// display offsets. Points are never clamped to the display band.
func (r *Reconstructor) Reconstruct(samples [frame.NumSamples]byte, deltaX, deltaY int) []Point {
	amps := r.Amplitudes(samples)
	pts := make([]Point, len(amps))
	width := float64(r.oversample * frame.NumSamples)
	for k, l := range amps {
		i := k - r.oversample
		pts[k] = Point{
			X: float64(i+deltaX) / width,
			Y: YMin + float64(deltaY)*YStep + (YMax-YMin)*l,
		}
	}
	return pts
}

// ReconstructFrame is Reconstruct applied to a frame's sample payload.
func (r *Reconstructor) ReconstructFrame(f frame.Frame, o Offset) []Point {
	return r.Reconstruct(f.Samples(), o.DeltaX, o.DeltaY)
}
