package waveform

import (
	"math"
	"sort"
	"testing"

	"oszifox-viewer/internal/filter"
	"oszifox-viewer/internal/frame"
)

const tolerance = 1e-9

func constant(v byte) [frame.NumSamples]byte {
	var s [frame.NumSamples]byte
	for i := range s {
		s[i] = v
	}
	return s
}

func ramp() [frame.NumSamples]byte {
	var s [frame.NumSamples]byte
	for i := range s {
		s[i] = byte(i / 2)
	}
	return s
}

func mustNew(t *testing.T, k filter.Kernel, oversample int) *Reconstructor {
	t.Helper()
	r, err := New(k, oversample)
	if err != nil {
		t.Fatalf("New(%s, %d): %v", k.Name, oversample, err)
	}
	return r
}

func TestNewRejectsBadOversample(t *testing.T) {
	for _, os := range []int{0, -1, -5} {
		if _, err := New(filter.BSpline, os); err == nil {
			t.Errorf("New(bspline, %d): expected an error", os)
		}
	}
	if _, err := New(filter.Kernel{}, 5); err == nil {
		t.Errorf("New with a zero kernel: expected an error")
	}
}

func TestReconstructLength(t *testing.T) {
	for _, os := range []int{1, 2, 5, 8} {
		r := mustNew(t, filter.BSpline, os)
		pts := r.Reconstruct(ramp(), 0, 0)
		if len(pts) != os*130 || len(pts) != r.Len() {
			t.Errorf("oversample %d: got %d points, want %d", os, len(pts), os*130)
		}
	}
}

func TestReconstructConstantInput(t *testing.T) {
	for _, v := range []byte{0, 1, 32, 63, 128, 255} {
		for _, os := range []int{1, 3, 5, 16} {
			r := mustNew(t, filter.BSpline, os)
			want := float64(v) / 64.0
			for i, a := range r.Amplitudes(constant(v)) {
				if math.Abs(a-want) > tolerance {
					t.Fatalf("v=%d os=%d: amplitude[%d]=%v, want %v", v, os, i, a, want)
				}
			}
		}
	}
}

func TestReconstructOrdering(t *testing.T) {
	for _, k := range []filter.Kernel{filter.BSpline, filter.Lanczos3} {
		r := mustNew(t, k, DefaultOversample)
		pts := r.Reconstruct(ramp(), 17, -4)
		if !sort.SliceIsSorted(pts, func(i, j int) bool { return pts[i].X < pts[j].X }) {
			t.Errorf("%s: points are not ordered left to right", k.Name)
		}
		first, last := pts[0].X, pts[len(pts)-1].X
		wantFirst := float64(-DefaultOversample+17) / float64(DefaultOversample*frame.NumSamples)
		wantLast := float64(DefaultOversample*129-1+17) / float64(DefaultOversample*frame.NumSamples)
		if math.Abs(first-wantFirst) > tolerance || math.Abs(last-wantLast) > tolerance {
			t.Errorf("%s: x span [%v, %v], want [%v, %v]", k.Name, first, last, wantFirst, wantLast)
		}
	}
}

func TestReconstructOffsetLinearity(t *testing.T) {
	r := mustNew(t, filter.Lanczos3, DefaultOversample)
	base := r.Reconstruct(ramp(), 0, 0)
	for _, d := range []int{1, -1, 25, -300, 10000} {
		shifted := r.Reconstruct(ramp(), 0, d)
		for i := range base {
			if got, want := shifted[i].Y-base[i].Y, float64(d)*0.01; math.Abs(got-want) > tolerance {
				t.Fatalf("dy=%d: point %d shifted by %v, want %v", d, i, got, want)
			}
			if shifted[i].X != base[i].X {
				t.Fatalf("dy=%d: point %d moved horizontally", d, i)
			}
		}
	}
	for _, d := range []int{1, -7, 640} {
		shifted := r.Reconstruct(ramp(), d, 0)
		step := float64(d) / float64(DefaultOversample*frame.NumSamples)
		for i := range base {
			if got := shifted[i].X - base[i].X; math.Abs(got-step) > tolerance {
				t.Fatalf("dx=%d: point %d shifted by %v, want %v", d, i, got, step)
			}
			if shifted[i].Y != base[i].Y {
				t.Fatalf("dx=%d: point %d moved vertically", d, i)
			}
		}
	}
}

func TestReconstructEdgeClamping(t *testing.T) {
	// Samples are 8 before index 64 and 40 from there on. The edges must
	// settle on the edge sample values rather than tapering to zero.
	var s [frame.NumSamples]byte
	for i := range s {
		if i < 64 {
			s[i] = 8
		} else {
			s[i] = 40
		}
	}
	r := mustNew(t, filter.BSpline, DefaultOversample)
	amps := r.Amplitudes(s)
	if got, want := amps[0], 8.0/64; math.Abs(got-want) > tolerance {
		t.Errorf("left edge=%v, want %v", got, want)
	}
	if got, want := amps[len(amps)-1], 40.0/64; math.Abs(got-want) > tolerance {
		t.Errorf("right edge=%v, want %v", got, want)
	}
}

func TestReconstructInterpolatesSamples(t *testing.T) {
	// At integer positions the B-spline weights are 1/6, 2/3, 1/6.
	s := ramp()
	r := mustNew(t, filter.BSpline, DefaultOversample)
	amps := r.Amplitudes(s)
	for _, j := range []int{10, 50, 100} {
		k := (j + 1) * DefaultOversample
		want := (float64(s[j-1]) + 4*float64(s[j]) + float64(s[j+1])) / 6 / 64
		if math.Abs(amps[k]-want) > tolerance {
			t.Errorf("amplitude at sample %d = %v, want %v", j, amps[k], want)
		}
	}

	// Lanczos passes exactly through the samples.
	rl := mustNew(t, filter.Lanczos3, DefaultOversample)
	lamps := rl.Amplitudes(s)
	for _, j := range []int{3, 64, 124} {
		k := (j + 1) * DefaultOversample
		if want := float64(s[j]) / 64; math.Abs(lamps[k]-want) > 1e-6 {
			t.Errorf("lanczos amplitude at sample %d = %v, want %v", j, lamps[k], want)
		}
	}
}

func TestReconstructUnclampedOutput(t *testing.T) {
	r := mustNew(t, filter.BSpline, DefaultOversample)
	pts := r.Reconstruct(constant(128), 0, 0)
	want := YMin + (YMax-YMin)*2.0
	for i, p := range pts {
		if math.Abs(p.Y-want) > tolerance {
			t.Fatalf("point %d: y=%v, want %v", i, p.Y, want)
		}
	}
	if want <= YMax {
		t.Fatalf("test expects an off-scale trace")
	}
}

func TestReconstructFrame(t *testing.T) {
	var f frame.Frame
	for i := 0; i < frame.NumSamples; i++ {
		f[frame.HeaderSize+i] = 16
	}
	f[0], f[1], f[2], f[3] = 0x3C, 9, 0x40, 0x7F // header must not leak into the trace
	r := mustNew(t, filter.BSpline, 2)
	pts := r.ReconstructFrame(f, Offset{DeltaY: 10})
	want := YMin + 0.1 + (YMax-YMin)*0.25
	for i, p := range pts {
		if math.Abs(p.Y-want) > tolerance {
			t.Fatalf("point %d: y=%v, want %v", i, p.Y, want)
		}
	}
}
