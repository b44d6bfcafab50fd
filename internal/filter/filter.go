// Package filter provides the interpolation kernels used to reconstruct
// a smooth trace from the instrument's coarse sample grid.
package filter

import (
	"fmt"
	"math"
	"strings"
)

// Kernel is a symmetric interpolation kernel with compact support.
// The evaluation function is bound when the kernel is built, so callers
// holding a Kernel never branch on its family per sample.
type Kernel struct {
	Name    string // Configuration name ("bspline", "lanczos3")
	Support int    // Radius beyond which the kernel is exactly zero
	fn      func(t float64) float64
}

// At evaluates the kernel at offset t.
func (k Kernel) At(t float64) float64 {
	return k.fn(t)
}

func (k Kernel) String() string {
	return fmt.Sprintf("%s(support=%d)", k.Name, k.Support)
}

// BSpline is the cubic B-spline kernel, support radius 2.
var BSpline = Kernel{Name: "bspline", Support: 2, fn: bspline}

// Lanczos3 is the windowed-sinc kernel of order 3, support radius 3.
var Lanczos3 = Kernel{Name: "lanczos3", Support: 3, fn: lanczos3}

// Default is the kernel used when none is configured.
var Default = BSpline

// ByName returns the kernel registered under name (case insensitive).
func ByName(name string) (Kernel, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "bspline", "b-spline":
		return BSpline, nil
	case "lanczos3", "lanczos":
		return Lanczos3, nil
	}
	return Kernel{}, fmt.Errorf("filter: unknown kernel %q (must be 'bspline' or 'lanczos3')", name)
}

// Names lists the configuration names of the available kernels.
func Names() []string {
	return []string{BSpline.Name, Lanczos3.Name}
}

func bspline(t float64) float64 {
	t = math.Abs(t)
	switch {
	case t < 1:
		tt := t * t
		return 0.5*tt*t - tt + 2.0/3.0
	case t < 2:
		t = 2 - t
		return t * t * t / 6
	}
	return 0
}

// sinc is the normalized sinc, with sinc(0) == 1 exactly.
func sinc(x float64) float64 {
	if x == 0 {
		return 1
	}
	return math.Sin(math.Pi*x) / (math.Pi * x)
}

func lanczos3(t float64) float64 {
	t = math.Abs(t)
	if t < 3 {
		return sinc(t) * sinc(t/3)
	}
	return 0
}
