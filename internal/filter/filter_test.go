package filter

import (
	"math"
	"testing"
)

const tolerance = 1e-12

func TestKernelSymmetry(t *testing.T) {
	for _, k := range []Kernel{BSpline, Lanczos3} {
		for x := 0.0; x <= float64(k.Support)+1; x += 0.0625 {
			if got, want := k.At(-x), k.At(x); math.Abs(got-want) > tolerance {
				t.Errorf("%s: At(%v)=%v, At(-%v)=%v", k.Name, x, want, x, got)
			}
		}
	}
}

func TestKernelCompactSupport(t *testing.T) {
	for _, k := range []Kernel{BSpline, Lanczos3} {
		r := float64(k.Support)
		for _, x := range []float64{r, r + 1e-9, r + 0.5, r * 10, math.Inf(1)} {
			if v := k.At(x); v != 0 {
				t.Errorf("%s: At(%v)=%v, want 0", k.Name, x, v)
			}
			if v := k.At(-x); v != 0 {
				t.Errorf("%s: At(-%v)=%v, want 0", k.Name, x, v)
			}
		}
	}
}

func TestBSplineValues(t *testing.T) {
	for _, tc := range []struct {
		t    float64
		want float64
	}{
		{0, 2.0 / 3.0},
		{0.5, 0.5*0.125 - 0.25 + 2.0/3.0},
		{1, 1.0 / 6.0},
		{1.5, 0.125 / 6.0},
		{-1, 1.0 / 6.0},
		{2, 0},
	} {
		if got := BSpline.At(tc.t); math.Abs(got-tc.want) > tolerance {
			t.Errorf("BSpline.At(%v)=%v, want %v", tc.t, got, tc.want)
		}
	}
}

func TestBSplinePartitionOfUnity(t *testing.T) {
	for pos := -3.0; pos <= 3.0; pos += 0.1 {
		sum := 0.0
		for j := -6; j <= 6; j++ {
			sum += BSpline.At(pos - float64(j))
		}
		if math.Abs(sum-1) > 1e-9 {
			t.Errorf("sum of weights at %v = %v, want 1", pos, sum)
		}
	}
}

func TestLanczos3Values(t *testing.T) {
	if got := Lanczos3.At(0); got != 1 {
		t.Errorf("Lanczos3.At(0)=%v, want exactly 1", got)
	}
	for _, x := range []float64{1, 2, -1, -2} {
		if got := Lanczos3.At(x); math.Abs(got) > tolerance {
			t.Errorf("Lanczos3.At(%v)=%v, want 0 at integer offsets", x, got)
		}
	}
	want := sinc(0.5) * sinc(0.5/3)
	if got := Lanczos3.At(0.5); math.Abs(got-want) > tolerance {
		t.Errorf("Lanczos3.At(0.5)=%v, want %v", got, want)
	}
}

func TestByName(t *testing.T) {
	for _, tc := range []struct {
		name string
		want string
		err  bool
	}{
		{"", "bspline", false},
		{"bspline", "bspline", false},
		{"B-Spline", "bspline", false},
		{"lanczos3", "lanczos3", false},
		{" Lanczos ", "lanczos3", false},
		{"gaussian", "", true},
	} {
		k, err := ByName(tc.name)
		if tc.err {
			if err == nil {
				t.Errorf("ByName(%q): expected an error", tc.name)
			}
			continue
		}
		if err != nil {
			t.Errorf("ByName(%q): %v", tc.name, err)
			continue
		}
		if k.Name != tc.want {
			t.Errorf("ByName(%q)=%s, want %s", tc.name, k.Name, tc.want)
		}
	}
}
