// Package simulator provides a synthetic instrument byte stream, used
// when no hardware is attached and as the reference device in tests.
package simulator

import (
	"fmt"
	"io"
	"math"
	"math/rand"
	"time"

	"oszifox-viewer/internal/frame"
)

// Wave is the simulated input signal shape.
type Wave int

const (
	Sine Wave = iota
	Square
	Triangle
)

func (w Wave) String() string {
	switch w {
	case Sine:
		return "sine"
	case Square:
		return "square"
	case Triangle:
		return "triangle"
	}
	return fmt.Sprintf("Wave(%d)", int(w))
}

// ParseWave returns the wave named s.
func ParseWave(s string) (Wave, error) {
	switch s {
	case "", "sine":
		return Sine, nil
	case "square":
		return Square, nil
	case "triangle":
		return Triangle, nil
	}
	return 0, fmt.Errorf("simulator: unknown wave %q (must be 'sine', 'square' or 'triangle')", s)
}

// Options controls the simulated stream.
type Options struct {
	Wave   Wave
	Cycles float64 // signal periods per frame
	Header [frame.HeaderSize]byte

	Noise       int           // maximum number of noise bytes between frames
	FramePeriod time.Duration // pause before each frame; zero streams as fast as read
	Frames      int           // frames to emit before io.EOF; zero is unlimited
	Seed        int64
}

// DefaultOptions is a 2-cycle sine on the 1V range, DC coupled, 10µs
// timebase, paced like the instrument at 19200 baud.
func DefaultOptions() Options {
	return Options{
		Wave:        Sine,
		Cycles:      2,
		Header:      [frame.HeaderSize]byte{0x20, 5, 0x40, 0},
		Noise:       0,
		FramePeriod: 70 * time.Millisecond,
	}
}

// Instrument is an io.Reader yielding the instrument's serial stream.
type Instrument struct {
	opts  Options
	rng   *rand.Rand
	phase float64
	count int
	buf   []byte
	sleep func(time.Duration)
}

// New returns a simulated instrument.
func New(opts Options) *Instrument {
	if opts.Cycles == 0 {
		opts.Cycles = 1
	}
	return &Instrument{
		opts:  opts,
		rng:   rand.New(rand.NewSource(opts.Seed)),
		sleep: time.Sleep,
	}
}

// Read fills p with the next bytes of the stream.
func (in *Instrument) Read(p []byte) (int, error) {
	if len(in.buf) == 0 {
		if in.opts.Frames > 0 && in.count >= in.opts.Frames {
			return 0, io.EOF
		}
		if in.opts.FramePeriod > 0 {
			in.sleep(in.opts.FramePeriod)
		}
		in.buf = in.next()
	}
	n := copy(p, in.buf)
	in.buf = in.buf[n:]
	return n, nil
}

// Close is a no-op, so an Instrument can stand in for a serial port.
func (in *Instrument) Close() error {
	return nil
}

// next renders the noise, sync byte and body of the next frame.
func (in *Instrument) next() []byte {
	var out []byte
	if in.opts.Noise > 0 {
		for i := in.rng.Intn(in.opts.Noise + 1); i > 0; i-- {
			out = append(out, byte(in.rng.Intn(256)))
		}
	}
	f := in.Frame()
	out = append(out, frame.SyncMask)
	out = append(out, f[:]...)

	in.count++
	in.phase += 0.15
	return out
}

// Frame returns the frame the instrument would send next.
func (in *Instrument) Frame() frame.Frame {
	var f frame.Frame
	copy(f[:], in.opts.Header[:])
	for i := 0; i < frame.NumSamples; i++ {
		f[frame.HeaderSize+i] = in.sample(float64(i) / frame.NumSamples)
	}
	return f
}

// sample returns a six-bit sample, which can never match the sync mask.
func (in *Instrument) sample(x float64) byte {
	const (
		mid = 32
		amp = 24
	)
	cycle := x*in.opts.Cycles + in.phase/(2*math.Pi)
	cycle -= math.Floor(cycle)

	var v float64
	switch in.opts.Wave {
	case Square:
		v = 1
		if cycle >= 0.5 {
			v = -1
		}
	case Triangle:
		v = 4*math.Abs(cycle-0.5) - 1
	default:
		v = math.Sin(2 * math.Pi * cycle)
	}
	return byte(math.Round(mid+amp*v)) & 0x3F
}
