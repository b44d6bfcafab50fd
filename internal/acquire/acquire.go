// Package acquire runs the instrument read loop: it feeds the serial
// stream through the frame synchronizer and publishes every completed
// frame as an immutable snapshot.
package acquire

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"oszifox-viewer/internal/decoder"
	"oszifox-viewer/internal/frame"
	"oszifox-viewer/internal/waveform"
)

// Snapshot is one completed frame with its decoded configuration.
type Snapshot struct {
	Seq      uint64 // 1 for the first frame
	Received time.Time
	Frame    frame.Frame
	Config   decoder.Config
}

// Options tunes the read loop.
type Options struct {
	PollInterval time.Duration // idle wait while paused
	ReadSize     int           // bytes requested per read
	Debug        bool
}

func (o *Options) setDefaults() {
	if o.PollInterval <= 0 {
		o.PollInterval = 20 * time.Millisecond
	}
	if o.ReadSize <= 0 {
		o.ReadSize = 64
	}
}

// Acquirer owns the frame synchronizer. Only the goroutine calling Run
// (or Feed) touches it; everything it publishes is a copy.
type Acquirer struct {
	opts Options
	view *waveform.View
	syn  *frame.Synchronizer

	seq     uint64
	pending []byte // bytes read but not fed because the view was paused
	latest  atomic.Pointer[Snapshot]
	stats   atomic.Pointer[frame.Stats]

	mu        sync.Mutex
	listeners []func(Snapshot)

	now func() time.Time
}

// New returns an acquirer gated by view's pause flag.
func New(view *waveform.View, opts Options) *Acquirer {
	opts.setDefaults()
	s := frame.NewSynchronizer()
	s.SetDebug(opts.Debug)
	a := &Acquirer{
		opts: opts,
		view: view,
		syn:  s,
		now:  time.Now,
	}
	a.stats.Store(&frame.Stats{})
	return a
}

// AddListener registers fn to be called with every new snapshot. It is
// called on the acquisition goroutine and must not block.
func (a *Acquirer) AddListener(fn func(Snapshot)) {
	a.mu.Lock()
	a.listeners = append(a.listeners, fn)
	a.mu.Unlock()
}

// Latest returns the most recent snapshot. The boolean is false until a
// frame has completed, in which case the caller shows a placeholder.
func (a *Acquirer) Latest() (Snapshot, bool) {
	s := a.latest.Load()
	if s == nil {
		return Snapshot{}, false
	}
	return *s, true
}

// Stats returns the synchronizer counters as of the last processed read.
func (a *Acquirer) Stats() frame.Stats {
	return *a.stats.Load()
}

// Feed consumes one byte of the instrument stream, publishing and
// returning a snapshot when the byte completes a frame.
func (a *Acquirer) Feed(b byte) (Snapshot, bool) {
	f, ok := a.syn.Feed(b)
	if !ok {
		return Snapshot{}, false
	}

	a.seq++
	snap := &Snapshot{
		Seq:      a.seq,
		Received: a.now(),
		Frame:    f,
		Config:   decoder.Decode(f),
	}
	a.latest.Store(snap)

	if a.opts.Debug {
		log.Printf("acquire: frame %d: %v", snap.Seq, snap.Config)
	}

	a.mu.Lock()
	listeners := a.listeners
	a.mu.Unlock()
	for _, fn := range listeners {
		fn(*snap)
	}
	return *snap, true
}

// Run reads r until it is exhausted, fails, or ctx is cancelled. While
// the view is paused nothing is read and the partial frame is kept.
//
// A read returning no bytes means none were available (a serial read
// timeout) and is not an error. io.EOF ends the run without error. Run
// checks ctx between reads, so r should not block indefinitely.
func (a *Acquirer) Run(ctx context.Context, r io.Reader) error {
	buf := make([]byte, a.opts.ReadSize)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if a.paused() {
			select {
			case <-time.After(a.opts.PollInterval):
				continue
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		if len(a.pending) > 0 {
			a.pending = a.consume(a.pending)
			a.publishStats()
			continue
		}

		n, err := r.Read(buf)
		if n > 0 {
			// Copy out: consume may keep the tail until unpaused.
			a.pending = a.consume(append([]byte(nil), buf[:n]...))
			a.publishStats()
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				// Flush whatever a pause held back, then stop.
				for len(a.pending) > 0 && ctx.Err() == nil {
					if a.paused() {
						time.Sleep(a.opts.PollInterval)
						continue
					}
					a.pending = a.consume(a.pending)
				}
				a.publishStats()
				return nil
			}
			return fmt.Errorf("acquire: read failed: %w", err)
		}
	}
}

// consume feeds p until the view is paused and returns the unfed rest.
func (a *Acquirer) consume(p []byte) []byte {
	for i, b := range p {
		if a.paused() {
			return p[i:]
		}
		a.Feed(b)
	}
	return nil
}

func (a *Acquirer) paused() bool {
	return a.view != nil && a.view.Paused()
}

func (a *Acquirer) publishStats() {
	s := a.syn.Stats()
	a.stats.Store(&s)
}
