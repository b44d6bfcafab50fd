package frame

import "log"

// seeking is the cursor value while waiting for a sync marker.
const seeking = -1

// Stats counts what the synchronizer has done with the stream so far.
type Stats struct {
	Frames    uint64 // completed frames
	Resyncs   uint64 // partial frames dropped by a sync marker
	Discarded uint64 // noise bytes seen while seeking sync
}

// Synchronizer turns a lossy byte stream into complete frames.
//
// A Synchronizer is owned by a single goroutine; it does no locking.
// Completed frames are returned by value and may be shared freely.
type Synchronizer struct {
	cursor  int
	buf     Frame
	last    Frame
	hasData bool
	stats   Stats
	debug   bool
}

// NewSynchronizer returns a synchronizer in the seeking-sync state.
func NewSynchronizer() *Synchronizer {
	return &Synchronizer{cursor: seeking}
}

// SetDebug enables or disables logging of resync events.
func (s *Synchronizer) SetDebug(debug bool) {
	s.debug = debug
}

// Feed consumes one byte. It returns the completed frame, and true, only
// for the byte that fills the last position of a frame.
func (s *Synchronizer) Feed(b byte) (Frame, bool) {
	if IsSync(b) {
		// A sync marker always restarts collection, even mid-frame.
		if s.cursor > 0 {
			s.stats.Resyncs++
			if s.debug {
				log.Printf("frame: resync, dropped %d partial bytes", s.cursor)
			}
		}
		s.cursor = 0
		return Frame{}, false
	}

	if s.cursor == seeking {
		s.stats.Discarded++
		return Frame{}, false
	}

	s.buf[s.cursor] = b
	s.cursor++
	if s.cursor < Size {
		return Frame{}, false
	}

	s.last = s.buf
	s.hasData = true
	s.cursor = seeking
	s.stats.Frames++
	return s.last, true
}

// Write feeds every byte of p in order and returns the frames completed
// along the way. The result does not depend on how the stream is split
// across calls.
func (s *Synchronizer) Write(p []byte) []Frame {
	var frames []Frame
	for _, b := range p {
		if f, ok := s.Feed(b); ok {
			frames = append(frames, f)
		}
	}
	return frames
}

// Last returns the most recently completed frame. The boolean is false
// until a frame has ever completed.
func (s *Synchronizer) Last() (Frame, bool) {
	return s.last, s.hasData
}

// HasData reports whether at least one frame has completed.
func (s *Synchronizer) HasData() bool {
	return s.hasData
}

// Collecting reports whether a frame is currently being collected.
func (s *Synchronizer) Collecting() bool {
	return s.cursor != seeking
}

// Stats returns a copy of the stream counters.
func (s *Synchronizer) Stats() Stats {
	return s.stats
}
