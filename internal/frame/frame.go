// Package frame recovers fixed-length instrument frames from the raw
// serial byte stream.
//
// The instrument emits no length prefix and no checksum. A frame starts
// after any byte matching the sync pattern and is complete once 137 more
// bytes have arrived without another sync byte in between.
package frame

const (
	SyncMask = 0x5C // a byte b is a sync marker when b&SyncMask == SyncMask

	HeaderSize = 4   // configuration bytes at the start of a frame
	NumSamples = 128 // sample bytes following the header
	Size       = HeaderSize + NumSamples + 5

	// SampleScale divides a raw sample byte into a voltage fraction.
	SampleScale = 64.0
)

// Frame is one complete instrument readout. It is a value type: copies
// are independent, so a Frame handed to a reader can never be torn by the
// synchronizer collecting the next one.
//
// Only the first HeaderSize+NumSamples bytes carry meaning; the trailing
// bytes are collected (the instrument sends them) and kept verbatim.
type Frame [Size]byte

// Header returns the four configuration bytes.
func (f *Frame) Header() [HeaderSize]byte {
	var h [HeaderSize]byte
	copy(h[:], f[:HeaderSize])
	return h
}

// Samples returns the raw sample payload.
func (f *Frame) Samples() [NumSamples]byte {
	var s [NumSamples]byte
	copy(s[:], f[HeaderSize:HeaderSize+NumSamples])
	return s
}

// IsSync reports whether b is a sync marker.
func IsSync(b byte) bool {
	return b&SyncMask == SyncMask
}
