// Package capture records completed instrument frames to disk and reads
// them back for offline inspection and replay.
//
// File layout, little endian:
//
//	magic        "OZSIF"
//	version      uint16
//	created      int64 seconds, int32 nanoseconds
//	device       uint8 length + bytes
//	records...   int64 unix nanoseconds + 137 frame bytes
package capture

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"oszifox-viewer/internal/frame"
)

const (
	magic         = "OZSIF"
	FormatVersion = 1

	recordSize = 8 + frame.Size
)

// Header describes a capture file.
type Header struct {
	FileFormatVersion uint16
	Created           time.Time
	Device            string
}

// Record is one captured frame.
type Record struct {
	Time  time.Time
	Frame frame.Frame
}

// Writer appends frames to a capture file.
type Writer struct {
	file  *os.File
	w     *bufio.Writer
	count int
}

// Create creates filename and writes the capture header.
func Create(filename string, header Header) (*Writer, error) {
	file, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create capture file: %w", err)
	}

	w := &Writer{file: file, w: bufio.NewWriter(file)}
	if err := w.writeHeader(header); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	return w, nil
}

func (w *Writer) writeHeader(h Header) error {
	if h.FileFormatVersion == 0 {
		h.FileFormatVersion = FormatVersion
	}
	if _, err := w.w.WriteString(magic); err != nil {
		return err
	}
	if err := binary.Write(w.w, binary.LittleEndian, h.FileFormatVersion); err != nil {
		return err
	}
	if err := binary.Write(w.w, binary.LittleEndian, h.Created.Unix()); err != nil {
		return err
	}
	if err := binary.Write(w.w, binary.LittleEndian, int32(h.Created.Nanosecond())); err != nil {
		return err
	}

	device := []byte(h.Device)
	if len(device) > 255 {
		device = device[:255]
	}
	if err := w.w.WriteByte(uint8(len(device))); err != nil {
		return err
	}
	_, err := w.w.Write(device)
	return err
}

// WriteFrame appends one frame received at t.
func (w *Writer) WriteFrame(t time.Time, f frame.Frame) error {
	var rec [recordSize]byte
	binary.LittleEndian.PutUint64(rec[:8], uint64(t.UnixNano()))
	copy(rec[8:], f[:])
	if _, err := w.w.Write(rec[:]); err != nil {
		return fmt.Errorf("failed to write frame %d: %w", w.count, err)
	}
	w.count++
	return nil
}

// Count returns the number of frames written so far.
func (w *Writer) Count() int {
	return w.count
}

// Flush writes buffered frames to the file.
func (w *Writer) Flush() error {
	return w.w.Flush()
}

// Close flushes and closes the file.
func (w *Writer) Close() error {
	if err := w.w.Flush(); err != nil {
		w.file.Close()
		return fmt.Errorf("failed to flush capture file: %w", err)
	}
	return w.file.Close()
}

// Reader reads a capture file record by record.
type Reader struct {
	r      *bufio.Reader
	header Header
}

// NewReader reads and validates the capture header from r.
func NewReader(r io.Reader) (*Reader, error) {
	cr := &Reader{r: bufio.NewReader(r)}
	if err := cr.readHeader(); err != nil {
		return nil, err
	}
	return cr, nil
}

func (cr *Reader) readHeader() error {
	m := make([]byte, len(magic))
	if _, err := io.ReadFull(cr.r, m); err != nil {
		return fmt.Errorf("failed to read magic: %w", err)
	}
	if string(m) != magic {
		return fmt.Errorf("invalid file format")
	}

	h := &cr.header
	if err := binary.Read(cr.r, binary.LittleEndian, &h.FileFormatVersion); err != nil {
		return fmt.Errorf("failed to read format version: %w", err)
	}
	if h.FileFormatVersion != FormatVersion {
		return fmt.Errorf("unsupported format version %d", h.FileFormatVersion)
	}

	var (
		sec  int64
		nsec int32
	)
	if err := binary.Read(cr.r, binary.LittleEndian, &sec); err != nil {
		return fmt.Errorf("failed to read creation time: %w", err)
	}
	if err := binary.Read(cr.r, binary.LittleEndian, &nsec); err != nil {
		return fmt.Errorf("failed to read creation time: %w", err)
	}
	h.Created = time.Unix(sec, int64(nsec))

	n, err := cr.r.ReadByte()
	if err != nil {
		return fmt.Errorf("failed to read device name: %w", err)
	}
	device := make([]byte, n)
	if _, err := io.ReadFull(cr.r, device); err != nil {
		return fmt.Errorf("failed to read device name: %w", err)
	}
	h.Device = string(device)
	return nil
}

// Header returns the capture header.
func (cr *Reader) Header() Header {
	return cr.header
}

// Next returns the next record, or io.EOF after the last one. A file
// cut in the middle of a record yields io.ErrUnexpectedEOF.
func (cr *Reader) Next() (Record, error) {
	var rec [recordSize]byte
	if _, err := io.ReadFull(cr.r, rec[:]); err != nil {
		return Record{}, err
	}
	var r Record
	r.Time = time.Unix(0, int64(binary.LittleEndian.Uint64(rec[:8])))
	copy(r.Frame[:], rec[8:])
	return r, nil
}

// ReadFile reads the complete capture file.
func ReadFile(filename string) (*Header, []Record, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	cr, err := NewReader(file)
	if err != nil {
		return nil, nil, err
	}

	var records []Record
	for {
		rec, err := cr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read record %d: %w", len(records), err)
		}
		records = append(records, rec)
	}
	h := cr.Header()
	return &h, records, nil
}

// ReadHeader reads only the header and returns the number of complete
// records that follow it.
func ReadHeader(filename string) (*Header, int, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	cr, err := NewReader(file)
	if err != nil {
		return nil, 0, err
	}
	info, err := file.Stat()
	if err != nil {
		return nil, 0, err
	}
	h := cr.Header()
	headerSize := int64(len(magic) + 2 + 8 + 4 + 1 + len(h.Device))
	return &h, int((info.Size() - headerSize) / recordSize), nil
}

// Stream returns the records re-encoded as the instrument's serial
// stream, one sync byte before each frame, ready to be fed to the
// acquisition loop.
func Stream(records []Record) io.Reader {
	var buf bytes.Buffer
	buf.Grow(len(records) * (frame.Size + 1))
	for _, r := range records {
		buf.WriteByte(frame.SyncMask)
		buf.Write(r.Frame[:])
	}
	return &buf
}

// Replay opens a capture file and returns its frames as an instrument
// byte stream.
func Replay(filename string) (io.Reader, *Header, error) {
	h, records, err := ReadFile(filename)
	if err != nil {
		return nil, nil, err
	}
	return Stream(records), h, nil
}
