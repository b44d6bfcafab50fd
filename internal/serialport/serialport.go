// Package serialport opens the instrument's serial link.
package serialport

import (
	"fmt"
	"io"
	"log"
	"time"

	"go.bug.st/serial"

	"oszifox-viewer/internal/config"
)

// Port is the part of a serial port the viewer uses. A Read that times
// out returns 0 bytes and a nil error.
type Port interface {
	io.ReadCloser
}

// Mode returns the line settings for cfg. The instrument talks 7N1.
func Mode(cfg config.SerialConfig) *serial.Mode {
	return &serial.Mode{
		BaudRate: cfg.BaudRate,
		Parity:   serial.NoParity,
		DataBits: cfg.DataBits,
		StopBits: serial.OneStopBit,
	}
}

// Open opens the configured device with a read timeout, so that a
// reader polling it never blocks longer than cfg.ReadTimeout.
func Open(cfg config.SerialConfig) (Port, error) {
	port, err := serial.Open(cfg.Port, Mode(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", cfg.Port, err)
	}

	timeout := cfg.ReadTimeout
	if timeout <= 0 {
		timeout = DefaultReadTimeout
	}
	if err := port.SetReadTimeout(timeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to set read timeout on %s: %w", cfg.Port, err)
	}

	// Stale bytes from before we opened the port are of no use.
	if err := port.ResetInputBuffer(); err != nil {
		log.Printf("serial: could not flush input buffer on %s: %v", cfg.Port, err)
	}

	log.Printf("serial: opened %s at %d baud, %d data bits", cfg.Port, cfg.BaudRate, cfg.DataBits)
	return port, nil
}

// List returns the serial ports present on the system.
func List() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate serial ports: %w", err)
	}
	return ports, nil
}

// DefaultReadTimeout is used when a configuration leaves it unset.
const DefaultReadTimeout = 100 * time.Millisecond
