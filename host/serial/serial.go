// Package serial opens the station's debug UART from the host.
package serial

import (
	"io"
	"time"
)

// DefaultBaud is the debug UART rate of the station firmware.
const DefaultBaud = 115200

// Port is an open serial line.
type Port interface {
	io.ReadWriteCloser

	// Flush discards data received but not read.
	Flush() error
}

// Config holds serial port configuration.
type Config struct {
	// Device path, e.g. "/dev/ttyUSB0" or "COM3".
	Device string

	Baud int

	// ReadTimeout bounds a Read; 0 blocks.
	ReadTimeout time.Duration
}

// DefaultConfig returns the configuration of the debug UART on device.
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        DefaultBaud,
		ReadTimeout: 100 * time.Millisecond,
	}
}
