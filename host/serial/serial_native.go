//go:build !wasm

package serial

import (
	"errors"
	"fmt"
	"sync"

	"github.com/tarm/serial"
)

var ErrNilConfig = errors.New("serial: nil config")

// NativePort wraps a tarm/serial port.
type NativePort struct {
	port *serial.Port
	cfg  Config

	closeOnce sync.Once
	closeErr  error
}

// Open opens the port described by cfg. A zero baud rate selects
// DefaultBaud.
func Open(cfg *Config) (*NativePort, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}
	c := *cfg
	if c.Baud == 0 {
		c.Baud = DefaultBaud
	}

	port, err := serial.OpenPort(&serial.Config{
		Name:        c.Device,
		Baud:        c.Baud,
		ReadTimeout: c.ReadTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", c.Device, err)
	}
	return &NativePort{port: port, cfg: c}, nil
}

var _ Port = (*NativePort)(nil)

func (p *NativePort) Read(b []byte) (int, error) {
	return p.port.Read(b)
}

func (p *NativePort) Write(b []byte) (int, error) {
	return p.port.Write(b)
}

// Close closes the port. It may be called from another goroutine to
// unblock a pending Read, and more than once.
func (p *NativePort) Close() error {
	p.closeOnce.Do(func() {
		p.closeErr = p.port.Close()
	})
	return p.closeErr
}

func (p *NativePort) Flush() error {
	return p.port.Flush()
}

// Config returns the settings the port was opened with.
func (p *NativePort) Config() Config {
	return p.cfg
}
