// Package i2cbus adapts the byte-at-a-time bus primitives used by the
// control core to transaction-level I2C buses such as machine.I2C.
package i2cbus

import (
	"errors"

	"tinygo.org/x/drivers"

	"unisolder/core"
)

var (
	ErrBusNotConfigured = errors.New("i2c bus not configured")
	ErrWriteOverflow    = errors.New("i2c write buffer overflow")
)

// Prober is implemented by buses that can tell whether a device
// acknowledges its address without transferring data.
type Prober interface {
	Probe(addr uint16) bool
}

// maxWrite covers an EEPROM page plus its two address bytes.
const maxWrite = 2 + 2*core.EEPROMPageSize

// TxBus implements core.I2CPrimitives on top of drivers.I2C. Written bytes
// are collected between Start and Stop and sent as one transaction. The
// first received byte of a read sends the collected bytes as the register
// address; later bytes continue at the device's address counter.
type TxBus struct {
	bus  drivers.I2C
	wake func()

	open    bool // between Start and Stop
	addr    uint16
	read    bool
	reading bool
	ack     bool

	wbuf [maxWrite]byte
	w    []byte
	rx   [1]byte

	errs uint32
	err  error
}

// New returns a TxBus on bus. wake is called by WakeUp and should raise
// whatever context services the I2C engine.
func New(bus drivers.I2C, wake func()) *TxBus {
	t := &TxBus{bus: bus, wake: wake}
	t.w = t.wbuf[:0]
	return t
}

var _ core.I2CPrimitives = (*TxBus)(nil)

func (t *TxBus) Start() {
	if t.open {
		// repeated start: keep the collected bytes as the read address
		return
	}
	t.open = true
	t.reading = false
	t.w = t.wbuf[:0]
}

func (t *TxBus) Stop() {
	if t.open && !t.read && len(t.w) > 0 {
		t.record(t.tx(t.w, nil))
	}
	t.open = false
	t.reading = false
	t.read = false
	t.w = t.wbuf[:0]
}

func (t *TxBus) SendAddress(addr core.I2CAddress, read bool) {
	t.addr = uint16(addr)
	t.read = read
	switch {
	case read:
		t.ack = true
	case t.bus == nil:
		t.ack = false
	default:
		t.ack = t.addressAck()
	}
}

// addressAck addresses the device and reports whether it acknowledged. Without
// a Prober this is a one byte current-address read, which every device on
// the station's bus accepts and which a busy EEPROM refuses. An expected
// NACK is not counted as a bus error.
func (t *TxBus) addressAck() bool {
	if p, ok := t.bus.(Prober); ok {
		return p.Probe(t.addr)
	}
	return t.bus.Tx(t.addr, nil, t.rx[:]) == nil
}

func (t *TxBus) SendByte(b byte) {
	if len(t.w) == cap(t.w) {
		t.record(ErrWriteOverflow)
		return
	}
	t.w = append(t.w, b)
}

func (t *TxBus) ReceiverEnable()  {}
func (t *TxBus) ReceiverDisable() {}

func (t *TxBus) ReceiveByte() byte {
	var err error
	if !t.reading {
		err = t.tx(t.w, t.rx[:])
		t.reading = true
		t.w = t.wbuf[:0]
	} else {
		err = t.tx(nil, t.rx[:])
	}
	t.record(err)
	if err != nil {
		return 0xFF
	}
	return t.rx[0]
}

// Ack is implicit: the next ReceiveByte continues the sequential read.
func (t *TxBus) Ack() {}

func (t *TxBus) IsAck() bool {
	return t.ack
}

func (t *TxBus) WakeUp() {
	if t.wake != nil {
		t.wake()
	}
}

// Errors returns the number of failed transactions.
func (t *TxBus) Errors() uint32 {
	return t.errs
}

// Err returns the last transaction error.
func (t *TxBus) Err() error {
	return t.err
}

func (t *TxBus) tx(w, r []byte) error {
	if t.bus == nil {
		return ErrBusNotConfigured
	}
	return t.bus.Tx(t.addr, w, r)
}

func (t *TxBus) record(err error) {
	if err != nil {
		t.errs++
		t.err = err
	}
}
