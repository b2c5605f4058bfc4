package sim

import (
	"errors"
	"fmt"

	"tinygo.org/x/drivers"
	"tinygo.org/x/drivers/at24cx"

	"unisolder/core"
	"unisolder/i2cbus"
)

// ErrNack is returned for a transaction to an absent or busy device.
var ErrNack = errors.New("i2c: address not acknowledged")

// Device is a simulated I2C slave.
type Device interface {
	Tx(w, r []byte) error

	// Ready reports whether the device acknowledges its address.
	Ready() bool
}

// Bus is a simulated I2C bus. It implements drivers.I2C and i2cbus.Prober.
type Bus struct {
	devs  map[uint16]Device
	txns  uint32
	nacks uint32
}

var (
	_ drivers.I2C   = (*Bus)(nil)
	_ i2cbus.Prober = (*Bus)(nil)
)

func NewBus() *Bus {
	return &Bus{devs: make(map[uint16]Device)}
}

// Attach places dev at addr, replacing any previous device.
func (b *Bus) Attach(addr uint16, dev Device) {
	b.devs[addr] = dev
}

// Detach removes the device at addr.
func (b *Bus) Detach(addr uint16) {
	delete(b.devs, addr)
}

func (b *Bus) Tx(addr uint16, w, r []byte) error {
	b.txns++
	dev, ok := b.devs[addr]
	if !ok || !dev.Ready() {
		b.nacks++
		return fmt.Errorf("0x%02X: %w", addr, ErrNack)
	}
	return dev.Tx(w, r)
}

func (b *Bus) Probe(addr uint16) bool {
	dev, ok := b.devs[addr]
	return ok && dev.Ready()
}

// Transactions returns the number of Tx calls and how many were not
// acknowledged.
func (b *Bus) Transactions() (total, nacked uint32) {
	return b.txns, b.nacks
}

// Rheostat is a digital potentiometer with two wipers and a terminal
// control register. Commands are two bytes: address nibble, command bits
// and the two data MSBs, then the data LSBs.
type Rheostat struct {
	TCON   byte
	Wiper  [2]uint16
	Writes uint32
}

const (
	rheoWiper0 = 0x0
	rheoWiper1 = 0x1
	rheoTCON   = 0x4
)

func (p *Rheostat) Ready() bool { return true }

func (p *Rheostat) Tx(w, r []byte) error {
	if len(r) != 0 {
		return errors.New("rheostat: reads not supported")
	}
	if len(w)%2 != 0 {
		return fmt.Errorf("rheostat: odd command length %d", len(w))
	}
	for ; len(w) >= 2; w = w[2:] {
		val := uint16(w[0]&0x03)<<8 | uint16(w[1])
		switch w[0] >> 4 {
		case rheoWiper0:
			p.Wiper[0] = val
		case rheoWiper1:
			p.Wiper[1] = val
		case rheoTCON:
			p.TCON = byte(val)
		default:
			return fmt.Errorf("rheostat: register 0x%X", w[0]>>4)
		}
		p.Writes++
	}
	return nil
}

// DAC is a 10-bit voltage DAC taking the write-volatile-register command.
type DAC struct {
	Code   uint16
	Writes uint32
}

const dacWriteVolatile = 0x58

func (d *DAC) Ready() bool { return true }

func (d *DAC) Tx(w, r []byte) error {
	if len(w) != 3 || w[0] != dacWriteVolatile {
		return fmt.Errorf("dac: unexpected command % X", w)
	}
	d.Code = uint16(w[1])<<2 | uint16(w[2]>>6)
	d.Writes++
	return nil
}

// EEPROM is a 24C32: 4KiB, 32 byte pages, two address bytes. After a write
// the device does not acknowledge for WriteCycle µs of simulated time.
type EEPROM struct {
	Mem        [core.EEPROMSize]byte
	WriteCycle uint32

	now        func() uint64
	ptr        uint16
	busyUntil  uint64
	instant    bool
	PageWrites uint32
}

func newEEPROM(now func() uint64, cycle uint32) *EEPROM {
	e := &EEPROM{WriteCycle: cycle, now: now}
	for i := range e.Mem {
		e.Mem[i] = 0xFF
	}
	return e
}

func (e *EEPROM) Ready() bool {
	return e.instant || e.now() >= e.busyUntil
}

func (e *EEPROM) Tx(w, r []byte) error {
	if len(w) == 1 {
		return errors.New("eeprom: incomplete address")
	}
	if len(w) >= 2 {
		e.ptr = (uint16(w[0])<<8 | uint16(w[1])) % core.EEPROMSize
		if data := w[2:]; len(data) > 0 {
			if len(data) > core.EEPROMPageSize {
				return fmt.Errorf("eeprom: %d bytes exceed a page", len(data))
			}
			// the address counter wraps within the page
			base := e.ptr &^ (core.EEPROMPageSize - 1)
			off := e.ptr
			for _, b := range data {
				e.Mem[base|off%core.EEPROMPageSize] = b
				off++
			}
			e.ptr = base | off%core.EEPROMPageSize
			e.PageWrites++
			if !e.instant {
				e.busyUntil = e.now() + uint64(e.WriteCycle)
			}
		}
	}
	for i := range r {
		r[i] = e.Mem[e.ptr]
		e.ptr = (e.ptr + 1) % core.EEPROMSize
	}
	return nil
}

// Devices are the parts fitted on the station's I2C bus.
type Devices struct {
	CurrentPot *Rheostat
	GainPot    *Rheostat
	OffsetDAC  *DAC
	EEPROM     *EEPROM
}

func attachDevices(b *Bus, now func() uint64, writeCycle uint32) Devices {
	d := Devices{
		CurrentPot: &Rheostat{},
		GainPot:    &Rheostat{},
		OffsetDAC:  &DAC{},
		EEPROM:     newEEPROM(now, writeCycle),
	}
	b.Attach(uint16(core.AddrCurrentPot), d.CurrentPot)
	b.Attach(uint16(core.AddrGainPot), d.GainPot)
	b.Attach(uint16(core.AddrOffsetDAC), d.OffsetDAC)
	b.Attach(uint16(core.AddrEEPROM), d.EEPROM)
	return d
}

// eepromDriver opens the bus EEPROM with the stock driver, bypassing the
// simulated write cycle. The driver paces its page writes with real sleeps.
func (s *Station) eepromDriver() (*at24cx.Device, func()) {
	dev := at24cx.New(s.Bus)
	dev.Address = uint16(core.AddrEEPROM)
	dev.Configure(at24cx.Config{
		PageSize:      core.EEPROMPageSize,
		EndRAMAddress: core.EEPROMSize,
	})
	s.Devices.EEPROM.instant = true
	return &dev, func() { s.Devices.EEPROM.instant = false }
}

// LoadEEPROM writes data at off through the bus, the way a programmer
// would before the station boots.
func (s *Station) LoadEEPROM(off uint16, data []byte) error {
	if err := checkRange(off, len(data)); err != nil {
		return err
	}
	dev, done := s.eepromDriver()
	defer done()
	if _, err := dev.WriteAt(data, int64(off)); err != nil {
		return fmt.Errorf("eeprom preload: %w", err)
	}
	return nil
}

// DumpEEPROM reads n bytes at off through the bus.
func (s *Station) DumpEEPROM(off uint16, n int) ([]byte, error) {
	if err := checkRange(off, n); err != nil {
		return nil, err
	}
	dev, done := s.eepromDriver()
	defer done()
	buf := make([]byte, n)
	if _, err := dev.ReadAt(buf, int64(off)); err != nil {
		return nil, fmt.Errorf("eeprom dump: %w", err)
	}
	return buf, nil
}

func checkRange(off uint16, n int) error {
	if n <= 0 || int(off)+n > core.EEPROMSize {
		return fmt.Errorf("eeprom: %d bytes at 0x%03X: %w", n, off, core.ErrEEPROMRange)
	}
	return nil
}
