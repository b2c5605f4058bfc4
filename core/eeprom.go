package core

import "errors"

const (
	// EEPROMSize is the capacity of the 24C32 configuration EEPROM.
	EEPROMSize = 4096

	// EEPROMPageSize is the write page; transfers never cross a page in one
	// bus transaction.
	EEPROMPageSize = 32

	// EEPROMIdleAddress marks a cursor with no transfer in progress.
	EEPROMIdleAddress = 0xFFFF
)

var (
	ErrEEPROMBusy    = errors.New("eeprom transfer already in progress")
	ErrEEPROMRange   = errors.New("eeprom transfer out of range")
	ErrEmptyTransfer = errors.New("empty eeprom transfer")
)

type eepromCursor struct {
	addr      uint16
	remaining uint16
	buf       []byte
}

func (c *eepromCursor) busy() bool {
	return c.addr != EEPROMIdleAddress
}

// advance moves to the next byte. It reports false when the transfer has to
// be split: the next address starts a new page.
func (c *eepromCursor) advance() bool {
	c.buf = c.buf[1:]
	c.addr++
	return c.addr%EEPROMPageSize != 0
}

func checkTransfer(addr uint16, n int) error {
	if n == 0 {
		return ErrEmptyTransfer
	}
	if int(addr)+n > EEPROMSize {
		return ErrEEPROMRange
	}
	return nil
}

// RequestEEPROMWrite queues a write of data at addr. data must not be
// modified until EEPROMWriteBusy returns false.
func (e *I2CEngine) RequestEEPROMWrite(addr uint16, data []byte) error {
	if err := checkTransfer(addr, len(data)); err != nil {
		return err
	}
	var err error
	critical(func() {
		if e.w.busy() {
			err = ErrEEPROMBusy
			return
		}
		e.w = eepromCursor{addr: addr, remaining: uint16(len(data)), buf: data}
	})
	if err != nil {
		return err
	}
	e.Request(CmdEEPROMWrite)
	return nil
}

// RequestEEPROMRead queues a read into buf from addr. buf is filled by the
// bus interrupt and is valid once EEPROMReadBusy returns false.
func (e *I2CEngine) RequestEEPROMRead(addr uint16, buf []byte) error {
	if err := checkTransfer(addr, len(buf)); err != nil {
		return err
	}
	var err error
	critical(func() {
		if e.r.busy() {
			err = ErrEEPROMBusy
			return
		}
		e.r = eepromCursor{addr: addr, remaining: uint16(len(buf)), buf: buf}
	})
	if err != nil {
		return err
	}
	e.Request(CmdEEPROMRead)
	return nil
}

// EEPROMWriteBusy reports whether a write is queued or running.
func (e *I2CEngine) EEPROMWriteBusy() bool {
	return e.w.busy()
}

// EEPROMReadBusy reports whether a read is queued or running.
func (e *I2CEngine) EEPROMReadBusy() bool {
	return e.r.busy()
}

func (e *I2CEngine) stepEEPROMWrite() bool {
	w := &e.w
	switch e.step {
	case 0:
		e.bus.Start()
	case 1:
		e.bus.SendAddress(AddrEEPROM, false)
	case 2:
		// a busy part NACKs its address during the internal write cycle
		if !e.bus.IsAck() {
			return false
		}
		e.bus.SendByte(byte(w.addr >> 8))
	case 3:
		e.bus.SendByte(byte(w.addr))
	case 4:
		e.bus.SendByte(w.buf[0])
	case 5:
		w.remaining--
		if w.remaining == 0 {
			w.addr = EEPROMIdleAddress
			w.buf = nil
			e.finish()
			return true
		}
		if !w.advance() || e.preempted() {
			return false
		}
		e.step = 4
		e.bus.SendByte(w.buf[0])
	}
	return true
}

func (e *I2CEngine) stepEEPROMRead() bool {
	r := &e.r
	switch e.step {
	case 0:
		e.bus.Start()
	case 1:
		e.bus.SendAddress(AddrEEPROM, false)
	case 2:
		if !e.bus.IsAck() {
			return false
		}
		e.bus.SendByte(byte(r.addr >> 8))
	case 3:
		e.bus.SendByte(byte(r.addr))
	case 4:
		e.bus.Start()
	case 5:
		e.bus.SendAddress(AddrEEPROM, true)
	case 6:
		e.bus.ReceiverEnable()
	case 7:
		r.buf[0] = e.bus.ReceiveByte()
		r.remaining--
		if r.remaining == 0 {
			e.bus.ReceiverDisable()
			r.addr = EEPROMIdleAddress
			r.buf = nil
			e.finish()
			return true
		}
		if !r.advance() || e.preempted() {
			e.bus.ReceiverDisable()
			return false
		}
		e.bus.Ack()
		e.step = 5
	}
	return true
}
