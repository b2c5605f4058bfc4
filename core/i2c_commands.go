package core

// Pot and DAC command sequences. Each step* method runs the primitive for
// e.step; the last step calls finish.

// Terminal control register bits of the dual rheostat. A leg is
// disconnected when its current is at either end of the range so the
// wiper resistance does not add to the bias network.
const (
	tconAll  = 0xFF
	tconR0A  = 0xF0 // clears wiper 0 terminal A
	tconR0B  = 0xFE // clears wiper 0 terminal B
	tconR1A  = 0x0F // clears wiper 1 terminal A
	tconR1B  = 0xEF // clears wiper 1 terminal B
	potMax   = 256
	cmdTCON  = 0x40 // write TCON, general call disabled
	wiper1   = 0x10
	dacWrite = 0x58 // offset DAC: write volatile DAC register
)

// tcon builds the terminal control byte for the bias currents.
func tcon(a, b uint16) byte {
	v := byte(tconAll)
	if a == 0 {
		v &= tconR0A
	}
	if a >= potMax {
		v &= tconR0B
	}
	if b == 0 {
		v &= tconR1A
	}
	if b >= potMax {
		v &= tconR1B
	}
	return v
}

func (e *I2CEngine) stepCurrentPot() {
	p := &e.pots
	switch e.step {
	case 0:
		e.bus.Start()
	case 1:
		e.bus.SendAddress(AddrCurrentPot, false)
	case 2:
		e.bus.SendByte(cmdTCON)
	case 3:
		e.bus.SendByte(tcon(p.CurrentA, p.CurrentB))
	case 4:
		e.bus.SendByte(byte(p.CurrentA >> 8))
	case 5:
		e.bus.SendByte(byte(p.CurrentA))
	case 6:
		e.bus.SendByte(byte(p.CurrentB>>8) | wiper1)
	case 7:
		e.bus.SendByte(byte(p.CurrentB))
	case 8:
		e.finish()
	}
}

func (e *I2CEngine) stepGainPot() {
	switch e.step {
	case 0:
		e.bus.Start()
	case 1:
		e.bus.SendAddress(AddrGainPot, false)
	case 2:
		e.bus.SendByte(byte(e.pots.Gain >> 8))
	case 3:
		e.bus.SendByte(byte(e.pots.Gain))
	case 4:
		e.finish()
	}
}

func (e *I2CEngine) stepOffset() {
	switch e.step {
	case 0:
		e.bus.Start()
	case 1:
		e.bus.SendAddress(AddrOffsetDAC, false)
	case 2:
		e.bus.SendByte(dacWrite)
	case 3:
		e.bus.SendByte(byte(e.pots.Offset >> 2))
	case 4:
		e.bus.SendByte(byte(e.pots.Offset << 6))
	case 5:
		e.finish()
	}
}
