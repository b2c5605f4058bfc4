package core

// CommandSet is a bitmask of I2C engine commands. Bit position is priority:
// the lowest set bit runs first.
type CommandSet uint8

const (
	CmdSetCurrentPot CommandSet = 1 << iota // sensor bias currents
	CmdSetGainPot                           // amplifier gain
	CmdSetOffset                            // amplifier offset DAC
	CmdEEPROMWrite
	CmdEEPROMRead

	// CmdSetPots reprograms the analog front end for a sensor.
	CmdSetPots = CmdSetCurrentPot | CmdSetGainPot | CmdSetOffset

	cmdAll = CmdSetPots | CmdEEPROMWrite | CmdEEPROMRead
)

// Lowest returns the highest priority command in s, or 0.
func (c CommandSet) Lowest() CommandSet {
	return c & -c
}

// higher returns the commands that take priority over c.
func (c CommandSet) higher() CommandSet {
	return c - 1
}

func (c CommandSet) String() string {
	switch c {
	case 0:
		return "IDLE"
	case CmdSetCurrentPot:
		return "SET_CPOT"
	case CmdSetGainPot:
		return "SET_GAINPOT"
	case CmdSetOffset:
		return "SET_OFFSET"
	case CmdEEPROMWrite:
		return "EEP_WRITE"
	case CmdEEPROMRead:
		return "EEP_READ"
	}
	if c&(c-1) == 0 {
		return "UNKNOWN"
	}
	s := ""
	for c != 0 {
		b := c.Lowest()
		c &^= b
		if s != "" {
			s += "|"
		}
		s += b.String()
	}
	return s
}

// PotSettings are the values the pot and DAC commands write.
type PotSettings struct {
	CurrentA uint16
	CurrentB uint16
	Gain     uint16
	Offset   uint16
}

// Device addresses on the station's I2C bus.
const (
	AddrCurrentPot I2CAddress = 0x2C // dual rheostat, sensor bias currents
	AddrGainPot    I2CAddress = 0x2E
	AddrOffsetDAC  I2CAddress = 0x60
	AddrEEPROM     I2CAddress = 0x50
)
