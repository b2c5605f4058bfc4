package core

// Channels is the number of irons a station drives.
const Channels = 2

// PowerLevel limits how late in a half cycle the heater may switch on.
type PowerLevel uint8

const (
	PowerFull    PowerLevel = iota // switch at the zero cross
	PowerHalf                      // switch at the mains peak
	PowerQuarter                   // switch at the quarter power point
	PowerEighth                    // switch at the eighth power point
)

const (
	// faultLimit is the saturation value of the fault debounce counters.
	faultLimit = 255

	// Fault thresholds on the extracted resistance (0.1Ω) and on
	// the raw temperature sample.
	noHeaterResistance     = 3000
	shortCircuitResistance = 8

	// OffDelayDefault is the initial comparator-to-zero-current delay in
	// 1/16 µs.
	OffDelayDefault = 1600
)

// Channel is the control block of one iron. It is written by the cycle
// interrupt and by the PIDUpdater during the call the cycle makes to it.
type Channel struct {
	PWM   uint32 // DDA phase accumulator, 24 fractional bits
	Duty  uint32 // per-cycle increment; 1<<24 is always on
	Power PowerLevel

	// Last extraction: RMS volts and amps, average watts, resistance.
	Voltage    uint16
	Current    uint16
	Watts      uint32
	Resistance uint16

	NewData  bool
	InitData bool

	NoHeater     uint8
	NoSensor     uint8
	ShortCircuit uint8

	OffDelay uint32 // 1/16 µs
	KeepOff  uint8  // cycles to keep the heater off
}

func (ch *Channel) reset() {
	*ch = Channel{
		Power:        ch.Power,
		Duty:         ch.Duty,
		NoHeater:     faultLimit,
		NoSensor:     faultLimit,
		ShortCircuit: faultLimit,
		InitData:     true,
		OffDelay:     OffDelayDefault,
	}
}

// advance steps the duty accumulator and reports whether the heater should
// be on this cycle. Over N calls the number of true results is
// floor(N*Duty / 2^24) for Duty <= 2^24.
func (ch *Channel) advance() bool {
	ch.PWM += ch.Duty
	on := ch.PWM>>24 != 0
	ch.PWM &= 0x00FFFFFF
	return on
}

func (ch *Channel) updateFaults(temp uint16) {
	ch.NoHeater = debounce(ch.NoHeater, ch.Resistance > noHeaterResistance)
	ch.ShortCircuit = debounce(ch.ShortCircuit, ch.Resistance < shortCircuitResistance)
	ch.NoSensor = debounce(ch.NoSensor, temp >= SampleSaturated)
}

func debounce(n uint8, cond bool) uint8 {
	if !cond {
		return 0
	}
	if n < faultLimit {
		n++
	}
	return n
}

// setMeasurement stores a completed extraction.
func (ch *Channel) setMeasurement(m Measurement) {
	ch.Voltage = m.Voltage
	ch.Current = m.Current
	ch.Watts = m.Watts
	ch.Resistance = m.Resistance
	ch.NewData = true
}

// Fault bits reported by Faults.
const (
	FaultNoHeater uint8 = 1 << iota
	FaultNoSensor
	FaultShortCircuit
)

// Faults returns the debounced faults that have reached their limit.
func (ch *Channel) Faults() uint8 {
	var f uint8
	if ch.NoHeater >= faultLimit {
		f |= FaultNoHeater
	}
	if ch.NoSensor >= faultLimit {
		f |= FaultNoSensor
	}
	if ch.ShortCircuit >= faultLimit {
		f |= FaultShortCircuit
	}
	return f
}

// Status formats the last extraction for the debug UART.
func (ch *Channel) Status() string {
	return "V=" + utoa(uint32(ch.Voltage)) +
		" I=" + utoa(uint32(ch.Current)) +
		" W=" + utoa(ch.Watts) +
		" R=" + utoa(uint32(ch.Resistance)/10) + "." + utoa(uint32(ch.Resistance)%10) +
		" faults=" + hex8(ch.Faults())
}

// PIDUpdater is the temperature loop. UpdateChannel is called once per
// channel per mains cycle from the cycle interrupt and must return within
// the phase budget.
type PIDUpdater interface {
	UpdateChannel(ch int)
}

// PIDFunc adapts a function to PIDUpdater.
type PIDFunc func(ch int)

func (f PIDFunc) UpdateChannel(ch int) { f(ch) }
