package core

// DutyFull drives the heater on every cycle.
const DutyFull = 1 << 24

// Regulator is a proportional temperature loop on raw sensor codes. It is
// the firmware's PIDUpdater when no host supplies one. A zero setpoint keeps
// the channel off.
type Regulator struct {
	Setpoint  [Channels]uint16 // target sensor code, 0 disables the channel
	GainShift uint8            // duty per code of error is 1<<GainShift
	MaxDuty   uint32           // 0 means DutyFull

	c        *Controller
	measured [Channels]bool
}

// NewRegulator returns an unbound regulator with every channel disabled.
func NewRegulator(gainShift uint8) *Regulator {
	return &Regulator{GainShift: gainShift}
}

// Bind attaches the controller. The controller takes the regulator at
// construction, so the two are tied after both exist.
func (r *Regulator) Bind(c *Controller) {
	r.c = c
}

// UpdateChannel sets channel ch's duty from the last temperature code.
func (r *Regulator) UpdateChannel(ch int) {
	if r.c == nil {
		return
	}
	c := &r.c.Channels[ch]
	if c.NewData {
		r.measured[ch] = true
		c.NewData = false
	}
	faults := c.Faults()
	if !r.measured[ch] {
		// resistance faults need a measurement, and there is none until
		// the heater has been driven
		faults &= FaultNoSensor
	}
	c.Duty = r.Duty(ch, r.c.Analog.Temperature[1], faults)
}

// Duty is the duty for a reading of code on channel ch. Any fault, or a
// saturated reading, switches the heater off.
func (r *Regulator) Duty(ch int, code uint16, faults uint8) uint32 {
	sp := r.Setpoint[ch]
	if sp == 0 || faults != 0 || code >= SampleSaturated || code >= sp {
		return 0
	}
	limit := r.MaxDuty
	if limit == 0 || limit > DutyFull {
		limit = DutyFull
	}
	d := uint64(sp-code) << r.GainShift
	if d > uint64(limit) {
		return limit
	}
	return uint32(d)
}
