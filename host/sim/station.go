// Package sim runs the control core against a simulated station: mains
// waveform and comparator, timers, ADC, heaters with a thermal model, and
// the pots, DAC and EEPROM on the I2C bus. Interrupts are events on a
// single simulated clock in µs, so a run is deterministic.
package sim

import (
	"unisolder/core"
	"unisolder/i2cbus"
)

// HeaterParams describe one iron.
type HeaterParams struct {
	R0       float32 // Ω at ambient
	Alpha    float32 // 1/°C
	Capacity float32 // J/°C
	Loss     float32 // W/°C

	SensorOffset float32 // raw code at ambient
	SensorGain   float32 // codes/°C

	// Setpoint in °C for the built-in proportional loop. Zero leaves the
	// channel duty to the caller.
	Setpoint float32
	PGain    float32 // duty fraction per °C of error
}

// Params configure a Station.
type Params struct {
	Mains   Mains
	Ambient float32 // °C
	Heaters [core.Channels]HeaterParams

	InHolder     bool
	HolderSwitch bool // digital holder switch instead of the divider

	SampleInterval   uint32 // µs between auto-sampled pairs
	ConversionTime   uint32 // µs per one-shot sample
	I2CByteTime      uint32 // µs per bus primitive
	TickInterval     uint32 // µs per thermal integration step
	HeaterSag        uint32 // extra comparator low time with the heater on, µs
	EEPROMWriteCycle uint32 // µs
}

// DefaultParams is a 24V 50Hz station with one 2.5Ω iron.
func DefaultParams() Params {
	iron := HeaterParams{
		R0:           2.5,
		Alpha:        0.0035,
		Capacity:     4,
		Loss:         0.12,
		SensorOffset: 40,
		SensorGain:   2,
		PGain:        1.0 / 16,
	}
	return Params{
		Mains:            Mains{Hz: 50, AC: true, Volts: 24, Comparator: 2.8},
		Ambient:          25,
		Heaters:          [core.Channels]HeaterParams{iron, iron},
		SampleInterval:   150,
		ConversionTime:   12,
		I2CByteTime:      25,
		TickInterval:     100,
		HeaterSag:        20,
		EEPROMWriteCycle: 5000,
	}
}

// ADC front end gains, codes per volt and per amp. They match the scale
// factors the extraction assumes.
const (
	voltageGain = 1024.0 / 3.0 / 28.0
	currentGain = 0.003 * (47.0 / 1.5) / 3.0 * 1024.0
)

// Station is a simulated soldering station driving a core.Controller.
type Station struct {
	Ctrl    *core.Controller
	Bus     *Bus
	Devices Devices
	Heaters [core.Channels]*Heater

	// Last measurement handed to each channel's loop, and how many.
	Last        [core.Channels]core.Measurement
	Extractions [core.Channels]uint32

	p     Params
	board core.Board
	tx    *i2cbus.TxBus
	q     queue
	gens  [evCount]uint32
	now   uint64

	powered   bool
	heaterOn  bool
	heaterSel uint8
	display   bool
	inP, inN  uint8
	invert    bool
	bands     [2]bool

	zcArmed  bool
	zcEdge   core.Edge
	sampling bool
	convCh   core.ADCChannel
	convN    uint8
	result   uint16
	low      core.LowTimes

	i2cQueued bool
}

var (
	_ core.ISRTimerDriver  = (*Station)(nil)
	_ core.ZeroCrossDriver = (*Station)(nil)
	_ core.ADCDriver       = (*Station)(nil)
	_ core.AnalogFrontEnd  = (*Station)(nil)
	_ core.OutputDriver    = (*Station)(nil)
	_ core.Waiter          = (*Station)(nil)
	_ core.PIDUpdater      = (*Station)(nil)
)

// New builds a powered station. The controller is initialised but not
// started.
func New(p Params, cfg core.ConfigProvider) *Station {
	s := &Station{p: p, powered: true, display: true}
	for i := range s.Heaters {
		hp := p.Heaters[i]
		s.Heaters[i] = &Heater{
			R0:       hp.R0,
			Alpha:    hp.Alpha,
			Capacity: hp.Capacity,
			Loss:     hp.Loss,
			Temp:     p.Ambient,
			ambient:  p.Ambient,
		}
	}

	s.Bus = NewBus()
	s.Devices = attachDevices(s.Bus, s.Now, p.EEPROMWriteCycle)
	s.tx = i2cbus.New(s.Bus, s.wakeI2C)

	s.board = core.Board{
		Timer:     s,
		ZeroCross: s,
		ADC:       s,
		FrontEnd:  s,
		Outputs:   s,
		I2C:       s.tx,
		Wait:      s,
	}
	s.Ctrl = core.NewController(&s.board, cfg, s, core.Options{
		Mains:        core.TimingFor(uint32(p.Mains.Hz + 0.5)),
		ACPower:      p.Mains.AC,
		HolderSwitch: p.HolderSwitch,
	})

	core.SetTime(0)
	s.schedule(evTick, uint64(p.TickInterval), 0)
	s.startMains()
	return s
}

// Board returns the I/O the controller runs on.
func (s *Station) Board() *core.Board {
	return &s.board
}

// BusErrors returns the failed transactions seen by the I2C adapter.
func (s *Station) BusErrors() uint32 {
	return s.tx.Errors()
}

// Now returns the simulated time in µs.
func (s *Station) Now() uint64 {
	return s.now
}

// Powered reports whether the supply is present.
func (s *Station) Powered() bool {
	return s.powered
}

// DisplayOn reports the display supply output.
func (s *Station) DisplayOn() bool {
	return s.display
}

// Start starts the controller cycle.
func (s *Station) Start() {
	s.Ctrl.Start()
}

// Stop drains the controller. Simulated time advances while it waits.
func (s *Station) Stop() {
	s.Ctrl.Stop()
}

// Step delivers the next pending interrupt. It returns false when nothing
// is scheduled.
func (s *Station) Step() bool {
	e := s.q.pop()
	if e == nil {
		return false
	}
	at, kind, gen, arg := e.at, e.kind, e.gen, e.arg
	s.q.release(e)

	s.advance(at)
	if gen == s.gens[kind] {
		s.dispatch(kind, arg)
	}
	return true
}

// RunFor delivers every interrupt due in the next us µs.
func (s *Station) RunFor(us uint64) {
	end := s.now + us
	for e := s.q.peek(); e != nil && e.at <= end; e = s.q.peek() {
		s.Step()
	}
	s.advance(end)
}

// RunCycles runs until n more cycles have completed. It gives up after
// twice the nominal time, which happens when the cycle is halted, and
// returns the number of cycles actually completed.
func (s *Station) RunCycles(n uint32) uint32 {
	start := s.Ctrl.Ticks()
	period := uint64(1000000 / core.DCTimerHz)
	if s.p.Mains.AC {
		period = uint64(s.p.Mains.halfPeriod())
	}
	limit := s.now + 2*uint64(n+1)*period
	for s.Ctrl.Ticks()-start < n && s.now < limit {
		if !s.Step() {
			break
		}
	}
	return s.Ctrl.Ticks() - start
}

// FailPower drops the supply now.
func (s *Station) FailPower() {
	if !s.powered {
		return
	}
	wasHigh := s.MainsHigh()
	s.powered = false
	if s.zcArmed && s.zcEdge == core.EdgeFalling && wasHigh {
		s.gens[evZeroCross]++
		s.schedule(evZeroCross, s.now, 1)
	}
}

// FailPowerAt schedules a supply failure at t µs.
func (s *Station) FailPowerAt(t uint64) {
	s.schedule(evPowerFail, t, 0)
}

// RestorePower brings the supply back.
func (s *Station) RestorePower() {
	if s.powered {
		return
	}
	s.powered = true
	s.startMains()
	if s.zcArmed {
		s.ArmZeroCross(s.zcEdge)
	}
}

func (s *Station) startMains() {
	if s.p.Mains.AC {
		s.gens[evMainsRise]++
		s.schedule(evMainsRise, s.p.Mains.NextEdge(core.EdgeRising, s.now), 0)
	}
}

func (s *Station) schedule(kind eventKind, at uint64, arg uint8) {
	e := s.q.alloc()
	e.at = at
	e.kind = kind
	e.gen = s.gens[kind]
	e.arg = arg
	s.q.insert(e)
}

func (s *Station) advance(t uint64) {
	if t > s.now {
		s.now = t
	}
	core.SetTime(uint32(s.now))
}

func (s *Station) dispatch(kind eventKind, arg uint8) {
	switch kind {
	case evTimer:
		s.Ctrl.OnTimer()

	case evDCTimer:
		s.schedule(evDCTimer, s.now+1000000/core.DCTimerHz, 0)
		if s.powered {
			s.Ctrl.OnDCTimer()
		}

	case evZeroCross:
		if arg == 0 && !s.powered {
			return
		}
		if s.p.Mains.AC && s.powered {
			s.schedule(evZeroCross, s.p.Mains.NextEdge(s.zcEdge, s.now), 0)
		}
		s.Ctrl.OnZeroCross(s.zcEdge)

	case evMainsRise:
		if !s.powered {
			return
		}
		lt := s.p.Mains.LowTime()
		if s.heaterOn {
			lt += s.p.HeaterSag
			s.low.HeaterOn = lt
		} else {
			s.low.HeaterOff = lt
		}
		s.low.Total += lt
		s.schedule(evMainsRise, s.p.Mains.NextEdge(core.EdgeRising, s.now), 0)

	case evADC:
		s.result = s.convert(s.convCh) * uint16(s.convN)
		s.Ctrl.OnADCComplete()

	case evSample:
		if !s.sampling {
			return
		}
		v, i := s.sample()
		s.schedule(evSample, s.now+uint64(s.p.SampleInterval), 0)
		s.Ctrl.OnSample(v, i)

	case evI2C:
		s.i2cQueued = false
		eng := s.Ctrl.I2C()
		eng.Service()
		if !eng.Idle() {
			s.wakeI2C()
		}

	case evTick:
		v := s.supply()
		for i, h := range s.Heaters {
			h.Integrate(v, s.heaterOn && int(s.heaterSel) == i && s.powered, s.p.TickInterval)
		}
		s.schedule(evTick, s.now+uint64(s.p.TickInterval), 0)

	case evPowerFail:
		s.FailPower()
	}
}

func (s *Station) wakeI2C() {
	if s.i2cQueued {
		return
	}
	s.i2cQueued = true
	s.schedule(evI2C, s.now+uint64(s.p.I2CByteTime), 0)
}

// supply returns the voltage across a heater that is switched on.
func (s *Station) supply() float32 {
	if !s.powered {
		return 0
	}
	return s.p.Mains.At(s.now)
}

func (s *Station) sample() (v, i uint16) {
	sv := s.supply()
	v = clampCode(sv * voltageGain)
	if s.heaterOn && s.powered {
		i = clampCode(s.Heaters[s.heaterSel&1].Current(sv) * currentGain)
	}
	return v, i
}

// convert returns one raw sample of ch.
func (s *Station) convert(ch core.ADCChannel) uint16 {
	switch ch {
	case core.ADCTemperature:
		if s.inP == s.inN {
			return 0
		}
		h := s.p.Heaters[s.heaterSel&1]
		return s.Heaters[s.heaterSel&1].SensorCode(h.SensorOffset, h.SensorGain)
	case core.ADCRoomTemperature:
		// 500mV + 10mV/°C against a 3V reference
		return clampCode((0.5 + 0.01*s.p.Ambient) / 3.0 * 1024)
	case core.ADCHolder:
		if s.p.InHolder {
			return 60
		}
		return 900
	}
	return 0
}
