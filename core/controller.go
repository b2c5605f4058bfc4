package core

import "sync/atomic"

// Mode flags of the control core.
type Mode struct {
	ACPower      bool
	Calibration  bool
	CalChannel   uint8 // 0 or 1, input routing used while calibrating
	TipChange    bool
	HolderSwitch bool // board has a digital holder switch instead of a divider

	// written by the cycle interrupt, polled by Stop and the main loop
	powerLost atomic.Bool
}

// AnalogData are the slow analog readings taken once per sub-cycle.
type AnalogData struct {
	RoomTemp     uint16    // sum of two samples
	HolderV      uint16    // sum of two samples
	Temperature  [2]uint16 // 4-sample average, one slot per sub-cycle parity
	HeaterOn     bool      // heater decision at the time Temperature was taken
	ColdJunction uint16
	Holder       uint16 // latched holder level, 0..1023
}

// Options configure a Controller.
type Options struct {
	Mains        MainsTiming
	ACPower      bool
	HolderSwitch bool
}

const (
	stopRequested uint32 = 1 << iota
	stopAcked
)

// Controller is the shared control block of the station: channel state,
// the cycle state machine and the I2C engine. The cycle interrupt calls
// the On* methods; the main context calls Init, Start and Stop.
type Controller struct {
	board *Board
	cfg   ConfigProvider
	pid   PIDUpdater
	mains MainsTiming

	Mode     Mode
	Channels [Channels]Channel
	Analog   AnalogData

	acq Acquisition

	phase    Phase
	deadline uint32 // last armed timer deadline, µs
	sub      uint8 // 0..3; bit 1 selects the channel, bit 0 the half of its cycle
	complete bool  // the previous cycle ran to the end, buffers are valid

	oldHeater   bool   // heater state at the start of the cycle
	heater      bool   // heater output
	decision    bool   // heater decision for the current cycle
	offDelayOff uint32 // off delay measured with the heater off, 1/16 µs
	ticks       uint32
	cjTicks     uint32

	stopState uint32 // atomic

	i2c *I2CEngine

	powerLostEvents uint32
}

// NewController wires a controller to its board. Init must be called
// before Start.
func NewController(b *Board, cfg ConfigProvider, pid PIDUpdater, opts Options) *Controller {
	if opts.Mains.HalfPeriod == 0 {
		opts.Mains = Mains50Hz
	}
	c := &Controller{
		board: b,
		cfg:   cfg,
		pid:   pid,
		mains: opts.Mains,
		i2c:   NewI2CEngine(b.I2C),
	}
	c.Mode.ACPower = opts.ACPower
	c.Mode.HolderSwitch = opts.HolderSwitch
	c.Init()
	return c
}

// I2C returns the bus engine. The target's bus interrupt calls Service on it.
func (c *Controller) I2C() *I2CEngine {
	return c.i2c
}

// RequestI2CCommands queues bus commands. Safe from any context.
func (c *Controller) RequestI2CCommands(cmds CommandSet) {
	c.i2c.Request(cmds)
}

// Acquisition returns the sample buffer filled by OnSample.
func (c *Controller) Acquisition() *Acquisition {
	return &c.acq
}

// Phase returns the phase the next interrupt will run.
func (c *Controller) Phase() Phase {
	return c.phase
}

// SubCycle returns the sub-cycle counter, 0..3.
func (c *Controller) SubCycle() uint8 {
	return c.sub
}

// Ticks returns the number of completed cycles since Init, plus one.
func (c *Controller) Ticks() uint32 {
	return c.ticks
}

// Heater returns the heater output state.
func (c *Controller) Heater() bool {
	return c.heater
}

// PowerLost reports whether the cycle is halted by a power loss.
func (c *Controller) PowerLost() bool {
	return c.Mode.powerLost.Load()
}

// PowerLostEvents returns how many times power loss was declared.
func (c *Controller) PowerLostEvents() uint32 {
	return c.powerLostEvents
}

// OffDelayOff returns the off delay learned with the heater off.
func (c *Controller) OffDelayOff() uint32 {
	return c.offDelayOff
}

// SetCalibration enters or leaves calibration routing.
func (c *Controller) SetCalibration(on bool, ch uint8) {
	c.Mode.Calibration = on
	c.Mode.CalChannel = ch & 1
}

// SetTipChange marks a tip swap in progress.
func (c *Controller) SetTipChange(on bool) {
	c.Mode.TipChange = on
}

// activeChannel returns the channel selected by the sub-cycle. The second
// channel is only used when it has a sensor configured.
func (c *Controller) activeChannel() int {
	if c.sub < 2 || c.cfg.Sensor(1).Type == SensorUndefined {
		return 0
	}
	return 1
}

// ActiveChannel returns the channel the current sub-cycle works on.
func (c *Controller) ActiveChannel() int {
	return c.activeChannel()
}

// powerDuty is the extraction normalisation: halved when the mains cycles
// are shared by two channels.
func (c *Controller) powerDuty() uint32 {
	if c.cfg.Sensor(1).Type != SensorUndefined {
		return PowerDutyFull >> 1
	}
	return PowerDutyFull
}

func (c *Controller) setHeater(on bool) {
	c.heater = on
	c.board.Outputs.SetHeater(on)
}

func (c *Controller) stopRequested() bool {
	return atomic.LoadUint32(&c.stopState)&stopRequested != 0
}

// OnZeroCross is called by the comparator interrupt.
func (c *Controller) OnZeroCross(edge Edge) {
	if edge == EdgeRising {
		c.step(SourceZeroCrossRise)
		return
	}
	c.step(SourceZeroCrossFall)
}

// OnDCTimer is called by the DC mode timer interrupt.
func (c *Controller) OnDCTimer() {
	c.step(SourceDCTimer)
}

// OnTimer is called when the one-shot cycle timer expires.
func (c *Controller) OnTimer() {
	c.step(SourceTimer)
}

// OnADCComplete is called when a one-shot conversion finishes.
func (c *Controller) OnADCComplete() {
	c.step(SourceADC)
}

// OnSample is called for every auto-sampled heater voltage/current pair.
func (c *Controller) OnSample(v, i uint16) {
	c.acq.Push(v, i)
}
