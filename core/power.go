package core

import "sync/atomic"

// OnPowerLost shuts the heater and the cycle down. Only the first call
// after Start has an effect on the hardware; the cycle stays halted until
// the next Start.
func (c *Controller) OnPowerLost() {
	if c.Mode.powerLost.Load() {
		return
	}
	c.Mode.powerLost.Store(true)
	c.board.Outputs.SetDisplayPower(false)
	c.setHeater(false)
	c.board.ADC.StopADC()
	c.board.Timer.StopISRTimer()
	c.board.ZeroCross.DisableZeroCross()
	RecordTiming(EvtPowerLost, uint8(c.phase), GetTime(), uint32(c.sub), c.powerLostEvents+1)
	c.phase = PhaseZeroCross
	c.sub = 0
	c.powerLostEvents++
}

// Init resets the cycle, the channel control blocks and the I2C engine.
// Configured power levels and duties are kept.
func (c *Controller) Init() {
	c.phase = PhaseZeroCross
	c.sub = 0
	c.ticks = 1
	c.cjTicks = 0
	c.decision = false
	c.heater = false
	c.oldHeater = false
	c.complete = false
	c.offDelayOff = OffDelayDefault
	for i := range c.Channels {
		c.Channels[i].reset()
	}
	c.acq.Reset()
	c.Mode.Calibration = false
	c.Mode.powerLost.Store(false)
	atomic.StoreUint32(&c.stopState, 0)
	c.i2c.Reset()
}

// Start arms the cycle. In AC mode it first waits for a full mains period
// so the first zero cross is taken from a clean falling edge. Must not be
// called from interrupt context.
func (c *Controller) Start() {
	b := c.board
	state := disableInterrupts()
	b.ZeroCross.DisableZeroCross()
	b.ADC.StopADC()
	b.Timer.StopISRTimer()
	if c.Mode.ACPower {
		for b.ZeroCross.MainsHigh() {
			b.Yield()
		}
		for !b.ZeroCross.MainsHigh() {
			b.Yield()
		}
		b.DelayUS(1000)
	}
	b.Timer.ResetDCTimer()
	b.ZeroCross.ArmZeroCross(EdgeFalling)
	c.acq.Reset()
	c.complete = false
	atomic.StoreUint32(&c.stopState, 0)
	c.Mode.powerLost.Store(false)
	restoreInterrupts(state)
}

// Stop drains the cycle: the heater is switched off at the next cycle
// start, then the I2C engine is allowed to finish its queue before the
// hardware is stopped. A cycle halted by power loss counts as drained.
// Must not be called from interrupt context.
func (c *Controller) Stop() {
	b := c.board
	atomic.StoreUint32(&c.stopState, stopRequested)
	for atomic.LoadUint32(&c.stopState)&stopAcked == 0 && !c.Mode.powerLost.Load() {
		b.Yield()
	}
	for !c.i2c.Idle() {
		b.Yield()
	}
	b.ADC.StopADC()
	b.Timer.StopISRTimer()
	b.ZeroCross.DisableZeroCross()
	c.setHeater(false)
	c.Mode.powerLost.Store(false)
}

// Stopped reports whether a stop request has been acknowledged.
func (c *Controller) Stopped() bool {
	return atomic.LoadUint32(&c.stopState)&stopAcked != 0
}
