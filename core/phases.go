package core

import "sync/atomic"

// step runs one phase of the cycle. Each handler reports whether the cycle
// moves on to the next phase; PhaseDone saturates.
func (c *Controller) step(src Source) {
	switch src {
	case SourceZeroCrossFall:
		// in DC mode the comparator only falls when the supply collapses
		if !c.Mode.ACPower {
			c.OnPowerLost()
		}
		fallthrough
	case SourceDCTimer:
		if c.phase != PhaseDone {
			c.complete = false
		}
		c.phase = PhaseZeroCross
	case SourceZeroCrossRise:
		return
	}

	idx := c.activeChannel()
	ch := &c.Channels[idx]
	sc := c.cfg.Sensor(idx)
	entered := c.phase
	c.deadline = 0

	advance := true
	switch c.phase {
	case PhaseZeroCross:
		advance = c.phaseZeroCross(ch)
	case PhaseHeaterOff:
		c.arm(heaterOffDelay)
		c.setHeater(false)
		c.board.ADC.StartManualVRef()
	case PhaseExtract:
		advance = c.phaseExtract(idx, ch, sc)
	case PhaseRoomHolder:
		if c.sub&1 != 0 {
			c.board.ADC.StartConversion(ADCRoomTemperature, 1)
		} else {
			c.board.ADC.StartConversion(ADCHolder, 1)
		}
	case PhaseTemperature:
		c.phaseTemperature()
	case PhasePID:
		c.phasePID(idx, ch)
	case PhaseHeaterFull:
		c.phaseHeaterFull(ch, sc)
	case PhaseMidCycle:
		advance = c.phaseMidCycle(ch, sc)
	case PhaseQuarter:
		c.arm(c.mains.EighthPowerDelay)
		if ch.Power < PowerEighth {
			c.setHeater(c.decision)
		}
	case PhaseEighth:
		c.arm(eighthPointDelay)
		c.setHeater(c.decision)
	case PhaseRearm:
		c.board.ZeroCross.ArmZeroCross(EdgeFalling)
		c.ticks++
		if c.cjTicks != 0 {
			c.cjTicks--
		}
		c.complete = true
	}

	RecordTiming(EvtPhase, uint8(entered), GetTime(), uint32(c.sub), c.deadline)
	if advance && c.phase < PhaseDone {
		c.phase++
	}
}

// arm starts the cycle timer for the next phase.
func (c *Controller) arm(us uint32) {
	c.deadline = us
	c.board.Timer.StartISRTimer(us)
}

func (c *Controller) phaseZeroCross(ch *Channel) bool {
	c.oldHeater = c.heater
	if c.stopRequested() {
		c.setHeater(false)
		if atomic.LoadUint32(&c.stopState)&stopAcked == 0 {
			atomic.StoreUint32(&c.stopState, stopRequested|stopAcked)
			c.board.ADC.StopADC()
			c.acq.Reset()
			RecordTiming(EvtStopAck, 0, GetTime(), c.ticks, 0)
		}
		return true
	}

	c.board.ZeroCross.DisableZeroCross()
	if c.Mode.powerLost.Load() {
		return false
	}
	d := c.offDelayOff
	if c.heater && d < ch.OffDelay {
		d = ch.OffDelay
	}
	c.arm(safetyDelay(d))
	return true
}

func (c *Controller) phaseExtract(idx int, ch *Channel, sc *SensorConfig) bool {
	if c.Mode.ACPower {
		c.arm(extractDelayAC)
	} else {
		c.arm(extractDelayDC)
	}

	fe := c.board.FrontEnd
	if c.Mode.Calibration {
		cal := c.Mode.CalChannel
		fe.SelectInputs(1-cal, cal)
		fe.SetInvert(cal == 0)
	} else {
		fe.SelectInputs(sc.InputP, sc.InputN)
		fe.SetInvert(sc.InputInv)
	}

	if c.complete {
		if v, i, ok := c.acq.representative(); ok && v < powerLostVoltage && c.oldHeater && i < powerLostCurrent {
			c.OnPowerLost()
			return false
		}
		switch {
		case c.sub&1 != 0:
			c.correctOffDelay(ch)
		case c.oldHeater:
			if m, ok := c.acq.Extract(c.powerDuty()); ok {
				ch.setMeasurement(m)
				RecordTiming(EvtExtract, uint8(idx), GetTime(), m.Watts, uint32(m.Resistance))
			}
		case c.Mode.TipChange:
			ch.Current = 0
			ch.Watts = 0
			ch.Resistance = TipChangeResistance
			ch.InitData = true
			ch.NewData = true
		}
	}
	c.acq.Reset()
	return true
}

// correctOffDelay tracks the delay from the comparator trip to zero heater
// current. It settles at 16 times the comparator low time.
func (c *Controller) correctOffDelay(ch *Channel) {
	zc := c.board.ZeroCross
	lt := zc.LowTimes()
	if c.Mode.ACPower && lt.Total != 0 {
		dw := c.offDelayOff
		if c.oldHeater {
			dw = ch.OffDelay
		}
		if dw <= OffDelayDefault {
			dw = lt.Total << 4
		}
		dw -= dw >> 4
		dw += lt.Total

		// at reduced power the comparator stays low for less time than at
		// full power
		if c.oldHeater && ch.Power != PowerFull && lt.HeaterOn != 0 && lt.HeaterOff != 0 && lt.HeaterOn > lt.HeaterOff {
			dw += lt.HeaterOn - lt.HeaterOff
		}
		if dw < OffDelayDefault {
			dw = OffDelayDefault
		}
		if c.oldHeater {
			ch.OffDelay = dw
		} else {
			c.offDelayOff = dw
		}
	} else {
		c.offDelayOff = OffDelayDefault
		ch.OffDelay = OffDelayDefault
	}
	zc.ClearLowTime()
}

func (c *Controller) phaseTemperature() {
	adc := c.board.ADC
	res := adc.Result()
	adc.StartConversion(ADCTemperature, 4)

	slot := &c.Analog.HolderV
	if c.sub&1 != 0 {
		slot = &c.Analog.RoomTemp
	}
	if c.sub <= 1 {
		*slot = res
	} else {
		*slot += res
	}
}

func (c *Controller) phasePID(idx int, ch *Channel) {
	c.arm(pidDelay)
	if c.complete && c.sub&1 == 0 {
		c.board.ZeroCross.ArmZeroCross(EdgeRising)
	}
	c.complete = false
	if !c.Mode.Calibration {
		c.board.FrontEnd.SelectInputs(0, 0)
	}
	c.Analog.HeaterOn = c.decision
	c.Analog.Temperature[c.sub&1] = c.board.ADC.Result() >> 2

	if c.sub&1 != 0 {
		ch.updateFaults(c.Analog.Temperature[1])
		if c.pid != nil {
			c.pid.UpdateChannel(idx)
		}
		if ch.KeepOff != 0 {
			ch.KeepOff--
		}
	}

	c.sub = (c.sub + 1) & 3
	c.board.FrontEnd.SetHeaterChannel(c.cfg.Sensor(c.activeChannel()).HChannel)
}

// coldJunctionDue reports whether the shared cold junction sensor is read
// this cycle instead of the iron sensor.
func (c *Controller) coldJunctionDue(sc *SensorConfig) (*SensorConfig, bool) {
	cj := c.cfg.ColdJunction()
	if c.Mode.Calibration || c.decision || c.cjTicks != 0 || cj == nil {
		return cj, false
	}
	return cj, cj.HChannel == sc.HChannel
}

// routeSensor programs the front end and queues the pots for s.
func (c *Controller) routeSensor(s *SensorConfig) {
	fe := c.board.FrontEnd
	fe.SetInvert(s.InputInv)
	fe.SetCompensationBand(s.CBandA, s.CBandB)
	c.i2c.LoadPots(s.Pots())
	if !c.Mode.powerLost.Load() {
		c.i2c.Request(CmdSetPots)
	}
}

func (c *Controller) phaseHeaterFull(ch *Channel, sc *SensorConfig) {
	c.arm(c.mains.PeakTime - midCycleLead)
	if c.sub&1 == 0 {
		c.decision = ch.advance()
	}
	if c.Mode.powerLost.Load() || ch.KeepOff != 0 || c.Mode.Calibration || !sc.Type.Valid() {
		c.decision = false
	}
	if ch.Power == PowerFull {
		c.setHeater(c.decision)
	}

	c.board.ADC.StartAutoVRef(!c.decision)
	if cj, due := c.coldJunctionDue(sc); due {
		c.board.FrontEnd.SelectInputs(cj.InputP, cj.InputN)
		c.routeSensor(cj)
	}

	if c.sub == 0 {
		if c.Mode.HolderSwitch {
			if c.board.Outputs.HolderSwitch() {
				c.Analog.Holder = SampleSaturated
			} else {
				c.Analog.Holder = 0
			}
		} else {
			c.Analog.Holder = c.Analog.HolderV >> 1
		}
	}
}

func (c *Controller) phaseMidCycle(ch *Channel, sc *SensorConfig) bool {
	c.arm(c.mains.QuarterPowerDelay)
	v, i, ok := c.acq.latest()
	if !c.board.ZeroCross.MainsHigh() || (ok && v < powerLostVoltage && c.decision && i < powerLostCurrent) {
		c.OnPowerLost()
		return false
	}
	if ch.Power < PowerQuarter {
		c.setHeater(c.decision)
	}

	if !c.Mode.Calibration {
		c.board.FrontEnd.SelectInputs(0, 0)
	}
	c.routeSensor(sc)

	if cj, due := c.coldJunctionDue(sc); due {
		c.Analog.ColdJunction = i
		c.cjTicks = ColdJunctionPeriod
	} else {
		c.Analog.ColdJunction = 0
		if cj == nil {
			c.cjTicks = 0
		}
	}
	return true
}
