package sim

import "unisolder/core"

// Cycle timer

func (s *Station) StartISRTimer(us uint32) {
	s.gens[evTimer]++
	s.schedule(evTimer, s.now+uint64(us), 0)
}

func (s *Station) StopISRTimer() {
	s.gens[evTimer]++
}

// ResetDCTimer restarts the free running DC timer. It never runs in AC mode.
func (s *Station) ResetDCTimer() {
	s.gens[evDCTimer]++
	if !s.p.Mains.AC {
		s.schedule(evDCTimer, s.now+1000000/core.DCTimerHz, 0)
	}
}

// Comparator

func (s *Station) ArmZeroCross(edge core.Edge) {
	s.gens[evZeroCross]++
	s.zcArmed = true
	s.zcEdge = edge
	if s.p.Mains.AC && s.powered {
		s.schedule(evZeroCross, s.p.Mains.NextEdge(edge, s.now), 0)
	}
}

func (s *Station) DisableZeroCross() {
	s.gens[evZeroCross]++
	s.zcArmed = false
}

func (s *Station) MainsHigh() bool {
	return s.powered && s.p.Mains.High(s.now)
}

func (s *Station) LowTimes() core.LowTimes {
	return s.low
}

func (s *Station) ClearLowTime() {
	s.low.Total = 0
}

// ADC

func (s *Station) StartConversion(ch core.ADCChannel, samples uint8) {
	s.gens[evADC]++
	s.convCh = ch
	s.convN = samples
	s.schedule(evADC, s.now+uint64(s.p.ConversionTime)*uint64(samples), 0)
}

func (s *Station) Result() uint16 {
	return s.result
}

func (s *Station) StartManualVRef() {
	s.gens[evSample]++
	s.sampling = false
}

func (s *Station) StartAutoVRef(heaterOff bool) {
	s.gens[evSample]++
	s.sampling = true
	s.schedule(evSample, s.now+uint64(s.p.SampleInterval), 0)
}

func (s *Station) StopADC() {
	s.gens[evSample]++
	s.gens[evADC]++
	s.sampling = false
}

// Analog front end

func (s *Station) SelectInputs(p, n uint8) {
	s.inP, s.inN = p, n
}

func (s *Station) SetInvert(invert bool) {
	s.invert = invert
}

func (s *Station) SetCompensationBand(a, b bool) {
	s.bands = [2]bool{a, b}
}

func (s *Station) SetHeaterChannel(ch uint8) {
	s.heaterSel = ch & 1
}

// HeaterChannel returns the heater selected by the front end.
func (s *Station) HeaterChannel() uint8 {
	return s.heaterSel
}

// Outputs

func (s *Station) SetHeater(on bool) {
	s.heaterOn = on
}

func (s *Station) SetDisplayPower(on bool) {
	s.display = on
}

func (s *Station) HolderSwitch() bool {
	return s.p.InHolder
}

// HeaterOn reports the heater gate output.
func (s *Station) HeaterOn() bool {
	return s.heaterOn
}

// Waiter

// Yield delivers one interrupt, or lets a microsecond pass when nothing is
// pending.
func (s *Station) Yield() {
	if !s.Step() {
		s.advance(s.now + 1)
	}
}

func (s *Station) DelayUS(us uint32) {
	s.RunFor(uint64(us))
}
