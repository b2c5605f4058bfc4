//go:build rp2040

package main

import (
	"device/rp"
	"machine"
	"runtime/interrupt"

	"unisolder/core"
)

// ADC inputs. Room temperature comes from the on-die sensor.
const (
	ainVoltage     = 0 // GP26, heater voltage divider
	ainCurrent     = 1 // GP27, shunt amplifier
	ainTemperature = 2 // GP28, sensor amplifier
	ainHolder      = 3 // GP29, holder divider
	ainRoom        = 4
)

const (
	sampleInterval = 150 // µs between auto-sampled pairs
	conversionTime = 4   // µs allowed per one-shot sample
)

type adcMode uint8

const (
	adcIdle adcMode = iota
	adcOneShot
	adcAuto
)

// rpADC implements core.ADCDriver. One-shot conversions and auto-sampling
// are paced by timer alarm 3; the conversions themselves take 2µs and are
// done in the alarm handler.
type rpADC struct {
	mode    adcMode
	ain     uint8
	samples uint8
	result  uint16
}

func (a *rpADC) init() {
	machine.InitADC()
	for _, p := range []machine.Pin{machine.ADC0, machine.ADC1, machine.ADC2, machine.ADC3} {
		adc := machine.ADC{Pin: p}
		adc.Configure(machine.ADCConfig{})
	}
	rp.ADC.CS.SetBits(rp.ADC_CS_TS_EN)

	rp.TIMER.INTE.SetBits(1 << alarmADC)
	intr := interrupt.New(rp.IRQ_TIMER_IRQ_3, func(interrupt.Interrupt) {
		rp.TIMER.INTR.Set(1 << alarmADC)
		UpdateSystemTime()
		adcUnit.onAlarm()
	})
	intr.SetPriority(0x40)
	intr.Enable()
}

// read returns one 10-bit sample of ain.
func (a *rpADC) read(ain uint8) uint16 {
	rp.ADC.CS.ReplaceBits(uint32(ain)<<rp.ADC_CS_AINSEL_Pos, rp.ADC_CS_AINSEL_Msk, 0)
	rp.ADC.CS.SetBits(rp.ADC_CS_START_ONCE)
	for !rp.ADC.CS.HasBits(rp.ADC_CS_READY) {
	}
	return uint16(rp.ADC.RESULT.Get()) >> 2
}

func (a *rpADC) onAlarm() {
	switch a.mode {
	case adcOneShot:
		var sum uint16
		for i := uint8(0); i < a.samples; i++ {
			sum += a.read(a.ain)
		}
		a.result = sum
		a.mode = adcIdle
		station.OnADCComplete()
	case adcAuto:
		rp.TIMER.ALARM3.Set(rp.TIMER.ALARM3.Get() + sampleInterval)
		v := a.read(ainVoltage)
		i := a.read(ainCurrent)
		station.OnSample(v, i)
	}
}

func (a *rpADC) arm(us uint32) {
	rp.TIMER.ALARM3.Set(GetHardwareTime() + us)
}

func (a *rpADC) disarm() {
	rp.TIMER.ARMED.Set(1 << alarmADC)
	rp.TIMER.INTR.Set(1 << alarmADC)
}

func (a *rpADC) StartConversion(ch core.ADCChannel, samples uint8) {
	switch ch {
	case core.ADCTemperature:
		a.ain = ainTemperature
	case core.ADCRoomTemperature:
		a.ain = ainRoom
	case core.ADCHolder:
		a.ain = ainHolder
	case core.ADCVoltage:
		a.ain = ainVoltage
	default:
		a.ain = ainCurrent
	}
	a.samples = samples
	a.mode = adcOneShot
	a.arm(conversionTime * uint32(samples))
}

func (a *rpADC) Result() uint16 {
	return a.result
}

// The RP2040 has a single fixed reference; the reference calls only change
// the sampling mode.
func (a *rpADC) StartManualVRef() {
	a.disarm()
	a.mode = adcIdle
}

func (a *rpADC) StartAutoVRef(heaterOff bool) {
	a.mode = adcAuto
	a.arm(sampleInterval)
}

func (a *rpADC) StopADC() {
	a.disarm()
	a.mode = adcIdle
}
