//go:build rp2040

package main

import (
	"device/rp"
	"runtime/interrupt"
	"runtime/volatile"
	"unsafe"

	"unisolder/core"
)

// RP2040 Timer peripheral memory map
const (
	timerBase     = 0x40054000
	timerTIMERAWH = timerBase + 0x24 // Raw timer high word
	timerTIMERAWL = timerBase + 0x28 // Raw timer low word
)

var (
	timerRAWH = (*volatile.Register32)(unsafe.Pointer(uintptr(timerTIMERAWH)))
	timerRAWL = (*volatile.Register32)(unsafe.Pointer(uintptr(timerTIMERAWL)))
)

// Alarm 0 belongs to the TinyGo runtime.
const (
	alarmCycle = 1 // one-shot cycle timer
	alarmDC    = 2 // free running DC timer
	alarmADC   = 3 // ADC conversions and auto-sampling
)

const dcPeriod = 1000000 / core.DCTimerHz

// GetHardwareTime returns the low 32 bits of the 1MHz timer.
func GetHardwareTime() uint32 {
	return timerRAWL.Get()
}

// GetHardwareUptime reads the full 64-bit timer.
func GetHardwareUptime() uint64 {
	for {
		high1 := timerRAWH.Get()
		low := timerRAWL.Get()
		high2 := timerRAWH.Get()
		if high1 == high2 {
			return (uint64(high1) << 32) | uint64(low)
		}
	}
}

// UpdateSystemTime copies hardware time into the core clock. Every
// interrupt handler calls it first so timing records are current.
func UpdateSystemTime() {
	core.SetTime(GetHardwareTime())
}

// rpTimers implements core.ISRTimerDriver with timer alarms 1 and 2.
type rpTimers struct {
	ac bool
}

func (t *rpTimers) init() {
	rp.TIMER.INTE.SetBits(1<<alarmCycle | 1<<alarmDC)

	intr := interrupt.New(rp.IRQ_TIMER_IRQ_1, func(interrupt.Interrupt) {
		rp.TIMER.INTR.Set(1 << alarmCycle)
		UpdateSystemTime()
		station.OnTimer()
	})
	intr.SetPriority(0x40)
	intr.Enable()

	intr = interrupt.New(rp.IRQ_TIMER_IRQ_2, func(interrupt.Interrupt) {
		rp.TIMER.INTR.Set(1 << alarmDC)
		rp.TIMER.ALARM2.Set(rp.TIMER.ALARM2.Get() + dcPeriod)
		UpdateSystemTime()
		station.OnDCTimer()
	})
	intr.SetPriority(0x40)
	intr.Enable()
}

func (t *rpTimers) StartISRTimer(us uint32) {
	rp.TIMER.ALARM1.Set(GetHardwareTime() + us)
}

func (t *rpTimers) StopISRTimer() {
	rp.TIMER.ARMED.Set(1 << alarmCycle)
	rp.TIMER.INTR.Set(1 << alarmCycle)
}

// ResetDCTimer restarts the DC timer. It stays disarmed on AC.
func (t *rpTimers) ResetDCTimer() {
	rp.TIMER.ARMED.Set(1 << alarmDC)
	if !t.ac {
		rp.TIMER.ALARM2.Set(GetHardwareTime() + dcPeriod)
	}
}
