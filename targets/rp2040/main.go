//go:build rp2040

package main

import (
	"machine"
	"time"

	"unisolder/core"
)

// Board wiring of the station. The sensor pots and mux inputs match the
// two iron connectors of the reference board.
var sensors = core.StaticConfig{
	Channels: [core.Channels]core.SensorConfig{
		{Type: core.SensorThermocouple, InputP: 1, InputN: 2, HChannel: 0, CurrentA: 128, CurrentB: 128, Gain: 128, Offset: 512},
		{Type: core.SensorPTC, InputP: 3, InputN: 4, HChannel: 1, CurrentA: 64, CurrentB: 64, Gain: 96, Offset: 512},
	},
}

const (
	mainsHz      = 50
	acPower      = true
	debugBaud    = 115200
	statusPeriod = 2 * time.Second

	// Regulation on raw sensor codes. Full power from 512 codes below the
	// setpoint.
	regGainShift = 15
	ch0Setpoint  = 620
	ch1Setpoint  = 540
)

var (
	station *core.Controller

	adcUnit  = &rpADC{}
	timers   = &rpTimers{ac: acPower}
	gate     = newPIOHeater(heaterGate)
	frontEnd = &rpFrontEnd{heater: gate}
	mains    = &rpZeroCross{pin: mainsPin, heater: gate}
)

// rpWaiter spins on the hardware timer while Start and Stop wait.
type rpWaiter struct{}

func (rpWaiter) Yield() {
	UpdateSystemTime()
}

func (rpWaiter) DelayUS(us uint32) {
	start := GetHardwareTime()
	for GetHardwareTime()-start < us {
	}
	UpdateSystemTime()
}

func main() {
	// Clear any watchdog state left over from before the reset.
	if err := machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 0}); err != nil {
		return
	}

	machine.UART0.Configure(machine.UARTConfig{BaudRate: debugBaud})
	core.SetDebugWriter(func(s string) {
		machine.UART0.Write([]byte(s))
		machine.UART0.Write([]byte("\r\n"))
	})
	core.SetDebugEnabled(true)
	core.InitAsyncDebug()
	UpdateSystemTime()

	bus, err := initI2C()
	if err != nil {
		core.DebugPrintln("i2c: " + err.Error())
		return
	}
	if err := gate.init(); err != nil {
		core.DebugPrintln("pio: " + err.Error())
		return
	}
	frontEnd.init()

	board := &core.Board{
		Timer:     timers,
		ZeroCross: mains,
		ADC:       adcUnit,
		FrontEnd:  frontEnd,
		Outputs:   frontEnd,
		I2C:       bus,
		Wait:      rpWaiter{},
	}
	core.SetBoard(board)
	regulator := core.NewRegulator(regGainShift)
	regulator.Setpoint = [core.Channels]uint16{ch0Setpoint, ch1Setpoint}
	station = core.NewController(core.MustBoard(), &sensors, regulator, core.Options{
		Mains:   core.TimingFor(mainsHz),
		ACPower: acPower,
	})
	regulator.Bind(station)

	adcUnit.init()
	timers.init()
	mains.init()

	frontEnd.SetDisplayPower(true)
	station.Start()
	core.DebugAsync("station started")

	lastStatus := GetHardwareUptime()
	for {
		UpdateSystemTime()
		serviceI2C()

		if station.PowerLost() {
			core.DebugPrintln("power lost")
			core.DumpTimingRing()
			for station.PowerLost() && !mains.MainsHigh() {
				time.Sleep(time.Millisecond)
			}
			station.Init()
			frontEnd.SetDisplayPower(true)
			station.Start()
		}

		if now := GetHardwareUptime(); now-lastStatus >= uint64(statusPeriod/time.Microsecond) {
			lastStatus = now
			reportStatus()
		}
		time.Sleep(50 * time.Microsecond)
	}
}

func reportStatus() {
	for i := range station.Channels {
		core.DebugAsync("ch" + string(rune('0'+i)) + " " + station.Channels[i].Status())
	}
}
