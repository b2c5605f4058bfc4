//go:build rp2040

package main

import (
	"machine"
	"sync/atomic"

	"unisolder/i2cbus"
)

// The pots, the offset DAC and the EEPROM share I2C0 (SDA=GP4, SCL=GP5).
const i2cFrequency = 400 * machine.KHz

// i2cWake is raised by the engine and polled by the main loop, which plays
// the part of the low priority bus interrupt.
var i2cWake atomic.Bool

func initI2C() (*i2cbus.TxBus, error) {
	err := machine.I2C0.Configure(machine.I2CConfig{
		Frequency: i2cFrequency,
		SDA:       machine.GP4,
		SCL:       machine.GP5,
	})
	if err != nil {
		return nil, err
	}
	return i2cbus.New(machine.I2C0, func() { i2cWake.Store(true) }), nil
}

// serviceI2C runs the engine until it is idle. Each Service call is one
// bus primitive; the transaction itself goes out on Stop or on the first
// received byte.
func serviceI2C() {
	if !i2cWake.Swap(false) {
		return
	}
	eng := station.I2C()
	for {
		eng.Service()
		if eng.Idle() {
			return
		}
	}
}
