//go:build rp2040

package main

import (
	"machine"

	"unisolder/core"
)

// rpZeroCross implements core.ZeroCrossDriver on a comparator input. Both
// edges are always watched so the low time can be measured; only the
// armed edge is passed on to the controller.
type rpZeroCross struct {
	pin    machine.Pin
	heater *pioHeater

	armed bool
	edge  core.Edge

	fellAt uint32
	low    core.LowTimes
}

func (z *rpZeroCross) init() {
	z.pin.Configure(machine.PinConfig{Mode: machine.PinInput})
	z.pin.SetInterrupt(machine.PinToggle, z.onEdge)
}

func (z *rpZeroCross) onEdge(machine.Pin) {
	UpdateSystemTime()
	now := core.GetTime()

	edge := core.EdgeFalling
	if z.pin.Get() {
		edge = core.EdgeRising
		lt := now - z.fellAt
		if z.heater.on {
			z.low.HeaterOn = lt
		} else {
			z.low.HeaterOff = lt
		}
		z.low.Total += lt
	} else {
		z.fellAt = now
	}

	if z.armed && z.edge == edge {
		station.OnZeroCross(edge)
	}
}

func (z *rpZeroCross) ArmZeroCross(edge core.Edge) {
	z.edge = edge
	z.armed = true
}

func (z *rpZeroCross) DisableZeroCross() {
	z.armed = false
}

func (z *rpZeroCross) MainsHigh() bool {
	return z.pin.Get()
}

func (z *rpZeroCross) LowTimes() core.LowTimes {
	return z.low
}

func (z *rpZeroCross) ClearLowTime() {
	z.low.Total = 0
}
