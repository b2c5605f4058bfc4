//go:build rp2040

package main

import (
	"machine"
)

// Analog front end control lines.
var (
	muxP       = [3]machine.Pin{machine.GP10, machine.GP11, machine.GP12}
	muxN       = [3]machine.Pin{machine.GP13, machine.GP14, machine.GP15}
	invertPin  = machine.GP16
	bandAPin   = machine.GP17
	bandBPin   = machine.GP18
	heaterSel  = machine.GP19
	heaterGate = machine.GP20
	displayPin = machine.GP21
	holderPin  = machine.GP22
	mainsPin   = machine.GP2
)

// rpFrontEnd implements core.AnalogFrontEnd and core.OutputDriver.
type rpFrontEnd struct {
	heater *pioHeater
}

func (f *rpFrontEnd) init() {
	out := machine.PinConfig{Mode: machine.PinOutput}
	for i := range muxP {
		muxP[i].Configure(out)
		muxN[i].Configure(out)
	}
	for _, p := range []machine.Pin{invertPin, bandAPin, bandBPin, heaterSel, displayPin} {
		p.Configure(out)
		p.Low()
	}
	holderPin.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
}

func (f *rpFrontEnd) SelectInputs(p, n uint8) {
	for i := range muxP {
		muxP[i].Set(p&(1<<i) != 0)
		muxN[i].Set(n&(1<<i) != 0)
	}
}

func (f *rpFrontEnd) SetInvert(invert bool) {
	invertPin.Set(invert)
}

func (f *rpFrontEnd) SetCompensationBand(a, b bool) {
	bandAPin.Set(a)
	bandBPin.Set(b)
}

func (f *rpFrontEnd) SetHeaterChannel(ch uint8) {
	heaterSel.Set(ch&1 != 0)
}

func (f *rpFrontEnd) SetHeater(on bool) {
	f.heater.set(on)
}

func (f *rpFrontEnd) SetDisplayPower(on bool) {
	displayPin.Set(on)
}

// HolderSwitch is active low.
func (f *rpFrontEnd) HolderSwitch() bool {
	return !holderPin.Get()
}
