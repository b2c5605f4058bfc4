//go:build rp2040

package main

import (
	"machine"

	rp2pio "github.com/tinygo-org/pio/rp2-pio"
)

// The gate follows the low bit of each word pushed into the FIFO, so the
// pin changes a few PIO clocks after SetHeater.
func buildGateProgram() []uint16 {
	asm := rp2pio.AssemblerV0{SidesetBits: 0}
	return []uint16{
		// .wrap_target
		asm.Pull(false, true).Encode(),          // 0: pull block
		asm.Out(rp2pio.OutDestPins, 1).Encode(), // 1: out pins, 1
		// .wrap
	}
}

const gatePIOOrigin = 0

// pioHeater drives the heater gate from a PIO state machine.
type pioHeater struct {
	pio *rp2pio.PIO
	sm  rp2pio.StateMachine
	pin machine.Pin
	on  bool
}

func newPIOHeater(pin machine.Pin) *pioHeater {
	return &pioHeater{
		pio: rp2pio.PIO0,
		sm:  rp2pio.PIO0.StateMachine(0),
		pin: pin,
	}
}

func (h *pioHeater) init() error {
	h.sm.TryClaim()

	program := buildGateProgram()
	offset, err := h.pio.AddProgram(program, gatePIOOrigin)
	if err != nil {
		return err
	}

	h.pin.Configure(machine.PinConfig{Mode: h.pio.PinMode()})

	cfg := rp2pio.DefaultStateMachineConfig()
	cfg.SetOutPins(h.pin, 1)
	cfg.SetOutShift(true, false, 32)
	cfg.SetWrap(offset+uint8(len(program))-1, offset)
	cfg.SetClkDivIntFrac(1, 0)

	// Init before the pin direction, then start with the gate off.
	h.sm.Init(offset, cfg)
	h.sm.SetPindirsConsecutive(h.pin, 1, true)
	h.sm.SetPinsConsecutive(h.pin, 1, false)
	h.sm.SetEnabled(true)
	return nil
}

// set queues the new gate level. The FIFO is drained two clocks after each
// push so it never fills from the cycle interrupt.
func (h *pioHeater) set(on bool) {
	h.on = on
	var w uint32
	if on {
		w = 1
	}
	if !h.sm.IsTxFIFOFull() {
		h.sm.TxPut(w)
	}
}
