package sim

import "github.com/chewxy/math32"

// Heater is a lumped thermal model of an iron: a heater with a linear
// temperature coefficient feeding a single thermal mass.
type Heater struct {
	R0       float32 // Ω at ambient
	Alpha    float32 // resistance tempco, 1/°C
	Capacity float32 // J/°C
	Loss     float32 // W/°C to ambient

	// Fault injection.
	Open       bool // heater wire broken
	SensorOpen bool // sensor wire broken, reads full scale

	Temp    float32 // °C
	ambient float32
	energy  float32 // J delivered since the last Reset
}

// Resistance returns the heater resistance at the current temperature.
func (h *Heater) Resistance() float32 {
	r := h.R0 * (1 + h.Alpha*(h.Temp-h.ambient))
	if r < 0.01 {
		r = 0.01
	}
	return r
}

// Current returns the heater current for a supply of v volts.
func (h *Heater) Current(v float32) float32 {
	if h.Open {
		return 0
	}
	return v / h.Resistance()
}

// Integrate advances the model by dt µs with v volts across the heater
// when on.
func (h *Heater) Integrate(v float32, on bool, dt uint32) {
	sec := float32(dt) * 1e-6
	var p float32
	if on && !h.Open {
		p = v * v / h.Resistance()
	}
	h.energy += p * sec
	h.Temp += (p - h.Loss*(h.Temp-h.ambient)) * sec / h.Capacity
}

// Energy returns the joules delivered since the model was created.
func (h *Heater) Energy() float32 {
	return h.energy
}

// SensorCode converts the temperature to a raw 10-bit sensor reading with
// a linear sensor of gain codes per °C above offset.
func (h *Heater) SensorCode(offset, gain float32) uint16 {
	if h.SensorOpen {
		return 1023
	}
	c := math32.Floor(offset + gain*(h.Temp-h.ambient) + 0.5)
	return clampCode(c)
}

func clampCode(c float32) uint16 {
	switch {
	case c < 0:
		return 0
	case c > 1023:
		return 1023
	}
	return uint16(c)
}
