package sim

import (
	"github.com/chewxy/math32"

	"unisolder/core"
)

// UpdateChannel is the temperature loop the cycle calls once per channel
// per mains cycle. It collects fresh measurements and, when the channel has
// a setpoint, sets its duty proportionally to the temperature error.
func (s *Station) UpdateChannel(ch int) {
	c := &s.Ctrl.Channels[ch]
	if c.NewData {
		s.Last[ch] = core.Measurement{
			Voltage:    c.Voltage,
			Current:    c.Current,
			Watts:      c.Watts,
			Resistance: c.Resistance,
		}
		s.Extractions[ch]++
		c.NewData = false
	}

	hp := &s.p.Heaters[ch]
	if hp.Setpoint == 0 || hp.SensorGain == 0 {
		return
	}
	c.Duty = proportionalDuty(hp, s.p.Ambient, s.Ctrl.Analog.Temperature[1])
}

// proportionalDuty converts a raw sensor code to a duty for hp's setpoint.
func proportionalDuty(hp *HeaterParams, ambient float32, code uint16) uint32 {
	temp := ambient + (float32(code)-hp.SensorOffset)/hp.SensorGain
	frac := (hp.Setpoint - temp) * hp.PGain
	frac = math32.Max(0, math32.Min(1, frac))
	return uint32(frac * core.DutyFull)
}

// Temperature returns channel ch's modelled temperature in °C.
func (s *Station) Temperature(ch int) float32 {
	return s.Heaters[ch].Temp
}
