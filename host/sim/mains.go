package sim

import (
	"github.com/chewxy/math32"

	"unisolder/core"
)

// Mains models the supply as seen by the heater and by the zero cross
// comparator: a full-wave rectified sine in AC mode, a flat rail in DC mode.
type Mains struct {
	Hz         float32
	AC         bool
	Volts      float32 // RMS in AC, rail voltage in DC
	Comparator float32 // comparator trip level, volts
}

func (m Mains) peak() float32 {
	if !m.AC {
		return m.Volts
	}
	return m.Volts * math32.Sqrt2
}

// halfPeriod returns the time between zero crosses in µs.
func (m Mains) halfPeriod() float64 {
	return 1e6 / (2 * float64(m.Hz))
}

// lowHalfWidth is the time in µs the comparator stays low on each side of
// a zero cross.
func (m Mains) lowHalfWidth() float64 {
	pk := m.peak()
	if pk <= m.Comparator {
		return m.halfPeriod() / 2
	}
	a := math32.Asin(m.Comparator / pk)
	return float64(a/(2*math32.Pi*m.Hz)) * 1e6
}

// LowTime returns the comparator low time around one zero cross, in µs.
func (m Mains) LowTime() uint32 {
	return uint32(2*m.lowHalfWidth() + 0.5)
}

// At returns the instantaneous rectified supply voltage at t µs.
func (m Mains) At(t uint64) float32 {
	if !m.AC {
		return m.Volts
	}
	hp := m.halfPeriod()
	k := uint64(float64(t) / hp)
	frac := float32((float64(t) - float64(k)*hp) / hp)
	return m.peak() * math32.Abs(math32.Sin(math32.Pi*frac))
}

// High returns the comparator output at t.
func (m Mains) High(t uint64) bool {
	return m.At(t) > m.Comparator
}

// NextEdge returns the first comparator edge of the given polarity strictly
// after t. Only meaningful in AC mode.
func (m Mains) NextEdge(edge core.Edge, t uint64) uint64 {
	hp := m.halfPeriod()
	d := m.lowHalfWidth()
	if edge == core.EdgeRising {
		d = -d
	}
	// edges sit at k*hp - d
	k := 0.0
	if x := (float64(t) + d) / hp; x > 0 {
		k = float64(uint64(x))
	}
	at := k*hp - d
	for at <= float64(t) {
		k++
		at = k*hp - d
	}
	return uint64(at) + 1
}
