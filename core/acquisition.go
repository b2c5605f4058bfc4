package core

const (
	// AcquisitionSize is the capacity of the voltage/current sample buffers.
	AcquisitionSize = 64

	// SampleSaturated is the full-scale 10-bit ADC code.
	SampleSaturated = 1023

	// resistanceScale converts a voltage-pair / current sample ratio to
	// resistance in 0.1Ω units, with 9 fractional bits:
	// 6738 = 10 * 256 * (((Rs1 * (R48 / R42)) / VRef) * 1024) / (((R51 / (R47 + R51)) / VRef) * 1024)
	//      = 10 * 256 * (((0.003 * (47K / 1.5K)) / 3.0V) * 1024) / (((1K / (27K + 1K)) / 3.0V) * 1024)
	//      = 6737.92
	resistanceScale = 6738

	// powerScale is the product of the voltage and current ADC gains:
	// 391 = (((R51 / (R47 + R51)) / VRef) * 1024) * (((Rs1 * (R48 / R42)) / VRef) * 1024)
	//     = (((1K / (27K + 1K)) / 3.0V) * 1024) * (((0.003 * (47K / 1.5K)) / 3.0V) * 1024)
	//     = 391.135
	powerScale = 391

	// PowerDutyFull is the RMS normalisation for a heater driven every
	// half cycle. It is halved when two channels share the mains cycles.
	PowerDutyFull = 4096

	// ResistanceInfinite is reported when no usable reference sample was
	// found.
	ResistanceInfinite = 0x7FFF

	// TipChangeResistance is reported while a tip is being swapped.
	TipChangeResistance = 5000
)

// Measurement is the result of one extraction pass.
// Voltage and current are RMS values in units of two ADC codes, watts are
// scaled by the duty normalisation, resistance is in 0.1Ω.
type Measurement struct {
	Voltage    uint16
	Current    uint16
	Watts      uint32
	Resistance uint16
}

// Acquisition holds the heater voltage and current samples of one half
// cycle. Samples are pushed from the ADC interrupt and read by the cycle
// interrupt after sampling has been stopped.
type Acquisition struct {
	V   [AcquisitionSize]uint16
	I   [AcquisitionSize]uint16
	cnt int
}

// Push appends a sample pair. Samples past capacity are dropped.
func (a *Acquisition) Push(v, i uint16) {
	if a.cnt >= AcquisitionSize {
		return
	}
	a.V[a.cnt] = v
	a.I[a.cnt] = i
	a.cnt++
}

// Reset empties the buffers.
func (a *Acquisition) Reset() {
	a.cnt = 0
}

// Len returns the number of buffered sample pairs.
func (a *Acquisition) Len() int {
	return a.cnt
}

// representative returns the sample a quarter of the way into the buffer.
// ok is false when that index is 0.
func (a *Acquisition) representative() (v, i uint16, ok bool) {
	idx := a.cnt >> 2
	if idx == 0 {
		return 0, 0, false
	}
	return a.V[idx], a.I[idx], true
}

// latest returns the last pushed sample.
func (a *Acquisition) latest() (v, i uint16, ok bool) {
	if a.cnt == 0 {
		return 0, 0, false
	}
	return a.V[a.cnt-1], a.I[a.cnt-1], true
}

// Extract computes RMS voltage, RMS current, average power and resistance
// from the buffered samples. duty is the normalisation, PowerDutyFull or
// half of it. ok is false with fewer than two samples.
//
// Voltage samples are summed in adjacent pairs to line up with the current
// sample taken between them. The pair with the largest unsaturated current
// (and unsaturated voltages) is the reference for the heater resistance.
// A saturated current sample is replaced by voltage / resistance, using the
// estimate taken from the reference found so far; the reference may still
// move to a later (lower index) sample afterwards.
func (a *Acquisition) Extract(duty uint32) (m Measurement, ok bool) {
	n := uint32(a.cnt)
	if n <= 1 {
		return m, false
	}
	pairs := n - 1

	var sv, si, sp, ri, rv, r uint32
	for i := int(pairs) - 1; i >= 0; i-- {
		ci := uint32(a.I[i])
		cv := uint32(a.V[i]) + uint32(a.V[i+1])
		if ci < SampleSaturated {
			if ri < ci && a.V[i] < SampleSaturated && a.V[i+1] < SampleSaturated {
				ri = ci
				rv = cv
				r = 0
			}
		} else {
			if r == 0 && ri != 0 {
				r = ((rv * resistanceScale) / ri) >> 9
			}
			if r != 0 {
				ci = ((cv * resistanceScale) / r) >> 9
			}
		}
		sv += cv * cv
		si += ci * ci
		sp += ci * cv
	}

	if ri != 0 {
		r = (((rv * resistanceScale) / ri) + 256) >> 9
	} else {
		r = ResistanceInfinite
	}

	sv = (sv + (pairs >> 1)) / pairs
	si = (si + (pairs >> 1)) / pairs
	l := pairs * (powerScale * 2)
	sp = (sp + (l >> 1)) / l

	m.Voltage = uint16((isqrt(sv*duty) + 31) >> 6)
	m.Current = uint16((isqrt(si*duty) + 15) >> 5)
	m.Watts = (sp*duty + 511) >> 10
	m.Resistance = uint16(r)
	return m, true
}

// isqrt returns floor(sqrt(x)).
func isqrt(x uint32) uint32 {
	var res uint32
	bit := uint32(1) << 30
	for bit > x {
		bit >>= 2
	}
	for bit != 0 {
		if x >= res+bit {
			x -= res + bit
			res = res>>1 + bit
		} else {
			res >>= 1
		}
		bit >>= 2
	}
	return res
}
