package core

// Phase is a step of the mains half-cycle state machine. Phases run in
// order, each entered from a timer, comparator or ADC interrupt.
type Phase uint8

const (
	PhaseZeroCross   Phase = iota // comparator fell (AC) or DC timer tick; arm the safety timer
	PhaseHeaterOff                // ~260µs before zero cross: heater off, manual ADC reference
	PhaseExtract                  // ~210µs before zero cross: route inputs, power check, extraction
	PhaseRoomHolder               // ~40µs after zero cross: room temperature or holder sample
	PhaseTemperature              // ~65µs after zero cross: 4-sample temperature conversion
	PhasePID                      // faults, PID, next sub-cycle
	PhaseHeaterFull               // full power decision, cold junction routing
	PhaseMidCycle                 // mains peak: power check, half power point
	PhaseQuarter                  // quarter power point
	PhaseEighth                   // eighth power point
	PhaseRearm                    // re-arm the comparator for the next cycle
	PhaseDone                     // idle until the next comparator edge or DC tick
)

var phaseNames = [...]string{
	"ZERO_CROSS", "HEATER_OFF", "EXTRACT", "ROOM_HOLDER", "TEMPERATURE",
	"PID", "HEATER_FULL", "MID_CYCLE", "QUARTER", "EIGHTH", "REARM", "DONE",
}

func (p Phase) String() string {
	if int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return "PHASE_" + utoa(uint32(p))
}

// Source identifies the interrupt entering the state machine.
type Source uint8

const (
	SourceZeroCrossFall Source = iota
	SourceZeroCrossRise
	SourceDCTimer
	SourceTimer
	SourceADC
)

// Phase deadlines in µs.
const (
	// The comparator trips ~260µs before the zero cross. 40µs more cover
	// the group delay of the R46-R43-C60 filter (25µs) and interrupt
	// latency (~15µs).
	zeroCrossLead    = 300
	safetyDelayMin   = 10
	safetyDelayMax   = 1000
	heaterOffDelay   = 50
	extractDelayAC   = 250
	extractDelayDC   = 550
	pidDelay         = 125
	midCycleLead     = 250
	eighthPointDelay = 200

	// ColdJunctionPeriod is the number of cycles between cold junction reads.
	ColdJunctionPeriod = 100

	// Power loss thresholds on raw samples: below 0.5A and 7.4V.
	powerLostVoltage = 90
	powerLostCurrent = 16

	// DCTimerHz is the cycle rate when running from DC.
	DCTimerHz = 110
)

// MainsTiming holds the frequency dependent deadlines, in µs.
type MainsTiming struct {
	Hz         uint32
	HalfPeriod uint32

	// PeakTime is the time from the zero cross to the mains peak, the half
	// power point.
	PeakTime uint32

	// QuarterPowerDelay is the time from the mains peak to the point where
	// switching on leaves a quarter of the half-cycle energy.
	QuarterPowerDelay uint32

	// EighthPowerDelay is the time from the quarter power point to the
	// eighth power point.
	EighthPowerDelay uint32
}

var (
	// Power points from the sin² energy integral over a half period.
	Mains50Hz = MainsTiming{Hz: 50, HalfPeriod: 10000, PeakTime: 5000, QuarterPowerDelay: 1324, EighthPowerDelay: 865}
	Mains60Hz = MainsTiming{Hz: 60, HalfPeriod: 8333, PeakTime: 4167, QuarterPowerDelay: 1103, EighthPowerDelay: 721}
)

// TimingFor returns the preset for hz, falling back to 50Hz.
func TimingFor(hz uint32) MainsTiming {
	if hz == 60 {
		return Mains60Hz
	}
	return Mains50Hz
}

// safetyDelay converts an off delay in 1/16 µs to the phase 0 deadline.
func safetyDelay(offDelay uint32) uint32 {
	d := int32(offDelay>>4) - zeroCrossLead
	if d < safetyDelayMin {
		d = safetyDelayMin
	}
	if d > safetyDelayMax {
		d = safetyDelayMax
	}
	return uint32(d)
}
