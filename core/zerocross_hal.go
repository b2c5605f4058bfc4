package core

// Edge selects the mains comparator edge that raises an interrupt.
type Edge uint8

const (
	EdgeFalling Edge = iota // high to low, around 4.5V before zero cross
	EdgeRising              // low to high, after zero cross
)

// LowTimes are comparator-low durations measured by the target, in µs.
// Total accumulates until ClearLowTime; HeaterOn and HeaterOff hold the
// last measurement taken with the heater in that state.
type LowTimes struct {
	Total     uint32
	HeaterOn  uint32
	HeaterOff uint32
}

// ZeroCrossDriver is the mains comparator.
type ZeroCrossDriver interface {
	ArmZeroCross(edge Edge)
	DisableZeroCross()

	// MainsHigh returns the live comparator level.
	MainsHigh() bool

	LowTimes() LowTimes

	// ClearLowTime resets LowTimes().Total.
	ClearLowTime()
}

// ISRTimerDriver is the one-shot microsecond timer of the cycle interrupt
// plus the free running 110Hz timer used in DC mode.
type ISRTimerDriver interface {
	StartISRTimer(us uint32)
	StopISRTimer()
	ResetDCTimer()
}
