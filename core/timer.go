package core

// The system tick counter runs at 1MHz, so one tick is one microsecond.
// Targets copy their hardware clock into it; the host simulator drives it
// from its event clock.

// GetTime returns the current system time in µs.
func GetTime() uint32 {
	return getSystemTicks()
}

// SetTime sets the current system time.
func SetTime(ticks uint32) {
	setSystemTicks(ticks)
}
