package core

// Waiter is used by the synchronous lifecycle calls while they busy-wait.
type Waiter interface {
	// Yield is called on every spin of a busy-wait loop.
	Yield()

	// DelayUS blocks for at least us microseconds.
	DelayUS(us uint32)
}

// Board aggregates the primitive I/O of a station.
type Board struct {
	Timer     ISRTimerDriver
	ZeroCross ZeroCrossDriver
	ADC       ADCDriver
	FrontEnd  AnalogFrontEnd
	Outputs   OutputDriver
	I2C       I2CPrimitives
	Wait      Waiter
}

// Yield forwards to the board's Waiter, if any.
func (b *Board) Yield() {
	if b.Wait != nil {
		b.Wait.Yield()
	}
}

// DelayUS forwards to the board's Waiter, if any.
func (b *Board) DelayUS(us uint32) {
	if b.Wait != nil {
		b.Wait.DelayUS(us)
	}
}

// Global singleton used by the target main loop.
var board *Board

// SetBoard is called by target-specific code to register its I/O.
func SetBoard(b *Board) {
	board = b
}

// MustBoard returns the configured board or panics if missing.
func MustBoard() *Board {
	if board == nil {
		panic("board not configured")
	}
	return board
}
