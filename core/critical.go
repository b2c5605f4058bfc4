package core

// critical runs fn with interrupts disabled. The previous interrupt state is
// restored on every return path, including a panic inside fn.
//
// Both the cycle interrupt and the I2C interrupt touch the pending command
// mask; every test-and-set of that mask goes through here.
func critical(fn func()) {
	state := disableInterrupts()
	defer restoreInterrupts(state)
	fn()
}
