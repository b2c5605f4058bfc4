//go:build !tinygo

package core

// On the host the cycle and I2C handlers are called from one goroutine, so
// critical sections and the tick counter need no protection.

type interruptState uintptr

func disableInterrupts() interruptState { return 0 }

func restoreInterrupts(interruptState) {}

var systemTicks uint32

func getSystemTicks() uint32 { return systemTicks }

func setSystemTicks(ticks uint32) { systemTicks = ticks }
