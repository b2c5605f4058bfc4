package core

import "sync/atomic"

// I2CEngine runs the station's bus commands one primitive operation per
// Service call. Service is called from the low priority bus interrupt;
// Request may be called from any context, including the cycle interrupt.
//
// At most one command is active. Requests for the active command while it
// runs are parked in deferred and become pending again once it finishes or
// aborts, so pending never holds the active bit.
type I2CEngine struct {
	bus  I2CPrimitives
	pots PotSettings

	pending  CommandSet
	deferred CommandSet
	active   CommandSet
	step     uint8
	idle     atomic.Bool

	w eepromCursor
	r eepromCursor

	aborts uint32
}

// NewI2CEngine returns an idle engine driving bus.
func NewI2CEngine(bus I2CPrimitives) *I2CEngine {
	e := &I2CEngine{bus: bus}
	e.Reset()
	return e
}

// Reset drops every pending and active command.
func (e *I2CEngine) Reset() {
	critical(func() {
		e.pending = 0
		e.deferred = 0
		e.active = 0
		e.step = 0
		e.w = eepromCursor{addr: EEPROMIdleAddress}
		e.r = eepromCursor{addr: EEPROMIdleAddress}
		e.idle.Store(true)
	})
}

// Request queues cmds and wakes the bus interrupt if the engine is idle.
func (e *I2CEngine) Request(cmds CommandSet) {
	cmds &= cmdAll
	if cmds == 0 {
		return
	}
	critical(func() {
		e.deferred |= cmds & e.active
		e.pending |= cmds &^ e.active
		// the woken engine counts as busy until its scan comes up empty
		if e.idle.Load() {
			e.idle.Store(false)
			e.bus.WakeUp()
		}
	})
}

// LoadPots sets the values the pot and DAC commands will write. Called from
// the cycle interrupt before it requests CmdSetPots.
func (e *I2CEngine) LoadPots(p PotSettings) {
	e.pots = p
}

// Pots returns the values currently loaded for the pot and DAC commands.
func (e *I2CEngine) Pots() PotSettings {
	return e.pots
}

// Idle reports whether the engine has nothing queued or running. It turns
// false on a waking Request and true when a scan finds nothing to do.
func (e *I2CEngine) Idle() bool {
	return e.idle.Load()
}

// Pending returns the queued commands, excluding the active one.
func (e *I2CEngine) Pending() CommandSet {
	var p CommandSet
	critical(func() {
		p = e.pending | e.deferred
	})
	return p
}

// Active returns the running command, or 0.
func (e *I2CEngine) Active() CommandSet {
	return e.active
}

// Aborts returns how many commands were aborted and requeued.
func (e *I2CEngine) Aborts() uint32 {
	return atomic.LoadUint32(&e.aborts)
}

// Service performs one step of the active command, first selecting the
// highest priority pending command if none is active.
func (e *I2CEngine) Service() {
	if e.active != 0 {
		e.step++
	} else {
		e.step = 0
		critical(func() {
			next := e.pending.Lowest()
			if next == 0 {
				e.idle.Store(true)
				return
			}
			e.pending &^= next
			e.active = next
			e.idle.Store(false)
		})
		if e.active == 0 {
			return
		}
		RecordTiming(EvtI2CBegin, uint8(e.active), GetTime(), 0, 0)
	}

	ok := true
	switch e.active {
	case CmdSetCurrentPot:
		e.stepCurrentPot()
	case CmdSetGainPot:
		e.stepGainPot()
	case CmdSetOffset:
		e.stepOffset()
	case CmdEEPROMWrite:
		ok = e.stepEEPROMWrite()
	case CmdEEPROMRead:
		ok = e.stepEEPROMRead()
	default:
		e.active = 0
	}
	if !ok {
		e.abort()
	}
}

// preempted reports whether a higher priority command is waiting.
func (e *I2CEngine) preempted() bool {
	return e.pending&e.active.higher() != 0
}

// finish completes the active command and releases the bus.
func (e *I2CEngine) finish() {
	done := e.active
	critical(func() {
		e.pending |= e.deferred
		e.deferred = 0
		e.active = 0
	})
	e.bus.Stop()
	RecordTiming(EvtI2CDone, uint8(done), GetTime(), 0, 0)
}

// abort requeues the active command and releases the bus. The command
// restarts from step 0 on a later scan.
func (e *I2CEngine) abort() {
	cmd, step := e.active, e.step
	critical(func() {
		e.pending |= cmd | e.deferred
		e.deferred = 0
		e.active = 0
	})
	e.bus.Stop()
	atomic.AddUint32(&e.aborts, 1)
	RecordTiming(EvtI2CAbort, uint8(cmd), GetTime(), uint32(step), 0)
}
