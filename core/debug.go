package core

// DebugWriter is a function type for writing debug messages
type DebugWriter func(string)

// TimingEvent captures a timing-critical event for post-mortem analysis
type TimingEvent struct {
	EventType uint8  // Event type code
	Tag       uint8  // Phase, channel or command bit depending on EventType
	Clock     uint32 // System clock at event
	Value1    uint32 // Context-dependent value
	Value2    uint32 // Context-dependent value
}

// Event type codes
const (
	EvtPhase     = 1 // cycle phase entered; Tag=phase, v1=sub-cycle, v2=armed deadline
	EvtPowerLost = 2 // power loss detected; v1=phase, v2=event count
	EvtI2CBegin  = 3 // I2C command activated; Tag=command bit
	EvtI2CAbort  = 4 // I2C command aborted and requeued; Tag=command bit, v1=step
	EvtI2CDone   = 5 // I2C command finished; Tag=command bit
	EvtStopAck   = 6 // stop request acknowledged by the cycle
	EvtExtract   = 7 // RMS extraction; Tag=channel, v1=watts, v2=resistance
)

const (
	TimingRingSize = 32 // Keep last 32 events for post-mortem
)

var (
	// debugPrintln is the global debug print function (can be set by platform code)
	debugPrintln DebugWriter = func(s string) {} // No-op by default

	// debugEnabled controls whether debug output is active
	debugEnabled bool = false

	// Timing capture ring buffer (non-blocking, for post-mortem)
	timingRing     [TimingRingSize]TimingEvent
	timingRingHead uint8        // Next write position
	timingEnabled  bool  = true // Always capture timing events

	// Async debug output channel
	debugChan chan string
)

// SetDebugWriter sets the platform-specific debug output function
// This allows platforms to redirect debug output to UART, USB, etc.
func SetDebugWriter(writer DebugWriter) {
	debugPrintln = writer
}

// SetDebugEnabled enables or disables debug output
func SetDebugEnabled(enabled bool) {
	debugEnabled = enabled
}

// InitAsyncDebug starts the async debug output goroutine
// Call this from main() after SetDebugWriter
func InitAsyncDebug() {
	debugChan = make(chan string, 16)
	go debugOutputWorker()
}

func debugOutputWorker() {
	for msg := range debugChan {
		if debugPrintln != nil {
			debugPrintln(msg)
		}
	}
}

// DebugPrintln writes a debug message using the platform-specific writer
func DebugPrintln(msg string) {
	if debugEnabled && debugPrintln != nil {
		debugPrintln(msg)
	}
}

// DebugAsync queues a debug message for async output (non-blocking).
// Drops the message if the channel is full.
func DebugAsync(msg string) {
	if debugChan != nil {
		select {
		case debugChan <- msg:
		default:
		}
	}
}

// RecordTiming captures a timing event in the ring buffer.
// Safe to call from interrupt context.
func RecordTiming(eventType, tag uint8, clock, value1, value2 uint32) {
	if !timingEnabled {
		return
	}
	idx := timingRingHead
	timingRing[idx] = TimingEvent{
		EventType: eventType,
		Tag:       tag,
		Clock:     clock,
		Value1:    value1,
		Value2:    value2,
	}
	timingRingHead = (idx + 1) % TimingRingSize
}

// TimingEvents returns a copy of the ring, oldest first, skipping empty slots.
func TimingEvents() []TimingEvent {
	out := make([]TimingEvent, 0, TimingRingSize)
	start := timingRingHead
	for i := uint8(0); i < TimingRingSize; i++ {
		evt := timingRing[(start+i)%TimingRingSize]
		if evt.EventType != 0 {
			out = append(out, evt)
		}
	}
	return out
}

// EventName returns the dump name of an event type.
func EventName(eventType uint8) string {
	switch eventType {
	case EvtPhase:
		return "PHASE"
	case EvtPowerLost:
		return "POWER_LOST!"
	case EvtI2CBegin:
		return "I2C_BEGIN"
	case EvtI2CAbort:
		return "I2C_ABORT"
	case EvtI2CDone:
		return "I2C_DONE"
	case EvtStopAck:
		return "STOP_ACK"
	case EvtExtract:
		return "EXTRACT"
	}
	return "UNKNOWN"
}

// DumpTimingRing outputs the timing ring buffer (call on shutdown/error)
func DumpTimingRing() {
	if debugPrintln == nil {
		return
	}

	debugPrintln("[TIMING] === Timing Ring Dump ===")
	for _, evt := range TimingEvents() {
		debugPrintln("[TIMING] " + EventName(evt.EventType) +
			" tag=" + itoa(int(evt.Tag)) +
			" clock=" + utoa(evt.Clock) +
			" v1=" + utoa(evt.Value1) +
			" v2=" + utoa(evt.Value2))
	}
	debugPrintln("[TIMING] === End Dump ===")
}

// ClearTimingRing clears the timing buffer
func ClearTimingRing() {
	for i := range timingRing {
		timingRing[i] = TimingEvent{}
	}
	timingRingHead = 0
}
