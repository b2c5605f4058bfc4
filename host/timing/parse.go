// Package timing parses the timing ring dumps the station prints on its
// debug UART.
package timing

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"unisolder/core"
)

const (
	linePrefix = "[TIMING] "
	dumpBegin  = "=== Timing Ring Dump ==="
	dumpEnd    = "=== End Dump ==="
)

var (
	ErrNotTiming = errors.New("not a timing line")
	ErrMalformed = errors.New("malformed timing line")
)

// Event is one entry of a timing dump.
type Event struct {
	core.TimingEvent
	Name string
}

// lineKind classifies a parsed line.
type lineKind uint8

const (
	lineEvent lineKind = iota
	lineBegin
	lineEnd
)

// EventType returns the event code for a dump name, or 0.
func EventType(name string) uint8 {
	for t := uint8(core.EvtPhase); t <= core.EvtExtract; t++ {
		if core.EventName(t) == name {
			return t
		}
	}
	return 0
}

// ParseLine parses one event line of a dump. Dump markers and other output
// return ErrNotTiming.
func ParseLine(line string) (Event, error) {
	ev, kind, err := parseLine(line)
	if err == nil && kind != lineEvent {
		err = ErrNotTiming
	}
	return ev, err
}

func parseLine(line string) (Event, lineKind, error) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, linePrefix) {
		return Event{}, 0, ErrNotTiming
	}
	body := strings.TrimPrefix(line, linePrefix)
	switch body {
	case dumpBegin:
		return Event{}, lineBegin, nil
	case dumpEnd:
		return Event{}, lineEnd, nil
	}

	fields := strings.Fields(body)
	if len(fields) != 5 {
		return Event{}, 0, fmt.Errorf("expected 5 fields, got %d: %w", len(fields), ErrMalformed)
	}

	ev := Event{Name: fields[0]}
	ev.EventType = EventType(fields[0])
	var vals [4]uint64
	for i, key := range []string{"tag", "clock", "v1", "v2"} {
		k, v, ok := strings.Cut(fields[i+1], "=")
		if !ok || k != key {
			return Event{}, 0, fmt.Errorf("field %q, want %s=: %w", fields[i+1], key, ErrMalformed)
		}
		bits := 32
		if key == "tag" {
			bits = 8
		}
		n, err := strconv.ParseUint(v, 10, bits)
		if err != nil {
			return Event{}, 0, fmt.Errorf("%s: %w", key, err)
		}
		vals[i] = n
	}
	ev.Tag = uint8(vals[0])
	ev.Clock = uint32(vals[1])
	ev.Value1 = uint32(vals[2])
	ev.Value2 = uint32(vals[3])
	return ev, lineEvent, nil
}

// String renders the event with its tag and values decoded.
func (e Event) String() string {
	switch e.EventType {
	case core.EvtPhase:
		return fmt.Sprintf("%10d %-12s sub=%d next=%dus", e.Clock, core.Phase(e.Tag), e.Value1, e.Value2)
	case core.EvtPowerLost:
		return fmt.Sprintf("%10d POWER LOST in %s sub=%d (#%d)", e.Clock, core.Phase(e.Tag), e.Value1, e.Value2)
	case core.EvtI2CBegin, core.EvtI2CDone:
		return fmt.Sprintf("%10d %-12s %s", e.Clock, e.Name, core.CommandSet(e.Tag))
	case core.EvtI2CAbort:
		return fmt.Sprintf("%10d %-12s %s at step %d", e.Clock, e.Name, core.CommandSet(e.Tag), e.Value1)
	case core.EvtStopAck:
		return fmt.Sprintf("%10d STOP acknowledged at tick %d", e.Clock, e.Value1)
	case core.EvtExtract:
		return fmt.Sprintf("%10d EXTRACT ch%d watts=%d R=%d.%dΩ", e.Clock, e.Tag, e.Value1, e.Value2/10, e.Value2%10)
	}
	return fmt.Sprintf("%10d %s tag=%d v1=%d v2=%d", e.Clock, e.Name, e.Tag, e.Value1, e.Value2)
}

// Intervals returns the clock deltas between consecutive events, handling
// one wrap of the 32-bit µs clock.
func Intervals(events []Event) []uint32 {
	if len(events) < 2 {
		return nil
	}
	out := make([]uint32, len(events)-1)
	for i := 1; i < len(events); i++ {
		out[i-1] = events[i].Clock - events[i-1].Clock
	}
	return out
}
