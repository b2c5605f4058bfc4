package timing

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unisolder/core"
)

// captureDump records events in the core ring and returns its dump text.
func captureDump(t *testing.T, record func()) string {
	t.Helper()
	var lines []string
	core.SetDebugWriter(func(s string) { lines = append(lines, s) })
	t.Cleanup(func() {
		core.SetDebugWriter(func(string) {})
		core.ClearTimingRing()
	})

	core.ClearTimingRing()
	record()
	core.DumpTimingRing()
	return strings.Join(lines, "\n") + "\n"
}

func TestParseLine(t *testing.T) {
	ev, err := ParseLine("[TIMING] PHASE tag=6 clock=123456 v1=2 v2=4750")
	require.NoError(t, err)
	assert.Equal(t, uint8(core.EvtPhase), ev.EventType)
	assert.Equal(t, "PHASE", ev.Name)
	assert.Equal(t, uint8(core.PhaseHeaterFull), ev.Tag)
	assert.Equal(t, uint32(123456), ev.Clock)
	assert.Equal(t, uint32(2), ev.Value1)
	assert.Equal(t, uint32(4750), ev.Value2)

	_, err = ParseLine("[TIMING] === Timing Ring Dump ===")
	assert.ErrorIs(t, err, ErrNotTiming)
	_, err = ParseLine("boot ok")
	assert.ErrorIs(t, err, ErrNotTiming)

	for _, bad := range []string{
		"[TIMING] PHASE tag=6 clock=1 v1=2",
		"[TIMING] PHASE tag=6 clock=1 v2=2 v1=3",
		"[TIMING] PHASE tag=300 clock=1 v1=2 v2=3",
	} {
		_, err = ParseLine(bad)
		assert.Error(t, err, bad)
	}
}

func TestEventTypeNames(t *testing.T) {
	assert.Equal(t, uint8(core.EvtPowerLost), EventType("POWER_LOST!"))
	assert.Equal(t, uint8(core.EvtExtract), EventType("EXTRACT"))
	assert.Zero(t, EventType("NOPE"))
}

func TestEventString(t *testing.T) {
	cases := []struct {
		ev   core.TimingEvent
		want string
	}{
		{core.TimingEvent{EventType: core.EvtPhase, Tag: uint8(core.PhasePID), Clock: 10, Value1: 1, Value2: 125}, "PID"},
		{core.TimingEvent{EventType: core.EvtI2CAbort, Tag: uint8(core.CmdEEPROMWrite), Value1: 2}, "EEP_WRITE at step 2"},
		{core.TimingEvent{EventType: core.EvtExtract, Tag: 1, Value1: 900, Value2: 253}, "ch1 watts=900 R=25.3Ω"},
	}
	for _, c := range cases {
		ev := Event{TimingEvent: c.ev, Name: core.EventName(c.ev.EventType)}
		assert.Contains(t, ev.String(), c.want)
	}
}

func TestReaderCollectsDumps(t *testing.T) {
	text := captureDump(t, func() {
		core.RecordTiming(core.EvtPhase, uint8(core.PhaseZeroCross), 100, 0, 10)
		core.RecordTiming(core.EvtI2CBegin, uint8(core.CmdSetGainPot), 150, 0, 0)
		core.RecordTiming(core.EvtPowerLost, uint8(core.PhaseMidCycle), 5000, 1, 1)
	})
	stream := "station up\n" + text + "[TIMING] PHASE tag=x clock=1 v1=1 v2=1\n" + text

	var other []string
	rd := NewReader(strings.NewReader(stream), 0, func(s string) { other = append(other, s) })
	require.NoError(t, rd.Run(context.Background()))

	var dumps []Dump
	for d := range rd.Dumps() {
		dumps = append(dumps, d)
	}
	require.Len(t, dumps, 2)
	assert.Equal(t, []string{"station up"}, other)

	evs := dumps[0].Events
	require.Len(t, evs, 3)
	assert.Equal(t, "I2C_BEGIN", evs[1].Name)
	assert.Equal(t, uint8(core.CmdSetGainPot), evs[1].Tag)
	assert.Equal(t, uint32(5000), evs[2].Clock)
	assert.Equal(t, []uint32{50, 4850}, Intervals(evs))
	assert.Zero(t, dumps[1].Errors)
}

func TestReaderDeliversTruncatedDump(t *testing.T) {
	stream := "[TIMING] === Timing Ring Dump ===\n[TIMING] STOP_ACK tag=0 clock=7 v1=3 v2=0\n"
	rd := NewReader(strings.NewReader(stream), 1, nil)
	require.NoError(t, rd.Run(context.Background()))

	d, ok := <-rd.Dumps()
	require.True(t, ok)
	require.Len(t, d.Events, 1)
	assert.Equal(t, uint8(core.EvtStopAck), d.Events[0].EventType)
}

func TestReaderStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rd := NewReader(strings.NewReader("a\nb\n"), 1, nil)
	assert.ErrorIs(t, rd.Run(ctx), context.Canceled)
}

func TestIntervalsWrap(t *testing.T) {
	evs := []Event{
		{TimingEvent: core.TimingEvent{Clock: 0xFFFFFF00}},
		{TimingEvent: core.TimingEvent{Clock: 0x100}},
	}
	assert.Equal(t, []uint32{0x200}, Intervals(evs))
	assert.Nil(t, Intervals(evs[:1]))
}
