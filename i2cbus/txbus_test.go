package i2cbus

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unisolder/core"
)

type txCall struct {
	addr uint16
	w    []byte
	rlen int
}

type recordingBus struct {
	calls []txCall
	data  []byte
	err   error
}

func (b *recordingBus) Tx(addr uint16, w, r []byte) error {
	b.calls = append(b.calls, txCall{addr: addr, w: append([]byte(nil), w...), rlen: len(r)})
	if b.err != nil {
		return b.err
	}
	for i := range r {
		r[i] = 0xFF
		if len(b.data) > 0 {
			r[i], b.data = b.data[0], b.data[1:]
		}
	}
	return nil
}

// writes drops the address checks, which carry no data.
func (b *recordingBus) writes() []txCall {
	var out []txCall
	for _, c := range b.calls {
		if len(c.w) > 0 {
			out = append(out, c)
		}
	}
	return out
}

type probingBus struct {
	recordingBus
	present map[uint16]bool
}

func (b *probingBus) Probe(addr uint16) bool {
	return b.present[addr]
}

func TestWriteIsOneTransaction(t *testing.T) {
	bus := &recordingBus{}
	tb := New(bus, nil)

	tb.Start()
	tb.SendAddress(core.AddrOffsetDAC, false)
	assert.True(t, tb.IsAck())
	tb.SendByte(0x58)
	tb.SendByte(0xFF)
	tb.SendByte(0xC0)
	require.Len(t, bus.calls, 1, "only the address check before stop")
	assert.Empty(t, bus.calls[0].w)
	assert.Equal(t, 1, bus.calls[0].rlen)
	tb.Stop()

	require.Len(t, bus.calls, 2)
	assert.Equal(t, uint16(0x60), bus.calls[1].addr)
	assert.Equal(t, []byte{0x58, 0xFF, 0xC0}, bus.calls[1].w)
	assert.Zero(t, bus.calls[1].rlen)
}

func TestSequentialRead(t *testing.T) {
	bus := &recordingBus{data: []byte{0xAA, 7, 8, 9}}
	tb := New(bus, nil)

	tb.Start()
	tb.SendAddress(core.AddrEEPROM, false)
	tb.SendByte(0x01)
	tb.SendByte(0x20)
	tb.Start()
	tb.SendAddress(core.AddrEEPROM, true)
	tb.ReceiverEnable()
	got := []byte{tb.ReceiveByte()}
	tb.Ack()
	got = append(got, tb.ReceiveByte(), tb.ReceiveByte())
	tb.ReceiverDisable()
	tb.Stop()

	assert.Equal(t, []byte{7, 8, 9}, got)
	require.Len(t, bus.calls, 4)
	assert.Equal(t, []byte{0x01, 0x20}, bus.calls[1].w, "first byte carries the address")
	assert.Empty(t, bus.calls[2].w, "later bytes are current address reads")
	assert.Equal(t, 1, bus.calls[3].rlen)
}

func TestProbe(t *testing.T) {
	bus := &probingBus{present: map[uint16]bool{0x2C: true}}
	tb := New(bus, nil)

	tb.Start()
	tb.SendAddress(core.AddrCurrentPot, false)
	assert.True(t, tb.IsAck())
	tb.Stop()

	tb.Start()
	tb.SendAddress(core.AddrEEPROM, false)
	assert.False(t, tb.IsAck())
	tb.Stop()
}

func TestErrorsRecorded(t *testing.T) {
	failure := errors.New("nack")
	bus := &recordingBus{err: failure}
	tb := New(bus, nil)

	tb.Start()
	tb.SendAddress(core.AddrGainPot, false)
	tb.SendByte(1)
	tb.Stop()

	assert.Equal(t, uint32(1), tb.Errors())
	assert.ErrorIs(t, tb.Err(), failure)

	// a refused address is a NACK, not a bus error
	tb.Start()
	tb.SendAddress(core.AddrGainPot, false)
	assert.False(t, tb.IsAck())
	assert.Equal(t, uint32(1), tb.Errors())
}

func TestNilBus(t *testing.T) {
	tb := New(nil, nil)
	tb.Start()
	tb.SendAddress(core.AddrEEPROM, false)
	assert.False(t, tb.IsAck())
	tb.SendByte(0)
	tb.Stop()
	assert.ErrorIs(t, tb.Err(), ErrBusNotConfigured)
}

func TestWriteOverflow(t *testing.T) {
	bus := &recordingBus{}
	tb := New(bus, nil)
	tb.Start()
	tb.SendAddress(core.AddrEEPROM, false)
	for i := 0; i < maxWrite+1; i++ {
		tb.SendByte(byte(i))
	}
	tb.Stop()
	assert.ErrorIs(t, tb.Err(), ErrWriteOverflow)
	w := bus.writes()
	require.Len(t, w, 1)
	assert.Len(t, w[0].w, maxWrite)
}

func TestWakeUp(t *testing.T) {
	woken := 0
	tb := New(&recordingBus{}, func() { woken++ })
	tb.WakeUp()
	assert.Equal(t, 1, woken)
}

func TestEngineOverTxBus(t *testing.T) {
	bus := &recordingBus{}
	e := core.NewI2CEngine(New(bus, nil))
	e.LoadPots(core.PotSettings{CurrentA: 0, CurrentB: 256, Gain: 0x0102, Offset: 0x3FF})
	e.Request(core.CmdSetPots)
	for i := 0; i < 100 && !(e.Idle() && e.Pending() == 0); i++ {
		e.Service()
	}

	w := bus.writes()
	require.Len(t, w, 3)
	assert.Equal(t, []byte{0x40, 0xE0, 0x00, 0x00, 0x11, 0x00}, w[0].w)
	assert.Equal(t, []byte{0x01, 0x02}, w[1].w)
	assert.Equal(t, []byte{0x58, 0xFF, 0xC0}, w[2].w)
}

var errNack = errors.New("nack")

// busyEEPROM is a 24C32 on a bus without Prober. It refuses the next
// busyFor transactions after each page write, as the part does during its
// internal write cycle.
type busyEEPROM struct {
	mem     [4096]byte
	ptr     uint16
	busy    int
	busyFor int
}

func (e *busyEEPROM) Tx(addr uint16, w, r []byte) error {
	if addr != uint16(core.AddrEEPROM) {
		return errNack
	}
	if e.busy > 0 {
		e.busy--
		return errNack
	}
	if len(w) >= 2 {
		e.ptr = (uint16(w[0])<<8 | uint16(w[1])) % uint16(len(e.mem))
		if data := w[2:]; len(data) > 0 {
			page := e.ptr &^ 31
			for i, b := range data {
				e.mem[page|(e.ptr+uint16(i))&31] = b
			}
			e.busy = e.busyFor
		}
	}
	for i := range r {
		r[i] = e.mem[e.ptr]
		e.ptr = (e.ptr + 1) % uint16(len(e.mem))
	}
	return nil
}

func serviceUntilIdle(t *testing.T, e *core.I2CEngine) {
	t.Helper()
	for i := 0; i < 10000; i++ {
		e.Service()
		if e.Idle() && e.Pending() == 0 {
			return
		}
	}
	t.Fatal("engine never went idle")
}

func TestEEPROMWriteWaitsOutWriteCycle(t *testing.T) {
	dev := &busyEEPROM{busyFor: 3}
	tb := New(dev, nil)
	e := core.NewI2CEngine(tb)

	data := make([]byte, 40)
	for i := range data {
		data[i] = byte(i + 1)
	}
	require.NoError(t, e.RequestEEPROMWrite(0, data))
	serviceUntilIdle(t, e)

	assert.False(t, e.EEPROMWriteBusy())
	assert.Equal(t, data, dev.mem[:40])
	assert.Zero(t, tb.Errors(), "every page went to a device that acked its address")
	assert.GreaterOrEqual(t, e.Aborts(), uint32(4), "page split plus three refused addresses")

	back := make([]byte, 40)
	require.NoError(t, e.RequestEEPROMRead(0, back))
	serviceUntilIdle(t, e)
	assert.False(t, e.EEPROMReadBusy())
	assert.Equal(t, data, back)
}
