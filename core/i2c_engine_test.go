package core

import (
	"errors"
	"math/rand"
	"reflect"
	"testing"
)

// drain services the engine until it reports idle, returning the commands
// in the order they became active.
func drain(t *testing.T, e *I2CEngine) []CommandSet {
	t.Helper()
	var order []CommandSet
	for k := 0; k < 100000; k++ {
		prev := e.Active()
		e.Service()
		if a := e.Active(); a != 0 && a != prev {
			order = append(order, a)
		}
		if e.Idle() {
			return order
		}
	}
	t.Fatal("engine did not go idle")
	return nil
}

func TestCurrentPotBytes(t *testing.T) {
	tests := []struct {
		a, b uint16
		want []string
	}{
		{0, 256, []string{"S", "A2CW", "40", "E0", "00", "00", "11", "00", "P"}},
		{128, 64, []string{"S", "A2CW", "40", "FF", "00", "80", "10", "40", "P"}},
		{256, 0, []string{"S", "A2CW", "40", "0E", "01", "00", "10", "00", "P"}},
	}
	for _, tt := range tests {
		bus := newFakeBus()
		e := NewI2CEngine(bus)
		e.LoadPots(PotSettings{CurrentA: tt.a, CurrentB: tt.b})
		e.Request(CmdSetCurrentPot)
		drain(t, e)
		if !reflect.DeepEqual(bus.log, tt.want) {
			t.Errorf("A=%d B=%d: bus = %v, want %v", tt.a, tt.b, bus.log, tt.want)
		}
	}
}

func TestTCON(t *testing.T) {
	// A=0 opens wiper 0 leg A, B=256 opens wiper 1 leg B; the other two
	// legs stay connected.
	if got := tcon(0, 256); got != 0xE0 {
		t.Errorf("tcon(0, 256) = %#x, want 0xe0", got)
	}
	if got := tcon(0, 0); got != 0x00 {
		t.Errorf("tcon(0, 0) = %#x, want 0", got)
	}
	if got := tcon(300, 300); got != 0xEE {
		t.Errorf("tcon(300, 300) = %#x, want 0xee", got)
	}
}

func TestGainAndOffsetBytes(t *testing.T) {
	bus := newFakeBus()
	e := NewI2CEngine(bus)
	e.LoadPots(PotSettings{Gain: 0x1234, Offset: 0x3FF})
	e.Request(CmdSetGainPot | CmdSetOffset)
	drain(t, e)
	want := []string{
		"S", "A2EW", "12", "34", "P",
		"S", "A60W", "58", "FF", "C0", "P",
	}
	if !reflect.DeepEqual(bus.log, want) {
		t.Errorf("bus = %v, want %v", bus.log, want)
	}
}

func TestPriorityOrder(t *testing.T) {
	bus := newFakeBus()
	e := NewI2CEngine(bus)
	bus.mem[7] = 0x5A
	buf := make([]byte, 1)
	if err := e.RequestEEPROMRead(7, buf); err != nil {
		t.Fatal(err)
	}
	e.Request(CmdSetOffset | CmdSetCurrentPot)

	order := drain(t, e)
	want := []CommandSet{CmdSetCurrentPot, CmdSetOffset, CmdEEPROMRead}
	if !reflect.DeepEqual(order, want) {
		t.Errorf("order = %v, want %v", order, want)
	}
	if buf[0] != 0x5A {
		t.Errorf("read %#x, want 0x5a", buf[0])
	}
}

func TestPriorityOrderRandom(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for k := 0; k < 200; k++ {
		bus := newFakeBus()
		e := NewI2CEngine(bus)
		mask := CommandSet(rng.Intn(int(CmdSetPots) + 1))
		e.Request(mask)

		var want []CommandSet
		for m := mask; m != 0; m &^= m.Lowest() {
			want = append(want, m.Lowest())
		}
		order := drain(t, e)
		if !reflect.DeepEqual(order, want) {
			t.Fatalf("mask %v: order = %v, want %v", mask, order, want)
		}
	}
}

func TestSingleActiveCommand(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	bus := newFakeBus()
	e := NewI2CEngine(bus)
	for k := 0; k < 5000; k++ {
		if rng.Intn(4) == 0 {
			e.Request(CommandSet(rng.Intn(int(CmdSetPots) + 1)))
		}
		e.Service()
		a := e.Active()
		if a&(a-1) != 0 {
			t.Fatalf("active = %v, more than one command", a)
		}
		if e.pending&a != 0 {
			t.Fatalf("pending %v holds the active command %v", e.pending, a)
		}
	}
}

func TestRequestWhileActiveIsDeferred(t *testing.T) {
	bus := newFakeBus()
	e := NewI2CEngine(bus)
	e.LoadPots(PotSettings{Gain: 1})
	e.Request(CmdSetGainPot)
	e.Service()
	e.Service()
	if e.Active() != CmdSetGainPot {
		t.Fatalf("active = %v", e.Active())
	}

	e.LoadPots(PotSettings{Gain: 2})
	e.Request(CmdSetGainPot)
	if e.pending&CmdSetGainPot != 0 {
		t.Fatal("active command's bit set in pending")
	}
	if e.Pending() != CmdSetGainPot {
		t.Fatalf("Pending() = %v, want the deferred re-request", e.Pending())
	}

	drain(t, e)
	if n := bus.count("A2EW"); n != 2 {
		t.Errorf("gain pot written %d times, want 2", n)
	}
	if got := bus.log[len(bus.log)-3:]; !reflect.DeepEqual(got, []string{"00", "02", "P"}) {
		t.Errorf("last write = %v", got)
	}
}

func TestWakeUp(t *testing.T) {
	bus := newFakeBus()
	e := NewI2CEngine(bus)
	e.Request(CmdSetGainPot)
	if bus.wakeups != 1 {
		t.Fatalf("wakeups = %d, want 1", bus.wakeups)
	}
	e.Service()
	e.Request(CmdSetOffset)
	if bus.wakeups != 1 {
		t.Errorf("busy engine woken: %d wakeups", bus.wakeups)
	}
	drain(t, e)
	e.Request(CmdSetOffset)
	if bus.wakeups != 2 {
		t.Errorf("idle engine not woken: %d wakeups", bus.wakeups)
	}
}

func TestUnknownCommandsIgnored(t *testing.T) {
	bus := newFakeBus()
	e := NewI2CEngine(bus)
	e.Request(1 << 6)
	drain(t, e)
	if len(bus.log) != 0 || e.Pending() != 0 {
		t.Errorf("unknown command reached the bus: %v", bus.log)
	}
}

func TestEEPROMWritePageSplit(t *testing.T) {
	bus := newFakeBus()
	e := NewI2CEngine(bus)
	data := []byte{1, 2, 3, 4}
	if err := e.RequestEEPROMWrite(30, data); err != nil {
		t.Fatal(err)
	}
	drain(t, e)

	want := []string{
		"S", "A50W", "00", "1E", "01", "02", "P",
		"S", "A50W", "00", "20", "03", "04", "P",
	}
	if !reflect.DeepEqual(bus.log, want) {
		t.Errorf("bus = %v, want %v", bus.log, want)
	}
	if got := bus.mem[30:34]; !reflect.DeepEqual(got, data) {
		t.Errorf("eeprom = %v", got)
	}
	if e.EEPROMWriteBusy() {
		t.Error("write still busy")
	}
	if e.Aborts() != 1 {
		t.Errorf("aborts = %d, want 1", e.Aborts())
	}
}

func TestEEPROMReadPageSplit(t *testing.T) {
	bus := newFakeBus()
	e := NewI2CEngine(bus)
	copy(bus.mem[62:], []byte{9, 8, 7})
	buf := make([]byte, 3)
	if err := e.RequestEEPROMRead(62, buf); err != nil {
		t.Fatal(err)
	}
	drain(t, e)

	want := []string{
		"S", "A50W", "00", "3E", "S", "A50R", "r09", "K", "r08", "P",
		"S", "A50W", "00", "40", "S", "A50R", "r07", "P",
	}
	if !reflect.DeepEqual(bus.log, want) {
		t.Errorf("bus = %v, want %v", bus.log, want)
	}
	if !reflect.DeepEqual(buf, []byte{9, 8, 7}) {
		t.Errorf("read %v", buf)
	}
	if e.EEPROMReadBusy() || bus.rxOn {
		t.Errorf("busy=%v receiver=%v", e.EEPROMReadBusy(), bus.rxOn)
	}
}

func TestEEPROMWritePreempted(t *testing.T) {
	bus := newFakeBus()
	e := NewI2CEngine(bus)
	data := []byte{10, 11, 12, 13, 14, 15, 16, 17}
	if err := e.RequestEEPROMWrite(0, data); err != nil {
		t.Fatal(err)
	}
	for k := 0; k < 5; k++ {
		e.Service()
	}
	e.LoadPots(PotSettings{Gain: 0x0102})
	e.Request(CmdSetGainPot)
	e.Service()
	if e.Active() != 0 || e.Pending() != CmdSetGainPot|CmdEEPROMWrite {
		t.Fatalf("after preemption: active=%v pending=%v", e.Active(), e.Pending())
	}

	order := drain(t, e)
	if !reflect.DeepEqual(order, []CommandSet{CmdSetGainPot, CmdEEPROMWrite}) {
		t.Errorf("order = %v", order)
	}
	if !reflect.DeepEqual(bus.mem[:8], data) {
		t.Errorf("eeprom = %v", bus.mem[:8])
	}
	// the resumed transfer starts at the next address
	want := []string{"S", "A50W", "00", "01", "0B"}
	if got := bus.log[11:16]; !reflect.DeepEqual(got, want) {
		t.Errorf("resume = %v, want %v (log %v)", got, want, bus.log)
	}
}

func TestEEPROMReadPreempted(t *testing.T) {
	bus := newFakeBus()
	e := NewI2CEngine(bus)
	copy(bus.mem[:], []byte{1, 2, 3, 4})
	buf := make([]byte, 4)
	if err := e.RequestEEPROMRead(0, buf); err != nil {
		t.Fatal(err)
	}
	for k := 0; k < 8; k++ {
		e.Service()
	}
	e.Request(CmdSetOffset)
	order := drain(t, e)
	if !reflect.DeepEqual(order, []CommandSet{CmdSetOffset, CmdEEPROMRead}) {
		t.Errorf("order = %v", order)
	}
	if !reflect.DeepEqual(buf, []byte{1, 2, 3, 4}) {
		t.Errorf("read %v", buf)
	}
	if bus.rxOn {
		t.Error("receiver left enabled")
	}
}

func TestEEPROMNackRetries(t *testing.T) {
	bus := newFakeBus()
	bus.nacks = 2
	e := NewI2CEngine(bus)
	if err := e.RequestEEPROMWrite(100, []byte{0xAB}); err != nil {
		t.Fatal(err)
	}
	drain(t, e)
	if bus.mem[100] != 0xAB {
		t.Errorf("eeprom[100] = %#x", bus.mem[100])
	}
	if e.Aborts() != 2 || bus.count("A50W") != 3 {
		t.Errorf("aborts = %d, addressings = %d", e.Aborts(), bus.count("A50W"))
	}
}

func TestEEPROMRequestErrors(t *testing.T) {
	e := NewI2CEngine(newFakeBus())
	if err := e.RequestEEPROMWrite(0, nil); !errors.Is(err, ErrEmptyTransfer) {
		t.Errorf("empty write: %v", err)
	}
	if err := e.RequestEEPROMRead(EEPROMSize-1, make([]byte, 2)); !errors.Is(err, ErrEEPROMRange) {
		t.Errorf("out of range read: %v", err)
	}
	if err := e.RequestEEPROMWrite(0, []byte{1}); err != nil {
		t.Fatal(err)
	}
	if err := e.RequestEEPROMWrite(8, []byte{2}); !errors.Is(err, ErrEEPROMBusy) {
		t.Errorf("second write: %v", err)
	}
	if err := e.RequestEEPROMRead(8, make([]byte, 1)); err != nil {
		t.Errorf("read alongside a write: %v", err)
	}
	drain(t, e)
	if err := e.RequestEEPROMWrite(8, []byte{2}); err != nil {
		t.Errorf("write after completion: %v", err)
	}
}

func TestCommandSetString(t *testing.T) {
	if got := (CmdSetGainPot | CmdEEPROMRead).String(); got != "SET_GAINPOT|EEP_READ" {
		t.Errorf("String() = %q", got)
	}
	if got := CommandSet(1 << 7).String(); got != "UNKNOWN" {
		t.Errorf("String() = %q", got)
	}
}
