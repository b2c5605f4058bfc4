package core

// fakeBoard records every primitive call made by the controller.
type fakeBoard struct {
	// timer
	timers       []uint32
	timerRunning bool
	dcResets     int

	// comparator
	edges     []Edge
	zcArmed   bool
	mainsHigh bool
	low       LowTimes
	lowClears int

	// adc
	conversions []ADCChannel
	result      uint16
	autoVRef    []bool
	manualVRef  int
	adcStops    int

	// front end
	inputs    [][2]uint8
	invert    bool
	bandA     bool
	bandB     bool
	heaterSel uint8

	// outputs
	heater       bool
	display      bool
	holderSwitch bool

	// waiting
	yields  int
	delays  []uint32
	onYield func()

	bus *fakeBus
}

func newFakeBoard() *fakeBoard {
	return &fakeBoard{
		mainsHigh: true,
		display:   true,
		bus:       newFakeBus(),
	}
}

func (f *fakeBoard) Board() *Board {
	return &Board{
		Timer:     f,
		ZeroCross: f,
		ADC:       f,
		FrontEnd:  f,
		Outputs:   f,
		I2C:       f.bus,
		Wait:      f,
	}
}

func (f *fakeBoard) StartISRTimer(us uint32) {
	f.timers = append(f.timers, us)
	f.timerRunning = true
}
func (f *fakeBoard) StopISRTimer() { f.timerRunning = false }
func (f *fakeBoard) ResetDCTimer() { f.dcResets++ }

func (f *fakeBoard) ArmZeroCross(edge Edge) {
	f.edges = append(f.edges, edge)
	f.zcArmed = true
}
func (f *fakeBoard) DisableZeroCross()  { f.zcArmed = false }
func (f *fakeBoard) MainsHigh() bool    { return f.mainsHigh }
func (f *fakeBoard) LowTimes() LowTimes { return f.low }
func (f *fakeBoard) ClearLowTime() {
	f.low.Total = 0
	f.lowClears++
}

func (f *fakeBoard) StartConversion(ch ADCChannel, samples uint8) {
	f.conversions = append(f.conversions, ch)
}
func (f *fakeBoard) Result() uint16              { return f.result }
func (f *fakeBoard) StartManualVRef()            { f.manualVRef++ }
func (f *fakeBoard) StartAutoVRef(heaterOff bool) { f.autoVRef = append(f.autoVRef, heaterOff) }
func (f *fakeBoard) StopADC()                    { f.adcStops++ }

func (f *fakeBoard) SelectInputs(p, n uint8)      { f.inputs = append(f.inputs, [2]uint8{p, n}) }
func (f *fakeBoard) SetInvert(invert bool)        { f.invert = invert }
func (f *fakeBoard) SetCompensationBand(a, b bool) { f.bandA, f.bandB = a, b }
func (f *fakeBoard) SetHeaterChannel(ch uint8)    { f.heaterSel = ch }

func (f *fakeBoard) SetHeater(on bool)       { f.heater = on }
func (f *fakeBoard) SetDisplayPower(on bool) { f.display = on }
func (f *fakeBoard) HolderSwitch() bool      { return f.holderSwitch }

func (f *fakeBoard) Yield() {
	f.yields++
	if f.onYield != nil {
		f.onYield()
	}
}
func (f *fakeBoard) DelayUS(us uint32) { f.delays = append(f.delays, us) }

func (f *fakeBoard) lastInputs() [2]uint8 {
	if len(f.inputs) == 0 {
		return [2]uint8{}
	}
	return f.inputs[len(f.inputs)-1]
}

// fakeBus logs bus primitives and emulates the 24C32 and the write-only
// pot/DAC devices.
type fakeBus struct {
	log     []string
	wakeups int

	mem     [EEPROMSize]byte
	ptr     uint16
	dev     I2CAddress
	read    bool
	idx     int
	nacks   int // NACK the next n EEPROM addressings
	lastAck bool
	rxOn    bool
}

func newFakeBus() *fakeBus {
	return &fakeBus{}
}

func (b *fakeBus) Start() { b.log = append(b.log, "S") }
func (b *fakeBus) Stop()  { b.log = append(b.log, "P") }

func (b *fakeBus) SendAddress(addr I2CAddress, read bool) {
	dir := "W"
	if read {
		dir = "R"
	}
	b.log = append(b.log, "A"+hex8(uint8(addr))+dir)
	b.dev, b.read, b.idx = addr, read, 0
	b.lastAck = true
	if addr == AddrEEPROM && b.nacks > 0 {
		b.nacks--
		b.lastAck = false
	}
}

func (b *fakeBus) SendByte(v byte) {
	b.log = append(b.log, hex8(v))
	if b.dev != AddrEEPROM {
		return
	}
	switch b.idx {
	case 0:
		b.ptr = uint16(v) << 8
	case 1:
		b.ptr |= uint16(v)
	default:
		b.mem[b.ptr%EEPROMSize] = v
		b.ptr++
	}
	b.idx++
}

func (b *fakeBus) ReceiverEnable()  { b.rxOn = true }
func (b *fakeBus) ReceiverDisable() { b.rxOn = false }

func (b *fakeBus) ReceiveByte() byte {
	v := b.mem[b.ptr%EEPROMSize]
	b.ptr++
	b.log = append(b.log, "r"+hex8(v))
	return v
}

func (b *fakeBus) Ack()        { b.log = append(b.log, "K") }
func (b *fakeBus) IsAck() bool { return b.lastAck }
func (b *fakeBus) WakeUp()     { b.wakeups++ }

// count returns how many log entries equal s.
func (b *fakeBus) count(s string) int {
	n := 0
	for _, e := range b.log {
		if e == s {
			n++
		}
	}
	return n
}
