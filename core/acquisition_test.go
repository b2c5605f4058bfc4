package core

import "testing"

func fill(a *Acquisition, v, i []uint16) {
	a.Reset()
	for k := range v {
		a.Push(v[k], i[k])
	}
}

func repeat(v uint16, n int) []uint16 {
	out := make([]uint16, n)
	for k := range out {
		out[k] = v
	}
	return out
}

func TestExtract(t *testing.T) {
	tests := []struct {
		name string
		v, i []uint16
		duty uint32
		want Measurement
	}{
		{
			name: "constant load",
			v:    repeat(100, 9),
			i:    repeat(200, 9),
			duty: PowerDutyFull,
			want: Measurement{Voltage: 200, Current: 400, Watts: 204, Resistance: 13},
		},
		{
			name: "two channels halve the duty",
			v:    repeat(100, 9),
			i:    repeat(200, 9),
			duty: PowerDutyFull >> 1,
			want: Measurement{Voltage: 141, Current: 283, Watts: 102, Resistance: 13},
		},
		{
			name: "all current samples saturated",
			v:    repeat(100, 9),
			i:    repeat(SampleSaturated, 9),
			duty: PowerDutyFull,
			want: Measurement{Voltage: 200, Current: 2046, Watts: 1048, Resistance: ResistanceInfinite},
		},
		{
			// The saturated sample at index 1 is replaced using the
			// reference found at index 2 (R=26), not the final one at
			// index 0 (R=13).
			name: "substitution uses the reference seen so far",
			v:    repeat(100, 4),
			i:    []uint16{200, SampleSaturated, 100, 0},
			duty: PowerDutyFull,
			want: Measurement{Voltage: 200, Current: 283, Watts: 136, Resistance: 13},
		},
		{
			name: "saturated pairs between references",
			v:    []uint16{300, 310, 320, 330, 340},
			i:    []uint16{500, SampleSaturated, SampleSaturated, 480, 0},
			duty: PowerDutyFull,
			want: Measurement{Voltage: 640, Current: 958, Watts: 1568, Resistance: 16},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var a Acquisition
			fill(&a, tt.v, tt.i)
			got, ok := a.Extract(tt.duty)
			if !ok {
				t.Fatal("Extract() ok = false")
			}
			if got != tt.want {
				t.Errorf("Extract() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestExtractTooFewSamples(t *testing.T) {
	var a Acquisition
	if _, ok := a.Extract(PowerDutyFull); ok {
		t.Error("empty buffer should not extract")
	}
	a.Push(100, 200)
	if _, ok := a.Extract(PowerDutyFull); ok {
		t.Error("single sample should not extract")
	}
}

func TestAcquisitionCapacity(t *testing.T) {
	var a Acquisition
	for k := 0; k < AcquisitionSize+10; k++ {
		a.Push(uint16(k), uint16(k))
	}
	if a.Len() != AcquisitionSize {
		t.Fatalf("Len() = %d, want %d", a.Len(), AcquisitionSize)
	}
	v, _, ok := a.latest()
	if !ok || v != AcquisitionSize-1 {
		t.Errorf("latest() = %d, %v; want %d", v, ok, AcquisitionSize-1)
	}
	a.Reset()
	if _, _, ok := a.latest(); ok {
		t.Error("latest() after Reset should fail")
	}
}

func TestRepresentative(t *testing.T) {
	var a Acquisition
	for k := 0; k < 3; k++ {
		a.Push(uint16(k), 0)
	}
	if _, _, ok := a.representative(); ok {
		t.Error("3 samples: index 0 is not representative")
	}
	a.Push(3, 0)
	v, _, ok := a.representative()
	if !ok || v != 1 {
		t.Errorf("representative() = %d, %v; want 1, true", v, ok)
	}
}

func TestIsqrt(t *testing.T) {
	for _, x := range []uint32{0, 1, 2, 3, 4, 15, 16, 17, 99, 100, 163840000, 1<<31 - 1, 0xFFFFFFFF} {
		r := isqrt(x)
		if uint64(r)*uint64(r) > uint64(x) || uint64(r+1)*uint64(r+1) <= uint64(x) {
			t.Errorf("isqrt(%d) = %d", x, r)
		}
	}
}
