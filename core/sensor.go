package core

// SensorType is the kind of temperature sensor fitted to an iron.
type SensorType uint8

const (
	SensorUndefined    SensorType = iota // no iron configured on the channel
	SensorNone                           // iron present, no usable sensor
	SensorThermocouple
	SensorPTC
	SensorNTC
)

// Valid reports whether the heater may be driven with this sensor.
func (t SensorType) Valid() bool {
	return t != SensorUndefined && t != SensorNone
}

func (t SensorType) String() string {
	switch t {
	case SensorUndefined:
		return "undefined"
	case SensorNone:
		return "none"
	case SensorThermocouple:
		return "thermocouple"
	case SensorPTC:
		return "ptc"
	case SensorNTC:
		return "ntc"
	}
	return "unknown"
}

// SensorConfig is the analog routing and calibration of one sensor.
type SensorConfig struct {
	Type     SensorType
	InputP   uint8 // positive mux input
	InputN   uint8 // negative mux input
	InputInv bool  // swap amplifier polarity
	CBandA   bool
	CBandB   bool
	HChannel uint8 // heater channel the sensor shares wiring with

	// Digital pot and DAC values loaded before the sensor is sampled.
	CurrentA uint16 // bias current A, 0..256
	CurrentB uint16 // bias current B, 0..256
	Gain     uint16
	Offset   uint16 // 10-bit offset DAC code
}

// Pots returns the values the I2C engine programs for this sensor.
func (c *SensorConfig) Pots() PotSettings {
	return PotSettings{
		CurrentA: c.CurrentA,
		CurrentB: c.CurrentB,
		Gain:     c.Gain,
		Offset:   c.Offset,
	}
}

// ConfigProvider hands the control core its sensor configuration. The
// returned records are read-only to the core and must stay stable for the
// duration of a mains cycle.
type ConfigProvider interface {
	// Sensor returns the configuration of channel ch (0 or 1). Never nil.
	Sensor(ch int) *SensorConfig

	// ColdJunction returns the shared cold-junction sensor, or nil.
	ColdJunction() *SensorConfig
}

// StaticConfig is a ConfigProvider over fixed records.
type StaticConfig struct {
	Channels [Channels]SensorConfig
	CJ       *SensorConfig
}

func (c *StaticConfig) Sensor(ch int) *SensorConfig {
	return &c.Channels[ch]
}

func (c *StaticConfig) ColdJunction() *SensorConfig {
	return c.CJ
}
