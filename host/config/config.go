// Package config loads the YAML description of a simulated station and its
// irons, and converts it to the control core's configuration.
package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"unisolder/core"
	"unisolder/host/sim"
)

var (
	ErrUnknownSensor = errors.New("unknown sensor type")
	ErrUnknownPower  = errors.New("unknown power level")
	ErrMainsHz       = errors.New("mains frequency must be 50 or 60")
)

// Config represents the simulator configuration.
type Config struct {
	Station      StationConfig   `yaml:"station"`
	Channels     []ChannelConfig `yaml:"channels"`
	ColdJunction *SensorConfig   `yaml:"cold_junction,omitempty"`
	Run          RunConfig       `yaml:"run"`
	EEPROM       EEPROMConfig    `yaml:"eeprom"`
	Serial       SerialConfig    `yaml:"serial"`
}

// StationConfig describes the supply and the board.
type StationConfig struct {
	MainsHz         uint32  `yaml:"mains_hz"`
	ACPower         *bool   `yaml:"ac_power,omitempty"`
	SupplyVolts     float32 `yaml:"supply_volts"`
	ComparatorVolts float32 `yaml:"comparator_volts"`
	Ambient         float32 `yaml:"ambient"`
	InHolder        bool    `yaml:"in_holder"`
	HolderSwitch    bool    `yaml:"holder_switch"`
}

// SensorConfig is the analog routing of one sensor.
type SensorConfig struct {
	Type          string `yaml:"type"`
	InputP        uint8  `yaml:"input_p"`
	InputN        uint8  `yaml:"input_n"`
	Invert        bool   `yaml:"invert"`
	BandA         bool   `yaml:"band_a"`
	BandB         bool   `yaml:"band_b"`
	HeaterChannel uint8  `yaml:"heater_channel"`
	CurrentA      uint16 `yaml:"current_a"`
	CurrentB      uint16 `yaml:"current_b"`
	Gain          uint16 `yaml:"gain"`
	Offset        uint16 `yaml:"offset"`
}

// HeaterConfig is the thermal model of an iron.
type HeaterConfig struct {
	Resistance float32 `yaml:"resistance"` // Ω at ambient
	Tempco     float32 `yaml:"tempco"`     // 1/°C
	Capacity   float32 `yaml:"capacity"`   // J/°C
	Loss       float32 `yaml:"loss"`       // W/°C
}

// ChannelConfig is one iron.
type ChannelConfig struct {
	Sensor   SensorConfig `yaml:"sensor"`
	Heater   HeaterConfig `yaml:"heater"`
	Power    string       `yaml:"power"`
	Duty     float32      `yaml:"duty"`     // 0..1, used when there is no setpoint
	Setpoint float32      `yaml:"setpoint"` // °C
}

// RunConfig is the scenario the simulator plays.
type RunConfig struct {
	Cycles         uint32 `yaml:"cycles"`
	FailPowerCycle uint32 `yaml:"fail_power_cycle"` // 0 never
	Calibration    bool   `yaml:"calibration"`
	CalChannel     uint8  `yaml:"cal_channel"`
	ReportEvery    uint32 `yaml:"report_every"`
	Timing         bool   `yaml:"timing"`
}

// EEPROMBlock is data placed in the EEPROM before the run.
type EEPROMBlock struct {
	Address uint16 `yaml:"address"`
	Hex     string `yaml:"hex,omitempty"`
	Text    string `yaml:"text,omitempty"`
}

// EEPROMConfig preloads the EEPROM and selects what is dumped afterwards.
type EEPROMConfig struct {
	Preload    []EEPROMBlock `yaml:"preload,omitempty"`
	DumpOffset uint16        `yaml:"dump_offset"`
	DumpLength int           `yaml:"dump_length"`
}

// SerialConfig is the debug UART the timing reader attaches to.
type SerialConfig struct {
	Port string `yaml:"port"`
	Baud int    `yaml:"baud"`
}

// Default returns a 24V 50Hz station with one thermocouple iron.
func Default() *Config {
	ac := true
	return &Config{
		Station: StationConfig{
			MainsHz:         50,
			ACPower:         &ac,
			SupplyVolts:     24,
			ComparatorVolts: 2.8,
			Ambient:         25,
		},
		Channels: []ChannelConfig{
			{
				Sensor: SensorConfig{
					Type:     "thermocouple",
					InputP:   1,
					InputN:   2,
					CurrentA: 128,
					CurrentB: 128,
					Gain:     128,
					Offset:   512,
				},
				Heater: HeaterConfig{
					Resistance: 2.5,
					Tempco:     0.0035,
					Capacity:   4,
					Loss:       0.12,
				},
				Power:    "full",
				Setpoint: 320,
			},
		},
		Run: RunConfig{
			Cycles:      1000,
			ReportEvery: 100,
		},
		EEPROM: EEPROMConfig{
			DumpLength: 64,
		},
		Serial: SerialConfig{
			Port: "/dev/ttyUSB0",
			Baud: 115200,
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults; missing fields are filled from them.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// a file that lists channels replaces the default iron
	cfg.Channels = nil
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ensureDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func (c *Config) ensureDefaults() {
	def := Default()

	if c.Station.MainsHz == 0 {
		c.Station.MainsHz = def.Station.MainsHz
	}
	if c.Station.ACPower == nil {
		c.Station.ACPower = def.Station.ACPower
	}
	if c.Station.SupplyVolts == 0 {
		c.Station.SupplyVolts = def.Station.SupplyVolts
	}
	if c.Station.ComparatorVolts == 0 {
		c.Station.ComparatorVolts = def.Station.ComparatorVolts
	}
	if c.Station.Ambient == 0 {
		c.Station.Ambient = def.Station.Ambient
	}

	if len(c.Channels) == 0 {
		c.Channels = def.Channels
	}
	dh := def.Channels[0].Heater
	for i := range c.Channels {
		ch := &c.Channels[i]
		if ch.Power == "" {
			ch.Power = "full"
		}
		if ch.Heater.Resistance == 0 {
			ch.Heater.Resistance = dh.Resistance
		}
		if ch.Heater.Tempco == 0 {
			ch.Heater.Tempco = dh.Tempco
		}
		if ch.Heater.Capacity == 0 {
			ch.Heater.Capacity = dh.Capacity
		}
		if ch.Heater.Loss == 0 {
			ch.Heater.Loss = dh.Loss
		}
	}

	if c.Run.Cycles == 0 {
		c.Run.Cycles = def.Run.Cycles
	}
	if c.Run.ReportEvery == 0 {
		c.Run.ReportEvery = def.Run.ReportEvery
	}

	if c.Serial.Port == "" {
		c.Serial.Port = def.Serial.Port
	}
	if c.Serial.Baud == 0 {
		c.Serial.Baud = def.Serial.Baud
	}
}

// Validate checks the values the conversions rely on.
func (c *Config) Validate() error {
	if c.Station.MainsHz != 50 && c.Station.MainsHz != 60 {
		return fmt.Errorf("station: %d: %w", c.Station.MainsHz, ErrMainsHz)
	}
	if len(c.Channels) > core.Channels {
		return fmt.Errorf("%d channels configured, station drives %d", len(c.Channels), core.Channels)
	}
	for i, ch := range c.Channels {
		if _, err := ParseSensorType(ch.Sensor.Type); err != nil {
			return fmt.Errorf("channel %d: %w", i, err)
		}
		if _, err := ParsePowerLevel(ch.Power); err != nil {
			return fmt.Errorf("channel %d: %w", i, err)
		}
		if ch.Duty < 0 || ch.Duty > 1 {
			return fmt.Errorf("channel %d: duty %g out of 0..1", i, ch.Duty)
		}
	}
	if c.ColdJunction != nil {
		if _, err := ParseSensorType(c.ColdJunction.Type); err != nil {
			return fmt.Errorf("cold junction: %w", err)
		}
	}
	for i, b := range c.EEPROM.Preload {
		data, err := b.Bytes()
		if err != nil {
			return fmt.Errorf("eeprom block %d: %w", i, err)
		}
		if int(b.Address)+len(data) > core.EEPROMSize {
			return fmt.Errorf("eeprom block %d: %w", i, core.ErrEEPROMRange)
		}
	}
	return nil
}

// ACPower reports whether the station runs from AC.
func (c *Config) ACPower() bool {
	return c.Station.ACPower == nil || *c.Station.ACPower
}

// ParseSensorType maps a sensor name to its type. The empty name is an
// unconfigured channel.
func ParseSensorType(name string) (core.SensorType, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return core.SensorUndefined, nil
	}
	for t := core.SensorUndefined; t <= core.SensorNTC; t++ {
		if t.String() == name {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%q: %w", name, ErrUnknownSensor)
}

var powerLevels = map[string]core.PowerLevel{
	"full":    core.PowerFull,
	"half":    core.PowerHalf,
	"quarter": core.PowerQuarter,
	"eighth":  core.PowerEighth,
}

// ParsePowerLevel maps a power level name to its value.
func ParsePowerLevel(name string) (core.PowerLevel, error) {
	p, ok := powerLevels[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, fmt.Errorf("%q: %w", name, ErrUnknownPower)
	}
	return p, nil
}

// Bytes returns the block contents. Hex takes precedence over Text.
func (b EEPROMBlock) Bytes() ([]byte, error) {
	if b.Hex != "" {
		data, err := hex.DecodeString(strings.ReplaceAll(b.Hex, " ", ""))
		if err != nil {
			return nil, fmt.Errorf("hex: %w", err)
		}
		return data, nil
	}
	return []byte(b.Text), nil
}

func (s SensorConfig) toCore() core.SensorConfig {
	t, _ := ParseSensorType(s.Type)
	return core.SensorConfig{
		Type:     t,
		InputP:   s.InputP,
		InputN:   s.InputN,
		InputInv: s.Invert,
		CBandA:   s.BandA,
		CBandB:   s.BandB,
		HChannel: s.HeaterChannel,
		CurrentA: s.CurrentA,
		CurrentB: s.CurrentB,
		Gain:     s.Gain,
		Offset:   s.Offset,
	}
}

// Sensors returns the control core's view of the configured sensors.
// Channels not listed stay undefined.
func (c *Config) Sensors() *core.StaticConfig {
	sc := &core.StaticConfig{}
	for i, ch := range c.Channels {
		sc.Channels[i] = ch.Sensor.toCore()
	}
	if c.ColdJunction != nil {
		cj := c.ColdJunction.toCore()
		sc.CJ = &cj
	}
	return sc
}

// SimParams returns the simulated station described by the config.
func (c *Config) SimParams() sim.Params {
	p := sim.DefaultParams()
	p.Mains = sim.Mains{
		Hz:         float32(c.Station.MainsHz),
		AC:         c.ACPower(),
		Volts:      c.Station.SupplyVolts,
		Comparator: c.Station.ComparatorVolts,
	}
	p.Ambient = c.Station.Ambient
	p.InHolder = c.Station.InHolder
	p.HolderSwitch = c.Station.HolderSwitch
	for i, ch := range c.Channels {
		hp := &p.Heaters[i]
		hp.R0 = ch.Heater.Resistance
		hp.Alpha = ch.Heater.Tempco
		hp.Capacity = ch.Heater.Capacity
		hp.Loss = ch.Heater.Loss
		hp.Setpoint = ch.Setpoint
	}
	return p
}

// Apply sets the power levels and fixed duties on a controller.
func (c *Config) Apply(ctrl *core.Controller) {
	for i, ch := range c.Channels {
		p, _ := ParsePowerLevel(ch.Power)
		ctrl.Channels[i].Power = p
		if ch.Setpoint == 0 {
			ctrl.Channels[i].Duty = uint32(ch.Duty * (1 << 24))
		}
	}
	ctrl.SetCalibration(c.Run.Calibration, c.Run.CalChannel)
}
