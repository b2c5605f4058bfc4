// Command ironsim runs the station control loop against a simulated
// station described by a YAML file.
package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"log"
	"os"

	"unisolder/core"
	"unisolder/host/config"
	"unisolder/host/sim"
)

var (
	configPath = flag.String("config", "station.yaml", "Station description")
	cycles     = flag.Uint("cycles", 0, "Cycles to run (overrides the config)")
	timing     = flag.Bool("timing", false, "Dump the timing ring at the end")
	writeCfg   = flag.String("write-config", "", "Write the effective config to this file and exit")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *cycles > 0 {
		cfg.Run.Cycles = uint32(*cycles)
	}
	if *timing {
		cfg.Run.Timing = true
	}
	if *writeCfg != "" {
		if err := cfg.Save(*writeCfg); err != nil {
			log.Fatalf("Failed to write config: %v", err)
		}
		return
	}

	st := sim.New(cfg.SimParams(), cfg.Sensors())
	cfg.Apply(st.Ctrl)
	for _, b := range cfg.EEPROM.Preload {
		data, err := b.Bytes()
		if err != nil {
			log.Fatalf("EEPROM block at 0x%04X: %v", b.Address, err)
		}
		if err := st.LoadEEPROM(b.Address, data); err != nil {
			log.Fatalf("EEPROM preload: %v", err)
		}
	}

	if cfg.Run.Timing {
		core.SetDebugWriter(func(s string) { fmt.Println(s) })
		core.ClearTimingRing()
	}

	log.Printf("Simulating %d Hz %s supply, %d channel(s), %d cycles",
		cfg.Station.MainsHz, supplyName(cfg.ACPower()), len(cfg.Channels), cfg.Run.Cycles)

	st.Start()
	run(st, cfg)
	st.Stop()

	if cfg.Run.Timing {
		core.DumpTimingRing()
	}
	report(st, len(cfg.Channels))
	dumpEEPROM(st, cfg.EEPROM)
}

// run plays the scenario in slices of ReportEvery cycles.
func run(st *sim.Station, cfg *config.Config) {
	var done uint32
	failed := false
	for done < cfg.Run.Cycles {
		n := cfg.Run.ReportEvery
		if rem := cfg.Run.Cycles - done; n > rem {
			n = rem
		}
		if f := cfg.Run.FailPowerCycle; f > done && f <= done+n {
			n = f - done
		}

		got := st.RunCycles(n)
		done += n
		if got < n {
			log.Printf("cycle %d: only %d of %d cycles completed", done, got, n)
		}
		report(st, len(cfg.Channels))

		if !failed && cfg.Run.FailPowerCycle != 0 && done == cfg.Run.FailPowerCycle {
			failed = true
			log.Printf("cycle %d: failing supply", done)
			st.FailPower()
			st.RunFor(20000)
			log.Printf("power lost=%v events=%d display=%v",
				st.Ctrl.PowerLost(), st.Ctrl.PowerLostEvents(), st.DisplayOn())
			st.RestorePower()
			st.Start()
		}
	}
}

func report(st *sim.Station, channels int) {
	log.Printf("t=%dus tick=%d off-delay=%d i2c aborts=%d bus errors=%d",
		st.Now(), st.Ctrl.Ticks(), st.Ctrl.OffDelayOff(), st.Ctrl.I2C().Aborts(), st.BusErrors())
	for i := 0; i < channels; i++ {
		ch := &st.Ctrl.Channels[i]
		m := st.Last[i]
		log.Printf("  ch%d V=%d I=%d W=%d R=%d.%dΩ T=%.1f°C n=%d faults(heater=%d sensor=%d short=%d)",
			i, m.Voltage, m.Current, m.Watts, m.Resistance/10, m.Resistance%10,
			st.Temperature(i), st.Extractions[i], ch.NoHeater, ch.NoSensor, ch.ShortCircuit)
	}
}

func dumpEEPROM(st *sim.Station, cfg config.EEPROMConfig) {
	if cfg.DumpLength <= 0 {
		return
	}
	data, err := st.DumpEEPROM(cfg.DumpOffset, cfg.DumpLength)
	if err != nil {
		log.Printf("EEPROM dump: %v", err)
		return
	}
	fmt.Printf("EEPROM 0x%04X..0x%04X\n", cfg.DumpOffset, int(cfg.DumpOffset)+len(data))
	os.Stdout.WriteString(hex.Dump(data))
}

func supplyName(ac bool) string {
	if ac {
		return "AC"
	}
	return "DC"
}
