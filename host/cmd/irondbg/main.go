// Command irondbg attaches to the station's debug UART, echoes its output
// and decodes timing ring dumps.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"

	"unisolder/host/config"
	"unisolder/host/serial"
	"unisolder/host/timing"
)

var (
	configPath = flag.String("config", "station.yaml", "Station description (serial section)")
	device     = flag.String("device", "", "Serial device path (overrides the config)")
	baud       = flag.Int("baud", 0, "Baud rate (overrides the config)")
	quiet      = flag.Bool("quiet", false, "Only print timing dumps")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	sc := serial.DefaultConfig(cfg.Serial.Port)
	if cfg.Serial.Baud != 0 {
		sc.Baud = cfg.Serial.Baud
	}
	if *device != "" {
		sc.Device = *device
	}
	if *baud != 0 {
		sc.Baud = *baud
	}
	// a read timeout ends the stream early; block and close on interrupt
	sc.ReadTimeout = 0

	port, err := serial.Open(sc)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	defer port.Close()
	if err := port.Flush(); err != nil {
		log.Printf("flush: %v", err)
	}
	log.Printf("Listening on %s at %d baud", sc.Device, sc.Baud)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	var echo func(string)
	if !*quiet {
		echo = func(s string) { fmt.Println(s) }
	}
	rd := timing.NewReader(port, timing.DefaultBufferSize, echo)

	errc := make(chan error, 1)
	go func() { errc <- rd.Run(ctx) }()
	go func() {
		<-ctx.Done()
		port.Close()
	}()

	for d := range rd.Dumps() {
		printDump(d)
	}
	if err := <-errc; err != nil && ctx.Err() == nil {
		log.Fatalf("Read failed: %v", err)
	}
}

func printDump(d timing.Dump) {
	fmt.Printf("--- timing dump: %d events", len(d.Events))
	if d.Errors > 0 {
		fmt.Printf(", %d unreadable", d.Errors)
	}
	fmt.Println(" ---")

	gaps := timing.Intervals(d.Events)
	for i, ev := range d.Events {
		if i > 0 {
			fmt.Printf("%s  (+%dus)\n", ev, gaps[i-1])
		} else {
			fmt.Println(ev)
		}
	}
}
