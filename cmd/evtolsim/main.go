// cmd/evtolsim/main.go
// Copyright(c) 2025 evtolsim contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package main

// evtolsim runs a fleet of electric aircraft through a simulated period of
// flying, waiting for a charger, and charging, then prints per-make
// statistics.

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/evtolsim/evtolsim/log"
	"github.com/evtolsim/evtolsim/report"
	"github.com/evtolsim/evtolsim/sim"
	"github.com/evtolsim/evtolsim/util"

	"github.com/goforj/godump"
)

var (
	configFile = flag.String("config", "", "JSON file with the simulation configuration")
	aircraft   = flag.Int("aircraft", 0, "number of aircraft (overrides config)")
	chargers   = flag.Int("chargers", 0, "number of chargers (overrides config)")
	duration   = flag.Float64("duration", 0, "wall-clock seconds to run (overrides config)")
	tickRate   = flag.Int("tickrate", 0, "ticks per wall-clock second (overrides config)")
	timeScale  = flag.Float64("timescale", 0, "simulated seconds per wall-clock second (overrides config)")
	seed       = flag.Int64("seed", 0, "random seed; 0 seeds from the clock (overrides config)")
	fast       = flag.Bool("fast", false, "run ticks back to back rather than in real time")
	priority   = flag.String("priority", "", "order for newly waiting aircraft: longest-wait, shortest-wait, arrival")
	jsonOutput = flag.Bool("json", false, "print the summary as JSON")
	results    = flag.String("results", "", "write compressed run results to this file")
	logLevel   = flag.String("loglevel", "info", "logging level: debug, info, warn, error")
	logDir     = flag.String("logdir", "", "log file directory")
	cpuprofile = flag.String("cpuprofile", "", "write CPU profile to file")
	memprofile = flag.String("memprofile", "", "write memory profile to this file")
)

func setupSignalHandler(profiler *util.Profiler) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "Caught signal, cleaning up...")
		profiler.Cleanup()
		os.Exit(1)
	}()
}

// loadConfig returns the configuration from -config, or the defaults,
// with any command-line overrides applied.
func loadConfig() (sim.Config, error) {
	cfg := sim.DefaultConfig()
	if *configFile != "" {
		var err error
		if cfg, err = sim.LoadConfig(*configFile); err != nil {
			return sim.Config{}, err
		}
	}

	var err error
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "aircraft":
			cfg.Aircraft = *aircraft
		case "chargers":
			cfg.Chargers = *chargers
		case "duration":
			cfg.Duration = *duration
		case "tickrate":
			cfg.TicksPerSecond = *tickRate
		case "timescale":
			cfg.TimeScale = *timeScale
		case "seed":
			cfg.Seed = *seed
		case "fast":
			cfg.Realtime = !*fast
		case "priority":
			cfg.WaitPriority, err = sim.ParseWaitPriority(*priority)
		}
	})
	return cfg, err
}

func run(lg *log.Logger) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	lg.Debug("Configuration", "config", godump.DumpStr(cfg))

	eng, err := sim.NewEngine(cfg, lg)
	if err != nil {
		return err
	}
	if cfg.Realtime {
		fmt.Fprintf(os.Stderr, "Simulating %.2f hours in %g seconds...\n", cfg.SimulatedHours(), cfg.Duration)
	}
	if err := eng.Run(); err != nil {
		return err
	}

	sums := eng.Summaries()
	if *jsonOutput {
		err = report.WriteJSON(os.Stdout, sums)
	} else {
		err = report.WriteTable(os.Stdout, sums)
	}
	if err != nil {
		return err
	}

	if *results != "" {
		if err := report.SaveResults(*results, report.NewResults(eng)); err != nil {
			return err
		}
		lg.Infof("Wrote results to %s", *results)
	}
	return nil
}

func main() {
	flag.Parse()

	lg := log.New(*logLevel, *logDir)
	defer lg.CatchAndReportCrash()

	profiler, err := util.CreateProfiler(*cpuprofile, *memprofile)
	if err != nil {
		lg.Errorf("%v", err)
	}
	if *cpuprofile != "" || *memprofile != "" {
		setupSignalHandler(&profiler)
	}

	err = run(lg)
	profiler.Cleanup()
	if err != nil {
		lg.Errorf("%v", err)
		fmt.Fprintf(os.Stderr, "evtolsim: %v\nSee %s for details.\n", err, lg.LogFile)
		os.Exit(1)
	}
}
