// sim/engine_test.go
// Copyright(c) 2025 evtolsim contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	"bytes"
	"errors"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/evtolsim/evtolsim/log"
)

// alphaConfig is six Alpha aircraft sharing three chargers for three
// simulated hours, 1800 ticks per hour.
func alphaConfig() Config {
	cfg := DefaultConfig()
	cfg.Aircraft = 6
	cfg.Chargers = 3
	cfg.Realtime = false
	cfg.Seed = 1
	cfg.Profiles = ProfileTable{Alpha: DefaultProfiles()[Alpha]}
	return cfg
}

func runEngine(t *testing.T, cfg Config) *Engine {
	t.Helper()
	e, err := NewEngine(cfg, nil)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	if err := e.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	return e
}

func TestEngineAlphaScenario(t *testing.T) {
	// All six fly for 5/3 hours and land together; three charge for .6
	// hours while the others wait, then the second three charge. With
	// 2.4 hours flown by the first group and 1.8 by the second:
	e := runEngine(t, alphaConfig())

	if e.Ticks() != 5400 {
		t.Errorf("ran %d ticks, expected 5400", e.Ticks())
	}
	checkHours(t, "elapsed", e.ElapsedHours(), 3)

	sums := e.Summaries()
	if len(sums) != 1 || sums[0].Make != Alpha || sums[0].Count != 6 {
		t.Fatalf("unexpected summaries %+v", sums)
	}
	s := sums[0]
	checkHours(t, "avg flight", s.AvgFlightHours, 2.1)
	checkHours(t, "avg wait", s.AvgWaitHours, .3)
	checkHours(t, "avg charge", s.AvgChargeHours, .6)
	if !almostEqualRel(s.TotalPassengerMiles, 6048) {
		t.Errorf("total passenger miles %g, expected 6048", s.TotalPassengerMiles)
	}

	var waited, notWaited int
	for _, ac := range e.Fleet() {
		checkHours(t, "elapsed", ac.ElapsedHours(), 3)
		switch {
		case almostEqualRel(ac.WaitHours, .6):
			waited++
			checkHours(t, "flight", ac.FlightHours, 1.8)
		case almostEqualRel(ac.WaitHours+1, 1):
			notWaited++
			checkHours(t, "flight", ac.FlightHours, 2.4)
		default:
			t.Errorf("aircraft %d waited %g hours", ac.ID, ac.WaitHours)
		}
	}
	if waited != 3 || notWaited != 3 {
		t.Errorf("%d aircraft waited and %d did not, expected 3 and 3", waited, notWaited)
	}
}

func almostEqualRel(a, b float64) bool {
	d := a - b
	return d < 1e-6*max(1, b) && d > -1e-6*max(1, b)
}

func TestEngineInvariants(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Realtime = false
	cfg.Seed = 17
	cfg.Duration = 60

	e, err := NewEngine(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}

	dt := cfg.HoursPerTick()
	calls := 0
	e.SetObserver(func(tick int, fleet []AircraftStats) {
		if tick != calls {
			t.Fatalf("observer called for tick %d, expected %d", tick, calls)
		}
		calls++

		if len(fleet) != cfg.Aircraft {
			t.Fatalf("tick %d: %d aircraft, expected %d", tick, len(fleet), cfg.Aircraft)
		}
		elapsed := float64(tick+1) * dt
		for _, ac := range fleet {
			if !almostEqualRel(ac.ElapsedHours(), elapsed) {
				t.Fatalf("tick %d: aircraft %d accounted %g hours, expected %g", tick, ac.ID, ac.ElapsedHours(), elapsed)
			}
		}
		counts := CountByState(fleet)
		if counts[Charging] > cfg.Chargers {
			t.Fatalf("tick %d: %d charging with %d chargers", tick, counts[Charging], cfg.Chargers)
		}
		if n := counts[Flying] + counts[Waiting] + counts[Charging]; n != len(fleet) {
			t.Fatalf("tick %d: %d aircraft in states, fleet has %d", tick, n, len(fleet))
		}
	})

	if err := e.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if calls != cfg.TickCount() {
		t.Errorf("observer called %d times, expected %d", calls, cfg.TickCount())
	}
	if err := e.check(); err != nil {
		t.Errorf("queues inconsistent after run: %v", err)
	}
}

func TestEngineDeterministic(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Realtime = false
	cfg.Seed = 1234

	a, b := runEngine(t, cfg), runEngine(t, cfg)
	if !slices.Equal(a.Fleet(), b.Fleet()) {
		t.Errorf("identical seeds gave different fleets")
	}

	faults := 0
	for _, ac := range a.Fleet() {
		faults += ac.Faults
	}
	if faults == 0 {
		t.Errorf("no faults in %g fleet hours", a.ElapsedHours()*float64(cfg.Aircraft))
	}
}

func TestEngineConfigCopied(t *testing.T) {
	cfg := alphaConfig()
	e, err := NewEngine(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}

	p := cfg.Profiles[Alpha]
	p.ChargeTime = 100
	cfg.Profiles[Alpha] = p
	if e.Config().Profiles[Alpha].ChargeTime != .6 {
		t.Errorf("engine profile changed with caller's config")
	}
}

func TestEngineRunOnce(t *testing.T) {
	cfg := alphaConfig()
	cfg.Duration = 1
	e := runEngine(t, cfg)
	if err := e.Run(); !errors.Is(err, ErrEngineRan) {
		t.Errorf("second Run: got %v, expected ErrEngineRan", err)
	}
}

func TestNewEngineInvalid(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Chargers = 0
	cfg.TimeScale = -1

	var buf bytes.Buffer
	lg := log.NewWithWriter("info", &buf)
	if _, err := NewEngine(cfg, lg); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("got %v, expected ErrInvalidConfig", err)
	}
	for _, want := range []string{"chargers must be at least 1", "time_scale must be positive"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("%q not logged: %s", want, buf.String())
		}
	}
}

func TestEngineWorkerLogging(t *testing.T) {
	// Every aircraft lands, waits, or charges at some point in the
	// scenario, so each worker logs.
	var buf bytes.Buffer
	e, err := NewEngine(alphaConfig(), log.NewWithWriter("debug", &buf))
	if err != nil {
		t.Fatal(err)
	}
	if err := e.Run(); err != nil {
		t.Fatal(err)
	}

	for _, s := range workerStates {
		if want := `"worker":"` + s.String() + `"`; !strings.Contains(buf.String(), want) {
			t.Errorf("no records with %s", want)
		}
	}
}

func TestLogOverrun(t *testing.T) {
	defer func(f func(time.Duration, bool) ([]float64, error)) { cpuPercent = f }(cpuPercent)

	for _, tc := range []struct {
		name      string
		percent   func(time.Duration, bool) ([]float64, error)
		want      []string
		notWanted string
	}{
		{name: "usage",
			percent: func(time.Duration, bool) ([]float64, error) { return []float64{42.5}, nil },
			want:    []string{"Tick overran its deadline", `"cpu_usage":[42.5]`}},
		{name: "usage unavailable",
			percent:   func(time.Duration, bool) ([]float64, error) { return nil, errors.New("no /proc/stat") },
			want:      []string{"CPU usage unavailable: no /proc/stat", "Tick overran its deadline"},
			notWanted: "cpu_usage"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			cpuPercent = tc.percent

			var buf bytes.Buffer
			e := &Engine{lg: log.NewWithWriter("info", &buf)}
			e.logOverrun(7, 30*time.Millisecond)

			for _, want := range tc.want {
				if !strings.Contains(buf.String(), want) {
					t.Errorf("%q not logged: %s", want, buf.String())
				}
			}
			if tc.notWanted != "" && strings.Contains(buf.String(), tc.notWanted) {
				t.Errorf("%q logged: %s", tc.notWanted, buf.String())
			}
			if !strings.Contains(buf.String(), `"tick":7`) {
				t.Errorf("tick not logged: %s", buf.String())
			}
		})
	}
}

func TestEnginePacing(t *testing.T) {
	cfg := alphaConfig()
	cfg.Realtime = true
	cfg.TicksPerSecond = 100
	cfg.Duration = .2

	start := time.Now()
	e := runEngine(t, cfg)
	if el := time.Since(start); el < 190*time.Millisecond {
		t.Errorf("paced run of 20 10ms ticks took %s", el)
	}
	if e.Ticks() != 20 {
		t.Errorf("ran %d ticks, expected 20", e.Ticks())
	}
	if !log.RaceEnabled && e.Overruns() > 5 {
		t.Errorf("%d of 20 ticks overran", e.Overruns())
	}
}

// waitingAircraft returns an aircraft that has been waiting for the
// whole of its last tick of dt hours.
func waitingAircraft(id int, dt float64) *Aircraft {
	p := DefaultProfiles()[Alpha]
	ac := NewAircraft(id, Alpha, p)
	ac.Advance(p.DrainTime(), NoFault)
	ac.Advance(dt, NoFault)
	return ac
}

func TestAllocateChargers(t *testing.T) {
	cfg := alphaConfig()
	dt := cfg.HoursPerTick()

	for _, tc := range []struct {
		name       string
		chargers   int
		available  []float64
		wantCharge []float64 // per aircraft; -1 if still waiting
	}{
		{name: "availability in order", chargers: 2, available: []float64{.75 * dt, .25 * dt},
			wantCharge: []float64{.75 * dt, .25 * dt, -1}},
		{name: "list exhausted", chargers: 3, available: []float64{.5 * dt},
			wantCharge: []float64{.5 * dt, dt, dt}},
		{name: "no chargers freed", chargers: 1, available: nil,
			wantCharge: []float64{dt, -1, -1}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			e := &Engine{cfg: cfg}
			e.queues[Waiting] = NewQueue(Waiting, 0, nil)
			e.queues[Charging] = NewQueue(Charging, tc.chargers, nil)

			var acs []*Aircraft
			for i := range 3 {
				ac := waitingAircraft(i, dt)
				acs = append(acs, ac)
				e.queues[Waiting].Push(ac)
			}

			moved := e.allocateChargers(tc.available)
			if want := tc.chargers; moved != want {
				t.Errorf("moved %d aircraft, expected %d", moved, want)
			}

			for i, ac := range acs {
				if tc.wantCharge[i] < 0 {
					if ac.State() != Waiting {
						t.Errorf("aircraft %d: %s, expected waiting", i, ac.State())
					}
					continue
				}
				if ac.State() != Charging {
					t.Errorf("aircraft %d: %s, expected charging", i, ac.State())
				}
				checkHours(t, "charge", ac.ChargeHours(), tc.wantCharge[i])
				checkHours(t, "wait", ac.WaitHours(), dt-tc.wantCharge[i])
			}
		})
	}
}

func TestSortByWaitPriority(t *testing.T) {
	mk := func(tist ...float64) []*Aircraft {
		var acs []*Aircraft
		for i, v := range tist {
			ac := NewAircraft(i, Alpha, DefaultProfiles()[Alpha])
			ac.timeInStateThisTick = v
			acs = append(acs, ac)
		}
		return acs
	}
	ids := func(acs []*Aircraft) []int {
		var r []int
		for _, ac := range acs {
			r = append(r, ac.ID())
		}
		return r
	}

	for _, tc := range []struct {
		priority WaitPriority
		want     []int
	}{
		{LongestWait, []int{1, 3, 0, 2, 4}},
		{ShortestWait, []int{4, 0, 2, 3, 1}},
		{Arrival, []int{0, 1, 2, 3, 4}},
	} {
		acs := mk(.2, .5, .2, .3, .1)
		sortByWaitPriority(acs, tc.priority)
		if got := ids(acs); !slices.Equal(got, tc.want) {
			t.Errorf("%s: order %v, expected %v", tc.priority, got, tc.want)
		}
	}
}
