// sim/engine.go
// Copyright(c) 2025 evtolsim contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/evtolsim/evtolsim/log"
	"github.com/evtolsim/evtolsim/rand"
	"github.com/evtolsim/evtolsim/util"

	"github.com/brunoga/deep"
	"github.com/shirou/gopsutil/cpu"
	"golang.org/x/sync/errgroup"
)

// workerStates lists the states that have a worker goroutine; each
// worker is the only goroutine that pops from its state's queue.
var workerStates = [...]State{Flying, Waiting, Charging}

// Engine runs a fleet through a fixed number of ticks. Each tick has
// three phases separated by a barrier shared by the state workers and
// the orchestrator (the goroutine calling Run):
//
//   - Advance: each worker advances the aircraft in its queue by one tick
//     and sets aside those that changed state.
//   - Migrate: the Flying and Charging workers push the aircraft that
//     changed state onto the next state's queue.
//   - Allocate: the Waiting worker moves waiting aircraft onto free
//     chargers.
//
// After the third barrier the orchestrator meets a pacing goroutine at a
// second, two-party barrier, which holds it to the configured tick rate.
// Queues are never locked; the barriers ensure that each queue is only
// touched by one goroutine in any phase.
type Engine struct {
	cfg Config
	lg  *log.Logger

	fleet  []Aircraft
	queues [numStates]*Queue

	phase  *util.Barrier
	pacing *util.Barrier

	// available carries the Charging worker's list of charger
	// availability times to the Waiting worker each tick.
	available chan []float64

	observer func(tick int, fleet []AircraftStats)

	ticks    int
	overruns int
	ran      bool
}

// NewEngine validates cfg and builds a fleet of cfg.Aircraft aircraft,
// each of a make chosen uniformly from cfg.Profiles. All aircraft start
// fully charged and flying.
func NewEngine(cfg Config, lg *log.Logger) (*Engine, error) {
	var errs util.ErrorLogger
	cfg.validate(&errs)
	if errs.HaveErrors() {
		errs.PrintErrors(lg)
		return nil, errs.Err(ErrInvalidConfig)
	}

	e := &Engine{
		cfg:       deep.MustCopy(cfg),
		lg:        lg,
		fleet:     make([]Aircraft, cfg.Aircraft),
		phase:     util.NewBarrier(len(workerStates) + 1),
		pacing:    util.NewBarrier(2),
		available: make(chan []float64, 1),
	}

	r := rand.Make(e.cfg.Seed)
	e.queues[Flying] = NewQueue(Flying, 0, r.Derive())
	e.queues[Waiting] = NewQueue(Waiting, 0, nil)
	e.queues[Charging] = NewQueue(Charging, e.cfg.Chargers, nil)

	makes := e.cfg.Profiles.Makes()
	for i := range e.fleet {
		m := rand.SampleSlice(r, makes)
		ac := &e.fleet[i]
		ac.init(i, m, e.cfg.Profiles[m])
		e.queues[Flying].Push(ac)
	}

	lg.Info("Created fleet", slog.Int("aircraft", len(e.fleet)), slog.Int("chargers", e.cfg.Chargers),
		slog.Any("makes", util.MapSlice(makes, Make.String)))

	return e, nil
}

// SetObserver registers fn to be called once per tick, after every
// aircraft has been advanced. It is called from the goroutine running
// Run and must not retain the slice.
func (e *Engine) SetObserver(fn func(tick int, fleet []AircraftStats)) {
	e.observer = fn
}

func (e *Engine) Config() Config { return e.cfg }

// Ticks returns the number of ticks completed.
func (e *Engine) Ticks() int { return e.ticks }

func (e *Engine) HoursPerTick() float64 { return e.cfg.HoursPerTick() }

// ElapsedHours returns the simulated time covered by the completed ticks.
func (e *Engine) ElapsedHours() float64 {
	return float64(e.ticks) * e.cfg.HoursPerTick()
}

// Overruns returns the number of ticks in a paced run that finished more
// than a tick period after their deadline.
func (e *Engine) Overruns() int { return e.overruns }

// Fleet returns a snapshot of every aircraft's statistics, ordered by ID.
// It must not be called while Run is in progress.
func (e *Engine) Fleet() []AircraftStats {
	return e.snapshot(nil)
}

// Summaries returns per-make statistics for the fleet.
func (e *Engine) Summaries() []MakeSummary {
	return Summarize(e.cfg.Profiles, e.Fleet())
}

func (e *Engine) snapshot(s []AircraftStats) []AircraftStats {
	s = s[:0]
	for i := range e.fleet {
		s = append(s, e.fleet[i].Stats())
	}
	return s
}

// Run runs the simulation to completion. An Engine can only be run once.
func (e *Engine) Run() error {
	if e.ran {
		return ErrEngineRan
	}
	e.ran = true

	ticks := e.cfg.TickCount()
	e.lg.Info("Starting run", slog.Int("ticks", ticks), slog.Float64("hours_per_tick", e.cfg.HoursPerTick()),
		slog.Bool("realtime", e.cfg.Realtime), slog.String("wait_priority", e.cfg.WaitPriority.String()))
	start := time.Now()

	var g errgroup.Group
	for _, s := range workerStates {
		g.Go(func() error { return e.work(s, ticks) })
	}
	g.Go(func() error { return e.pace(ticks) })

	var snap []AircraftStats
	for tick := range ticks {
		e.phase.Wait() // advance
		if e.observer != nil {
			snap = e.snapshot(snap)
			e.observer(tick, snap)
		}
		e.phase.Wait() // migrate
		e.phase.Wait() // allocate
		e.ticks = tick + 1
		e.pacing.Wait()
	}

	if err := g.Wait(); err != nil {
		return err
	}

	e.lg.Info("Finished run", slog.Int("ticks", e.ticks), slog.Float64("simulated_hours", e.ElapsedHours()),
		slog.Duration("wall_time", time.Since(start)), slog.Int("overruns", e.overruns))
	if e.overruns > 0 {
		e.lg.Warnf("%d of %d ticks overran their deadline by more than a tick", e.overruns, ticks)
	}

	return e.check()
}

// recoverWorker reports a panicking worker and re-panics so that the
// process does not sit forever at a barrier the worker will never reach.
func (e *Engine) recoverWorker(name string) {
	if err := recover(); err != nil {
		e.lg.ReportCrash(fmt.Sprintf("%s worker: %v", name, err))
		panic(err)
	}
}

// work is the loop of the worker for state s.
func (e *Engine) work(s State, ticks int) error {
	defer e.recoverWorker(s.String())

	q := e.queues[s]
	lg := e.lg.With(slog.String("worker", s.String()))
	var changed []*Aircraft
	for range ticks {
		changed = e.advance(q, changed[:0], lg)
		e.phase.Wait()

		e.migrate(q, changed)
		e.phase.Wait()

		if s == Waiting {
			if n := e.allocateChargers(<-e.available); n > 0 {
				lg.Debugf("Moved %d aircraft to chargers", n)
			}
		}
		e.phase.Wait()
	}
	return nil
}

// advance advances each aircraft that was in q at the start of the phase
// by one tick. Aircraft that are still in q's state are pushed back; the
// others are appended to changed, which is returned.
func (e *Engine) advance(q *Queue, changed []*Aircraft, lg *log.Logger) []*Aircraft {
	dt := e.cfg.HoursPerTick()
	var available []float64

	for range q.Len() {
		ac := q.Pop()
		t := ac.Advance(dt, q.FaultRoll())

		if ac.State() == q.State() {
			if !q.Push(ac) {
				panic(fmt.Sprintf("%s: unable to requeue in %s queue", ac, q.State()))
			}
			continue
		}

		changed = append(changed, ac)
		if q.State() == Charging {
			// The charger has been free for as long as the aircraft has
			// been flying.
			available = append(available, t)
		}
	}

	switch q.State() {
	case Flying:
		sortByWaitPriority(changed, e.cfg.WaitPriority)
	case Charging:
		slices.SortStableFunc(available, descending)
		e.available <- available
	}

	if len(changed) > 0 {
		lg.Debug("Advanced queue", slog.Int("remaining", q.Len()), slog.Int("changed", len(changed)))
	}
	return changed
}

// migrate pushes the aircraft that left q's state onto the queue for the
// state they are in now. The Waiting worker has nothing to migrate, as
// aircraft only leave Waiting when they are allocated a charger.
func (e *Engine) migrate(q *Queue, changed []*Aircraft) {
	if q.State() == Waiting {
		return
	}
	for _, ac := range changed {
		if !e.queues[ac.State()].Push(ac) {
			panic(fmt.Sprintf("%s: %s queue rejected aircraft", ac, ac.State()))
		}
	}
}

// allocateChargers moves waiting aircraft onto chargers until either the
// chargers are full or no aircraft are waiting, and returns how many it
// moved. available holds the time each charger freed this tick has been
// free, longest first; chargers that were already free were free for the
// whole tick.
func (e *Engine) allocateChargers(available []float64) int {
	waiting, charging := e.queues[Waiting], e.queues[Charging]
	dt := e.cfg.HoursPerTick()

	i, moved := 0, 0
	for ; !charging.Full() && !waiting.Empty(); moved++ {
		free := dt
		if i < len(available) {
			free = available[i]
			i++
		}

		ac := waiting.Pop()
		ac.MoveToCharger(free)
		if !charging.Push(ac) {
			panic(fmt.Sprintf("%s: charging queue rejected aircraft", ac))
		}
	}
	return moved
}

// pace holds the orchestrator to one tick per tick period when the run
// is in real time. Otherwise it still meets the orchestrator every tick
// but never sleeps.
func (e *Engine) pace(ticks int) error {
	defer e.recoverWorker("pacing")

	period := e.cfg.TickPeriod()
	if e.cfg.Realtime {
		// Start the CPU usage interval so an overrun reports usage over
		// the run rather than since boot.
		if _, err := cpuPercent(0, false); err != nil {
			e.lg.Warnf("CPU usage unavailable: %v", err)
		}
	}
	start := time.Now()
	for i := range ticks {
		if !e.cfg.Realtime {
			e.pacing.Wait()
			continue
		}

		deadline := start.Add(time.Duration(i+1) * period)
		time.Sleep(time.Until(deadline))
		e.pacing.Wait()

		if late := time.Since(deadline); late > period {
			if e.overruns == 0 {
				e.logOverrun(i, late)
			}
			e.overruns++
		}
	}
	return nil
}

// cpuPercent samples CPU usage since its previous call.
var cpuPercent = cpu.Percent

func (e *Engine) logOverrun(tick int, late time.Duration) {
	attrs := []any{slog.Int("tick", tick), slog.Duration("late", late)}
	if usage, err := cpuPercent(0, false); err != nil {
		e.lg.Warnf("CPU usage unavailable: %v", err)
	} else {
		attrs = append(attrs, slog.Any("cpu_usage", usage))
	}
	e.lg.Warn("Tick overran its deadline", attrs...)
}

// check verifies after a run that every aircraft is in exactly one queue
// and that the queue matches its state.
func (e *Engine) check() error {
	seen := make(map[*Aircraft]State, len(e.fleet))
	var err error
	for _, s := range workerStates {
		e.queues[s].Each(func(ac *Aircraft) {
			if prev, ok := seen[ac]; ok && err == nil {
				err = fmt.Errorf("%s: in both %s and %s queues", ac, prev, s)
			}
			seen[ac] = s
			if ac.State() != s && err == nil {
				err = fmt.Errorf("%s: in %s queue", ac, s)
			}
		})
	}
	if err == nil && len(seen) != len(e.fleet) {
		err = fmt.Errorf("%d aircraft in queues, fleet has %d", len(seen), len(e.fleet))
	}
	if err != nil {
		e.lg.Errorf("Queue consistency check failed: %v", err)
	}
	return err
}

// sortByWaitPriority orders aircraft that have just started waiting.
func sortByWaitPriority(acs []*Aircraft, p WaitPriority) {
	switch p {
	case LongestWait:
		slices.SortStableFunc(acs, func(a, b *Aircraft) int {
			return descending(a.TimeInStateThisTick(), b.TimeInStateThisTick())
		})
	case ShortestWait:
		slices.SortStableFunc(acs, func(a, b *Aircraft) int {
			return -descending(a.TimeInStateThisTick(), b.TimeInStateThisTick())
		})
	case Arrival:
	}
}

func descending(a, b float64) int {
	switch {
	case a > b:
		return -1
	case a < b:
		return 1
	default:
		return 0
	}
}
