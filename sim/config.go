// sim/config.go
// Copyright(c) 2025 evtolsim contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	"fmt"
	"math"
	"os"
	"time"

	"github.com/evtolsim/evtolsim/util"
)

// WaitPriority orders the aircraft that start waiting in the same tick,
// and so decides which of them get the chargers that free up first.
type WaitPriority int

const (
	// LongestWait puts the aircraft that has been waiting the longest
	// this tick first.
	LongestWait WaitPriority = iota
	// ShortestWait puts the aircraft that landed most recently first.
	ShortestWait
	// Arrival keeps the order in which the Flying queue held them.
	Arrival
)

var waitPriorityNames = [...]string{"longest-wait", "shortest-wait", "arrival"}

func (p WaitPriority) String() string {
	if p < 0 || int(p) >= len(waitPriorityNames) {
		return fmt.Sprintf("WaitPriority(%d)", int(p))
	}
	return waitPriorityNames[p]
}

func (p WaitPriority) MarshalText() ([]byte, error) {
	if p < 0 || int(p) >= len(waitPriorityNames) {
		return nil, fmt.Errorf("%d: %w", int(p), ErrUnknownWaitPriority)
	}
	return []byte(waitPriorityNames[p]), nil
}

func (p *WaitPriority) UnmarshalText(b []byte) error {
	v, err := ParseWaitPriority(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

func ParseWaitPriority(s string) (WaitPriority, error) {
	for i, name := range waitPriorityNames {
		if s == name {
			return WaitPriority(i), nil
		}
	}
	return 0, fmt.Errorf("%q: %w", s, ErrUnknownWaitPriority)
}

// Config holds the parameters of a simulation run.
type Config struct {
	Aircraft int `json:"aircraft"`
	Chargers int `json:"chargers"`

	TicksPerSecond int `json:"ticks_per_second"`
	// Duration is the length of the run in wall-clock seconds.
	Duration float64 `json:"duration_seconds"`
	// TimeScale is the number of simulated seconds per wall-clock second.
	TimeScale float64 `json:"time_scale"`
	// Realtime paces the run so that each tick takes 1/TicksPerSecond
	// seconds; otherwise ticks run back to back.
	Realtime bool `json:"realtime"`

	// Seed seeds the fleet builder and fault rolls; 0 seeds from the
	// clock.
	Seed int64 `json:"seed"`

	WaitPriority WaitPriority `json:"wait_priority"`
	Profiles     ProfileTable `json:"profiles"`
}

// DefaultConfig returns the stock configuration: 20 aircraft of the five
// stock makes sharing 3 chargers for three minutes of wall-clock time,
// with one wall-clock second standing for one simulated minute.
func DefaultConfig() Config {
	return Config{
		Aircraft:       20,
		Chargers:       3,
		TicksPerSecond: 30,
		Duration:       180,
		TimeScale:      60,
		Realtime:       true,
		WaitPriority:   LongestWait,
		Profiles:       DefaultProfiles(),
	}
}

// LoadConfig reads a JSON configuration from path. Fields missing from
// the file keep their DefaultConfig values; if the file has a
// "profiles" object, it replaces the stock profiles entirely. The
// result has not been validated.
func LoadConfig(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	cfg := DefaultConfig()
	cfg.Profiles = nil

	var e util.ErrorLogger
	e.Push(path)
	util.CheckedUnmarshalJSON(b, &cfg, &e)
	e.Pop()
	if e.HaveErrors() {
		return Config{}, e.Err(ErrInvalidConfig)
	}

	if cfg.Profiles == nil {
		cfg.Profiles = DefaultProfiles()
	}
	return cfg, nil
}

// Validate checks every field of the configuration and returns an error
// wrapping ErrInvalidConfig that lists all of the problems found.
func (c *Config) Validate() error {
	var e util.ErrorLogger
	c.validate(&e)
	return e.Err(ErrInvalidConfig)
}

func (c *Config) validate(e *util.ErrorLogger) {
	if c.Aircraft < 1 {
		e.ErrorString("aircraft must be at least 1, got %d", c.Aircraft)
	}
	if c.Chargers < 1 {
		e.ErrorString("chargers must be at least 1, got %d", c.Chargers)
	}
	if c.TicksPerSecond < 1 {
		e.ErrorString("ticks_per_second must be at least 1, got %d", c.TicksPerSecond)
	}
	if c.Duration <= 0 {
		e.ErrorString("duration_seconds must be positive, got %g", c.Duration)
	}
	if c.TimeScale <= 0 {
		e.ErrorString("time_scale must be positive, got %g", c.TimeScale)
	}
	if c.WaitPriority < 0 || int(c.WaitPriority) >= len(waitPriorityNames) {
		e.Error(fmt.Errorf("%d: %w", int(c.WaitPriority), ErrUnknownWaitPriority))
	}
	if len(c.Profiles) == 0 {
		e.ErrorString("no aircraft profiles")
	}

	tick := c.HoursPerTick()
	for _, m := range c.Profiles.Makes() {
		p := c.Profiles[m]

		e.Push(m.String())
		if m < 0 || m >= numMakes {
			e.Error(ErrUnknownMake)
		}
		n := len(e.Errors())
		p.validate(e)
		if len(e.Errors()) == n && tick > 0 {
			// A tick may not span a whole charge or flight, since an
			// aircraft can only change state once per tick.
			if tick >= p.ChargeTime {
				e.ErrorString("tick of %g hours is not shorter than charge time %g", tick, p.ChargeTime)
			}
			if d := p.DrainTime(); tick >= d {
				e.ErrorString("tick of %g hours is not shorter than drain time %g", tick, d)
			}
		}
		e.Pop()
	}
}

// TickCount returns the number of ticks in the run.
func (c *Config) TickCount() int {
	return int(math.Round(c.Duration * float64(c.TicksPerSecond)))
}

// HoursPerTick returns the simulated time that passes each tick.
func (c *Config) HoursPerTick() float64 {
	if c.TicksPerSecond <= 0 {
		return 0
	}
	return c.TimeScale / float64(c.TicksPerSecond) / 3600
}

// TickPeriod returns the wall-clock length of a tick in a paced run.
func (c *Config) TickPeriod() time.Duration {
	if c.TicksPerSecond <= 0 {
		return 0
	}
	return time.Second / time.Duration(c.TicksPerSecond)
}

// SimulatedHours returns the simulated length of the run.
func (c *Config) SimulatedHours() float64 {
	return float64(c.TickCount()) * c.HoursPerTick()
}
