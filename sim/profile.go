// sim/profile.go
// Copyright(c) 2025 evtolsim contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	"fmt"
	"strings"

	"github.com/evtolsim/evtolsim/util"
)

// Make identifies an aircraft manufacturer; each make has a single
// Profile of physical parameters.
type Make int

const (
	Alpha Make = iota
	Beta
	Charlie
	Delta
	Echo
	numMakes
)

var makeNames = [...]string{"Alpha", "Beta", "Charlie", "Delta", "Echo"}

func (m Make) String() string {
	if m < 0 || m >= numMakes {
		return fmt.Sprintf("Make(%d)", int(m))
	}
	return makeNames[m]
}

func (m Make) MarshalText() ([]byte, error) {
	if m < 0 || m >= numMakes {
		return nil, fmt.Errorf("%d: %w", int(m), ErrUnknownMake)
	}
	return []byte(makeNames[m]), nil
}

func (m *Make) UnmarshalText(b []byte) error {
	for i, name := range makeNames {
		if strings.EqualFold(string(b), name) {
			*m = Make(i)
			return nil
		}
	}
	return fmt.Errorf("%q: %w", string(b), ErrUnknownMake)
}

// Profile holds the physical parameters shared by all aircraft of a make.
type Profile struct {
	CruiseSpeed       float64 `json:"cruise_speed_mph"`
	BatteryCapacity   float64 `json:"battery_capacity_kwh"`
	ChargeTime        float64 `json:"charge_time_hours"`
	EnergyUse         float64 `json:"energy_use_kwh_per_mile"`
	PassengerCapacity int     `json:"passenger_capacity"`
	FaultProbability  float64 `json:"fault_probability_per_hour"`
}

// DrainTime returns the number of hours an aircraft can fly at cruise
// speed on a full charge.
func (p Profile) DrainTime() float64 {
	return (p.BatteryCapacity / p.EnergyUse) / p.CruiseSpeed
}

func (p Profile) validate(e *util.ErrorLogger) {
	positive := func(name string, v float64) {
		if v <= 0 {
			e.ErrorString("%s must be positive, got %g", name, v)
		}
	}
	positive("cruise_speed_mph", p.CruiseSpeed)
	positive("battery_capacity_kwh", p.BatteryCapacity)
	positive("charge_time_hours", p.ChargeTime)
	positive("energy_use_kwh_per_mile", p.EnergyUse)
	if p.PassengerCapacity <= 0 {
		e.ErrorString("passenger_capacity must be positive, got %d", p.PassengerCapacity)
	}
	if p.FaultProbability < 0 {
		e.ErrorString("fault_probability_per_hour must not be negative, got %g", p.FaultProbability)
	}
}

// ProfileTable maps each make in use to its parameters.
type ProfileTable map[Make]Profile

// Makes returns the makes in the table in order.
func (pt ProfileTable) Makes() []Make {
	return util.SortedMapKeys(pt)
}

func DefaultProfiles() ProfileTable {
	return ProfileTable{
		Alpha: {
			CruiseSpeed:       120,
			BatteryCapacity:   320,
			ChargeTime:        0.6,
			EnergyUse:         1.6,
			PassengerCapacity: 4,
			FaultProbability:  0.25,
		},
		Beta: {
			CruiseSpeed:       100,
			BatteryCapacity:   100,
			ChargeTime:        0.2,
			EnergyUse:         1.5,
			PassengerCapacity: 5,
			FaultProbability:  0.10,
		},
		Charlie: {
			CruiseSpeed:       160,
			BatteryCapacity:   220,
			ChargeTime:        0.8,
			EnergyUse:         2.2,
			PassengerCapacity: 3,
			FaultProbability:  0.05,
		},
		Delta: {
			CruiseSpeed:       90,
			BatteryCapacity:   120,
			ChargeTime:        0.62,
			EnergyUse:         0.8,
			PassengerCapacity: 2,
			FaultProbability:  0.22,
		},
		Echo: {
			CruiseSpeed:       30,
			BatteryCapacity:   150,
			ChargeTime:        0.3,
			EnergyUse:         5.8,
			PassengerCapacity: 2,
			FaultProbability:  0.61,
		},
	}
}
