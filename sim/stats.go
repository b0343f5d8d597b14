// sim/stats.go
// Copyright(c) 2025 evtolsim contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	"github.com/evtolsim/evtolsim/util"
)

// MakeSummary aggregates the statistics of all aircraft of one make.
type MakeSummary struct {
	Make  Make `json:"make" msgpack:"make"`
	Count int  `json:"count" msgpack:"count"`

	AvgFlightHours float64 `json:"avg_flight_hours" msgpack:"avg_flight_hours"`
	AvgWaitHours   float64 `json:"avg_wait_hours" msgpack:"avg_wait_hours"`
	AvgChargeHours float64 `json:"avg_charge_hours" msgpack:"avg_charge_hours"`

	MaxFaults           int     `json:"max_faults" msgpack:"max_faults"`
	TotalFaults         int     `json:"total_faults" msgpack:"total_faults"`
	TotalPassengerMiles float64 `json:"total_passenger_miles" msgpack:"total_passenger_miles"`
}

// Summarize returns a summary for each make in profiles, in make order.
// Makes with no aircraft in fleet are included with zero values.
func Summarize(profiles ProfileTable, fleet []AircraftStats) []MakeSummary {
	makes := profiles.Makes()
	sums := make([]MakeSummary, len(makes))
	idx := make(map[Make]int, len(makes))
	for i, m := range makes {
		sums[i].Make = m
		idx[m] = i
	}

	for _, ac := range fleet {
		i, ok := idx[ac.Make]
		if !ok {
			continue
		}
		s := &sums[i]
		s.Count++
		s.AvgFlightHours += ac.FlightHours
		s.AvgWaitHours += ac.WaitHours
		s.AvgChargeHours += ac.ChargeHours
		s.MaxFaults = max(s.MaxFaults, ac.Faults)
		s.TotalFaults += ac.Faults
		s.TotalPassengerMiles += ac.PassengerMiles
	}

	for i := range sums {
		if n := float64(sums[i].Count); n > 0 {
			sums[i].AvgFlightHours /= n
			sums[i].AvgWaitHours /= n
			sums[i].AvgChargeHours /= n
		}
	}
	return sums
}

// CountByState returns the number of aircraft in each state.
func CountByState(fleet []AircraftStats) map[State]int {
	counts := make(map[State]int)
	for _, s := range []State{Flying, Waiting, Charging} {
		counts[s] = util.CountSlice(fleet, func(ac AircraftStats) bool { return ac.State == s })
	}
	return counts
}
