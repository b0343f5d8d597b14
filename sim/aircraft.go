// sim/aircraft.go
// Copyright(c) 2025 evtolsim contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	"fmt"
	"math"

	"github.com/evtolsim/evtolsim/util"
)

// NoFault is a fault roll that never produces a fault.
var NoFault = math.Inf(1)

// Unlimited is the countdown of a waiting aircraft, which only leaves
// Waiting when it is moved to a charger.
var Unlimited = math.Inf(1)

// stateChangeTolerance absorbs floating-point drift in the countdown to
// the next state change.
const stateChangeTolerance = 1e-5

// Aircraft is a single simulated unit. Times are all in hours.
type Aircraft struct {
	id      int
	make    Make
	profile Profile

	// drainTime is the flight time on a full charge.
	drainTime float64

	state State
	// timeToStateChange counts down to the end of the current flight or
	// charge; it is Unlimited while waiting.
	timeToStateChange float64
	// timeInStateThisTick is the time spent in the state the aircraft
	// ended the most recent Advance in.
	timeInStateThisTick float64

	flightHours float64
	waitHours   float64
	chargeHours float64
	faults      int
}

// NewAircraft returns a fully-charged aircraft that has just taken off.
func NewAircraft(id int, m Make, p Profile) *Aircraft {
	ac := &Aircraft{}
	ac.init(id, m, p)
	return ac
}

func (ac *Aircraft) init(id int, m Make, p Profile) {
	*ac = Aircraft{
		id:        id,
		make:      m,
		profile:   p,
		drainTime: p.DrainTime(),
	}
	ac.enter(Flying)
}

func (ac *Aircraft) ID() int                      { return ac.id }
func (ac *Aircraft) Make() Make                   { return ac.make }
func (ac *Aircraft) State() State                 { return ac.state }
func (ac *Aircraft) DrainTime() float64           { return ac.drainTime }
func (ac *Aircraft) TimeToStateChange() float64   { return ac.timeToStateChange }
func (ac *Aircraft) TimeInStateThisTick() float64 { return ac.timeInStateThisTick }
func (ac *Aircraft) FlightHours() float64         { return ac.flightHours }
func (ac *Aircraft) WaitHours() float64           { return ac.waitHours }
func (ac *Aircraft) ChargeHours() float64         { return ac.chargeHours }
func (ac *Aircraft) Faults() int                  { return ac.faults }

// ElapsedHours is the total time the aircraft has been simulated.
func (ac *Aircraft) ElapsedHours() float64 {
	return ac.flightHours + ac.waitHours + ac.chargeHours
}

func (ac *Aircraft) PassengerMiles() float64 {
	return ac.flightHours * ac.profile.CruiseSpeed * float64(ac.profile.PassengerCapacity)
}

func (ac *Aircraft) String() string {
	return fmt.Sprintf("%s-%d (%s)", ac.make, ac.id, ac.state)
}

// enter switches to state s and resets the countdown to its full
// duration.
func (ac *Aircraft) enter(s State) {
	ac.state = s
	switch s {
	case Flying:
		ac.timeToStateChange = ac.drainTime
	case Charging:
		ac.timeToStateChange = ac.profile.ChargeTime
	case Waiting:
		ac.timeToStateChange = Unlimited
	}
}

// credit adds dt hours to the accumulator of the current state. While
// flying, a fault is recorded if faultRoll is less than the probability
// of a fault in dt hours.
func (ac *Aircraft) credit(dt, faultRoll float64) {
	switch ac.state {
	case Flying:
		ac.flightHours += dt
		if faultRoll < dt*ac.profile.FaultProbability {
			ac.faults++
		}
	case Waiting:
		ac.waitHours += dt
	case Charging:
		ac.chargeHours += dt
	}
}

// Advance moves the aircraft forward dt hours. faultRoll should be
// uniform in [0,1) if a fault is possible or NoFault otherwise. If the
// current flight or charge ends within dt, the aircraft changes state
// and the rest of dt is credited to the new state (with a second fault
// check if it is flying again). It returns the time spent in the state
// the aircraft ends in.
//
// dt must be less than the profile's charge and drain times, so that at
// most one state change happens per call.
func (ac *Aircraft) Advance(dt, faultRoll float64) float64 {
	inStart := min(dt, ac.timeToStateChange)
	ac.credit(inStart, faultRoll)
	if ac.state != Waiting {
		ac.timeToStateChange -= inStart
	}

	if dt > inStart || util.AlmostEqual(ac.timeToStateChange, 0, stateChangeTolerance) {
		residual := dt - inStart
		switch ac.state {
		case Flying:
			ac.enter(Waiting)
		case Charging:
			ac.enter(Flying)
			ac.timeToStateChange = ac.drainTime - residual
		}
		ac.credit(residual, faultRoll)
		ac.timeInStateThisTick = residual
	} else {
		ac.timeInStateThisTick = inStart
	}

	return ac.timeInStateThisTick
}

// MoveToCharger puts a waiting aircraft on a charger that has been free
// for the last available hours of the current tick. The aircraft was
// credited with waiting for its whole time in Waiting this tick; the part
// of that overlapping the charger's availability is moved to charging.
func (ac *Aircraft) MoveToCharger(available float64) {
	if ac.state != Waiting {
		panic(fmt.Sprintf("%s: MoveToCharger called while %s", ac, ac.state))
	}

	adjust := min(available, ac.timeInStateThisTick)
	ac.waitHours -= adjust
	ac.enter(Charging)
	ac.Advance(adjust, NoFault)
}

// AircraftStats is a snapshot of an aircraft's accumulated statistics.
type AircraftStats struct {
	ID             int     `json:"id"`
	Make           Make    `json:"make"`
	State          State   `json:"state"`
	FlightHours    float64 `json:"flight_hours"`
	WaitHours      float64 `json:"wait_hours"`
	ChargeHours    float64 `json:"charge_hours"`
	Faults         int     `json:"faults"`
	PassengerMiles float64 `json:"passenger_miles"`
}

func (s AircraftStats) ElapsedHours() float64 {
	return s.FlightHours + s.WaitHours + s.ChargeHours
}

func (ac *Aircraft) Stats() AircraftStats {
	return AircraftStats{
		ID:             ac.id,
		Make:           ac.make,
		State:          ac.state,
		FlightHours:    ac.flightHours,
		WaitHours:      ac.waitHours,
		ChargeHours:    ac.chargeHours,
		Faults:         ac.faults,
		PassengerMiles: ac.PassengerMiles(),
	}
}
