// sim/state.go
// Copyright(c) 2025 evtolsim contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	"fmt"
	"strings"
)

// State is the activity an aircraft is engaged in. Aircraft cycle
// Flying -> Waiting -> Charging -> Flying.
type State int

const (
	Flying State = iota
	Waiting
	Charging
	numStates
)

// Next returns the state that follows s in the cycle.
func (s State) Next() State {
	return (s + 1) % numStates
}

func (s State) String() string {
	switch s {
	case Flying:
		return "flying"
	case Waiting:
		return "waiting"
	case Charging:
		return "charging"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

func (s State) MarshalText() ([]byte, error) {
	if s < 0 || s >= numStates {
		return nil, fmt.Errorf("%d: invalid state", int(s))
	}
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(b []byte) error {
	for st := range numStates {
		if strings.EqualFold(string(b), st.String()) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("%q: unknown state", string(b))
}
