// sim/errors.go
// Copyright(c) 2025 evtolsim contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	"errors"
)

var (
	ErrInvalidConfig       = errors.New("Invalid simulation configuration")
	ErrUnknownMake         = errors.New("Unknown aircraft make")
	ErrUnknownWaitPriority = errors.New("Unknown wait priority")
	ErrEngineRan           = errors.New("Engine has already been run")
)
