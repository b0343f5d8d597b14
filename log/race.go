// log/race.go
// Copyright(c) 2025 evtolsim contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

//go:build race

package log

// RaceEnabled reports whether the binary was built with the race
// detector, which slows the tick workers enough to make realtime pacing
// fall behind.
const RaceEnabled = true
