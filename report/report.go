// report/report.go
// Copyright(c) 2025 evtolsim contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package report renders the results of a simulation run.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/evtolsim/evtolsim/sim"
	"github.com/evtolsim/evtolsim/util"

	"github.com/iancoleman/orderedmap"
)

var ErrResultsVersion = errors.New("Unsupported results file version")

const (
	tableHeader = "Make       | Avg. Flight |  Avg. Wait  | Avg. Charge |  Max Faults | Total Faults | Total Passenger Miles |"
	tableRow    = "%-11s|%12.2f |%12.2f |%12.2f |%12d |%13d |%22.2f |\n"
)

// WriteTable writes a fixed-width table with a row per make.
func WriteTable(w io.Writer, sums []sim.MakeSummary) error {
	var sb strings.Builder
	sb.WriteString(tableHeader + "\n")
	sb.WriteString(strings.Repeat("-", len(tableHeader)) + "\n")
	for _, s := range sums {
		fmt.Fprintf(&sb, tableRow, s.Make, s.AvgFlightHours, s.AvgWaitHours, s.AvgChargeHours,
			s.MaxFaults, s.TotalFaults, s.TotalPassengerMiles)
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

// WriteJSON writes the summaries as an indented JSON object keyed by make
// name, with the makes in order.
func WriteJSON(w io.Writer, sums []sim.MakeSummary) error {
	om := orderedmap.New()
	om.SetEscapeHTML(false)
	for _, s := range sums {
		om.Set(s.Make.String(), s)
	}

	b, err := json.MarshalIndent(om, "", "  ")
	if err != nil {
		return err
	}
	_, err = w.Write(append(b, '\n'))
	return err
}

const resultsVersion = 1

// Results holds everything known about a finished run.
type Results struct {
	Version      int                 `msgpack:"version"`
	Config       sim.Config          `msgpack:"config"`
	Ticks        int                 `msgpack:"ticks"`
	HoursPerTick float64             `msgpack:"hours_per_tick"`
	Fleet        []sim.AircraftStats `msgpack:"fleet"`
	Summaries    []sim.MakeSummary   `msgpack:"summaries"`
}

// NewResults collects the results of a run that has finished.
func NewResults(e *sim.Engine) Results {
	return Results{
		Version:      resultsVersion,
		Config:       e.Config(),
		Ticks:        e.Ticks(),
		HoursPerTick: e.HoursPerTick(),
		Fleet:        e.Fleet(),
		Summaries:    e.Summaries(),
	}
}

// SaveResults writes r to path as zstd-compressed msgpack.
func SaveResults(path string, r Results) error {
	if r.Version == 0 {
		r.Version = resultsVersion
	}
	return util.StoreCompressedObject(path, r)
}

func LoadResults(path string) (Results, error) {
	var r Results
	if err := util.LoadCompressedObject(path, &r); err != nil {
		return Results{}, err
	}
	if r.Version != resultsVersion {
		return Results{}, fmt.Errorf("%s: version %d: %w", path, r.Version, ErrResultsVersion)
	}
	return r, nil
}
