// util/error.go
// Copyright(c) 2025 evtolsim contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package util

import (
	"errors"
	"fmt"
	"strings"

	"github.com/evtolsim/evtolsim/log"
)

// ErrorLogger accumulates validation errors along with the context
// (pushed via Push/Pop) in which they were found, so that a single pass
// over a configuration can report every problem rather than the first.
type ErrorLogger struct {
	hierarchy []string
	errors    []string
}

func (e *ErrorLogger) Push(s string) {
	e.hierarchy = append(e.hierarchy, s)
}

func (e *ErrorLogger) Pop() {
	e.hierarchy = e.hierarchy[:len(e.hierarchy)-1]
}

func (e *ErrorLogger) prefix() string {
	if len(e.hierarchy) == 0 {
		return ""
	}
	return strings.Join(e.hierarchy, " / ") + ": "
}

func (e *ErrorLogger) ErrorString(s string, args ...any) {
	e.errors = append(e.errors, e.prefix()+fmt.Sprintf(s, args...))
}

func (e *ErrorLogger) Error(err error) {
	e.errors = append(e.errors, e.prefix()+err.Error())
}

func (e *ErrorLogger) HaveErrors() bool {
	return len(e.errors) > 0
}

func (e *ErrorLogger) Errors() []string {
	return e.errors
}

func (e *ErrorLogger) PrintErrors(lg *log.Logger) {
	for _, err := range e.errors {
		lg.Errorf("%+v", err)
	}
}

func (e *ErrorLogger) String() string {
	return strings.Join(e.errors, "\n")
}

// Err returns nil if no errors were recorded and otherwise an error that
// wraps base and lists every recorded problem.
func (e *ErrorLogger) Err(base error) error {
	if !e.HaveErrors() {
		return nil
	}
	if base == nil {
		return errors.New(e.String())
	}
	return fmt.Errorf("%w:\n%s", base, e.String())
}
