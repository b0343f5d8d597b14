// log/log_test.go
// Copyright(c) 2025 evtolsim contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package log

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	lg := NewWithWriter("warn", &buf)
	buf.Reset()

	lg.Info("dropped")
	lg.Debugf("dropped %d", 1)
	lg.Warn("kept", "ticks", 3)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one record, got %d:\n%s", len(lines), buf.String())
	}

	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("record is not JSON: %v", err)
	}
	if rec["msg"] != "kept" || rec["level"] != "WARN" || rec["ticks"] != float64(3) {
		t.Errorf("unexpected record %v", rec)
	}
	if _, ok := rec["callstack"]; !ok {
		t.Errorf("record has no callstack: %v", rec)
	}
}

func TestLoggerWith(t *testing.T) {
	var buf bytes.Buffer
	lg := NewWithWriter("debug", &buf).With("worker", "charging")
	buf.Reset()

	lg.Debug("advanced")
	if !strings.Contains(buf.String(), `"worker":"charging"`) {
		t.Errorf("With attribute missing: %s", buf.String())
	}
}

func TestNilLogger(t *testing.T) {
	var lg *Logger
	lg.Debug("x")
	lg.Infof("%d", 1)
	if lg.With("a", 1) != nil {
		t.Errorf("With on nil logger returned non-nil")
	}
}

func TestCatchAndReportCrash(t *testing.T) {
	var buf bytes.Buffer
	lg := NewWithWriter("info", &buf)

	func() {
		defer lg.CatchAndReportCrash()
		panic("queue underflow")
	}()
	if !strings.Contains(buf.String(), "Crashed: queue underflow") {
		t.Errorf("crash not logged: %s", buf.String())
	}
}
