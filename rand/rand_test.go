// rand/rand_test.go
// Copyright(c) 2025 evtolsim contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package rand

import (
	"testing"
)

func TestFloat64Range(t *testing.T) {
	r := Make(1234)
	var sum float64
	const n = 100000
	for range n {
		v := r.Float64()
		if v < 0 || v >= 1 {
			t.Fatalf("%f: outside [0,1)", v)
		}
		sum += v
	}
	if mean := sum / n; mean < 0.49 || mean > 0.51 {
		t.Errorf("mean %f is not close to 0.5", mean)
	}
}

func TestSeedDeterminism(t *testing.T) {
	a, b := Make(42), Make(42)
	for i := range 1000 {
		if va, vb := a.Float64(), b.Float64(); va != vb {
			t.Fatalf("draw %d: %f != %f with identical seeds", i, va, vb)
		}
	}

	c := Make(43)
	same := 0
	a.Seed(42)
	for range 100 {
		if a.Uint32() == c.Uint32() {
			same++
		}
	}
	if same > 5 {
		t.Errorf("different seeds produced %d identical draws out of 100", same)
	}
}

func TestIntnBounds(t *testing.T) {
	r := Make(7)
	var counts [5]int
	for range 50000 {
		v := r.Intn(5)
		if v < 0 || v >= 5 {
			t.Fatalf("Intn(5) returned %d", v)
		}
		counts[v]++
	}
	for i, c := range counts {
		if c < 9000 || c > 11000 {
			t.Errorf("value %d drawn %d times, expected roughly 10000", i, c)
		}
	}
}

func TestDerive(t *testing.T) {
	a, b := Make(99), Make(99)
	da, db := a.Derive(), b.Derive()
	if da.Uint32() != db.Uint32() {
		t.Errorf("derived streams from identical parents differ")
	}

	e := Make(99)
	d := e.Derive()
	if e.Uint32() == d.Uint32() && e.Uint32() == d.Uint32() {
		t.Errorf("derived stream tracks its parent")
	}
}

func TestSampleSlice(t *testing.T) {
	r := Make(3)
	s := []string{"a", "b", "c"}
	seen := make(map[string]bool)
	for range 300 {
		seen[SampleSlice(r, s)] = true
	}
	if len(seen) != len(s) {
		t.Errorf("only sampled %v from %v", seen, s)
	}
}
