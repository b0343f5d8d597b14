// util/generic.go
// Copyright(c) 2025 evtolsim contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package util

import (
	"slices"

	"golang.org/x/exp/constraints"
)

// SortedMapKeys returns the keys of the given map, sorted from low to high.
func SortedMapKeys[K constraints.Ordered, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// MapSlice returns the slice that is the result of applying the provided
// xform function to all of the elements of the given slice.
func MapSlice[F, T any](from []F, xform func(F) T) []T {
	to := make([]T, 0, len(from))
	for _, item := range from {
		to = append(to, xform(item))
	}
	return to
}

// CountSlice returns the number of elements of s for which pred is true.
func CountSlice[V any](s []V, pred func(V) bool) int {
	n := 0
	for _, item := range s {
		if pred(item) {
			n++
		}
	}
	return n
}

// AlmostEqual reports whether a and b differ by less than tol.
func AlmostEqual[T constraints.Float](a, b, tol T) bool {
	d := a - b
	return d < tol && d > -tol
}
