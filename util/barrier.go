// util/barrier.go
// Copyright(c) 2025 evtolsim contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package util

import (
	"fmt"
	"sync"
)

// Barrier is a reusable full-rendezvous point for a fixed number of
// goroutines: Wait blocks until all parties have called it, then releases
// all of them together and resets for the next round.
//
// Everything a party wrote before calling Wait is visible to every party
// after Wait returns, so phases separated by a Barrier can hand data to
// one another without further synchronization.
//
// There is no timeout: if one party never arrives, the others wait
// forever.
type Barrier struct {
	mu         sync.Mutex
	cond       *sync.Cond
	parties    int
	arrived    int
	generation uint64
}

func NewBarrier(parties int) *Barrier {
	if parties < 1 {
		panic(fmt.Sprintf("NewBarrier: %d parties", parties))
	}
	b := &Barrier{parties: parties}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// Wait blocks until all parties have arrived. It returns the generation
// (the number of completed rounds before this one).
func (b *Barrier) Wait() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	gen := b.generation
	b.arrived++
	if b.arrived == b.parties {
		b.arrived = 0
		b.generation++
		b.cond.Broadcast()
		return gen
	}

	for gen == b.generation {
		b.cond.Wait()
	}
	return gen
}
