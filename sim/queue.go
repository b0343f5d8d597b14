// sim/queue.go
// Copyright(c) 2025 evtolsim contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	"fmt"

	"github.com/evtolsim/evtolsim/rand"
)

// Queue is a FIFO of the aircraft currently in one state. It holds
// references into the engine's fleet and never owns the aircraft.
//
// A Queue is not safe for concurrent use; the engine's phase barriers
// guarantee that at most one worker touches it at a time.
type Queue struct {
	state    State
	capacity int // 0 if unlimited
	rand     *rand.Rand

	// Aircraft are popped from head; elements before head are
	// garbage and are reclaimed when the queue drains or grows.
	items []*Aircraft
	head  int
}

// NewQueue returns an empty queue for aircraft in the given state. A
// capacity of 0 gives an unbounded queue. If r is non-nil, FaultRoll
// returns draws from it; otherwise it always returns NoFault.
func NewQueue(s State, capacity int, r *rand.Rand) *Queue {
	if capacity < 0 {
		panic(fmt.Sprintf("%s queue: negative capacity %d", s, capacity))
	}
	q := &Queue{state: s, capacity: capacity, rand: r}
	if capacity > 0 {
		q.items = make([]*Aircraft, 0, capacity)
	}
	return q
}

func (q *Queue) State() State { return q.state }

// Cap returns the queue's capacity, or 0 if it is unbounded.
func (q *Queue) Cap() int { return q.capacity }

func (q *Queue) Len() int { return len(q.items) - q.head }

func (q *Queue) Empty() bool { return q.Len() == 0 }

func (q *Queue) Full() bool {
	return q.capacity > 0 && q.Len() >= q.capacity
}

// Push adds ac to the back of the queue. It returns false and leaves the
// queue unchanged if the queue is full.
func (q *Queue) Push(ac *Aircraft) bool {
	if q.Full() {
		return false
	}
	if q.head > 0 && len(q.items) == cap(q.items) {
		// Slide the live elements down rather than growing.
		n := copy(q.items, q.items[q.head:])
		clear(q.items[n:])
		q.items = q.items[:n]
		q.head = 0
	}
	q.items = append(q.items, ac)
	return true
}

// Pop removes and returns the aircraft at the front of the queue. It
// panics if the queue is empty.
func (q *Queue) Pop() *Aircraft {
	if q.Empty() {
		panic(fmt.Sprintf("%s queue: Pop from empty queue", q.state))
	}
	ac := q.items[q.head]
	q.items[q.head] = nil
	q.head++
	if q.head == len(q.items) {
		q.items = q.items[:0]
		q.head = 0
	}
	return ac
}

// FaultRoll returns a uniform draw in [0,1) if the queue has a random
// source and NoFault otherwise.
func (q *Queue) FaultRoll() float64 {
	if q.rand == nil {
		return NoFault
	}
	return q.rand.Float64()
}

// Each calls fn for each aircraft in the queue, front to back.
func (q *Queue) Each(fn func(*Aircraft)) {
	for _, ac := range q.items[q.head:] {
		fn(ac)
	}
}
