package core

import "sync"

// LogicalClock is a Lamport logical clock, shaped after the teacher's
// core.LogicalClock interface (Tick/Tock/Leap) and used by the
// Lamport and Ricart-Agrawala protocols in place of the Python
// reference's bare `self.LC` integer.
type LogicalClock interface {
	// Tick advances the clock for a local event and returns the new
	// value.
	Tick() uint64
	// Tock returns the current value without advancing it.
	Tock() uint64
	// Leap merges in a received timestamp: the clock becomes
	// max(current, received)+1, mirroring the Python reference's
	// `self.LC = max(self.LC, message.timestamp)+1`.
	Leap(received uint64) uint64
}

type clock struct {
	mu    sync.Mutex
	value uint64
}

// NewLogicalClock creates a clock starting at zero.
func NewLogicalClock() LogicalClock {
	return &clock{}
}

func (c *clock) Tick() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value++
	return c.value
}

func (c *clock) Tock() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

func (c *clock) Leap(received uint64) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if received > c.value {
		c.value = received
	}
	c.value++
	return c.value
}
