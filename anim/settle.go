package anim

import "sync"

// A Settle counts the participants of a compound transition and fires once
// all of them have reported.
type Settle struct {
	lock      sync.Mutex
	expected  int
	done      int
	onSettled func()
}

// NewSettle creates a Settle waiting for expected participants.
func NewSettle(expected int, onSettled func()) *Settle {
	return &Settle{expected: expected, onSettled: onSettled}
}

// Done reports one participant. Reports beyond the expected count are
// ignored.
func (s *Settle) Done() {
	s.lock.Lock()
	if s.done >= s.expected {
		s.lock.Unlock()
		return
	}

	s.done++
	settled := s.done == s.expected
	s.lock.Unlock()

	if settled && s.onSettled != nil {
		s.onSettled()
	}
}

// Settled tells if every participant has reported.
func (s *Settle) Settled() bool {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.done >= s.expected
}

// A Compound guards a transition made of several tasks. Only one compound
// transition runs at a time.
type Compound struct {
	lock       sync.Mutex
	animating  bool
	generation uint64
	completed  uint64
}

// Begin starts a compound transition of n participants. The returned done
// function must be called once by every participant. When the last one
// reports, the Compound stops animating and then calls onSettled.
//
// Begin returns ErrConflict while a previous transition is in flight.
func (c *Compound) Begin(n int, onSettled func()) (done func(), err error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.animating {
		return nil, ErrConflict
	}

	c.animating = true
	c.generation++
	generation := c.generation

	settle := NewSettle(n, func() {
		c.lock.Lock()
		if generation != c.generation {
			c.lock.Unlock()
			return
		}
		c.animating = false
		c.completed++
		c.lock.Unlock()

		if onSettled != nil {
			onSettled()
		}
	})

	return settle.Done, nil
}

// Animating tells if a compound transition is in flight.
func (c *Compound) Animating() bool {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.animating
}

// Completed returns how many compound transitions have settled.
func (c *Compound) Completed() uint64 {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.completed
}

// Abort drops the transition in flight, if any. Late reports of its
// participants are ignored.
func (c *Compound) Abort() {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.animating = false
	c.generation++
}
