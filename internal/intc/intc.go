/*
 * Taleä - Interrupt controller.
 *
 * Copyright 2024, Richard Cornwell
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

// Package intc tracks pending, prioritized interrupts. The priority rule
// itself (whether a pending level is actually taken) belongs to the CPU;
// this package only records and reports state.
package intc

import "github.com/rcornwell/taleia/internal/coreerr"

const (
	minLevel = 1
	maxLevel = 7
)

type slot struct {
	pending bool
	vector  uint8
}

// Controller holds one slot per priority level 1..7.
type Controller struct {
	levels [maxLevel + 1]slot
}

// New returns an empty controller.
func New() *Controller {
	return &Controller{}
}

// Set asserts or clears the interrupt at level with the given vector.
func (c *Controller) Set(assert bool, level uint8, vector uint8) error {
	if level < minLevel || level > maxLevel {
		return coreerr.New(coreerr.Protocol, "interrupt level out of range 1..7")
	}
	c.levels[level].pending = assert
	c.levels[level].vector = vector
	return nil
}

// Check returns whether any interrupt is pending and, if so, the highest
// asserted level.
func (c *Controller) Check() (anyPending bool, highest uint8) {
	for lvl := uint8(maxLevel); lvl >= minLevel; lvl-- {
		if c.levels[lvl].pending {
			return true, lvl
		}
	}
	return false, 0
}

// Acknowledge clears level and returns its registered vector. Calling it
// on a level that is not currently asserted is a Protocol error.
func (c *Controller) Acknowledge(level uint8) (uint8, error) {
	if level < minLevel || level > maxLevel {
		return 0, coreerr.New(coreerr.Protocol, "interrupt level out of range 1..7")
	}
	if !c.levels[level].pending {
		return 0, coreerr.New(coreerr.Protocol, "acknowledge of unasserted interrupt level")
	}
	vector := c.levels[level].vector
	c.levels[level].pending = false
	return vector, nil
}

// Reset clears every pending level.
func (c *Controller) Reset() {
	for i := range c.levels {
		c.levels[i] = slot{}
	}
}
