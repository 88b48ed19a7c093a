/*
 * Taleä - Breakpoint set.
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

// Package debugger holds a CPU's breakpoint set. Checking it after every
// instruction and deciding whether to pause is the caller's job -- this
// package is deliberately just the flat, unordered set and the "hit" flag.
package debugger

// Set is a flat breakpoint list plus the single-step/enabled flag.
type Set struct {
	Enabled     bool
	breakpoints map[uint32]struct{}
}

// New returns an empty, disabled breakpoint set.
func New() *Set {
	return &Set{breakpoints: make(map[uint32]struct{})}
}

// Add arms a breakpoint at addr.
func (s *Set) Add(addr uint32) {
	s.breakpoints[addr] = struct{}{}
}

// Remove disarms a breakpoint at addr.
func (s *Set) Remove(addr uint32) {
	delete(s.breakpoints, addr)
}

// List returns the armed breakpoint addresses, in no particular order.
func (s *Set) List() []uint32 {
	out := make([]uint32, 0, len(s.breakpoints))
	for addr := range s.breakpoints {
		out = append(out, addr)
	}
	return out
}

// Hit reports whether pc is an armed breakpoint.
func (s *Set) Hit(pc uint32) bool {
	_, ok := s.breakpoints[pc]
	return ok
}
