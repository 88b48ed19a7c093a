/*
 * Taleä - Device capability interfaces.
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

// Package device declares the capability views a peripheral can opt into,
// rather than one fat interface every device has to implement in full.
// A device registered with the scheduler is asked, once, which of these
// it satisfies; anything it doesn't implement is simply never called.
package device

import "github.com/rcornwell/taleia/internal/bus"

// Addressable is a device with a memory-mapped register file. It is the
// same shape as bus.AddressableDevice so any device can be Insert()-ed
// directly onto a Bus.
type Addressable = bus.AddressableDevice

// Steppable is a device with internal state that advances over time --
// a seek in progress, a tape move, a baud-rate-paced byte. Step returns
// the nanoseconds until it next needs attention.
type Steppable interface {
	Step() (uint64, error)
}

// Interruptable is a device that can assert a priority interrupt. Level
// and vector identify the slot it registers with the interrupt
// controller; Pending reports whether it currently wants service.
type Interruptable interface {
	Level() uint8
	Vector() uint8
	Pending() bool
}

// Debuggable is a device with a named, bitmask-selectable set of trace
// options (grounded on the teacher's CMD/DATA/DETAIL convention).
type Debuggable interface {
	SetDebugOptions(mask uint32)
	DebugOptions() uint32
}

// Inspectable is a device that can render its own state as a one-line
// summary. The console "show" command does not call it.
type Inspectable interface {
	Inspect() string
}

// Named identifies a device for configuration and console lookup.
type Named interface {
	Name() string
}
