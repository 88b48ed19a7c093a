/*
 * Taleä - System: bus fabric, CPU and cooperative device scheduler.
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

// Package system wires the program bus, data bus, MMU, interrupt
// controller and CPU into one machine, and runs its cooperative device
// scheduler. The scheduling rule is the teacher's relative-delta event
// queue (emu/event), adapted from a single global list of callbacks into
// a per-device next-due clock value a caller can register against
// without threading callback plumbing through every peripheral.
package system

import (
	"io"
	"log/slog"

	"github.com/rcornwell/taleia/internal/bus"
	"github.com/rcornwell/taleia/internal/busport"
	"github.com/rcornwell/taleia/internal/coreerr"
	"github.com/rcornwell/taleia/internal/cpu"
	"github.com/rcornwell/taleia/internal/device"
	"github.com/rcornwell/taleia/internal/intc"
	"github.com/rcornwell/taleia/internal/mmu"
)

const (
	programAddressMask = 0x00ffffff // 24-bit program bus
	dataAddressMask    = 0x0000ffff // 16-bit data bus
)

// System is one Sirius machine: its two buses, CPU and the devices
// hanging off of them.
type System struct {
	ProgramBus *bus.Bus
	DataBus    *bus.Bus
	Interrupts *intc.Controller
	MMU        *mmu.MMU
	CPU        *cpu.CPU

	clock uint64

	steppables []device.Steppable
	nextDue    []uint64

	interruptables []device.Interruptable

	closers []io.Closer

	// DebugEnabled is set when the CPU reports a Breakpoint-kind error;
	// run_for keeps going but a console loop can poll this to decide
	// whether to drop into interactive single-step.
	DebugEnabled bool
}

// New builds a System with fresh, empty buses.
func New() *System {
	programBus := bus.New("program")
	dataBus := bus.New("data")
	m := mmu.New(programBus, dataBus)
	ic := intc.New()

	programPort := busport.New(programBus, 0, programAddressMask, 4)
	dataPort := busport.New(dataBus, 0, dataAddressMask, 2)

	return &System{
		ProgramBus: programBus,
		DataBus:    dataBus,
		Interrupts: ic,
		MMU:        m,
		CPU:        cpu.New(programPort, dataPort, m, ic),
	}
}

// AddDevice registers a device for whichever capabilities it implements.
// Addressing (if any) is the caller's job: Insert the device onto
// ProgramBus or DataBus at the desired base before or after calling
// AddDevice.
func (s *System) AddDevice(d any) {
	if st, ok := d.(device.Steppable); ok {
		s.steppables = append(s.steppables, st)
		s.nextDue = append(s.nextDue, s.clock)
	}
	if it, ok := d.(device.Interruptable); ok {
		s.interruptables = append(s.interruptables, it)
	}
	if cl, ok := d.(io.Closer); ok {
		s.closers = append(s.closers, cl)
	}
}

// Closers returns every registered device that holds a closeable host
// resource (a Storage image file, for instance), so a caller can
// release them on shutdown.
func (s *System) Closers() []io.Closer {
	return s.closers
}

// Clock reports the current simulated time in nanoseconds.
func (s *System) Clock() uint64 { return s.clock }

// RunFor advances the machine by up to durationNs nanoseconds of
// simulated time, stepping the CPU and any devices whose next-due time
// has arrived. A Processor error dispatched and absorbed by the CPU
// itself never reaches here; a Breakpoint error sets DebugEnabled and
// the loop continues; anything else stops the loop and is returned.
func (s *System) RunFor(durationNs uint64) error {
	deadline := s.clock + durationNs
	for s.clock < deadline {
		elapsed, err := s.CPU.Step()
		s.clock += elapsed

		s.stepDueDevices()
		s.raiseDeviceInterrupts()

		if err != nil {
			if coreerr.Is(err, coreerr.Breakpoint) {
				s.DebugEnabled = true
				continue
			}
			return err
		}
	}
	return nil
}

func (s *System) stepDueDevices() {
	for i, st := range s.steppables {
		if s.clock < s.nextDue[i] {
			continue
		}
		due, err := st.Step()
		if err != nil {
			slog.Warn("device step failed", "index", i, "error", err)
		}
		s.nextDue[i] = s.clock + due
	}
}

func (s *System) raiseDeviceInterrupts() {
	for _, it := range s.interruptables {
		if it.Pending() {
			if err := s.Interrupts.Set(true, it.Level(), it.Vector()); err != nil {
				slog.Warn("interrupt assert failed", "error", err)
			}
		}
	}
}
