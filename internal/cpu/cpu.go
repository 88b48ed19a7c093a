/*
 * Taleä - Sirius CPU execution core.
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

// Package cpu implements the Sirius CPU: decoder, register file, dual
// supervisor/user stacks, paging-aware fetch/load/store, and exception
// and interrupt dispatch through the interrupt vector table.
package cpu

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/rcornwell/taleia/internal/busport"
	"github.com/rcornwell/taleia/internal/coreerr"
	"github.com/rcornwell/taleia/internal/debugger"
	"github.com/rcornwell/taleia/internal/intc"
	"github.com/rcornwell/taleia/internal/mmu"
)

// IVTSize is the byte stride of the psr.ivt table selector: entry n lives
// at ivt*IVTSize + n*4.
const IVTSize = 256

const defaultFrequencyHz = 4_000_000 // 4 MHz, a Sirius reference clock.

type decoderState struct {
	At    uint32 // linear address of the instruction currently executing
	Word  uint32
	Instr Instruction
}

// CPU is one Sirius processor core.
type CPU struct {
	Status    Status
	PC        uint32 // physical
	VirtualPC uint32 // last linear PC, meaningful when MMU enabled
	Psr       PSR
	Reg       [32]uint32
	SSP, USP  uint32

	CurrentIPL, PendingIPL uint8

	decoder decoderState

	Debugger *debugger.Set

	ProgramPort *busport.Port
	DataPort    *busport.Port
	MMU         *mmu.MMU
	Interrupts  *intc.Controller

	FrequencyHz uint64
}

// New builds a CPU in Init status, wired to its ports, MMU and
// interrupt controller.
func New(programPort, dataPort *busport.Port, m *mmu.MMU, ic *intc.Controller) *CPU {
	return &CPU{
		Status:      StatusInit,
		Debugger:    debugger.New(),
		ProgramPort: programPort,
		DataPort:    dataPort,
		MMU:         m,
		Interrupts:  ic,
		FrequencyHz: defaultFrequencyHz,
	}
}

// Reset returns the CPU to Init status with cleared register file, PSR,
// stacks and TLB. The interrupt-vector-table selector field of the PSR
// (IVT) is preserved across Reset by the caller if it needs a non-zero
// boot table -- Reset itself only clears state, matching the CPU's own
// zero-value PSR.
func (c *CPU) Reset() {
	c.Status = StatusInit
	c.PC = 0
	c.VirtualPC = 0
	c.Psr = PSR{}
	c.Reg = [32]uint32{}
	c.SSP = 0
	c.USP = 0
	c.CurrentIPL = 0
	c.PendingIPL = 0
	c.decoder = decoderState{}
	if c.MMU != nil {
		c.MMU.Flush()
	}
}

// GetReg reads register r, resolving the Sp alias (register 2) to the
// active stack pointer.
func (c *CPU) GetReg(r uint8) uint32 {
	r &= 0x1f
	if r == Sp {
		if c.Psr.Supervisor {
			return c.SSP
		}
		return c.USP
	}
	return c.Reg[r]
}

// SetReg writes register r. Writes to register 0 are discarded; writes
// to the Sp alias resolve to ssp or usp per the active privilege level.
func (c *CPU) SetReg(r uint8, v uint32) {
	r &= 0x1f
	switch r {
	case Zero:
		return
	case Sp:
		if c.Psr.Supervisor {
			c.SSP = v
		} else {
			c.USP = v
		}
	default:
		c.Reg[r] = v
	}
}

func (c *CPU) quantum() uint64 {
	freq := c.FrequencyHz
	if freq == 0 {
		freq = defaultFrequencyHz
	}
	return 5 * (1_000_000_000 / freq)
}

// SetPC installs value as the new program counter. When the MMU is
// enabled, value is a linear address requiring an executable
// translation; VirtualPC tracks the linear value and PC the physical
// one. When the MMU is disabled the two are identical.
func (c *CPU) SetPC(value uint32) error {
	if !c.Psr.MMUEnabled {
		c.PC = value
		c.VirtualPC = value
		return nil
	}
	phys, _, x, err := c.MMU.Translate(value, c.Psr.PDT)
	if err != nil {
		return err
	}
	if !x {
		return coreerr.Processorf(coreerr.AccessViolation, "fetch translation not executable at 0x%08x", value)
	}
	c.VirtualPC = value
	c.PC = phys
	return nil
}

// Step advances the CPU by one unit of the Init/Running/Stopped state
// machine (spec.md S4.6) and returns the nanoseconds the scheduler
// should wait before calling Step again.
func (c *CPU) Step() (uint64, error) {
	switch c.Status {
	case StatusStopped:
		return 0, errors.New("CPU stopped")
	case StatusInit:
		return c.bootFromResetVector()
	case StatusRunning:
		return c.cycleOne()
	default:
		return 0, errors.New("CPU in unknown status")
	}
}

func (c *CPU) bootFromResetVector() (uint64, error) {
	base := uint64(c.Psr.IVT) * IVTSize
	ssp, err := readWordBE(c.DataPort, base+0)
	if err != nil {
		return 0, wrapBusErr(err)
	}
	pcVal, err := readWordBE(c.DataPort, base+4)
	if err != nil {
		return 0, wrapBusErr(err)
	}
	c.SSP = ssp
	c.PC = pcVal
	c.VirtualPC = pcVal
	c.Status = StatusRunning
	return c.quantum(), nil
}

func (c *CPU) cycleOne() (uint64, error) {
	if err := c.decodeNext(); err != nil {
		return c.handleCycleError(err)
	}
	if err := c.executeCurrent(); err != nil {
		return c.handleCycleError(err)
	}
	if err := c.checkPendingInterrupts(); err != nil {
		return 0, err
	}

	quantum := c.quantum()
	if c.Debugger.Hit(c.PC) {
		c.Debugger.Enabled = true
		return quantum, coreerr.New(coreerr.Breakpoint, fmt.Sprintf("breakpoint at pc=0x%08x", c.PC))
	}
	return quantum, nil
}

// handleCycleError implements the propagation policy of spec.md S7: a
// Processor error raised during the cycle is caught here and routed to
// exception() with its native code as the IVT vector, charging 1ns.
// Everything else (Bus/Breakpoint/Protocol/IO) propagates untouched.
//
// IllegalInstruction and PrivilegeViolation are Open Questions in
// spec.md S9; this core resolves both the same way -- they take the
// ordinary Processor-error path below rather than the source's fatal
// panic, so a malformed program degrades to a dispatched exception
// instead of stopping the whole machine.
func (c *CPU) handleCycleError(err error) (uint64, error) {
	ce, ok := coreerr.As(err)
	if !ok || ce.Kind != coreerr.Processor {
		return 0, err
	}
	if dispatchErr := c.exception(ce.Native, false); dispatchErr != nil {
		return 1, err
	}
	return 1, nil
}

func (c *CPU) decodeNext() error {
	buf := make([]byte, 4)
	if err := c.ProgramPort.Read(uint64(c.PC), buf); err != nil {
		return wrapBusErr(err)
	}
	word := binary.BigEndian.Uint32(buf)
	c.decoder.At = c.VirtualPC
	c.decoder.Word = word
	c.decoder.Instr = Decode(word)
	return c.SetPC(c.VirtualPC + 4)
}

func (c *CPU) checkPendingInterrupts() error {
	any, level := c.Interrupts.Check()
	if !any {
		return nil
	}
	qualifies := (level > c.Psr.Priority || level == 7) && level >= c.CurrentIPL
	if !qualifies {
		return nil
	}
	vector, err := c.Interrupts.Acknowledge(level)
	if err != nil {
		return nil
	}
	c.CurrentIPL = level
	return c.exception(uint32(vector), true)
}

// DumpState renders a diagnostic snapshot: PC, PSR, stack pointers,
// registers and the currently decoded instruction. The console's "regs"
// command prints it; it is not printed automatically when the CPU signals
// an error, and it shows the stack pointers but no window of stack memory.
func (c *CPU) DumpState() string {
	s := fmt.Sprintf("pc=0x%08x virtual_pc=0x%08x status=%s psr=0x%08x (sup=%v ie=%v mmu=%v prio=%d ivt=%d pdt=%d)\n",
		c.PC, c.VirtualPC, c.Status, c.Psr.Pack(), c.Psr.Supervisor, c.Psr.InterruptEnabled,
		c.Psr.MMUEnabled, c.Psr.Priority, c.Psr.IVT, c.Psr.PDT)
	s += fmt.Sprintf("ssp=0x%08x usp=0x%08x current_ipl=%d pending_ipl=%d\n", c.SSP, c.USP, c.CurrentIPL, c.PendingIPL)
	for i := 0; i < 32; i += 8 {
		s += fmt.Sprintf("r%02d..r%02d: ", i, i+7)
		for j := 0; j < 8; j++ {
			s += fmt.Sprintf("%08x ", c.Reg[i+j])
		}
		s += "\n"
	}
	s += fmt.Sprintf("decoded: word=0x%08x op=%s fmt=%s\n", c.decoder.Word, c.decoder.Instr.Op, c.decoder.Instr.Format)
	return s
}
