/*
 * Taleä - Sirius CPU: memory and stack access helpers.
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

package cpu

import (
	"encoding/binary"

	"github.com/rcornwell/taleia/internal/busport"
	"github.com/rcornwell/taleia/internal/coreerr"
)

// wrapBusErr lifts a raw bus routing failure (NoSegment, CrossesBoundary)
// into a Processor-kind error carrying the BusError native vector, so it
// flows through the ordinary exception-dispatch path. An error already
// of Processor kind (e.g. a translation fault) passes through untouched.
func wrapBusErr(err error) error {
	if err == nil {
		return nil
	}
	if ce, ok := coreerr.As(err); ok && ce.Kind == coreerr.Processor {
		return err
	}
	return coreerr.ProcessorWrap(coreerr.BusError, "bus access failed", err)
}

func readWordBE(p *busport.Port, addr uint64) (uint32, error) {
	buf := make([]byte, 4)
	if err := p.Read(addr, buf); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(buf), nil
}

func writeWordBE(p *busport.Port, addr uint64, v uint32) error {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, v)
	return p.Write(addr, buf)
}

// access is the kind of memory operation being translated, for the
// w/x permission check.
type access int

const (
	accessRead access = iota
	accessWrite
	accessExec
)

// translate resolves a linear address on behalf of a load/store/fetch,
// honoring the psr.mmu_enabled bypass and raising AccessViolation when
// the PTE's permission bits forbid the requested access.
func (c *CPU) translate(linear uint32, a access) (uint32, error) {
	if !c.Psr.MMUEnabled {
		return linear, nil
	}
	phys, w, x, err := c.MMU.Translate(linear, c.Psr.PDT)
	if err != nil {
		return 0, err
	}
	switch a {
	case accessWrite:
		if !w {
			return 0, coreerr.Processorf(coreerr.AccessViolation, "write not permitted at linear 0x%08x", linear)
		}
		c.MMU.MarkDirty(linear)
	case accessExec:
		if !x {
			return 0, coreerr.Processorf(coreerr.AccessViolation, "execute not permitted at linear 0x%08x", linear)
		}
	}
	return phys, nil
}

// loadData reads width bytes (1, 2 or 4) from the data bus at a linear
// address, zero-extending into a uint32.
func (c *CPU) loadData(linear uint32, width int) (uint32, error) {
	phys, err := c.translate(linear, accessRead)
	if err != nil {
		return 0, err
	}
	buf := make([]byte, width)
	if err := c.DataPort.Read(uint64(phys), buf); err != nil {
		return 0, wrapBusErr(err)
	}
	return beToU32(buf), nil
}

// loadProgram is loadData's counterpart against the program bus, used by
// the M-family memory operations that address code/data space directly.
func (c *CPU) loadProgram(linear uint32, width int) (uint32, error) {
	phys, err := c.translate(linear, accessRead)
	if err != nil {
		return 0, err
	}
	buf := make([]byte, width)
	if err := c.ProgramPort.Read(uint64(phys), buf); err != nil {
		return 0, wrapBusErr(err)
	}
	return beToU32(buf), nil
}

func (c *CPU) storeData(linear uint32, width int, v uint32) error {
	phys, err := c.translate(linear, accessWrite)
	if err != nil {
		return err
	}
	buf := u32ToBE(v, width)
	if err := c.DataPort.Write(uint64(phys), buf); err != nil {
		return wrapBusErr(err)
	}
	return nil
}

func (c *CPU) storeProgram(linear uint32, width int, v uint32) error {
	phys, err := c.translate(linear, accessWrite)
	if err != nil {
		return err
	}
	buf := u32ToBE(v, width)
	if err := c.ProgramPort.Write(uint64(phys), buf); err != nil {
		return wrapBusErr(err)
	}
	return nil
}

func beToU32(buf []byte) uint32 {
	var v uint32
	for _, b := range buf {
		v = v<<8 | uint32(b)
	}
	return v
}

func u32ToBE(v uint32, width int) []byte {
	buf := make([]byte, width)
	for i := width - 1; i >= 0; i-- {
		buf[i] = byte(v)
		v >>= 8
	}
	return buf
}

// pushProgramBE decrements sp by 4 and writes v big-endian through the
// program bus -- the convention this core uses for the general stack
// (exception dispatch, the M-family Push/Pop opcodes).
func (c *CPU) pushProgramBE(sp *uint32, v uint32) error {
	*sp -= 4
	return c.storeProgram(*sp, 4, v)
}

// pushProgramLE is pushProgramBE's little-endian counterpart, used only
// for the PSR word on an exception-dispatch stack frame (spec.md S9: the
// PSR's byte order on the stack is intentionally swapped from every
// other stack slot, so a confused restore can be told apart from a
// correct one).
func (c *CPU) pushProgramLE(sp *uint32, v uint32) error {
	*sp -= 4
	phys, err := c.translate(*sp, accessWrite)
	if err != nil {
		return err
	}
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, v)
	if err := c.ProgramPort.Write(uint64(phys), buf); err != nil {
		return wrapBusErr(err)
	}
	return nil
}

func (c *CPU) popProgramBE(sp *uint32) (uint32, error) {
	v, err := c.loadProgram(*sp, 4)
	if err != nil {
		return 0, err
	}
	*sp += 4
	return v, nil
}

func (c *CPU) popProgramLE(sp *uint32) (uint32, error) {
	phys, err := c.translate(*sp, accessRead)
	if err != nil {
		return 0, err
	}
	buf := make([]byte, 4)
	if err := c.ProgramPort.Read(uint64(phys), buf); err != nil {
		return 0, wrapBusErr(err)
	}
	*sp += 4
	return binary.LittleEndian.Uint32(buf), nil
}
