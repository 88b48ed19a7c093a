/*
 * Taleä - Sirius CPU: exception and interrupt dispatch.
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

import "github.com/rcornwell/taleia/internal/coreerr"

// exception dispatches number through the interrupt vector table. Two
// native vectors (BusError, AddressError) take the fault path, which
// additionally preserves the faulting instruction word on the stack for
// diagnosis; every other vector, including device interrupts, takes the
// normal-exception path.
//
// The dispatch frame always lands on the supervisor stack, even when the
// fault was raised from user mode: psr.supervisor is flipped to true
// only after the frame is built, but the frame itself always targets ssp
// (spec.md S9), since that's the stack the handler will be running on.
//
// A failure while building the frame or reading the vector itself is a
// double fault: the CPU stops and the error that triggered this call is
// what propagates, not the secondary failure.
func (c *CPU) exception(number uint32, isInterrupt bool) error {
	switch number {
	case coreerr.BusError, coreerr.AddressError:
		if err := c.setupFault(number); err != nil {
			c.Status = StatusStopped
			return err
		}
	default:
		if err := c.setupNormalException(number, isInterrupt); err != nil {
			c.Status = StatusStopped
			return err
		}
	}
	return nil
}

func (c *CPU) setupFault(number uint32) error {
	sp := c.SSP
	if err := c.pushProgramBE(&sp, c.PC); err != nil {
		return err
	}
	if err := c.pushProgramLE(&sp, c.Psr.Pack()); err != nil {
		return err
	}
	if err := c.pushProgramBE(&sp, c.decoder.Word); err != nil {
		return err
	}
	c.SSP = sp
	return c.enterHandler(number, false, 0)
}

func (c *CPU) setupNormalException(number uint32, isInterrupt bool) error {
	sp := c.SSP
	if err := c.pushProgramBE(&sp, c.PC); err != nil {
		return err
	}
	if err := c.pushProgramLE(&sp, c.Psr.Pack()); err != nil {
		return err
	}
	c.SSP = sp
	return c.enterHandler(number, isInterrupt, c.CurrentIPL)
}

func (c *CPU) enterHandler(number uint32, isInterrupt bool, level uint8) error {
	c.Psr.Supervisor = true
	if isInterrupt && c.Psr.InterruptEnabled {
		c.Psr.Priority = level & 0x7
	}
	vectorAddr := uint64(c.Psr.IVT)*IVTSize + uint64(number)*4
	newPC, err := readWordBE(c.DataPort, vectorAddr)
	if err != nil {
		return err
	}
	return c.SetPC(newPC)
}
