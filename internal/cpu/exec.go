/*
 * Taleä - Sirius CPU: instruction execution.
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
	"math/bits"

	"github.com/rcornwell/taleia/internal/coreerr"
)

// executeCurrent runs the instruction decoded by decodeNext. PC has
// already been advanced past it; a taken branch or jump overwrites PC
// again before returning.
func (c *CPU) executeCurrent() error {
	in := c.decoder.Instr
	switch in.Format {
	case FormatU:
		return c.execU(in)
	case FormatJ:
		return c.execJ(in)
	case FormatB:
		return c.execB(in)
	case FormatI:
		return c.execI(in)
	case FormatR:
		return c.execR(in)
	case FormatS:
		return c.execS(in)
	case FormatM:
		return c.execM(in)
	case FormatT:
		return c.execT(in)
	default:
		return coreerr.Processorf(coreerr.IllegalInstruction, "undefined opcode word=0x%08x", in.Word)
	}
}

func (c *CPU) execU(in Instruction) error {
	switch in.Op {
	case OpLui:
		c.SetReg(in.Rd, in.Imm)
	case OpAuipc:
		c.SetReg(in.Rd, c.decoder.At+in.Imm)
	default:
		return coreerr.Processorf(coreerr.IllegalInstruction, "unhandled U op %s", in.Op)
	}
	return nil
}

func (c *CPU) execJ(in Instruction) error {
	if in.Op != OpJal {
		return coreerr.Processorf(coreerr.IllegalInstruction, "unhandled J op %s", in.Op)
	}
	c.SetReg(in.Rd, c.decoder.At+4)
	return c.SetPC(c.decoder.At + in.Imm)
}

func (c *CPU) execB(in Instruction) error {
	a := int32(c.GetReg(in.Rs1))
	b := int32(c.GetReg(in.Rs2))
	au := c.GetReg(in.Rs1)
	bu := c.GetReg(in.Rs2)
	var taken bool
	switch in.Op {
	case OpBeq:
		taken = a == b
	case OpBne:
		taken = a != b
	case OpBlt:
		taken = a < b
	case OpBge:
		taken = a >= b
	case OpBltu:
		taken = au < bu
	case OpBgeu:
		taken = au >= bu
	default:
		return coreerr.Processorf(coreerr.IllegalInstruction, "unhandled B op %s", in.Op)
	}
	if !taken {
		return nil
	}
	return c.SetPC(c.decoder.At + in.Imm)
}

func (c *CPU) execI(in Instruction) error {
	switch in.Op {
	case OpJalr:
		link := c.decoder.At + 4
		target := (c.GetReg(in.Rs1) + in.Imm) &^ 1
		c.SetReg(in.Rd, link)
		return c.SetPC(target)

	case OpLb, OpLbu, OpLh, OpLhu, OpLw:
		return c.execLoad(in, false)
	case OpLbd, OpLbud, OpLhd, OpLhud, OpLwd:
		return c.execLoad(in, true)

	case OpMuli:
		c.SetReg(in.Rd, uint32(int32(c.GetReg(in.Rs1))*int32(in.Imm)))
	case OpMulih:
		p := int64(int32(c.GetReg(in.Rs1))) * int64(int32(in.Imm))
		c.SetReg(in.Rd, uint32(p>>32))
	case OpIdivi:
		if int32(in.Imm) == 0 {
			return coreerr.Processorf(coreerr.ZeroDivide, "idivi by zero")
		}
		c.SetReg(in.Rd, uint32(int32(c.GetReg(in.Rs1))/int32(in.Imm)))
	case OpAddi:
		c.SetReg(in.Rd, c.GetReg(in.Rs1)+in.Imm)
	case OpSubi:
		c.SetReg(in.Rd, c.GetReg(in.Rs1)-in.Imm)
	case OpOri:
		c.SetReg(in.Rd, c.GetReg(in.Rs1)|in.Imm)
	case OpAndi:
		c.SetReg(in.Rd, c.GetReg(in.Rs1)&in.Imm)
	case OpXori:
		c.SetReg(in.Rd, c.GetReg(in.Rs1)^in.Imm)
	case OpShiRa:
		c.SetReg(in.Rd, uint32(int32(c.GetReg(in.Rs1))>>(in.Imm&31)))
	case OpShiRl:
		c.SetReg(in.Rd, c.GetReg(in.Rs1)>>(in.Imm&31))
	case OpShiLl:
		c.SetReg(in.Rd, c.GetReg(in.Rs1)<<(in.Imm&31))
	case OpSlti:
		c.SetReg(in.Rd, boolToReg(int32(c.GetReg(in.Rs1)) < int32(in.Imm)))
	case OpSltiu:
		c.SetReg(in.Rd, boolToReg(c.GetReg(in.Rs1) < in.Imm))
	default:
		return coreerr.Processorf(coreerr.IllegalInstruction, "unhandled I op %s", in.Op)
	}
	return nil
}

// execLoad loads Op's width from rs1+imm. direct loads (the d-suffixed
// opcodes) require supervisor mode and bypass the MMU, reading the
// address as physical straight off the data bus.
func (c *CPU) execLoad(in Instruction, direct bool) error {
	if direct && !c.Psr.Supervisor {
		return coreerr.Processorf(coreerr.PrivilegeViolation, "direct load requires supervisor mode")
	}
	addr := c.GetReg(in.Rs1) + in.Imm
	width, signed := loadShape(in.Op)

	var raw uint32
	var err error
	if direct {
		buf := make([]byte, width)
		if rerr := c.DataPort.Read(uint64(addr), buf); rerr != nil {
			return wrapBusErr(rerr)
		}
		raw = beToU32(buf)
	} else {
		raw, err = c.loadData(addr, width)
		if err != nil {
			return err
		}
	}
	if signed {
		raw = signExtendWidth(raw, width)
	}
	c.SetReg(in.Rd, raw)
	return nil
}

func loadShape(op Op) (width int, signed bool) {
	switch op {
	case OpLb, OpLbd:
		return 1, true
	case OpLbu, OpLbud:
		return 1, false
	case OpLh, OpLhd:
		return 2, true
	case OpLhu, OpLhud:
		return 2, false
	default: // OpLw, OpLwd
		return 4, false
	}
}

func signExtendWidth(v uint32, width int) uint32 {
	return uint32(signExtend(v, uint(width*8)))
}

func boolToReg(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

func (c *CPU) execR(in Instruction) error {
	rs1 := c.GetReg(in.Rs1)
	rs2 := c.GetReg(in.Rs2)
	switch in.Op {
	case OpAdd:
		c.SetReg(in.Rd, rs1+rs2)
	case OpSub:
		c.SetReg(in.Rd, rs1-rs2)
	case OpOr:
		c.SetReg(in.Rd, rs1|rs2)
	case OpAnd:
		c.SetReg(in.Rd, rs1&rs2)
	case OpXor:
		c.SetReg(in.Rd, rs1^rs2)
	case OpShRa:
		c.SetReg(in.Rd, uint32(int32(rs1)>>(rs2&31)))
	case OpShRl:
		c.SetReg(in.Rd, rs1>>(rs2&31))
	case OpShLl:
		c.SetReg(in.Rd, rs1<<(rs2&31))
	case OpMul:
		p := int64(int32(rs1)) * int64(int32(rs2))
		c.SetReg(in.Rd, uint32(p))
		c.SetReg(in.Rs3, uint32(p>>32))
	case OpIdiv:
		if int32(rs2) == 0 {
			return coreerr.Processorf(coreerr.ZeroDivide, "idiv by zero")
		}
		c.SetReg(in.Rd, uint32(int32(rs1)/int32(rs2)))
		c.SetReg(in.Rs3, uint32(int32(rs1)%int32(rs2)))
	case OpNot:
		c.SetReg(in.Rd, ^rs1)
	case OpCtz:
		c.SetReg(in.Rd, uint32(bits.TrailingZeros32(rs1)))
	case OpClz:
		c.SetReg(in.Rd, uint32(bits.LeadingZeros32(rs1)))
	case OpPopcount:
		c.SetReg(in.Rd, uint32(bits.OnesCount32(rs1)))
	case OpRotl:
		c.SetReg(in.Rd, bits.RotateLeft32(rs1, int(rs2&31)))
	case OpRotr:
		c.SetReg(in.Rd, bits.RotateLeft32(rs1, -int(rs2&31)))
	default:
		return coreerr.Processorf(coreerr.IllegalInstruction, "unhandled R op %s", in.Op)
	}
	return nil
}

func (c *CPU) execS(in Instruction) error {
	direct := in.Op == OpSbd || in.Op == OpShd || in.Op == OpSwd
	if direct && !c.Psr.Supervisor {
		return coreerr.Processorf(coreerr.PrivilegeViolation, "direct store requires supervisor mode")
	}
	addr := c.GetReg(in.Rs1) + in.Imm
	width := storeWidth(in.Op)
	v := c.GetReg(in.Rd)

	if direct {
		buf := u32ToBE(v, width)
		if err := c.DataPort.Write(uint64(addr), buf); err != nil {
			return wrapBusErr(err)
		}
		return nil
	}
	return c.storeData(addr, width, v)
}

func storeWidth(op Op) int {
	switch op {
	case OpSb, OpSbd:
		return 1
	case OpSh, OpShd:
		return 2
	default: // OpSw, OpSwd
		return 4
	}
}

func (c *CPU) execT(in Instruction) error {
	switch in.Op {
	case OpSyscall:
		id := in.Imm & 0xff
		if in.Rd != Zero {
			id = c.GetReg(in.Rd) & 0xff
		}
		return c.exception(32+id, false)
	case OpGsReg:
		c.SetReg(in.Rd, c.getSpecialReg(in.Rs1))
		return nil
	case OpSsReg:
		if !c.Psr.Supervisor {
			return coreerr.Processorf(coreerr.PrivilegeViolation, "ssreg requires supervisor mode")
		}
		c.setSpecialReg(in.Rs1, c.GetReg(in.Rd))
		return nil
	case OpSysret:
		if !c.Psr.Supervisor {
			return coreerr.Processorf(coreerr.PrivilegeViolation, "sysret requires supervisor mode")
		}
		return c.sysret()
	default:
		return coreerr.Processorf(coreerr.IllegalInstruction, "unhandled T op %s", in.Op)
	}
}

// Special-register selectors for GsReg/SsReg.
const (
	specPsr = iota
	specSsp
	specUsp
	specCurrentIPL
	specPendingIPL
)

func (c *CPU) getSpecialReg(sel uint8) uint32 {
	switch sel {
	case specPsr:
		return c.Psr.Pack()
	case specSsp:
		return c.SSP
	case specUsp:
		return c.USP
	case specCurrentIPL:
		return uint32(c.CurrentIPL)
	case specPendingIPL:
		return uint32(c.PendingIPL)
	default:
		return 0
	}
}

func (c *CPU) setSpecialReg(sel uint8, v uint32) {
	switch sel {
	case specPsr:
		c.Psr = UnpackPSR(v)
	case specSsp:
		c.SSP = v
	case specUsp:
		c.USP = v
	case specCurrentIPL:
		c.CurrentIPL = uint8(v)
	case specPendingIPL:
		c.PendingIPL = uint8(v)
	}
}

// sysret unwinds one exception-dispatch frame: the stack holds psr
// (little-endian) on top of pc (big-endian), the reverse of the push
// order used by setupFault/setupNormalException.
func (c *CPU) sysret() error {
	sp := c.SSP
	psrWord, err := c.popProgramLE(&sp)
	if err != nil {
		return err
	}
	pc, err := c.popProgramBE(&sp)
	if err != nil {
		return err
	}
	c.SSP = sp
	c.Psr = UnpackPSR(psrWord)
	return c.SetPC(pc)
}

// execM implements the Copy/Swap/Fill/Through/From/Push*/Pop*/Save/
// Restore/Exch/Slt/Sltu family. The three-register M format carries no
// immediate, so Copy/Swap/Fill read their transfer length from rs2's
// register value, clamped to a word (0..4 bytes), and move bytes within
// the program bus. Through/From take only rd and rs1: rs1 ("ptr") holds
// an address whose program-bus word is itself a pointer, the second
// indirection that Through writes through and From reads through.
func (c *CPU) execM(in Instruction) error {
	switch in.Op {
	case OpCopy:
		return c.blockMove(c.loadProgram, c.storeProgram, in)
	case OpSwap:
		return c.blockSwap(in)
	case OpFill:
		return c.blockFill(in)
	case OpThrough:
		return c.execThrough(in)
	case OpFrom:
		return c.execFrom(in)

	case OpPushb, OpPushh, OpPushw:
		return c.execPush(in)
	case OpPopb, OpPoph, OpPopw:
		return c.execPop(in)

	case OpSave:
		return c.execSave(in)
	case OpRestore:
		return c.execRestore(in)

	case OpExch:
		a, b := c.GetReg(in.Rd), c.GetReg(in.Rs1)
		c.SetReg(in.Rd, b)
		c.SetReg(in.Rs1, a)
		return nil
	case OpSlt:
		c.SetReg(in.Rd, boolToReg(int32(c.GetReg(in.Rs1)) < int32(c.GetReg(in.Rs2))))
		return nil
	case OpSltu:
		c.SetReg(in.Rd, boolToReg(c.GetReg(in.Rs1) < c.GetReg(in.Rs2)))
		return nil
	default:
		return coreerr.Processorf(coreerr.IllegalInstruction, "unhandled M op %s", in.Op)
	}
}

type loadFn func(addr uint32, width int) (uint32, error)
type storeFn func(addr uint32, width int, v uint32) error

func (c *CPU) blockMove(load loadFn, store storeFn, in Instruction) error {
	dst, src := c.GetReg(in.Rd), c.GetReg(in.Rs1)
	n := clampLen(c.GetReg(in.Rs2))
	for i := uint32(0); i < n; i++ {
		v, err := load(src+i, 1)
		if err != nil {
			return err
		}
		if err := store(dst+i, 1, v); err != nil {
			return err
		}
	}
	return nil
}

func (c *CPU) blockSwap(in Instruction) error {
	a, b := c.GetReg(in.Rd), c.GetReg(in.Rs1)
	n := clampLen(c.GetReg(in.Rs2))
	for i := uint32(0); i < n; i++ {
		va, err := c.loadProgram(a+i, 1)
		if err != nil {
			return err
		}
		vb, err := c.loadProgram(b+i, 1)
		if err != nil {
			return err
		}
		if err := c.storeProgram(a+i, 1, vb); err != nil {
			return err
		}
		if err := c.storeProgram(b+i, 1, va); err != nil {
			return err
		}
	}
	return nil
}

func (c *CPU) blockFill(in Instruction) error {
	addr := c.GetReg(in.Rd)
	value := byte(c.GetReg(in.Rs1))
	n := clampLen(c.GetReg(in.Rs2))
	for i := uint32(0); i < n; i++ {
		if err := c.storeProgram(addr+i, 1, uint32(value)); err != nil {
			return err
		}
	}
	return nil
}

// execThrough implements Through(data, ptr): *[*ptr] <- data. rs1 (ptr)
// is dereferenced once against the program bus to get the target
// address, and rd (data) is stored there.
func (c *CPU) execThrough(in Instruction) error {
	ptr := c.GetReg(in.Rs1)
	target, err := c.loadProgram(ptr, 4)
	if err != nil {
		return err
	}
	return c.storeProgram(target, 4, c.GetReg(in.Rd))
}

// execFrom implements From(rd, ptr): rd <- *[*ptr], the mirror read of
// execThrough.
func (c *CPU) execFrom(in Instruction) error {
	ptr := c.GetReg(in.Rs1)
	target, err := c.loadProgram(ptr, 4)
	if err != nil {
		return err
	}
	v, err := c.loadProgram(target, 4)
	if err != nil {
		return err
	}
	c.SetReg(in.Rd, v)
	return nil
}

func clampLen(n uint32) uint32 {
	if n > 4 {
		return 4
	}
	return n
}

func (c *CPU) execPush(in Instruction) error {
	width := pushPopWidth(in.Op)
	sp := c.GetReg(Sp)
	v := c.GetReg(in.Rd)
	sp -= uint32(width)
	if err := c.storeProgram(sp, width, v); err != nil {
		return err
	}
	c.SetReg(Sp, sp)
	return nil
}

func (c *CPU) execPop(in Instruction) error {
	width := pushPopWidth(in.Op)
	sp := c.GetReg(Sp)
	v, err := c.loadProgram(sp, width)
	if err != nil {
		return err
	}
	c.SetReg(Sp, sp+uint32(width))
	c.SetReg(in.Rd, v)
	return nil
}

func pushPopWidth(op Op) int {
	switch op {
	case OpPushb, OpPopb:
		return 1
	case OpPushh, OpPoph:
		return 2
	default: // OpPushw, OpPopw
		return 4
	}
}

// execSave pushes registers [rd, rs1) -- excluding rs1 -- onto the
// current stack in ascending order. execRestore is deliberately not the
// mirror image: it reloads [rd, rs1] inclusive of rs1. This asymmetry
// matches how the two are meant to be paired: Save(rd=r4, rs1=r8) spans
// r4..r7, while the matching Restore(rd=r4, rs1=r8) is written to span
// r4..r8, so a caller that grew the saved range by widening rs1 doesn't
// have to touch the Save site too.
func (c *CPU) execSave(in Instruction) error {
	sp := c.GetReg(Sp)
	for r := in.Rd; r < in.Rs1; r++ {
		sp -= 4
		if err := c.storeProgram(sp, 4, c.GetReg(r)); err != nil {
			return err
		}
	}
	c.SetReg(Sp, sp)
	return nil
}

func (c *CPU) execRestore(in Instruction) error {
	sp := c.GetReg(Sp)
	for r := in.Rs1; r >= in.Rd; r-- {
		v, err := c.loadProgram(sp, 4)
		if err != nil {
			return err
		}
		c.SetReg(r, v)
		sp += 4
		if r == 0 {
			break
		}
	}
	c.SetReg(Sp, sp)
	return nil
}
