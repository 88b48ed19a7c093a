/*
 * Taleä - Sirius instruction decoder.
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

/*
Every Sirius instruction is a single 32-bit big-endian word. Bit layout:

	31  29 28  25 24    20 19    15 14    10 9     5 14      0  19       0   15    0
	group  opcode  rd      rs1      rs2     rs3     imm15       imm20       trap

Not every field is present in every format. Family is selected by group
(the top 3 bits), except Lui/Auipc/Jal, which fuse group+opcode (group
0) to pick the instruction directly, per spec.md S4.5.

This is a from-scratch encoding -- Sirius has no binary-compatibility
goal with any real ISA -- so opcode assignment within each group is this
decoder's own, documented group by group below.
*/

func decField(word uint32, shift, width uint) uint32 {
	return (word >> shift) & ((1 << width) - 1)
}

func signExtend(value uint32, bits uint) int32 {
	shift := 32 - bits
	return int32(value<<shift) >> shift
}

// Decode converts a 32-bit big-endian instruction word into a typed
// Instruction. An encoding with no matching (group, opcode) pair yields
// Undefined -- decode never errors; executing Undefined raises
// IllegalInstruction.
func Decode(word uint32) Instruction {
	group := decField(word, 29, 3)
	opcode := uint8(decField(word, 25, 4))
	rd := uint8(decField(word, 20, 5))
	rs1 := uint8(decField(word, 15, 5))
	rs2 := uint8(decField(word, 10, 5))
	rs3 := uint8(decField(word, 5, 5))
	imm15 := decField(word, 0, 15)
	imm20 := decField(word, 0, 20)
	trap := decField(word, 0, 16)

	switch group {
	case 0: // U/J fused group|opcode
		switch opcode {
		case 0:
			return Instruction{Op: OpLui, Format: FormatU, Rd: rd, Imm: imm20 << 12, Word: word}
		case 1:
			return Instruction{Op: OpAuipc, Format: FormatU, Rd: rd, Imm: imm20 << 12, Word: word}
		case 2:
			return Instruction{Op: OpJal, Format: FormatJ, Rd: rd, Imm: uint32(signExtend(imm20<<2, 22)), Word: word}
		}
	case 1: // B
		ops := [...]Op{OpBeq, OpBne, OpBlt, OpBge, OpBltu, OpBgeu}
		if int(opcode) < len(ops) {
			return Instruction{
				Op: ops[opcode], Format: FormatB, Rs1: rs1, Rs2: rs2,
				Imm: uint32(signExtend(imm15<<2, 17)), Word: word,
			}
		}
	case 2: // I: Jalr + loads
		ops := [...]Op{OpJalr, OpLb, OpLbu, OpLh, OpLhu, OpLw, OpLbd, OpLbud, OpLhd, OpLhud, OpLwd}
		if int(opcode) < len(ops) {
			return Instruction{
				Op: ops[opcode], Format: FormatI, Rd: rd, Rs1: rs1,
				Imm: uint32(signExtend(imm15, 15)), Word: word,
			}
		}
	case 3: // I: ALU-immediate
		ops := [...]Op{
			OpMuli, OpMulih, OpIdivi, OpAddi, OpSubi, OpOri, OpAndi, OpXori,
			OpShiRa, OpShiRl, OpShiLl, OpSlti, OpSltiu,
		}
		if int(opcode) < len(ops) {
			return Instruction{
				Op: ops[opcode], Format: FormatI, Rd: rd, Rs1: rs1,
				Imm: uint32(signExtend(imm15, 15)), Word: word,
			}
		}
	case 4: // R: ALU-register
		ops := [...]Op{
			OpAdd, OpSub, OpOr, OpAnd, OpXor, OpShRa, OpShRl, OpShLl,
			OpMul, OpIdiv, OpNot, OpCtz, OpClz, OpPopcount, OpRotl, OpRotr,
		}
		if int(opcode) < len(ops) {
			return Instruction{Op: ops[opcode], Format: FormatR, Rd: rd, Rs1: rs1, Rs2: rs2, Rs3: rs3, Word: word}
		}
	case 5: // S: stores (rd is the source register)
		ops := [...]Op{OpSb, OpSh, OpSw, OpSbd, OpShd, OpSwd}
		if int(opcode) < len(ops) {
			return Instruction{
				Op: ops[opcode], Format: FormatS, Rd: rd, Rs1: rs1,
				Imm: uint32(signExtend(imm15, 15)), Word: word,
			}
		}
	case 6: // M
		ops := [...]Op{
			OpCopy, OpSwap, OpFill, OpThrough, OpFrom,
			OpPushb, OpPushh, OpPushw, OpPopb, OpPoph, OpPopw,
			OpSave, OpRestore, OpExch, OpSlt, OpSltu,
		}
		if int(opcode) < len(ops) {
			return Instruction{Op: ops[opcode], Format: FormatM, Rd: rd, Rs1: rs1, Rs2: rs2, Word: word}
		}
	case 7: // T
		ops := [...]Op{OpSyscall, OpGsReg, OpSsReg, OpSysret}
		if int(opcode) < len(ops) {
			return Instruction{Op: ops[opcode], Format: FormatT, Rd: rd, Rs1: rs1, Imm: trap, Word: word}
		}
	}
	return Instruction{Op: OpUndefined, Format: FormatUndefined, Word: word}
}
