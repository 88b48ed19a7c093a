/*
 * Taleä - Sirius CPU: shared types.
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

// Status is the CPU lifecycle state.
type Status int

const (
	StatusInit Status = iota
	StatusRunning
	StatusStopped
)

func (s Status) String() string {
	switch s {
	case StatusInit:
		return "Init"
	case StatusRunning:
		return "Running"
	case StatusStopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

// Zero is the hard-wired zero register; Sp is the stack pointer alias.
const (
	Zero = 0
	Sp   = 2
)

// PSR is the Processor Status Register, an MSB-first bitfield:
//
//	[ supervisor:1 | interrupt_enabled:1 | mmu_enabled:1 | priority:3 | ivt:6 | pdt:8 | reserved:12 ]
type PSR struct {
	Supervisor       bool
	InterruptEnabled bool
	MMUEnabled       bool
	Priority         uint8 // 3 bits
	IVT              uint8 // 6 bits
	PDT              uint8 // 8 bits
	Reserved         uint16
}

// Pack encodes the PSR into its 32-bit big-endian-field representation.
func (p PSR) Pack() uint32 {
	var v uint32
	if p.Supervisor {
		v |= 1 << 31
	}
	if p.InterruptEnabled {
		v |= 1 << 30
	}
	if p.MMUEnabled {
		v |= 1 << 29
	}
	v |= uint32(p.Priority&0x7) << 26
	v |= uint32(p.IVT&0x3f) << 20
	v |= uint32(p.PDT) << 12
	v |= uint32(p.Reserved & 0xfff)
	return v
}

// UnpackPSR decodes the bit layout described by PSR.
func UnpackPSR(v uint32) PSR {
	return PSR{
		Supervisor:       v&(1<<31) != 0,
		InterruptEnabled: v&(1<<30) != 0,
		MMUEnabled:       v&(1<<29) != 0,
		Priority:         uint8((v >> 26) & 0x7),
		IVT:              uint8((v >> 20) & 0x3f),
		PDT:              uint8((v >> 12) & 0xff),
		Reserved:         uint16(v & 0xfff),
	}
}

// Format is the instruction format family (§4.5).
type Format int

const (
	FormatU Format = iota
	FormatJ
	FormatB
	FormatI
	FormatR
	FormatS
	FormatM
	FormatT
	FormatUndefined
)

func (f Format) String() string {
	names := [...]string{"U", "J", "B", "I", "R", "S", "M", "T", "Undefined"}
	if int(f) < len(names) {
		return names[f]
	}
	return "?"
}

// Op enumerates every known opcode across all eight formats.
type Op int

const (
	OpUndefined Op = iota

	// U
	OpLui
	OpAuipc

	// J
	OpJal

	// B
	OpBeq
	OpBne
	OpBlt
	OpBge
	OpBltu
	OpBgeu

	// I: Jalr + loads
	OpJalr
	OpLb
	OpLbu
	OpLh
	OpLhu
	OpLw
	OpLbd
	OpLbud
	OpLhd
	OpLhud
	OpLwd

	// I: ALU-immediate
	OpMuli
	OpMulih
	OpIdivi
	OpAddi
	OpSubi
	OpOri
	OpAndi
	OpXori
	OpShiRa
	OpShiRl
	OpShiLl
	OpSlti
	OpSltiu

	// R: ALU-register
	OpAdd
	OpSub
	OpOr
	OpAnd
	OpXor
	OpShRa
	OpShRl
	OpShLl
	OpMul
	OpIdiv
	OpNot
	OpCtz
	OpClz
	OpPopcount
	OpRotl
	OpRotr

	// S: stores
	OpSb
	OpSh
	OpSw
	OpSbd
	OpShd
	OpSwd

	// M
	OpCopy
	OpSwap
	OpFill
	OpThrough
	OpFrom
	OpPushb
	OpPushh
	OpPushw
	OpPopb
	OpPoph
	OpPopw
	OpSave
	OpRestore
	OpExch
	OpSlt
	OpSltu

	// T
	OpSyscall
	OpGsReg
	OpSsReg
	OpSysret
)

var opNames = map[Op]string{
	OpUndefined: "undefined",
	OpLui:       "lui", OpAuipc: "auipc",
	OpJal: "jal",
	OpBeq: "beq", OpBne: "bne", OpBlt: "blt", OpBge: "bge", OpBltu: "bltu", OpBgeu: "bgeu",
	OpJalr: "jalr",
	OpLb:   "lb", OpLbu: "lbu", OpLh: "lh", OpLhu: "lhu", OpLw: "lw",
	OpLbd: "lbd", OpLbud: "lbud", OpLhd: "lhd", OpLhud: "lhud", OpLwd: "lwd",
	OpMuli: "muli", OpMulih: "mulih", OpIdivi: "idivi", OpAddi: "addi", OpSubi: "subi",
	OpOri: "ori", OpAndi: "andi", OpXori: "xori", OpShiRa: "shira", OpShiRl: "shirl",
	OpShiLl: "shill", OpSlti: "slti", OpSltiu: "sltiu",
	OpAdd: "add", OpSub: "sub", OpOr: "or", OpAnd: "and", OpXor: "xor",
	OpShRa: "shra", OpShRl: "shrl", OpShLl: "shll", OpMul: "mul", OpIdiv: "idiv",
	OpNot: "not", OpCtz: "ctz", OpClz: "clz", OpPopcount: "popcount",
	OpRotl: "rotl", OpRotr: "rotr",
	OpSb: "sb", OpSh: "sh", OpSw: "sw", OpSbd: "sbd", OpShd: "shd", OpSwd: "swd",
	OpCopy: "copy", OpSwap: "swap", OpFill: "fill", OpThrough: "through", OpFrom: "from",
	OpPushb: "pushb", OpPushh: "pushh", OpPushw: "pushw",
	OpPopb: "popb", OpPoph: "poph", OpPopw: "popw",
	OpSave: "save", OpRestore: "restore", OpExch: "exch", OpSlt: "slt", OpSltu: "sltu",
	OpSyscall: "syscall", OpGsReg: "gsreg", OpSsReg: "ssreg", OpSysret: "sysret",
}

func (o Op) String() string {
	if name, ok := opNames[o]; ok {
		return name
	}
	return "?"
}

// Instruction is the decoded form of one 32-bit instruction word.
type Instruction struct {
	Op             Op
	Format         Format
	Rd, Rs1, Rs2, Rs3 uint8
	Imm            uint32 // raw bit pattern; callers reinterpret per Op semantics
	Word           uint32
}
