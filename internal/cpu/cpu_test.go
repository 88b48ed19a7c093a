package cpu

import (
	"encoding/binary"
	"testing"

	"github.com/rcornwell/taleia/internal/bus"
	"github.com/rcornwell/taleia/internal/busport"
	"github.com/rcornwell/taleia/internal/coreerr"
	"github.com/rcornwell/taleia/internal/intc"
	"github.com/rcornwell/taleia/internal/mmu"
)

func newTestCPU(t *testing.T) (*CPU, *bus.Bus, *bus.Bus) {
	t.Helper()
	programBus := bus.New("program")
	programBus.Insert(0, bus.NewMemoryBlock(0x100000, false))
	dataBus := bus.New("data")
	dataBus.Insert(0, bus.NewMemoryBlock(0x10000, false))

	pp := busport.New(programBus, 0, 0xffffffff, 4)
	dp := busport.New(dataBus, 0, 0xffffffff, 4)
	m := mmu.New(programBus, dataBus)
	ic := intc.New()

	c := New(pp, dp, m, ic)
	return c, programBus, dataBus
}

func putWord(b *bus.Bus, addr uint64, v uint32) {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, v)
	_ = b.Write(addr, buf)
}

// encode assembles a raw instruction word from its bit-level fields.
func encode(group uint32, opcode uint8, rd, rs1, rs2, rs3 uint8, imm uint32, immBits uint) uint32 {
	word := group<<29 | uint32(opcode&0xf)<<25
	word |= uint32(rd&0x1f) << 20
	word |= uint32(rs1&0x1f) << 15
	word |= uint32(rs2&0x1f) << 10
	word |= uint32(rs3&0x1f) << 5
	if immBits > 0 {
		word |= imm & ((1 << immBits) - 1)
	}
	return word
}

// S1 -- reset vector boot: Init reads ssp/pc from ivt*256, transitions to Running.
func TestResetVectorBoot(t *testing.T) {
	c, _, dataBus := newTestCPU(t)
	c.Psr.IVT = 7
	putWord(dataBus, 0x700, 0xdead0000) // ssp
	putWord(dataBus, 0x704, 0x00001000) // pc

	if _, err := c.Step(); err != nil {
		t.Fatalf("boot step: %v", err)
	}
	if c.Status != StatusRunning {
		t.Fatalf("status = %v, want Running", c.Status)
	}
	if c.SSP != 0xdead0000 || c.PC != 0x1000 {
		t.Errorf("ssp=0x%x pc=0x%x, want 0xdead0000/0x1000", c.SSP, c.PC)
	}
}

// Addi wraps on overflow, and register 0 discards writes.
func TestAddiWrapAndZeroRegister(t *testing.T) {
	c, programBus, dataBus := newTestCPU(t)
	putWord(dataBus, 0, 0)
	putWord(dataBus, 4, 0x1000)
	if _, err := c.Step(); err != nil {
		t.Fatalf("boot: %v", err)
	}

	c.Reg[5] = 0xffffffff
	// addi r6, r5, 2  (group 3, opcode 3 = OpAddi)
	putWord(programBus, 0x1000, encode(3, 3, 6, 5, 0, 0, 2, 15))
	// addi r0, r0, 99 (should be discarded)
	putWord(programBus, 0x1004, encode(3, 3, 0, 0, 0, 0, 99, 15))

	if _, err := c.Step(); err != nil {
		t.Fatalf("step 1: %v", err)
	}
	if c.Reg[6] != 1 {
		t.Errorf("r6 = 0x%x, want 1 (wrapped)", c.Reg[6])
	}
	if _, err := c.Step(); err != nil {
		t.Fatalf("step 2: %v", err)
	}
	if c.Reg[0] != 0 {
		t.Errorf("r0 = 0x%x, want 0", c.Reg[0])
	}
}

// Idivi by zero raises ZeroDivide and dispatches through the IVT, not fatal.
func TestIdiviByZeroDispatches(t *testing.T) {
	c, programBus, dataBus := newTestCPU(t)
	putWord(dataBus, 0, 0x2000) // ssp
	putWord(dataBus, 4, 0x1000) // pc
	putWord(dataBus, uint64(coreerr.ZeroDivide)*4, 0x5000) // vector 5

	if _, err := c.Step(); err != nil {
		t.Fatalf("boot: %v", err)
	}
	c.Reg[5] = 10
	// idivi r6, r5, 0 (group 3, opcode 2 = OpIdivi)
	putWord(programBus, 0x1000, encode(3, 2, 6, 5, 0, 0, 0, 15))

	if _, err := c.Step(); err != nil {
		t.Fatalf("step: %v", err)
	}
	if c.PC != 0x5000 {
		t.Errorf("pc = 0x%x, want 0x5000 (handler)", c.PC)
	}
	if !c.Psr.Supervisor {
		t.Errorf("psr.supervisor should be true after exception entry")
	}
	if c.Status != StatusRunning {
		t.Errorf("status = %v, want Running (not fatal)", c.Status)
	}
}

// MMU fault during fetch raises a Processor PageFault through SetPC.
func TestFetchPageFault(t *testing.T) {
	c, _, _ := newTestCPU(t)
	c.Psr.MMUEnabled = true

	err := c.SetPC(0x00100000) // no page directory entry configured
	if err == nil {
		t.Fatalf("expected SetPC to fail with a page fault")
	}
	ce, ok := coreerr.As(err)
	if !ok || ce.Kind != coreerr.Processor || ce.Native != coreerr.PageFault {
		t.Errorf("got %v, want Processor/PageFault", err)
	}
}

// The Sp register alias resolves to ssp or usp by privilege mode.
func TestSpAliasResolvesByPrivilege(t *testing.T) {
	c, _, _ := newTestCPU(t)
	c.Psr.Supervisor = true
	c.SetReg(Sp, 0x7000)
	if c.SSP != 0x7000 {
		t.Fatalf("supervisor SetReg(Sp) did not write ssp")
	}
	c.Psr.Supervisor = false
	c.SetReg(Sp, 0x8000)
	if c.USP != 0x8000 {
		t.Fatalf("user SetReg(Sp) did not write usp")
	}
	if c.SSP != 0x7000 {
		t.Fatalf("user-mode Sp write clobbered ssp")
	}
}
