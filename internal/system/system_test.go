package system

import (
	"encoding/binary"
	"testing"

	"github.com/rcornwell/taleia/internal/bus"
	"github.com/rcornwell/taleia/internal/device"
)

func putWord(b *bus.Bus, addr uint64, v uint32) {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, v)
	_ = b.Write(addr, buf)
}

// S1-style scenario: boot via the reset vector, execute a run of no-op
// instructions, and confirm the device scheduler advances alongside the CPU.
func TestRunForAdvancesClockAndDevices(t *testing.T) {
	sys := New()
	sys.ProgramBus.Insert(0, bus.NewMemoryBlock(0x10000, false))
	sys.DataBus.Insert(0, bus.NewMemoryBlock(0x10000, false))

	putWord(sys.DataBus, 0, 0x8000) // ssp
	putWord(sys.DataBus, 4, 0x1000) // pc

	// addi r0, r0, 0 (group 3 opcode 3 = OpAddi); the zero words after it
	// decode as lui r0, 0, so execution runs on through no-ops.
	putWord(sys.ProgramBus, 0x1000, 3<<29|3<<25)

	tm := device.NewTimer("tick", 3, 0x20)
	sys.AddDevice(tm)

	if err := sys.RunFor(1_000_000); err != nil {
		t.Fatalf("RunFor: %v", err)
	}
	if sys.Clock() < 1_000_000 {
		t.Errorf("clock = %d, want >= 1_000_000", sys.Clock())
	}
	if sys.nextDue[0] == 0 {
		t.Errorf("timer was never stepped")
	}
}

func TestAddDeviceRegistersOnlySupportedCapabilities(t *testing.T) {
	sys := New()
	tm := device.NewTimer("t", 1, 1)
	sys.AddDevice(tm)
	if len(sys.steppables) != 1 {
		t.Errorf("steppables = %d, want 1", len(sys.steppables))
	}
	if len(sys.interruptables) != 1 {
		t.Errorf("interruptables = %d, want 1", len(sys.interruptables))
	}
}
