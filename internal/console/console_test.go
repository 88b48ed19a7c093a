package console

import (
	"encoding/binary"
	"strings"
	"testing"

	"github.com/rcornwell/taleia/internal/bus"
	"github.com/rcornwell/taleia/internal/system"
)

func putWord(b *bus.Bus, addr uint64, v uint32) {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, v)
	_ = b.Write(addr, buf)
}

func newTestSystem(t *testing.T) *system.System {
	t.Helper()
	sys := system.New()
	sys.ProgramBus.Insert(0, bus.NewMemoryBlock(0x10000, false))
	sys.DataBus.Insert(0, bus.NewMemoryBlock(0x10000, false))
	putWord(sys.DataBus, 0, 0x8000)
	putWord(sys.DataBus, 4, 0x1000)
	return sys
}

func TestDispatchStepAdvancesCPU(t *testing.T) {
	sys := newTestSystem(t)
	putWord(sys.ProgramBus, 0x1000, 3<<29|3<<25) // addi r0, r0, 0
	c := New(sys)
	defer c.Close()

	if quit, err := c.Dispatch("step"); err != nil || quit {
		t.Fatalf("step: quit=%v err=%v", quit, err)
	}
}

func TestDispatchBreakAndClear(t *testing.T) {
	sys := newTestSystem(t)
	c := New(sys)
	defer c.Close()

	if _, err := c.Dispatch("break 0x1000"); err != nil {
		t.Fatalf("break: %v", err)
	}
	if got := sys.CPU.Debugger.List(); len(got) != 1 || got[0] != 0x1000 {
		t.Fatalf("breakpoints = %v, want [0x1000]", got)
	}
	if _, err := c.Dispatch("clear 0x1000"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if got := sys.CPU.Debugger.List(); len(got) != 0 {
		t.Fatalf("breakpoints after clear = %v, want empty", got)
	}
}

func TestDispatchQuit(t *testing.T) {
	sys := newTestSystem(t)
	c := New(sys)
	defer c.Close()

	quit, err := c.Dispatch("quit")
	if err != nil || !quit {
		t.Fatalf("quit=%v err=%v, want quit=true err=nil", quit, err)
	}
}

func TestDispatchUnknownCommand(t *testing.T) {
	sys := newTestSystem(t)
	c := New(sys)
	defer c.Close()

	if _, err := c.Dispatch("frobnicate"); err == nil {
		t.Fatalf("expected error for unknown command")
	}
}

func TestCommandNamesIncludeBreak(t *testing.T) {
	var found bool
	for _, name := range commandNames {
		if strings.HasPrefix(name, "br") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a command starting with 'br'")
	}
}
