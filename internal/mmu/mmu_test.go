package mmu

import (
	"encoding/binary"
	"testing"

	"github.com/rcornwell/taleia/internal/bus"
	"github.com/rcornwell/taleia/internal/coreerr"
)

func setPTE(programBus *bus.Bus, addr uint64, physAddr uint16, w, x, present bool) {
	var v uint16
	v = physAddr << 4
	if w {
		v |= 1 << 3
	}
	if x {
		v |= 1 << 2
	}
	if present {
		v |= 1
	}
	buf := make([]byte, 2)
	binary.BigEndian.PutUint16(buf, v)
	_ = programBus.Write(addr, buf)
}

func setPDE(dataBus *bus.Bus, addr uint64, ptPage uint16) {
	buf := make([]byte, 2)
	binary.BigEndian.PutUint16(buf, ptPage<<4)
	_ = dataBus.Write(addr, buf)
}

func newTestBuses(t *testing.T) (program, data *bus.Bus) {
	t.Helper()
	program = bus.New("program")
	program.Insert(0, bus.NewMemoryBlock(0x200000, false))
	data = bus.New("data")
	data.Insert(0, bus.NewMemoryBlock(0x10000, false))
	return program, data
}

// S6 -- MMU fault: all PTEs absent.
func TestTranslatePageFault(t *testing.T) {
	program, data := newTestBuses(t)
	m := New(program, data)

	_, _, _, err := m.Translate(0x00010000, 0)
	ce, ok := coreerr.As(err)
	if !ok || ce.Kind != coreerr.Processor || ce.Native != coreerr.PageFault {
		t.Fatalf("expected PageFault processor error, got %v", err)
	}
}

// Property 5 -- page translation round trip.
func TestTranslateRoundTrip(t *testing.T) {
	program, data := newTestBuses(t)
	m := New(program, data)

	const pdt = 0
	linear := uint32(0x00100000) // pd index 0, pt index 0x100
	dirBase := uint64(pdt) * 256
	pdIndex := uint64(linear>>22) & 0x3f
	setPDE(data, dirBase+pdIndex*2, 0x05) // page table lives at program page 5

	ptIndex := uint64(linear>>12) & 0x3ff
	pteAddr := uint64(0x05)<<12 | ptIndex*2
	setPTE(program, pteAddr, 0x07, true, true, true)

	phys, w, x, err := m.Translate(linear, pdt)
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	wantPhys := uint32(0x07)<<12 | (linear & 0xfff)
	if phys != wantPhys || !w || !x {
		t.Errorf("Translate = (0x%x, %v, %v), want (0x%x, true, true)", phys, w, x, wantPhys)
	}
}

// S7 -- TLB caches a translation, immune to a subsequent PTE change.
func TestTLBCaches(t *testing.T) {
	program, data := newTestBuses(t)
	m := New(program, data)

	const pdt = 0
	linear := uint32(0x00100000)
	dirBase := uint64(pdt) * 256
	pdIndex := uint64(linear>>22) & 0x3f
	setPDE(data, dirBase+pdIndex*2, 0x05)

	ptIndex := uint64(linear>>12) & 0x3ff
	pteAddr := uint64(0x05)<<12 | ptIndex*2
	setPTE(program, pteAddr, 0x07, true, true, true)

	phys1, _, _, err := m.Translate(linear, pdt)
	if err != nil {
		t.Fatalf("first Translate: %v", err)
	}

	// Zero the PTE: a fresh walk would now page-fault.
	zero := make([]byte, 2)
	_ = program.Write(pteAddr, zero)

	linear2 := linear | 0xfff // same page, different offset
	phys2, _, _, err := m.Translate(linear2, pdt)
	if err != nil {
		t.Fatalf("cached Translate: %v", err)
	}
	if phys1&^0xfff != phys2&^0xfff {
		t.Errorf("cached translation page changed: 0x%x vs 0x%x", phys1, phys2)
	}
}

func TestFlushClearsTLB(t *testing.T) {
	program, data := newTestBuses(t)
	m := New(program, data)

	linear := uint32(0x00100000)
	setPDE(data, 0, 0x05)
	setPTE(program, uint64(0x05)<<12|0x100*2, 0x07, true, true, true) // pt index 0x100
	if _, _, _, err := m.Translate(linear, 0); err != nil {
		t.Fatalf("Translate: %v", err)
	}

	m.Flush()
	// Remove the mapping entirely; a flushed TLB must re-walk and fault.
	zero := make([]byte, 2)
	_ = data.Write(0, zero)
	_, _, _, err := m.Translate(linear, 0)
	if !coreerr.Is(err, coreerr.Processor) {
		t.Errorf("expected translate to re-walk and fault after flush, got %v", err)
	}
}
