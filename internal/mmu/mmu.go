/*
 * Taleä - Paging MMU and TLB.
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

// Package mmu implements the single-level-directory page table walk and
// its TLB cache. Callers are responsible for the psr.mmu_enabled bypass
// and for the w/x access checks -- this package only resolves linear to
// physical addresses and reports PageFault when a PTE is not present.
package mmu

import (
	"encoding/binary"

	"github.com/rcornwell/taleia/internal/bus"
	"github.com/rcornwell/taleia/internal/coreerr"
)

const (
	pageShift   = 12
	pageMask    = 0xfff
	ptIndexMask = 0x3ff
	pdIndexMask = 0x3f
	pdIndexShf  = 22
	ptIndexShf  = 12
	pdtScale    = 256
)

type tlbEntry struct {
	pfn   uint16
	w     bool
	x     bool
	dirty bool
}

// MMU walks linear addresses through a page directory (read from the
// data bus) and page tables (read from the program bus).
type MMU struct {
	programBus *bus.Bus
	dataBus    *bus.Bus
	tlb        map[uint16]tlbEntry
}

// New builds an MMU bound to the program and data buses.
func New(programBus, dataBus *bus.Bus) *MMU {
	return &MMU{programBus: programBus, dataBus: dataBus, tlb: make(map[uint16]tlbEntry)}
}

// Flush clears the TLB. Called on reset; never invalidated otherwise.
func (m *MMU) Flush() {
	m.tlb = make(map[uint16]tlbEntry)
}

// Translate resolves linear address L to a physical address, plus the
// writable/executable bits of its PTE. pdt is psr.pdt. Callers must have
// already handled the psr.mmu_enabled == false bypass.
func (m *MMU) Translate(linear uint32, pdt uint8) (phys uint32, w bool, x bool, err error) {
	lpn := uint16(linear >> pageShift)
	if ent, ok := m.tlb[lpn]; ok {
		return uint32(ent.pfn)<<pageShift | (linear & pageMask), ent.w, ent.x, nil
	}

	dirBase := uint64(pdt) * pdtScale
	pdIndex := uint64(linear>>pdIndexShf) & pdIndexMask
	pdeBuf := make([]byte, 2)
	if err := m.dataBus.Read(dirBase+pdIndex*2, pdeBuf); err != nil {
		return 0, false, false, err
	}
	pde := binary.BigEndian.Uint16(pdeBuf)
	ptPage := pde >> 4 // physical_addr:12, reserved:4

	ptIndex := uint64(linear>>ptIndexShf) & ptIndexMask
	pteAddr := uint64(ptPage)<<pageShift | ptIndex*2
	pteBuf := make([]byte, 2)
	if err := m.programBus.Read(pteAddr, pteBuf); err != nil {
		return 0, false, false, err
	}
	pte := binary.BigEndian.Uint16(pteBuf)

	physAddr := pte >> 4
	writable := (pte>>3)&1 != 0
	executable := (pte>>2)&1 != 0
	present := pte&1 != 0

	if !present {
		return 0, false, false, coreerr.Processorf(coreerr.PageFault, "page fault at linear 0x%08x", linear)
	}

	m.tlb[lpn] = tlbEntry{pfn: physAddr, w: writable, x: executable}
	return uint32(physAddr)<<pageShift | (linear & pageMask), writable, executable, nil
}

// MarkDirty records that a write landed on the cached translation for
// linear. This is TLB-local bookkeeping only: the PTE on the program bus
// is never written back, per the teacher's TODO -- dirty tracking exists
// but is not yet architecturally observable.
func (m *MMU) MarkDirty(linear uint32) {
	lpn := uint16(linear >> pageShift)
	if ent, ok := m.tlb[lpn]; ok {
		ent.dirty = true
		m.tlb[lpn] = ent
	}
}
