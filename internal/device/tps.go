/*
 * Taleä - TPS tape peripheral.
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

package device

import (
	"fmt"
	"io"
	"os"

	"github.com/rcornwell/taleia/internal/bus"
	"github.com/rcornwell/taleia/internal/coreerr"
)

const (
	tpsDebugCmd = 1 << iota
	tpsDebugMove
)

var tpsDebugNames = map[string]uint32{
	"CMD":  tpsDebugCmd,
	"MOVE": tpsDebugMove,
}

// TPSDebugNames exposes the TPS controller's debug option name->mask
// table. The config parser does not read it.
func TPSDebugNames() map[string]uint32 { return tpsDebugNames }

// TPS commands, per spec's register contract. The command byte's top bit
// selects which of the two units the command applies to; the low bits
// name the command.
const (
	tpsCmdNop = iota
	tpsCmdIsBootable
	tpsCmdIsPresent
	tpsCmdOpen
	tpsCmdClose
	tpsCmdStoreSector
	tpsCmdLoadSector
)

const tpsUnitSelect = 0x80

// Register offsets for the TPS controller, one byte each:
// COMMAND, DATA, POINT_H, POINT_L, STATUS_H, STATUS_L.
const (
	tpsRegCommand = iota
	tpsRegData
	tpsRegPointH
	tpsRegPointL
	tpsRegStatusH
	tpsRegStatusL
	tpsRegCount
)

// TPS status_h bits.
const (
	tpsStatusBusy = 1 << iota
	tpsStatusDone
	tpsStatusErr
)

// tpsAckDone clears a completed command's pending interrupt when written
// back by the handler, the same write-to-ack shape Timer's STATUS
// register uses.
const tpsAckDone = 1 << 1

// bootSignature is the last two bytes of a bootable sector.
var bootSignature = [2]byte{0xa1, 0xea}

// tpsUnit is one tape drive's backing image: up to 256 fixed 512-byte
// sectors, addressed by the DATA register.
type tpsUnit struct {
	path string
	file *os.File
}

// TPS is a two-unit tape controller: a register window on the data bus
// driving DMA-style sector transfers against the program bus, per
// spec.md's peripheral protocol. The command byte's top bit picks the
// unit; DATA carries the sector number within that unit's image.
type TPS struct {
	name   string
	level  uint8
	vector uint8
	unit   [2]tpsUnit

	programBus *bus.Bus

	command   byte
	data      byte
	point     uint16
	unitSel   int
	busy      bool
	done      bool
	ioErr     bool
	result    byte
	moveNs    uint64
	pending   bool
	debugMask uint32
}

// NewTPS opens (creating if absent) path+"_0" and path+"_1" as the two
// units' backing images. programBus is the bus StoreSector/LoadSector
// DMA against.
func NewTPS(name, path string, level, vector uint8, programBus *bus.Bus) (*TPS, error) {
	t := &TPS{name: name, level: level, vector: vector, programBus: programBus, moveNs: 5_000_000}
	for i := range t.unit {
		p := fmt.Sprintf("%s_%d", path, i)
		f, err := os.OpenFile(p, os.O_RDWR|os.O_CREATE, 0o644)
		if err != nil {
			return nil, coreerr.Wrap(coreerr.IO, "open tps image", err)
		}
		t.unit[i] = tpsUnit{path: p, file: f}
	}
	return t, nil
}

func (t *TPS) Name() string { return t.name }

func (t *TPS) Len() uint64 { return tpsRegCount }

func (t *TPS) Read(relAddr uint64, buf []byte) error {
	if relAddr >= tpsRegCount {
		for i := range buf {
			buf[i] = 0
		}
		return nil
	}
	switch relAddr {
	case tpsRegCommand:
		buf[0] = t.command
	case tpsRegData:
		buf[0] = t.data
	case tpsRegPointH:
		buf[0] = byte(t.point >> 8)
	case tpsRegPointL:
		buf[0] = byte(t.point)
	case tpsRegStatusH:
		var status byte
		if t.busy {
			status |= tpsStatusBusy
		}
		if t.done {
			status |= tpsStatusDone
		}
		if t.ioErr {
			status |= tpsStatusErr
		}
		buf[0] = status
	case tpsRegStatusL:
		buf[0] = t.result
	}
	return nil
}

func (t *TPS) Write(relAddr uint64, buf []byte) error {
	if relAddr >= tpsRegCount {
		return nil
	}
	switch relAddr {
	case tpsRegCommand:
		t.command = buf[0]
	case tpsRegData:
		t.data = buf[0]
	case tpsRegPointH:
		t.point = uint16(buf[0])<<8 | t.point&0xff
	case tpsRegPointL:
		t.point = t.point&0xff00 | uint16(buf[0])
	case tpsRegStatusH:
		if buf[0]&tpsAckDone != 0 {
			t.pending = false
		}
	}
	return nil
}

// Step executes the pending command once, then disarms it (command goes
// back to Nop) so a register left holding LoadSector doesn't re-trigger
// the transfer on every subsequent step.
func (t *TPS) Step() (uint64, error) {
	cmd := t.command
	if cmd == tpsCmdNop {
		return 20_000_000, nil
	}
	t.command = tpsCmdNop
	if cmd&tpsUnitSelect == 0 {
		t.unitSel = 0
	} else {
		t.unitSel = 1
	}
	cmd &^= tpsUnitSelect

	t.busy = true
	t.done = false
	t.ioErr = false
	unit := &t.unit[t.unitSel]

	switch cmd {
	case tpsCmdStoreSector:
		var sectorBuf [sectorSize]byte
		addr := uint64(t.point) << 9
		if err := t.programBus.Read(addr, sectorBuf[:]); err != nil {
			t.ioErr = true
		} else if _, err := unit.file.WriteAt(sectorBuf[:], int64(t.data)*sectorSize); err != nil {
			t.ioErr = true
		}
	case tpsCmdLoadSector:
		var sectorBuf [sectorSize]byte
		if _, err := unit.file.ReadAt(sectorBuf[:], int64(t.data)*sectorSize); err != nil && err != io.EOF {
			t.ioErr = true
		} else {
			addr := uint64(t.point) << 9
			if err := t.programBus.Write(addr, sectorBuf[:]); err != nil {
				t.ioErr = true
			} else {
				t.pending = true
			}
		}
	case tpsCmdIsBootable:
		var sectorBuf [sectorSize]byte
		if _, err := unit.file.ReadAt(sectorBuf[:], int64(t.data)*sectorSize); err != nil && err != io.EOF {
			t.ioErr = true
		} else if [2]byte{sectorBuf[510], sectorBuf[511]} == bootSignature {
			t.result = 1
		} else {
			t.result = 0
		}
	case tpsCmdIsPresent:
		if _, err := os.Stat(unit.path); err == nil {
			t.result = 1
		} else {
			t.result = 0
		}
	case tpsCmdOpen, tpsCmdClose:
		// The unit's backing file stays open for the controller's life;
		// nothing further to do.
	}
	t.busy = false
	t.done = true
	return t.moveNs, nil
}

func (t *TPS) Level() uint8  { return t.level }
func (t *TPS) Vector() uint8 { return t.vector }
func (t *TPS) Pending() bool { return t.pending }

func (t *TPS) SetDebugOptions(mask uint32) { t.debugMask = mask }
func (t *TPS) DebugOptions() uint32        { return t.debugMask }

func (t *TPS) Inspect() string {
	return fmt.Sprintf("tps %s: unit=%d busy=%v done=%v err=%v", t.name, t.unitSel, t.busy, t.done, t.ioErr)
}

// Close releases both units' backing files; called on system shutdown.
func (t *TPS) Close() error {
	var err error
	for i := range t.unit {
		if cerr := t.unit[i].file.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
