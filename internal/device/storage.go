/*
 * Taleä - Block storage drive peripheral.
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
	storageDebugCmd = 1 << iota
	storageDebugData
)

var storageDebugNames = map[string]uint32{
	"CMD":  storageDebugCmd,
	"DATA": storageDebugData,
}

// StorageDebugNames exposes the Storage drive's debug option name->mask
// table. The config parser does not read it.
func StorageDebugNames() map[string]uint32 { return storageDebugNames }

const sectorSize = 512

// Storage commands, per spec's register contract.
const (
	storageCmdNop = iota
	storageCmdStoreSector
	storageCmdLoadSector
)

// Register offsets for the Storage drive, one byte each:
// COMMAND, DATA, SECTOR_H, SECTOR_L, POINT_H, POINT_L, STATUS0, STATUS1.
const (
	storageRegCommand = iota
	storageRegData
	storageRegSectorH
	storageRegSectorL
	storageRegPointH
	storageRegPointL
	storageRegStatus0
	storageRegStatus1
	storageRegCount
)

// Storage status0 bits.
const (
	storageStatus0Busy = 1 << iota
	storageStatus0Done
	storageStatus0Err
)

// storageAckDone clears a completed command's pending interrupt when
// written back by the handler, the same write-to-ack shape Timer uses
// on its STATUS register.
const storageAckDone = 1 << 1

// Storage is a disk-drive peripheral: a register window on the data bus
// driving DMA-style sector transfers against the program bus, per
// spec.md's peripheral protocol.
type Storage struct {
	name   string
	level  uint8
	vector uint8
	file   *os.File

	programBus *bus.Bus

	command   byte
	data      byte
	sector    uint16
	point     uint16
	busy      bool
	done      bool
	ioErr     bool
	seekNs    uint64
	pending   bool
	debugMask uint32
}

// NewStorage opens (creating if absent) path as the drive's backing
// file. programBus is the bus its sector DMA reads and writes against.
func NewStorage(name, path string, level, vector uint8, programBus *bus.Bus) (*Storage, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, coreerr.Wrap(coreerr.IO, "open storage image", err)
	}
	return &Storage{name: name, level: level, vector: vector, file: f, programBus: programBus, seekNs: 2_000_000}, nil
}

func (s *Storage) Name() string { return s.name }

func (s *Storage) Len() uint64 { return storageRegCount }

func (s *Storage) Read(relAddr uint64, buf []byte) error {
	if relAddr >= storageRegCount {
		for i := range buf {
			buf[i] = 0
		}
		return nil
	}
	switch relAddr {
	case storageRegCommand:
		buf[0] = s.command
	case storageRegData:
		buf[0] = s.data
	case storageRegSectorH:
		buf[0] = byte(s.sector >> 8)
	case storageRegSectorL:
		buf[0] = byte(s.sector)
	case storageRegPointH:
		buf[0] = byte(s.point >> 8)
	case storageRegPointL:
		buf[0] = byte(s.point)
	case storageRegStatus0:
		var status byte
		if s.busy {
			status |= storageStatus0Busy
		}
		if s.done {
			status |= storageStatus0Done
		}
		if s.ioErr {
			status |= storageStatus0Err
		}
		buf[0] = status
	case storageRegStatus1:
		buf[0] = 0
	}
	return nil
}

func (s *Storage) Write(relAddr uint64, buf []byte) error {
	if relAddr >= storageRegCount {
		return nil
	}
	switch relAddr {
	case storageRegCommand:
		s.command = buf[0]
	case storageRegData:
		s.data = buf[0]
	case storageRegSectorH:
		s.sector = uint16(buf[0])<<8 | s.sector&0xff
	case storageRegSectorL:
		s.sector = s.sector&0xff00 | uint16(buf[0])
	case storageRegPointH:
		s.point = uint16(buf[0])<<8 | s.point&0xff
	case storageRegPointL:
		s.point = s.point&0xff00 | uint16(buf[0])
	case storageRegStatus0:
		if buf[0]&storageAckDone != 0 {
			s.pending = false
		}
	}
	return nil
}

// Step executes the pending command once, then disarms it (command goes
// back to Nop) so a register left holding LoadSector doesn't re-trigger
// the transfer on every subsequent step.
func (s *Storage) Step() (uint64, error) {
	cmd := s.command
	if cmd == storageCmdNop {
		return 50_000_000, nil
	}
	s.command = storageCmdNop
	s.busy = true
	s.done = false
	s.ioErr = false

	addr := uint64(s.point) << 9
	switch cmd {
	case storageCmdStoreSector:
		var sectorBuf [sectorSize]byte
		if err := s.programBus.Read(addr, sectorBuf[:]); err != nil {
			s.ioErr = true
		} else if _, err := s.file.WriteAt(sectorBuf[:], int64(s.sector)*sectorSize); err != nil {
			s.ioErr = true
		}
	case storageCmdLoadSector:
		var sectorBuf [sectorSize]byte
		if _, err := s.file.ReadAt(sectorBuf[:], int64(s.sector)*sectorSize); err != nil && err != io.EOF {
			s.ioErr = true
		} else if err := s.programBus.Write(addr, sectorBuf[:]); err != nil {
			s.ioErr = true
		} else {
			s.pending = true
		}
	}
	s.busy = false
	s.done = true
	return s.seekNs, nil
}

func (s *Storage) Level() uint8  { return s.level }
func (s *Storage) Vector() uint8 { return s.vector }
func (s *Storage) Pending() bool { return s.pending }

func (s *Storage) SetDebugOptions(mask uint32) { s.debugMask = mask }
func (s *Storage) DebugOptions() uint32        { return s.debugMask }

func (s *Storage) Inspect() string {
	return fmt.Sprintf("storage %s: sector=%d point=%d busy=%v done=%v err=%v",
		s.name, s.sector, s.point, s.busy, s.done, s.ioErr)
}

// Close releases the backing file; called on system shutdown.
func (s *Storage) Close() error { return s.file.Close() }
