/*
 * Taleä - Interval timer peripheral.
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
	"encoding/binary"
	"fmt"

	"github.com/rcornwell/taleia/internal/coreerr"
)

// Debug options, same bitmask-by-name convention the teacher uses for
// its unit record devices.
const (
	DebugCmd = 1 << iota
	DebugTick
)

var timerDebugNames = map[string]uint32{
	"CMD":  DebugCmd,
	"TICK": DebugTick,
}

// Timer is a free-running interval timer: writing a nonzero reload value
// to its register and setting the run bit in STATUS arms it; it
// interrupts once every reload period while running.
//
//	offset 0: STATUS (bit0 run, bit1 pending)
//	offset 1: reserved
//	offset 2-3: reserved
//	offset 4-7: RELOAD, a big-endian nanosecond period
type Timer struct {
	name      string
	level     uint8
	vector    uint8
	run       bool
	pending   bool
	reloadNs  uint64
	remainNs  uint64
	debugMask uint32
}

// NewTimer builds a Timer interrupting at level/vector.
func NewTimer(name string, level, vector uint8) *Timer {
	return &Timer{name: name, level: level, vector: vector, reloadNs: 1_000_000}
}

func (t *Timer) Name() string { return t.name }

func (t *Timer) Len() uint64 { return 8 }

func (t *Timer) Read(relAddr uint64, buf []byte) error {
	switch relAddr {
	case 0:
		var status byte
		if t.run {
			status |= 1
		}
		if t.pending {
			status |= 2
		}
		buf[0] = status
	case 4:
		if len(buf) < 4 {
			return coreerr.New(coreerr.Bus, "short timer register read")
		}
		binary.BigEndian.PutUint32(buf, uint32(t.reloadNs))
	default:
		for i := range buf {
			buf[i] = 0
		}
	}
	return nil
}

func (t *Timer) Write(relAddr uint64, buf []byte) error {
	switch relAddr {
	case 0:
		status := buf[0]
		t.run = status&1 != 0
		if status&2 != 0 {
			t.pending = false
		}
	case 4:
		if len(buf) < 4 {
			return coreerr.New(coreerr.Bus, "short timer register write")
		}
		t.reloadNs = uint64(binary.BigEndian.Uint32(buf))
		t.remainNs = t.reloadNs
	}
	return nil
}

// Step, while the timer runs, marks the interrupt pending and returns one
// reload period as the delay until its next call; nothing is counted down
// between calls. Devices self-report their own next-due delay to the
// cooperative scheduler.
func (t *Timer) Step() (uint64, error) {
	if !t.run || t.reloadNs == 0 {
		return 1_000_000, nil
	}
	if t.remainNs == 0 {
		t.remainNs = t.reloadNs
	}
	due := t.remainNs
	t.pending = true
	t.remainNs = t.reloadNs
	return due, nil
}

func (t *Timer) Level() uint8  { return t.level }
func (t *Timer) Vector() uint8 { return t.vector }
func (t *Timer) Pending() bool { return t.pending }

func (t *Timer) SetDebugOptions(mask uint32) { t.debugMask = mask }
func (t *Timer) DebugOptions() uint32        { return t.debugMask }

func (t *Timer) Inspect() string {
	return fmt.Sprintf("timer %s: run=%v pending=%v reload=%dns remain=%dns",
		t.name, t.run, t.pending, t.reloadNs, t.remainNs)
}

// TimerDebugNames exposes the Timer's debug option name->mask table. The
// config parser does not read it.
func TimerDebugNames() map[string]uint32 { return timerDebugNames }
