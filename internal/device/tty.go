/*
 * Taleä - TTY serial peripheral.
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

import "fmt"

const (
	ttyDebugCmd = 1 << iota
	ttyDebugData
)

var ttyDebugNames = map[string]uint32{
	"CMD":  ttyDebugCmd,
	"DATA": ttyDebugData,
}

// TTYDebugNames exposes the TTY's debug option name->mask table. The
// config parser does not read it.
func TTYDebugNames() map[string]uint32 { return ttyDebugNames }

// ttyAckPending clears a raised interrupt when written back by the
// handler, the same write-to-ack shape Timer's STATUS register uses.
const ttyAckPending = 1 << 2

// TTY is a byte-paced serial console: an output FIFO the host console
// drains, and an input byte the console can push in.
//
//	offset 0: STATUS (bit0 output-ready, bit1 input-ready, write bit2 to ack)
//	offset 1: OUTPUT (write pushes one byte to Drain)
//	offset 2: INPUT (read consumes the pending input byte)
type TTY struct {
	name      string
	level     uint8
	vector    uint8
	outQueue  []byte
	inByte    byte
	inReady   bool
	byteNs    uint64
	pending   bool
	debugMask uint32
}

// NewTTY builds a TTY pacing one byte every byteNs nanoseconds (9600
// baud is roughly 104us/byte).
func NewTTY(name string, level, vector uint8) *TTY {
	return &TTY{name: name, level: level, vector: vector, byteNs: 104_000}
}

func (t *TTY) Name() string { return t.name }

func (t *TTY) Len() uint64 { return 3 }

func (t *TTY) Read(relAddr uint64, buf []byte) error {
	switch relAddr {
	case 0:
		var status byte
		if len(t.outQueue) == 0 {
			status |= 1
		}
		if t.inReady {
			status |= 2
		}
		buf[0] = status
	case 2:
		if t.inReady {
			buf[0] = t.inByte
			t.inReady = false
		} else {
			buf[0] = 0
		}
	default:
		buf[0] = 0
	}
	return nil
}

func (t *TTY) Write(relAddr uint64, buf []byte) error {
	switch relAddr {
	case 0:
		if buf[0]&ttyAckPending != 0 {
			t.pending = false
		}
	case 1:
		t.outQueue = append(t.outQueue, buf[0])
	}
	return nil
}

// PushInput is the host-console side of the wire: a keystroke arriving
// from the terminal.
func (t *TTY) PushInput(b byte) {
	t.inByte = b
	t.inReady = true
	t.pending = true
}

// DrainOutput is the host-console side of the wire: bytes the guest has
// written since the last drain.
func (t *TTY) DrainOutput() []byte {
	out := t.outQueue
	t.outQueue = nil
	return out
}

func (t *TTY) Step() (uint64, error) {
	if len(t.outQueue) > 0 {
		t.pending = true
	}
	return t.byteNs, nil
}

func (t *TTY) Level() uint8  { return t.level }
func (t *TTY) Vector() uint8 { return t.vector }
func (t *TTY) Pending() bool { return t.pending || t.inReady }

func (t *TTY) SetDebugOptions(mask uint32) { t.debugMask = mask }
func (t *TTY) DebugOptions() uint32        { return t.debugMask }

func (t *TTY) Inspect() string {
	return fmt.Sprintf("tty %s: out_queued=%d in_ready=%v", t.name, len(t.outQueue), t.inReady)
}
