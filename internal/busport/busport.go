/*
 * Taleä - Narrowing bus port adapter.
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

// Package busport narrows a 32-bit-wide caller onto a bus whose natural
// transfer width may be smaller, by masking addresses and chunking
// accesses into data_width_bytes-sized subtransfers. Byte order within
// each subtransfer is preserved; there is no swapping.
package busport

import "github.com/rcornwell/taleia/internal/bus"

// Port is a width- and address-masking shim in front of a shared Bus.
type Port struct {
	Offset        uint64
	AddressMask   uint64
	DataWidthByte uint64
	Bus           *bus.Bus
}

// New builds a Port over b.
func New(b *bus.Bus, offset, addressMask, dataWidthBytes uint64) *Port {
	return &Port{Offset: offset, AddressMask: addressMask, DataWidthByte: dataWidthBytes, Bus: b}
}

func (p *Port) effective(addr uint64) uint64 {
	return p.Offset + (addr & p.AddressMask)
}

// Read reads len(buf) bytes from linear address addr, splitting into
// DataWidthByte-sized subtransfers.
func (p *Port) Read(addr uint64, buf []byte) error {
	return p.chunk(addr, buf, p.Bus.Read)
}

// Write writes buf to linear address addr, splitting into
// DataWidthByte-sized subtransfers.
func (p *Port) Write(addr uint64, buf []byte) error {
	return p.chunk(addr, buf, p.Bus.Write)
}

func (p *Port) chunk(addr uint64, buf []byte, op func(uint64, []byte) error) error {
	eff := p.effective(addr)
	width := p.DataWidthByte
	if width == 0 {
		width = uint64(len(buf))
	}
	for off := 0; off < len(buf); {
		n := int(width)
		if off+n > len(buf) {
			n = len(buf) - off
		}
		if err := op(eff+uint64(off), buf[off:off+n]); err != nil {
			return err
		}
		off += n
	}
	return nil
}
