/*
 * Taleä - Address-routed bus and memory blocks.
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

// Package bus implements the address-routed memory fabric: an ordered
// set of fixed-length Blocks, each delegating to an AddressableDevice.
// Dispatch is a linear scan, deliberately: the tradeoff for O(n) lookup
// is a design that stays legible with at most a few dozen devices.
package bus

import (
	"log/slog"
	"sort"

	"github.com/rcornwell/taleia/internal/coreerr"
)

// AddressableDevice is anything a Block can route reads and writes to.
type AddressableDevice interface {
	Len() uint64
	Read(relAddr uint64, buf []byte) error
	Write(relAddr uint64, buf []byte) error
}

// Block maps [Base, Base+device.Len()) to a device.
type Block struct {
	Base   uint64
	Length uint64
	Device AddressableDevice
}

// Bus is an ordered set of Blocks plus watcher tracking.
type Bus struct {
	Name           string
	blocks         []Block
	IgnoreUnmapped bool
	watchers       map[uint64]struct{}
	watcherHit     bool
}

// New creates an empty bus. name is used only for diagnostics.
func New(name string) *Bus {
	return &Bus{Name: name, watchers: make(map[uint64]struct{})}
}

// Insert adds a Block for device at base, keeping blocks sorted by Base.
// Overlap is not detected: callers must lay out disjoint ranges.
func (b *Bus) Insert(base uint64, device AddressableDevice) {
	blk := Block{Base: base, Length: device.Len(), Device: device}
	idx := sort.Search(len(b.blocks), func(i int) bool { return b.blocks[i].Base >= base })
	b.blocks = append(b.blocks, Block{})
	copy(b.blocks[idx+1:], b.blocks[idx:])
	b.blocks[idx] = blk
}

// GetDeviceAt returns the device covering addr and the address relative
// to that device's block, or a Bus-kind error.
func (b *Bus) GetDeviceAt(addr uint64, count uint64) (AddressableDevice, uint64, error) {
	for _, blk := range b.blocks {
		if addr < blk.Base || addr >= blk.Base+blk.Length {
			continue
		}
		rel := addr - blk.Base
		if rel+count > blk.Length {
			return nil, 0, coreerr.CrossesBoundary(addr)
		}
		return blk.Device, rel, nil
	}
	return nil, 0, coreerr.NoSegment(addr)
}

// Read reads len(buf) bytes starting at addr.
func (b *Bus) Read(addr uint64, buf []byte) error {
	dev, rel, err := b.GetDeviceAt(addr, uint64(len(buf)))
	if err != nil {
		if b.IgnoreUnmapped && coreerr.Is(err, coreerr.Bus) {
			slog.Warn("bus read miss, treated as success", "bus", b.Name, "addr", addr)
			return nil
		}
		return err
	}
	return dev.Read(rel, buf)
}

// Write writes buf to addr, updating the watcher-modified flag if addr
// matches a watched address.
func (b *Bus) Write(addr uint64, buf []byte) error {
	dev, rel, err := b.GetDeviceAt(addr, uint64(len(buf)))
	if err != nil {
		if b.IgnoreUnmapped && coreerr.Is(err, coreerr.Bus) {
			slog.Warn("bus write miss, treated as success", "bus", b.Name, "addr", addr)
			return nil
		}
		return err
	}
	if err := dev.Write(rel, buf); err != nil {
		return err
	}
	if _, ok := b.watchers[addr]; ok {
		b.watcherHit = true
	}
	return nil
}

// Watch arms watcher_modified tracking for addr.
func (b *Bus) Watch(addr uint64) {
	b.watchers[addr] = struct{}{}
}

// Unwatch disarms tracking for addr.
func (b *Bus) Unwatch(addr uint64) {
	delete(b.watchers, addr)
}

// CheckAndResetWatcherModified returns whether a watched address was
// written since the last call, clearing the flag.
func (b *Bus) CheckAndResetWatcherModified() bool {
	hit := b.watcherHit
	b.watcherHit = false
	return hit
}
