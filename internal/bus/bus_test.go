package bus

import (
	"testing"

	"github.com/rcornwell/taleia/internal/coreerr"
)

func TestInsertOrdering(t *testing.T) {
	b := New("test")
	b.Insert(0x100, NewMemoryBlock(0x10, false))
	b.Insert(0x000, NewMemoryBlock(0x10, false))
	b.Insert(0x200, NewMemoryBlock(0x10, false))

	want := []uint64{0x000, 0x100, 0x200}
	for i, blk := range b.blocks {
		if blk.Base != want[i] {
			t.Errorf("block %d base = 0x%x, want 0x%x", i, blk.Base, want[i])
		}
	}
}

func TestGetDeviceAt(t *testing.T) {
	b := New("test")
	b.Insert(0x100, NewMemoryBlock(0x10, false))

	if _, _, err := b.GetDeviceAt(0x50, 1); err == nil {
		t.Errorf("expected NoSegment for unmapped address")
	}
	if _, rel, err := b.GetDeviceAt(0x105, 1); err != nil || rel != 5 {
		t.Errorf("GetDeviceAt(0x105) = rel %d, err %v; want rel 5, nil", rel, err)
	}
	if _, _, err := b.GetDeviceAt(0x108, 0x10); err == nil {
		t.Errorf("expected CrossesBoundary for an access past the end of the block")
	}
}

func TestReadWrite(t *testing.T) {
	b := New("test")
	b.Insert(0, NewMemoryBlock(0x10, false))

	if err := b.Write(4, []byte{0xde, 0xad}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got := make([]byte, 2)
	if err := b.Read(4, got); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got[0] != 0xde || got[1] != 0xad {
		t.Errorf("Read = %x, want de ad", got)
	}
}

func TestReadOnlyBlockRejectsWrite(t *testing.T) {
	b := New("test")
	b.Insert(0, NewMemoryBlock(0x10, true))

	err := b.Write(0, []byte{1})
	if err == nil {
		t.Fatalf("expected write to read-only block to fail")
	}
	if !coreerr.Is(err, coreerr.Breakpoint) {
		t.Errorf("expected a Breakpoint-class error, got %v", err)
	}
}

func TestWatcher(t *testing.T) {
	b := New("test")
	b.Insert(0, NewMemoryBlock(0x10, false))
	b.Watch(8)

	if b.CheckAndResetWatcherModified() {
		t.Fatalf("watcher should not be set before any write")
	}
	_ = b.Write(4, []byte{1})
	if b.CheckAndResetWatcherModified() {
		t.Errorf("watcher should not trigger for an unwatched address")
	}
	_ = b.Write(8, []byte{1})
	if !b.CheckAndResetWatcherModified() {
		t.Errorf("watcher should trigger for a watched address")
	}
	if b.CheckAndResetWatcherModified() {
		t.Errorf("watcher flag should reset after being observed")
	}
}

func TestIgnoreUnmapped(t *testing.T) {
	b := New("test")
	b.IgnoreUnmapped = true
	buf := []byte{0xff}
	if err := b.Read(0x1000, buf); err != nil {
		t.Errorf("ignore-unmapped read should succeed, got %v", err)
	}
	if err := b.Write(0x1000, buf); err != nil {
		t.Errorf("ignore-unmapped write should succeed, got %v", err)
	}
}
