package busport

import (
	"testing"

	"github.com/rcornwell/taleia/internal/bus"
)

func TestChunkingPreservesByteOrder(t *testing.T) {
	b := bus.New("data")
	b.Insert(0, bus.NewMemoryBlock(0x100, false))
	p := New(b, 0, 0xffff, 2) // 2-byte natural transfer width

	if err := p.Write(0x10, []byte{0x01, 0x02, 0x03, 0x04}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got := make([]byte, 4)
	if err := p.Read(0x10, got); err != nil {
		t.Fatalf("Read: %v", err)
	}
	want := []byte{0x01, 0x02, 0x03, 0x04}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("byte %d = %x, want %x", i, got[i], want[i])
		}
	}
}

func TestAddressMaskAndOffset(t *testing.T) {
	b := bus.New("data")
	b.Insert(0, bus.NewMemoryBlock(0x10, false))
	// offset 0, mask only low 4 bits: address 0x1234 & 0xf == 4.
	p := New(b, 0, 0xf, 1)

	if err := p.Write(0x1234, []byte{0x7f}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got := make([]byte, 1)
	if err := b.Read(4, got); err != nil {
		t.Fatalf("bus Read: %v", err)
	}
	if got[0] != 0x7f {
		t.Errorf("expected masked address to land at 4, got %x", got[0])
	}
}
