package bus

import "github.com/rcornwell/taleia/internal/coreerr"

// MemoryBlock is a flat byte store, optionally read-only.
type MemoryBlock struct {
	contents []byte
	readOnly bool
}

// NewMemoryBlock allocates a zero-filled block of length bytes.
func NewMemoryBlock(length uint64, readOnly bool) *MemoryBlock {
	return &MemoryBlock{contents: make([]byte, length), readOnly: readOnly}
}

// NewMemoryBlockFrom wraps existing contents (e.g. a loaded ROM image).
func NewMemoryBlockFrom(contents []byte, readOnly bool) *MemoryBlock {
	return &MemoryBlock{contents: contents, readOnly: readOnly}
}

func (m *MemoryBlock) Len() uint64 {
	return uint64(len(m.contents))
}

func (m *MemoryBlock) Read(relAddr uint64, buf []byte) error {
	copy(buf, m.contents[relAddr:relAddr+uint64(len(buf))])
	return nil
}

func (m *MemoryBlock) Write(relAddr uint64, buf []byte) error {
	if m.readOnly {
		return coreerr.New(coreerr.Breakpoint, "write to read-only memory block")
	}
	copy(m.contents[relAddr:relAddr+uint64(len(buf))], buf)
	return nil
}

// Raw exposes the underlying slice for bulk loading (e.g. ROM images).
func (m *MemoryBlock) Raw() []byte {
	return m.contents
}
