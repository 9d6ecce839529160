package handoff

//
// Child-visible descriptor pages. Each descriptor fills exactly one
// page and is written while the backing frame is mapped at the
// bootstrapper's scratch address, then handed to the child. Layouts
// are bit-exact: children of different provenance read these bytes
// directly.
//

import (
	"encoding/binary"
	"fmt"

	"taproot/sel4"
)

type Layout struct {
	PageSize  int
	WordBytes int
	Order     binary.ByteOrder
}

func NewLayout(pageSize, wordBytes int, order binary.ByteOrder) Layout {
	return Layout{PageSize: pageSize, WordBytes: wordBytes, Order: order}
}

// EntryCapacity is how many {size_bits, paddr} pairs fit in one page
// after the leading count word.
func (l Layout) EntryCapacity() int {
	return (l.PageSize - l.WordBytes) / (2 * l.WordBytes)
}

func (l Layout) putWord(p []byte, off int, w sel4.Word) int {
	switch l.WordBytes {
	case 4:
		l.Order.PutUint32(p[off:], uint32(w))
	case 8:
		l.Order.PutUint64(p[off:], uint64(w))
	default:
		panic(fmt.Sprintf("bad word size %d", l.WordBytes))
	}
	return off + l.WordBytes
}

func (l Layout) word(p []byte, off int) (sel4.Word, int) {
	switch l.WordBytes {
	case 4:
		return sel4.Word(l.Order.Uint32(p[off:])), off + l.WordBytes
	case 8:
		return sel4.Word(l.Order.Uint64(p[off:])), off + l.WordBytes
	default:
		panic(fmt.Sprintf("bad word size %d", l.WordBytes))
	}
}

type MemoryEntry struct {
	SizeBits sel4.Word
	// Zero for general-purpose entries; memory without a fixed address
	// is address-agnostic.
	Paddr sel4.Word
}

// MemoryDescriptor accumulates the untypeds handed to a child. Append
// refuses entries past the page's capacity; callers size their slot
// ranges so that never happens.
type MemoryDescriptor struct {
	l       Layout
	entries []MemoryEntry
}

func NewMemoryDescriptor(l Layout) *MemoryDescriptor {
	return &MemoryDescriptor{l: l}
}

func (d *MemoryDescriptor) Append(e MemoryEntry) bool {
	if len(d.entries) >= d.l.EntryCapacity() {
		return false
	}
	d.entries = append(d.entries, e)
	return true
}

func (d *MemoryDescriptor) NumEntries() int {
	return len(d.entries)
}

func (d *MemoryDescriptor) Entries() []MemoryEntry {
	return d.entries
}

// Encode lays the descriptor out as one page:
// num_entries word, then {size_bits, paddr} word pairs.
func (d *MemoryDescriptor) Encode() []byte {
	p := make([]byte, d.l.PageSize)
	off := d.l.putWord(p, 0, sel4.Word(len(d.entries)))
	for _, e := range d.entries {
		off = d.l.putWord(p, off, e.SizeBits)
		off = d.l.putWord(p, off, e.Paddr)
	}
	return p
}

func DecodeMemoryDescriptor(l Layout, p []byte) ([]MemoryEntry, error) {
	n, off := l.word(p, 0)
	if int(n) > l.EntryCapacity() {
		return nil, fmt.Errorf("num_entries %d exceeds capacity %d", n, l.EntryCapacity())
	}
	entries := make([]MemoryEntry, n)
	for i := range entries {
		entries[i].SizeBits, off = l.word(p, off)
		entries[i].Paddr, off = l.word(p, off)
	}
	return entries, nil
}

// SystemDescriptor: packed framebuffer record followed by a one-byte
// present flag.
type SystemDescriptor struct {
	Framebuffer        sel4.FramebufferInfo
	FramebufferPresent bool
}

func (d *SystemDescriptor) Encode(l Layout) []byte {
	p := make([]byte, l.PageSize)
	if d.FramebufferPresent {
		fb := &d.Framebuffer
		l.Order.PutUint64(p[0:], fb.Addr)
		l.Order.PutUint32(p[8:], fb.Pitch)
		l.Order.PutUint32(p[12:], fb.Width)
		l.Order.PutUint32(p[16:], fb.Height)
		p[20] = fb.Bpp
		p[21] = fb.Type
		p[sel4.FramebufferInfoBytes] = 1
	}
	return p
}

func DecodeSystemDescriptor(l Layout, p []byte) *SystemDescriptor {
	d := &SystemDescriptor{}
	d.FramebufferPresent = p[sel4.FramebufferInfoBytes] != 0
	d.Framebuffer = sel4.FramebufferInfo{
		Addr:   l.Order.Uint64(p[0:]),
		Pitch:  l.Order.Uint32(p[8:]),
		Width:  l.Order.Uint32(p[12:]),
		Height: l.Order.Uint32(p[16:]),
		Bpp:    p[20],
		Type:   p[21],
	}
	return d
}
