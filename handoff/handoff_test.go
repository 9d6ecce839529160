package handoff_test

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"

	"taproot/handoff"
	"taproot/sel4"
)

func layout64() handoff.Layout {
	return handoff.NewLayout(4096, 8, binary.LittleEndian)
}

func TestEntryCapacity(t *testing.T) {
	assert.Equal(t, 255, layout64().EntryCapacity())
	l32 := handoff.NewLayout(4096, 4, binary.LittleEndian)
	assert.Equal(t, 511, l32.EntryCapacity())
}

func TestMemoryDescriptorLayout(t *testing.T) {
	l := layout64()
	d := handoff.NewMemoryDescriptor(l)
	assert.True(t, d.Append(handoff.MemoryEntry{SizeBits: 18}))
	assert.True(t, d.Append(handoff.MemoryEntry{SizeBits: 12, Paddr: 0xfe000000}))

	p := d.Encode()
	assert.Equal(t, 4096, len(p))
	assert.Equal(t, uint64(2), binary.LittleEndian.Uint64(p[0:]))
	assert.Equal(t, uint64(18), binary.LittleEndian.Uint64(p[8:]))
	assert.Equal(t, uint64(0), binary.LittleEndian.Uint64(p[16:]))
	assert.Equal(t, uint64(12), binary.LittleEndian.Uint64(p[24:]))
	assert.Equal(t, uint64(0xfe000000), binary.LittleEndian.Uint64(p[32:]))

	entries, err := handoff.DecodeMemoryDescriptor(l, p)
	assert.Nil(t, err)
	assert.Equal(t, d.Entries(), entries)
}

func TestMemoryDescriptorFull(t *testing.T) {
	l := layout64()
	d := handoff.NewMemoryDescriptor(l)
	for i := 0; i < l.EntryCapacity(); i++ {
		assert.True(t, d.Append(handoff.MemoryEntry{SizeBits: 12}))
	}
	assert.False(t, d.Append(handoff.MemoryEntry{SizeBits: 12}))
	assert.Equal(t, l.EntryCapacity(), d.NumEntries())
}

func TestSystemDescriptorPacked(t *testing.T) {
	l := layout64()
	d := &handoff.SystemDescriptor{
		Framebuffer: sel4.FramebufferInfo{
			Addr:   0xfd000000,
			Pitch:  4096,
			Width:  1024,
			Height: 768,
			Bpp:    32,
			Type:   1,
		},
		FramebufferPresent: true,
	}
	p := d.Encode(l)
	assert.Equal(t, 4096, len(p))
	// Packed, no padding: u64 addr, u32 pitch/width/height, u8 bpp/type.
	assert.Equal(t, uint64(0xfd000000), binary.LittleEndian.Uint64(p[0:]))
	assert.Equal(t, uint32(4096), binary.LittleEndian.Uint32(p[8:]))
	assert.Equal(t, uint32(1024), binary.LittleEndian.Uint32(p[12:]))
	assert.Equal(t, uint32(768), binary.LittleEndian.Uint32(p[16:]))
	assert.Equal(t, uint8(32), p[20])
	assert.Equal(t, uint8(1), p[21])
	assert.Equal(t, uint8(1), p[22])

	rt := handoff.DecodeSystemDescriptor(l, p)
	assert.Equal(t, d, rt)
}

func TestSystemDescriptorAbsent(t *testing.T) {
	l := layout64()
	d := &handoff.SystemDescriptor{
		Framebuffer:        sel4.FramebufferInfo{Addr: 0xdeadbeef},
		FramebufferPresent: false,
	}
	p := d.Encode(l)
	// Blob stays zeroed when not passed.
	for i := 0; i < 64; i++ {
		assert.Equal(t, byte(0), p[i])
	}
	rt := handoff.DecodeSystemDescriptor(l, p)
	assert.False(t, rt.FramebufferPresent)
}
