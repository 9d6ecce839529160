package untyped_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"taproot/sel4"
	"taproot/untyped"
)

func newTable(sizeBits ...uint8) *untyped.Table {
	utds := make([]untyped.Info, 0, len(sizeBits))
	for i, sb := range sizeBits {
		utds = append(utds, untyped.Info{
			CPtr:             sel4.CPtr(100 + i),
			OriginalSizeBits: sb,
			BytesLeft:        sel4.Word(1) << sb,
		})
	}
	return untyped.NewTable(utds)
}

func TestBestFitPicksSmallestFitting(t *testing.T) {
	tbl := newTable(20, 16, 24)
	i, ok := tbl.FindBestFit(1 << 14)
	assert.True(t, ok)
	assert.Equal(t, 1, i)

	i, ok = tbl.FindBestFit(1 << 17)
	assert.True(t, ok)
	assert.Equal(t, 0, i)

	i, ok = tbl.FindBestFit(1 << 22)
	assert.True(t, ok)
	assert.Equal(t, 2, i)
}

func TestBestFitTieBreaksBootOrder(t *testing.T) {
	tbl := newTable(20, 20, 20)
	i, ok := tbl.FindBestFit(1 << 12)
	assert.True(t, ok)
	assert.Equal(t, 0, i)
}

func TestBestFitNone(t *testing.T) {
	tbl := newTable(16)
	_, ok := tbl.FindBestFit(1 << 17)
	assert.False(t, ok)

	empty := untyped.NewTable(nil)
	_, ok = empty.FindBestFit(1)
	assert.False(t, ok)
}

func TestConsumeShrinksAndRedirects(t *testing.T) {
	tbl := newTable(20, 16)
	// Consume most of the big one; further small allocations should
	// now prefer whichever has the smaller residual.
	i, ok := tbl.FindBestFit(1 << 19)
	assert.True(t, ok)
	assert.Equal(t, 0, i)
	tbl.Consume(i, 1<<19)
	assert.Equal(t, sel4.Word(1<<19), tbl.Get(0).BytesLeft)

	i, ok = tbl.FindBestFit(1 << 12)
	assert.True(t, ok)
	assert.Equal(t, 1, i, "2^16 residual is the tighter fit")
}

func TestResidualsMonotonic(t *testing.T) {
	tbl := newTable(20)
	prev := tbl.Get(0).BytesLeft
	for _, sz := range []sel4.Word{1 << 12, 1 << 14, 1 << 12, 1 << 16} {
		i, ok := tbl.FindBestFit(sz)
		assert.True(t, ok)
		tbl.Consume(i, sz)
		assert.LessOrEqual(t, tbl.Get(0).BytesLeft, prev)
		prev = tbl.Get(0).BytesLeft
	}
	// Conservation: consumed plus residual covers the region.
	assert.Equal(t, sel4.Word(1<<20), prev+(1<<12)+(1<<14)+(1<<12)+(1<<16))
}
