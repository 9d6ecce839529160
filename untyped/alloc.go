package untyped

//
// Best-fit bookkeeping over the general-purpose untypeds. The kernel
// does the real accounting; this table mirrors it so the executor can
// pick a region for each create operation and know what is left to
// hand to children afterwards.
//

import (
	"fmt"

	"github.com/dustin/go-humanize"

	db "taproot/debug"
	"taproot/sel4"
)

type Info struct {
	CPtr             sel4.CPtr
	OriginalSizeBits uint8
	BytesLeft        sel4.Word
	// Physical base, meaningful for device untypeds only.
	Paddr sel4.Word
}

func (i Info) String() string {
	return fmt.Sprintf("{%v 2^%d left %v paddr %#x}", i.CPtr, i.OriginalSizeBits, humanize.IBytes(uint64(i.BytesLeft)), i.Paddr)
}

type Table struct {
	utds []Info
}

func NewTable(utds []Info) *Table {
	return &Table{utds: utds}
}

func (t *Table) Len() int {
	return len(t.utds)
}

func (t *Table) Get(i int) *Info {
	return &t.utds[i]
}

// FindBestFit returns the index of the untyped with the smallest
// BytesLeft that still fits bytesRequired. Ties go to the
// first-scanned entry, which is boot order.
func (t *Table) FindBestFit(bytesRequired sel4.Word) (int, bool) {
	bestIdx := -1
	bestSize := ^sel4.Word(0)
	for i := range t.utds {
		left := t.utds[i].BytesLeft
		if left >= bytesRequired && left < bestSize {
			bestIdx = i
			bestSize = left
		}
	}
	if bestIdx == -1 {
		db.DPrintf(db.ALLOC_ERR, "no fit for %v across %d untypeds", humanize.IBytes(uint64(bytesRequired)), len(t.utds))
		return 0, false
	}
	return bestIdx, true
}

// Consume records that bytes were retyped out of untyped i. The plan
// supplies the kernel's alignment-adjusted consumption, so no rounding
// happens here.
func (t *Table) Consume(i int, bytes sel4.Word) {
	u := &t.utds[i]
	if bytes > u.BytesLeft {
		db.DFatalf("consume %d from %v", bytes, u)
	}
	u.BytesLeft -= bytes
	db.DPrintf(db.ALLOC, "consume %v from idx %d -> %v", humanize.IBytes(uint64(bytes)), i, u)
}
