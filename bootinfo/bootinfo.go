package bootinfo

//
// Parse the kernel's boot descriptor into the tables the executor
// works from: the empty slot range, the general-purpose and device
// untypeds, and any extended tags we recognize.
//

import (
	"encoding/binary"

	db "taproot/debug"
	"taproot/sel4"
	"taproot/serr"
	"taproot/untyped"
)

type Tables struct {
	FirstEmptySlot  sel4.Word
	NumEmptySlots   sel4.Word
	UserImageFrames sel4.SlotRegion
	GP              []untyped.Info
	Device          []untyped.Info
	// From extended boot info; nil when the platform reported none.
	Framebuffer *sel4.FramebufferInfo
}

// Load classifies the boot descriptor's untypeds. Both arrays are
// capped at maxTracked, the descriptor page's entry capacity: an
// untyped the handoff descriptor cannot represent is useless to a
// child, so entries past the cap are dropped.
func Load(bi *sel4.BootInfo, maxTracked int, wordBytes int, order binary.ByteOrder) (*Tables, *serr.Err) {
	if bi == nil {
		return nil, serr.NewErr(serr.TErrBootInfo, "no boot descriptor")
	}
	t := &Tables{
		FirstEmptySlot:  bi.Empty.Start,
		NumEmptySlots:   bi.Empty.Size(),
		UserImageFrames: bi.UserImageFrames,
	}
	dropped := 0
	for i, ud := range bi.UntypedList {
		cptr := sel4.CPtr(bi.Untyped.Start + sel4.Word(i))
		if ud.IsDevice {
			if len(t.Device) >= maxTracked {
				dropped++
				continue
			}
			t.Device = append(t.Device, untyped.Info{
				CPtr:             cptr,
				OriginalSizeBits: ud.SizeBits,
				Paddr:            ud.Paddr,
			})
		} else {
			if len(t.GP) >= maxTracked {
				dropped++
				continue
			}
			t.GP = append(t.GP, untyped.Info{
				CPtr:             cptr,
				OriginalSizeBits: ud.SizeBits,
				BytesLeft:        sel4.Word(1) << ud.SizeBits,
			})
		}
	}
	if dropped > 0 {
		db.DPrintf(db.BOOTINFO, "dropped %d untypeds past descriptor capacity %d", dropped, maxTracked)
	}
	t.parseExtra(bi.Extra, wordBytes, order)
	db.DPrintf(db.BOOTINFO, "slots [%d, %d) gp %d device %d fb %v", t.FirstEmptySlot, t.FirstEmptySlot+t.NumEmptySlots, len(t.GP), len(t.Device), t.Framebuffer != nil)
	return t, nil
}

// Extended boot info is a chain of {id, len} headers; len covers the
// header too. Unknown tags are skipped, a zero or short len ends the
// walk.
func (t *Tables) parseExtra(extra []byte, wordBytes int, order binary.ByteOrder) {
	hdrLen := 2 * wordBytes
	off := 0
	for off+hdrLen <= len(extra) {
		id := sel4.Tbootinfoid(word(extra, off, wordBytes, order))
		blobLen := int(word(extra, off+wordBytes, wordBytes, order))
		if blobLen < hdrLen || off+blobLen > len(extra) {
			return
		}
		payload := extra[off+hdrLen : off+blobLen]
		switch id {
		case sel4.BootInfoFramebuffer:
			if len(payload) >= sel4.FramebufferInfoBytes {
				t.Framebuffer = parseFramebuffer(payload, order)
			}
		case sel4.BootInfoPadding:
			// skip
		default:
			db.DPrintf(db.BOOTINFO, "skip extended tag %d len %d", id, blobLen)
		}
		off += blobLen
	}
}

func word(p []byte, off, wordBytes int, order binary.ByteOrder) sel4.Word {
	if wordBytes == 4 {
		return sel4.Word(order.Uint32(p[off:]))
	}
	return sel4.Word(order.Uint64(p[off:]))
}

func parseFramebuffer(p []byte, order binary.ByteOrder) *sel4.FramebufferInfo {
	return &sel4.FramebufferInfo{
		Addr:   order.Uint64(p[0:]),
		Pitch:  order.Uint32(p[8:]),
		Width:  order.Uint32(p[12:]),
		Height: order.Uint32(p[16:]),
		Bpp:    p[20],
		Type:   p[21],
	}
}
