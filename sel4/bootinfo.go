package sel4

//
// The boot descriptor the kernel hands the initial thread. The fixed
// portion enumerates free slots, untyped regions, and the frames
// backing the root task's image. Extended boot info follows as a chain
// of {id, len} tagged blobs.
//

type UntypedDesc struct {
	Paddr    Word
	SizeBits uint8
	IsDevice bool
}

type BootInfo struct {
	Empty           SlotRegion
	UserImageFrames SlotRegion
	Untyped         SlotRegion
	UntypedList     []UntypedDesc
	// Extended boot info, concatenated {BootInfoHeader, payload} blobs.
	Extra []byte
}

// Extended boot info tags.
type Tbootinfoid Word

const (
	BootInfoPadding     Tbootinfoid = 0
	BootInfoFramebuffer Tbootinfoid = 1
)

// Header of one extended boot info blob. Len covers the header itself
// plus the payload.
type BootInfoHeader struct {
	ID  Tbootinfoid
	Len Word
}

// Framebuffer record as the platform layer reports it and as the
// system descriptor page hands it to children. The encoded form is
// packed: 8 + 4 + 4 + 4 + 1 + 1 = 22 bytes.
type FramebufferInfo struct {
	Addr   uint64
	Pitch  uint32
	Width  uint32
	Height uint32
	Bpp    uint8
	Type   uint8
}

const FramebufferInfoBytes = 22
