package kernelsim

//
// Construct the machine state the kernel would hand the root task:
// the root CNode with its initial caps, the root VSpace with the user
// image mapped at the link address, untyped caps, and the boot
// descriptor describing all of it.
//

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/sys/unix"

	db "taproot/debug"
	"taproot/sel4"
)

type UntypedConfig struct {
	SizeBits uint8
	Device   bool
	// Physical base for device untypeds; general-purpose regions are
	// placed in the arena automatically.
	Paddr sel4.Word
}

type Config struct {
	Arch        sel4.Tarch
	PageBits    int
	Untypeds    []UntypedConfig
	EmptySlots  sel4.SlotRegion
	LowestVaddr sel4.Word
	// Number of frames backing the root task's image, mapped
	// contiguously from LowestVaddr.
	NumImageFrames int
	// Emitted as an extended boot info tag when set.
	Framebuffer *sel4.FramebufferInfo
}

const (
	imageFrameSlot   = 16
	firstUntypedSlot = 40
)

func New(cfg *Config) (*Kernel, error) {
	ad, err := sel4.GetArchDef(cfg.Arch)
	if err != nil {
		return nil, err
	}
	k := &Kernel{
		ad:       ad,
		pageBits: cfg.PageBits,
		failAt:   make(map[int]sel4.Terror),
	}
	pageSz := sel4.Word(1) << cfg.PageBits

	// Arena: all general-purpose untypeds plus the image frames.
	arenaSz := sel4.Word(cfg.NumImageFrames) * pageSz
	for _, u := range cfg.Untypeds {
		if !u.Device {
			arenaSz += sel4.Word(1) << u.SizeBits
		}
	}
	if arenaSz > 0 {
		b, err := unix.Mmap(-1, 0, int(arenaSz), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
		if err != nil {
			return nil, fmt.Errorf("arena mmap: %w", err)
		}
		k.arena = b
	}

	k.rootCNode = k.newObject(sel4.ObjCNode, 0, 0, nil)
	k.rootVSpace = k.newObject(sel4.ObjVSpace, 0, 0, nil)
	k.rootVSpace.asidAssigned = true

	k.rootCNode.cslots[sel4.Word(sel4.CapInitThreadTCB)] = &capability{obj: k.newObject(sel4.ObjTCB, 0, 0, nil), rights: sel4.AllRights}
	k.rootCNode.cslots[sel4.Word(sel4.CapInitThreadCNode)] = &capability{obj: k.rootCNode, rights: sel4.AllRights}
	k.rootCNode.cslots[sel4.Word(sel4.CapInitThreadVSpace)] = &capability{obj: k.rootVSpace, rights: sel4.AllRights}
	k.rootCNode.cslots[sel4.Word(sel4.CapInitThreadASIDPool)] = &capability{obj: k.newObject(sel4.ObjASIDPool, 0, 0, nil), rights: sel4.AllRights}
	k.rootSlot(sel4.CapInitThreadTCB).obj.running = true

	// User image frames, mapped from the lowest link address.
	off := sel4.Word(0)
	for i := 0; i < cfg.NumImageFrames; i++ {
		f := k.newObject(sel4.ObjFrame, 0, off, k.arena[off:off+pageSz])
		vaddr := cfg.LowestVaddr + sel4.Word(i)*pageSz
		f.mappedVSpace = k.rootVSpace
		f.mappedVaddr = vaddr
		k.rootVSpace.pages[vaddr] = f
		k.rootCNode.cslots[imageFrameSlot+sel4.Word(i)] = &capability{obj: f, rights: sel4.AllRights}
		off += pageSz
	}

	// Untyped caps, boot order.
	uds := make([]sel4.UntypedDesc, 0, len(cfg.Untypeds))
	for i, u := range cfg.Untypeds {
		o := k.newObject(sel4.ObjUntyped, sel4.Word(u.SizeBits), 0, nil)
		if u.Device {
			o.device = true
			o.paddr = u.Paddr
		} else {
			o.paddr = off
			off += sel4.Word(1) << u.SizeBits
		}
		k.rootCNode.cslots[firstUntypedSlot+sel4.Word(i)] = &capability{obj: o, rights: sel4.AllRights}
		uds = append(uds, sel4.UntypedDesc{Paddr: u.Paddr, SizeBits: u.SizeBits, IsDevice: u.Device})
	}

	k.bi = &sel4.BootInfo{
		Empty:           cfg.EmptySlots,
		UserImageFrames: sel4.SlotRegion{Start: imageFrameSlot, End: imageFrameSlot + sel4.Word(cfg.NumImageFrames)},
		Untyped:         sel4.SlotRegion{Start: firstUntypedSlot, End: firstUntypedSlot + sel4.Word(len(cfg.Untypeds))},
		UntypedList:     uds,
	}
	if cfg.Framebuffer != nil {
		k.bi.Extra = framebufferBlob(cfg.Framebuffer)
	}
	db.DPrintf(db.SIM, "booted arena %d bytes, %d untypeds, %d image frames", arenaSz, len(cfg.Untypeds), cfg.NumImageFrames)
	return k, nil
}

func framebufferBlob(fb *sel4.FramebufferInfo) []byte {
	blobLen := 16 + sel4.FramebufferInfoBytes
	p := make([]byte, blobLen)
	binary.LittleEndian.PutUint64(p[0:], uint64(sel4.BootInfoFramebuffer))
	binary.LittleEndian.PutUint64(p[8:], uint64(blobLen))
	binary.LittleEndian.PutUint64(p[16:], fb.Addr)
	binary.LittleEndian.PutUint32(p[24:], fb.Pitch)
	binary.LittleEndian.PutUint32(p[28:], fb.Width)
	binary.LittleEndian.PutUint32(p[32:], fb.Height)
	p[36] = fb.Bpp
	p[37] = fb.Type
	return p
}

func (k *Kernel) BootInfo() *sel4.BootInfo {
	return k.bi
}

func (k *Kernel) Close() error {
	if k.arena == nil {
		return nil
	}
	b := k.arena
	k.arena = nil
	return unix.Munmap(b)
}

// Mem gives the root task's view of its own VSpace, page by page.
type Mem struct {
	k *Kernel
}

func (k *Kernel) Mem() *Mem {
	return &Mem{k: k}
}

func (m *Mem) frameAt(vaddr sel4.Word) (*object, sel4.Word, error) {
	pageSz := m.k.PageSize()
	base := vaddr &^ (pageSz - 1)
	f := m.k.rootVSpace.pages[base]
	if f == nil {
		return nil, 0, fmt.Errorf("fault at %#x: unmapped", vaddr)
	}
	return f, vaddr - base, nil
}

func (m *Mem) Read(vaddr sel4.Word, p []byte) error {
	for len(p) > 0 {
		f, off, err := m.frameAt(vaddr)
		if err != nil {
			return err
		}
		n := copy(p, f.buf[off:])
		p = p[n:]
		vaddr += sel4.Word(n)
	}
	return nil
}

func (m *Mem) Write(vaddr sel4.Word, p []byte) error {
	for len(p) > 0 {
		f, off, err := m.frameAt(vaddr)
		if err != nil {
			return err
		}
		n := copy(f.buf[off:], p)
		p = p[n:]
		vaddr += sel4.Word(n)
	}
	return nil
}
