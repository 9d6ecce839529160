package kernelsim

//
// Read-only views into the simulated kernel state, for tests. None of
// this exists on hardware.
//

import (
	"taproot/sel4"
)

type SlotInfo struct {
	Type     sel4.Tobj
	SizeBits uint8
	Paddr    sel4.Word
	Badge    sel4.Word
	Rights   sel4.CapRights
	Guard    sel4.Word
	Device   bool
}

func capInfo(c *capability) *SlotInfo {
	return &SlotInfo{
		Type:     c.obj.typ,
		SizeBits: c.obj.sizeBits,
		Paddr:    c.obj.paddr,
		Badge:    c.badge,
		Rights:   c.rights,
		Guard:    c.obj.guard,
		Device:   c.obj.device,
	}
}

// Slot describes the capability at an absolute root-CNode slot.
func (k *Kernel) Slot(c sel4.CPtr) (*SlotInfo, bool) {
	cap := k.rootSlot(c)
	if cap == nil {
		return nil, false
	}
	return capInfo(cap), true
}

// CNodeSlot describes a slot inside a CNode named by a root-CNode cap.
func (k *Kernel) CNodeSlot(cnode sel4.CPtr, slot sel4.Word) (*SlotInfo, bool) {
	cn := k.rootSlot(cnode)
	if cn == nil || cn.obj.typ != sel4.ObjCNode {
		return nil, false
	}
	c := cn.obj.cslots[slot]
	if c == nil {
		return nil, false
	}
	return capInfo(c), true
}

type TCBInfo struct {
	Running  bool
	Regs     sel4.UserContext
	CSpace   sel4.CPtr
	VSpace   sel4.CPtr
	IPCFrame sel4.CPtr
	IPCAddr  sel4.Word
}

func (k *Kernel) TCB(c sel4.CPtr) (*TCBInfo, bool) {
	cap := k.rootSlot(c)
	if cap == nil || cap.obj.typ != sel4.ObjTCB {
		return nil, false
	}
	t := cap.obj
	return &TCBInfo{
		Running:  t.running,
		Regs:     t.regs,
		CSpace:   t.cspace,
		VSpace:   t.vspace,
		IPCFrame: t.ipcFrame,
		IPCAddr:  t.ipcAddr,
	}, true
}

func (k *Kernel) vspaceObj(vspace sel4.CPtr) *object {
	if vspace == sel4.CapInitThreadVSpace {
		return k.rootVSpace
	}
	c := k.rootSlot(vspace)
	if c == nil || c.obj.typ != sel4.ObjVSpace {
		return nil
	}
	return c.obj
}

func (k *Kernel) VSpaceMapped(vspace sel4.CPtr, vaddr sel4.Word) bool {
	v := k.vspaceObj(vspace)
	return v != nil && v.pages[vaddr] != nil
}

// VSpacePage returns a copy of the page mapped at vaddr.
func (k *Kernel) VSpacePage(vspace sel4.CPtr, vaddr sel4.Word) ([]byte, bool) {
	v := k.vspaceObj(vspace)
	if v == nil {
		return nil, false
	}
	f := v.pages[vaddr]
	if f == nil || f.buf == nil {
		return nil, false
	}
	p := make([]byte, len(f.buf))
	copy(p, f.buf)
	return p, true
}

func (k *Kernel) VSpaceStructure(vspace sel4.CPtr, vaddr sel4.Word) (sel4.Tobj, bool) {
	v := k.vspaceObj(vspace)
	if v == nil {
		return 0, false
	}
	t, ok := v.structures[vaddr]
	return t, ok
}

func (k *Kernel) Halted() bool {
	return k.halted
}
