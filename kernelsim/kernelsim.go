package kernelsim

//
// A hosted model of the microkernel, implementing sel4.Calls. It
// exists so the bootstrapper can be driven end to end off-hardware:
// objects are tracked the way the kernel tracks them (slots, untyped
// watermarks, per-VSpace mappings), and "physical" memory is an
// anonymous mapping so descriptor pages and binary chunks are real
// bytes that tests can read back.
//
// The root task is single threaded, so the simulator is too.
//

import (
	"fmt"

	db "taproot/debug"
	"taproot/sel4"
)

type object struct {
	typ sel4.Tobj

	// untyped
	sizeBits  uint8
	paddr     sel4.Word
	watermark sel4.Word
	device    bool

	// cnode: sizeBits is log2 of the slot count
	guard  sel4.Word
	cslots map[sel4.Word]*capability

	// frame
	buf          []byte
	mappedVSpace *object
	mappedVaddr  sel4.Word

	// vspace
	asidAssigned bool
	pages        map[sel4.Word]*object
	structures   map[sel4.Word]sel4.Tobj

	// tcb
	regs     sel4.UserContext
	cspace   sel4.CPtr
	vspace   sel4.CPtr
	ipcFrame sel4.CPtr
	ipcAddr  sel4.Word
	running  bool
}

type capability struct {
	obj    *object
	rights sel4.CapRights
	badge  sel4.Word
}

type Call struct {
	Name string
	Args []sel4.Word
}

func (c Call) String() string {
	return fmt.Sprintf("%v%v", c.Name, c.Args)
}

type Kernel struct {
	ad       *sel4.ArchDef
	pageBits int

	arena     []byte
	rootCNode *object
	rootVSpace *object
	bi        *sel4.BootInfo

	ncalls int
	failAt map[int]sel4.Terror
	trace  []Call
	halted bool
}

func (k *Kernel) PageSize() sel4.Word {
	return sel4.Word(1) << k.pageBits
}

// intercept implements call counting, tracing, and fault injection.
// Every kernel invocation passes through here first.
func (k *Kernel) intercept(name string, args ...sel4.Word) (sel4.Terror, bool) {
	k.ncalls++
	k.trace = append(k.trace, Call{Name: name, Args: args})
	db.DPrintf(db.SIM, "call %d %v%v", k.ncalls, name, args)
	if err, ok := k.failAt[k.ncalls]; ok {
		db.DPrintf(db.SIM, "inject %v at call %d", err, k.ncalls)
		return err, true
	}
	return sel4.NoError, false
}

// FailCallAt injects a failure into the n-th kernel invocation
// (1-based, counting every sel4.Calls method except
// DebugDumpScheduler, which is not an invocation).
func (k *Kernel) FailCallAt(n int, err sel4.Terror) {
	k.failAt[n] = err
}

func (k *Kernel) CallCount() int {
	return k.ncalls
}

func (k *Kernel) Trace() []Call {
	return k.trace
}

func (k *Kernel) TraceCalls(name string) []Call {
	cs := make([]Call, 0)
	for _, c := range k.trace {
		if c.Name == name {
			cs = append(cs, c)
		}
	}
	return cs
}

// rootSlot resolves an absolute CPtr in the root CNode.
func (k *Kernel) rootSlot(c sel4.CPtr) *capability {
	return k.rootCNode.cslots[sel4.Word(c)]
}

// lookupCNode resolves (root, depth) to the CNode whose slots a CNode
// invocation addresses. depth equal to the word size addresses
// through the root CNode itself; depth zero means the root cap is the
// target CNode. Guard arithmetic is not modeled; the low bits of the
// index select the slot.
func (k *Kernel) lookupCNode(root sel4.CPtr, index sel4.Word, depth sel4.Word) (*object, sel4.Word, sel4.Terror) {
	rootCap := k.rootSlot(root)
	if rootCap == nil || rootCap.obj.typ != sel4.ObjCNode {
		return nil, 0, sel4.ErrInvalidCapability
	}
	cn := rootCap.obj
	slot := index
	if cn != k.rootCNode {
		slot = index & ((sel4.Word(1) << cn.sizeBits) - 1)
	}
	return cn, slot, sel4.NoError
}

func (k *Kernel) objBytes(typ sel4.Tobj, sizeBits sel4.Word) (sel4.Word, sel4.Terror) {
	switch typ {
	case sel4.ObjUntyped:
		return sel4.Word(1) << sizeBits, sel4.NoError
	case sel4.ObjCNode:
		// sizeBits is the slot count's log2; a slot is 2^5 bytes.
		return sel4.Word(1) << (sizeBits + 5), sel4.NoError
	case sel4.ObjTCB:
		return 1 << 11, sel4.NoError
	case sel4.ObjEndpoint:
		return 1 << 4, sel4.NoError
	case sel4.ObjFrame, sel4.ObjVSpace, sel4.ObjASIDPool,
		sel4.ObjPageStructure1, sel4.ObjPageStructure2, sel4.ObjPageStructure3:
		return k.PageSize(), sel4.NoError
	default:
		return 0, sel4.ErrInvalidArgument
	}
}

func alignUp(v, align sel4.Word) sel4.Word {
	return (v + align - 1) &^ (align - 1)
}

func (k *Kernel) newObject(typ sel4.Tobj, sizeBits sel4.Word, paddr sel4.Word, buf []byte) *object {
	o := &object{typ: typ, sizeBits: uint8(sizeBits), paddr: paddr, buf: buf}
	switch typ {
	case sel4.ObjCNode:
		o.cslots = make(map[sel4.Word]*capability)
	case sel4.ObjVSpace:
		o.pages = make(map[sel4.Word]*object)
		o.structures = make(map[sel4.Word]sel4.Tobj)
	}
	return o
}

func (k *Kernel) UntypedRetype(untyped sel4.CPtr, objType sel4.Tobj, sizeBits sel4.Word, destCNode sel4.CPtr, destIndex sel4.Word, destDepth sel4.Word, destOffset sel4.Word, numObjects sel4.Word) sel4.Terror {
	if err, ok := k.intercept("UntypedRetype", sel4.Word(untyped), sel4.Word(objType), sizeBits, sel4.Word(destCNode), destIndex, destDepth, destOffset, numObjects); ok {
		return err
	}
	utCap := k.rootSlot(untyped)
	if utCap == nil || utCap.obj.typ != sel4.ObjUntyped {
		return sel4.ErrInvalidCapability
	}
	ut := utCap.obj
	if ut.device && objType != sel4.ObjFrame {
		return sel4.ErrIllegalOperation
	}
	// destDepth 0 means destCNode itself is the destination CNode;
	// otherwise destIndex/destDepth resolve to it.
	var cn *object
	if destDepth == 0 {
		destCap := k.rootSlot(destCNode)
		if destCap == nil || destCap.obj.typ != sel4.ObjCNode {
			return sel4.ErrFailedLookup
		}
		cn = destCap.obj
	} else {
		via, slot, err := k.lookupCNode(destCNode, destIndex, destDepth)
		if err != sel4.NoError {
			return err
		}
		c := via.cslots[slot]
		if c == nil || c.obj.typ != sel4.ObjCNode {
			return sel4.ErrFailedLookup
		}
		cn = c.obj
	}
	objBytes, err := k.objBytes(objType, sizeBits)
	if err != sel4.NoError {
		return err
	}
	for i := sel4.Word(0); i < numObjects; i++ {
		wm := alignUp(ut.watermark, objBytes)
		if wm+objBytes > sel4.Word(1)<<ut.sizeBits {
			return sel4.ErrNotEnoughMemory
		}
		slot := destOffset + i
		if cn.cslots[slot] != nil {
			return sel4.ErrDeleteFirst
		}
		paddr := ut.paddr + wm
		var buf []byte
		if !ut.device && (objType == sel4.ObjFrame || objType == sel4.ObjUntyped) {
			buf = k.arena[paddr : paddr+objBytes]
		}
		o := k.newObject(objType, sizeBits, paddr, buf)
		cn.cslots[slot] = &capability{obj: o, rights: sel4.AllRights}
		ut.watermark = wm + objBytes
	}
	return sel4.NoError
}

func (k *Kernel) resolveSrc(srcRoot sel4.CPtr, srcIndex sel4.Word, srcDepth sel4.Word) (*object, sel4.Word, *capability, sel4.Terror) {
	cn, slot, err := k.lookupCNode(srcRoot, srcIndex, srcDepth)
	if err != sel4.NoError {
		return nil, 0, nil, err
	}
	c := cn.cslots[slot]
	if c == nil {
		return nil, 0, nil, sel4.ErrFailedLookup
	}
	return cn, slot, c, sel4.NoError
}

func (k *Kernel) destSlot(destRoot sel4.CPtr, destIndex sel4.Word, destDepth sel4.Word) (*object, sel4.Word, sel4.Terror) {
	cn, slot, err := k.lookupCNode(destRoot, destIndex, destDepth)
	if err != sel4.NoError {
		return nil, 0, err
	}
	if cn.cslots[slot] != nil {
		return nil, 0, sel4.ErrDeleteFirst
	}
	return cn, slot, sel4.NoError
}

func (k *Kernel) CNodeCopy(destRoot sel4.CPtr, destIndex sel4.Word, destDepth sel4.Word, srcRoot sel4.CPtr, srcIndex sel4.Word, srcDepth sel4.Word, rights sel4.CapRights) sel4.Terror {
	if err, ok := k.intercept("CNodeCopy", sel4.Word(destRoot), destIndex, destDepth, sel4.Word(srcRoot), srcIndex, srcDepth); ok {
		return err
	}
	_, _, src, err := k.resolveSrc(srcRoot, srcIndex, srcDepth)
	if err != sel4.NoError {
		return err
	}
	cn, slot, err := k.destSlot(destRoot, destIndex, destDepth)
	if err != sel4.NoError {
		return err
	}
	cn.cslots[slot] = &capability{obj: src.obj, rights: rights, badge: src.badge}
	return sel4.NoError
}

func (k *Kernel) CNodeMint(destRoot sel4.CPtr, destIndex sel4.Word, destDepth sel4.Word, srcRoot sel4.CPtr, srcIndex sel4.Word, srcDepth sel4.Word, rights sel4.CapRights, badge sel4.Word) sel4.Terror {
	if err, ok := k.intercept("CNodeMint", sel4.Word(destRoot), destIndex, destDepth, sel4.Word(srcRoot), srcIndex, srcDepth, badge); ok {
		return err
	}
	_, _, src, err := k.resolveSrc(srcRoot, srcIndex, srcDepth)
	if err != sel4.NoError {
		return err
	}
	cn, slot, err := k.destSlot(destRoot, destIndex, destDepth)
	if err != sel4.NoError {
		return err
	}
	cn.cslots[slot] = &capability{obj: src.obj, rights: rights, badge: badge}
	return sel4.NoError
}

func (k *Kernel) CNodeMove(destRoot sel4.CPtr, destIndex sel4.Word, destDepth sel4.Word, srcRoot sel4.CPtr, srcIndex sel4.Word, srcDepth sel4.Word) sel4.Terror {
	if err, ok := k.intercept("CNodeMove", sel4.Word(destRoot), destIndex, destDepth, sel4.Word(srcRoot), srcIndex, srcDepth); ok {
		return err
	}
	srcCN, srcSlot, src, err := k.resolveSrc(srcRoot, srcIndex, srcDepth)
	if err != sel4.NoError {
		return err
	}
	cn, slot, err := k.destSlot(destRoot, destIndex, destDepth)
	if err != sel4.NoError {
		return err
	}
	cn.cslots[slot] = src
	delete(srcCN.cslots, srcSlot)
	return sel4.NoError
}

func (k *Kernel) CNodeMutate(destRoot sel4.CPtr, destIndex sel4.Word, destDepth sel4.Word, srcRoot sel4.CPtr, srcIndex sel4.Word, srcDepth sel4.Word, guard sel4.Word) sel4.Terror {
	if err, ok := k.intercept("CNodeMutate", sel4.Word(destRoot), destIndex, destDepth, sel4.Word(srcRoot), srcIndex, srcDepth, guard); ok {
		return err
	}
	srcCN, srcSlot, src, err := k.resolveSrc(srcRoot, srcIndex, srcDepth)
	if err != sel4.NoError {
		return err
	}
	cn, slot, err := k.destSlot(destRoot, destIndex, destDepth)
	if err != sel4.NoError {
		return err
	}
	if src.obj.typ == sel4.ObjCNode {
		src.obj.guard = guard
	}
	cn.cslots[slot] = src
	delete(srcCN.cslots, srcSlot)
	return sel4.NoError
}

func (k *Kernel) TCBConfigure(tcb sel4.CPtr, faultEP sel4.CPtr, cspaceRoot sel4.CPtr, cspaceRootData sel4.Word, vspaceRoot sel4.CPtr, vspaceRootData sel4.Word, ipcBufferAddr sel4.Word, ipcBufferFrame sel4.CPtr) sel4.Terror {
	if err, ok := k.intercept("TCBConfigure", sel4.Word(tcb), sel4.Word(cspaceRoot), sel4.Word(vspaceRoot), ipcBufferAddr, sel4.Word(ipcBufferFrame)); ok {
		return err
	}
	c := k.rootSlot(tcb)
	if c == nil || c.obj.typ != sel4.ObjTCB {
		return sel4.ErrInvalidCapability
	}
	if cs := k.rootSlot(cspaceRoot); cs == nil || cs.obj.typ != sel4.ObjCNode {
		return sel4.ErrInvalidCapability
	}
	if vs := k.rootSlot(vspaceRoot); vs == nil || vs.obj.typ != sel4.ObjVSpace {
		return sel4.ErrInvalidCapability
	}
	t := c.obj
	t.cspace = cspaceRoot
	t.vspace = vspaceRoot
	t.ipcAddr = ipcBufferAddr
	t.ipcFrame = ipcBufferFrame
	return sel4.NoError
}

func (k *Kernel) TCBReadRegisters(tcb sel4.CPtr, suspend bool, count sel4.Word, regs *sel4.UserContext) sel4.Terror {
	if err, ok := k.intercept("TCBReadRegisters", sel4.Word(tcb), count); ok {
		return err
	}
	c := k.rootSlot(tcb)
	if c == nil || c.obj.typ != sel4.ObjTCB {
		return sel4.ErrInvalidCapability
	}
	*regs = c.obj.regs
	regs.NRegs = count
	if suspend {
		c.obj.running = false
	}
	return sel4.NoError
}

func (k *Kernel) TCBWriteRegisters(tcb sel4.CPtr, resume bool, count sel4.Word, regs *sel4.UserContext) sel4.Terror {
	if err, ok := k.intercept("TCBWriteRegisters", sel4.Word(tcb), count); ok {
		return err
	}
	c := k.rootSlot(tcb)
	if c == nil || c.obj.typ != sel4.ObjTCB {
		return sel4.ErrInvalidCapability
	}
	c.obj.regs = *regs
	if resume {
		c.obj.running = true
	}
	return sel4.NoError
}

func (k *Kernel) TCBResume(tcb sel4.CPtr) sel4.Terror {
	if err, ok := k.intercept("TCBResume", sel4.Word(tcb)); ok {
		return err
	}
	c := k.rootSlot(tcb)
	if c == nil || c.obj.typ != sel4.ObjTCB {
		return sel4.ErrInvalidCapability
	}
	c.obj.running = true
	return sel4.NoError
}

func (k *Kernel) TCBSuspend(tcb sel4.CPtr) sel4.Terror {
	if err, ok := k.intercept("TCBSuspend", sel4.Word(tcb)); ok {
		return err
	}
	c := k.rootSlot(tcb)
	if c == nil || c.obj.typ != sel4.ObjTCB {
		return sel4.ErrInvalidCapability
	}
	if tcb == sel4.CapInitThreadTCB {
		// Suspending the init thread halts the simulation; a repeat
		// suspend reports failure so a hosted halt loop terminates.
		if k.halted {
			return sel4.ErrIllegalOperation
		}
		k.halted = true
	}
	c.obj.running = false
	return sel4.NoError
}

func (k *Kernel) ASIDPoolAssign(pool sel4.CPtr, vspace sel4.CPtr) sel4.Terror {
	if err, ok := k.intercept("ASIDPoolAssign", sel4.Word(pool), sel4.Word(vspace)); ok {
		return err
	}
	p := k.rootSlot(pool)
	if p == nil || p.obj.typ != sel4.ObjASIDPool {
		return sel4.ErrInvalidCapability
	}
	v := k.rootSlot(vspace)
	if v == nil || v.obj.typ != sel4.ObjVSpace {
		return sel4.ErrInvalidCapability
	}
	if v.obj.asidAssigned {
		return sel4.ErrInvalidCapability
	}
	v.obj.asidAssigned = true
	return sel4.NoError
}

func (k *Kernel) PageStructureMap(objType sel4.Tobj, service sel4.CPtr, vspace sel4.CPtr, vaddr sel4.Word, attrs sel4.Tvmattr) sel4.Terror {
	if err, ok := k.intercept("PageStructureMap", sel4.Word(objType), sel4.Word(service), sel4.Word(vspace), vaddr); ok {
		return err
	}
	s := k.rootSlot(service)
	if s == nil || s.obj.typ != objType {
		return sel4.ErrInvalidCapability
	}
	v := k.rootSlot(vspace)
	if v == nil || v.obj.typ != sel4.ObjVSpace {
		return sel4.ErrInvalidCapability
	}
	if !v.obj.asidAssigned {
		return sel4.ErrFailedLookup
	}
	v.obj.structures[vaddr] = objType
	return sel4.NoError
}

func (k *Kernel) PageMap(frame sel4.CPtr, vspace sel4.CPtr, vaddr sel4.Word, rights sel4.CapRights, attrs sel4.Tvmattr) sel4.Terror {
	if err, ok := k.intercept("PageMap", sel4.Word(frame), sel4.Word(vspace), vaddr); ok {
		return err
	}
	f := k.rootSlot(frame)
	if f == nil || f.obj.typ != sel4.ObjFrame {
		return sel4.ErrInvalidCapability
	}
	v := k.rootSlot(vspace)
	if v == nil || v.obj.typ != sel4.ObjVSpace {
		return sel4.ErrInvalidCapability
	}
	if !v.obj.asidAssigned {
		return sel4.ErrFailedLookup
	}
	if vaddr&(k.PageSize()-1) != 0 {
		return sel4.ErrAlignmentError
	}
	if f.obj.mappedVSpace != nil {
		return sel4.ErrInvalidCapability
	}
	if v.obj.pages[vaddr] != nil {
		return sel4.ErrDeleteFirst
	}
	v.obj.pages[vaddr] = f.obj
	f.obj.mappedVSpace = v.obj
	f.obj.mappedVaddr = vaddr
	return sel4.NoError
}

func (k *Kernel) PageUnmap(frame sel4.CPtr) sel4.Terror {
	if err, ok := k.intercept("PageUnmap", sel4.Word(frame)); ok {
		return err
	}
	f := k.rootSlot(frame)
	if f == nil || f.obj.typ != sel4.ObjFrame {
		return sel4.ErrInvalidCapability
	}
	if f.obj.mappedVSpace != nil {
		delete(f.obj.mappedVSpace.pages, f.obj.mappedVaddr)
		f.obj.mappedVSpace = nil
		f.obj.mappedVaddr = 0
	}
	return sel4.NoError
}

func (k *Kernel) DebugDumpScheduler() {
	for slot, c := range k.rootCNode.cslots {
		if c.obj.typ == sel4.ObjTCB {
			db.DPrintf(db.ALWAYS, "tcb slot %d running %t ip %#x sp %#x", slot, c.obj.running, c.obj.regs.Regs[k.ad.IPIdx], c.obj.regs.Regs[k.ad.SPIdx])
		}
	}
}
