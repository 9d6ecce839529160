package executor

//
// The operation executor: interprets the generator's program against
// the untyped allocator, the mapping shims, and the kernel. All state
// lives in one Executor value owned by the boot sequence; any
// operation failure is final.
//

import (
	"fmt"
	"math/bits"

	"taproot/bootinfo"
	db "taproot/debug"
	"taproot/handoff"
	"taproot/mapshim"
	"taproot/plan"
	"taproot/sel4"
	"taproot/serr"
	"taproot/untyped"
)

// Image describes where the linker put the root task's own pages.
type Image struct {
	// First mapped virtual address; the first user-image frame backs
	// this page.
	LowestVaddr sel4.Word
	// The page-aligned scratch buffer, unmapped at startup so frames
	// can be temporarily mapped there.
	FreePageVaddr sel4.Word
}

type Executor struct {
	kern     sel4.Calls
	mem      sel4.VMem
	shims    *mapshim.Registry
	tbl      *bootinfo.Tables
	gp       *untyped.Table
	layout   handoff.Layout
	pageBits int
	wordBits sel4.Word
	img      Image

	firstEmptySlot sel4.Word

	gpDesc     *handoff.MemoryDescriptor
	deviceDesc *handoff.MemoryDescriptor
}

func New(kern sel4.Calls, mem sel4.VMem, shims *mapshim.Registry, tbl *bootinfo.Tables, layout handoff.Layout, pageBits int, wordBits int, img Image) *Executor {
	return &Executor{
		kern:           kern,
		mem:            mem,
		shims:          shims,
		tbl:            tbl,
		gp:             untyped.NewTable(tbl.GP),
		layout:         layout,
		pageBits:       pageBits,
		wordBits:       sel4.Word(wordBits),
		img:            img,
		firstEmptySlot: tbl.FirstEmptySlot,
		gpDesc:         handoff.NewMemoryDescriptor(layout),
		deviceDesc:     handoff.NewMemoryDescriptor(layout),
	}
}

// GP exposes the allocator table so callers can inspect residuals.
func (e *Executor) GP() *untyped.Table {
	return e.gp
}

// slot rebases a plan-relative slot index to an absolute slot.
func (e *Executor) slot(rel uint32) sel4.Word {
	return e.firstEmptySlot + sel4.Word(rel)
}

func (e *Executor) cptr(rel uint32) sel4.CPtr {
	return sel4.CPtr(e.slot(rel))
}

// FrameForVaddr translates an address in the root task's image to the
// capability of the frame backing it.
func (e *Executor) FrameForVaddr(vaddr sel4.Word) sel4.CPtr {
	return sel4.CPtr(e.tbl.UserImageFrames.Start + ((vaddr - e.img.LowestVaddr) >> e.pageBits))
}

// UnmapScratch tears down the image mapping of the scratch page so
// descriptor frames can be mapped there later.
func (e *Executor) UnmapScratch() *serr.Err {
	frame := e.FrameForVaddr(e.img.FreePageVaddr)
	return kernErr("unmap scratch", e.kern.PageUnmap(frame))
}

func kernErr(what string, t sel4.Terror) *serr.Err {
	if t == sel4.NoError {
		return nil
	}
	return serr.NewErr(serr.TErrKernel, fmt.Sprintf("%s: %v", what, t))
}

// Run executes the plan in order and stops at the first failure.
func (e *Executor) Run(p *plan.Plan) *serr.Err {
	for i := range p.Ops {
		op := &p.Ops[i]
		db.DPrintf(db.EXEC, "op %d: %v", i, op)
		if err := e.step(op); err != nil {
			db.DPrintf(db.EXEC_ERR, "op %d %v: %v", i, op, err)
			return err
		}
	}
	return nil
}

func (e *Executor) step(op *plan.CapOperation) *serr.Err {
	switch op.Op {
	case plan.TCreate, plan.TCNodeCreate:
		return e.doCreate(op)
	case plan.TCopy:
		return e.doCopy(op)
	case plan.TMint:
		return e.doMint(op)
	case plan.TMutate:
		return e.doMutate(op)
	case plan.TMap:
		return e.doMap(op)
	case plan.TBinaryChunkLoad:
		return e.doBinaryChunkLoad(op)
	case plan.TTCBSetup:
		return e.doTCBSetup(op)
	case plan.TMapFrame:
		return e.doMapFrame(op)
	case plan.TRetypeLeftoverGPUntypeds:
		return e.doRetypeLeftovers(op)
	case plan.TMoveDeviceUntypeds:
		return e.doMoveDeviceUntypeds(op)
	case plan.TPassGPMemoryInfo:
		return e.doPassMemoryInfo(&op.PassMemoryInfo, e.gpDesc)
	case plan.TPassDeviceMemoryInfo:
		return e.doPassMemoryInfo(&op.PassMemoryInfo, e.deviceDesc)
	case plan.TPassSystemInfo:
		return e.doPassSystemInfo(op)
	case plan.TTCBStart:
		return e.doTCBStart(op)
	default:
		return serr.NewErr(serr.TErrBuggyPlan, fmt.Sprintf("unknown op tag %#x", uint32(op.Op)))
	}
}

// doCreate serves both Create and CNodeCreate: a CNode is created as
// a plain object here, and the generator emits a Mutate right after
// to move it into place with its guard.
func (e *Executor) doCreate(op *plan.CapOperation) *serr.Err {
	c := &op.Create
	i, ok := e.gp.FindBestFit(c.BytesRequired)
	if !ok {
		return serr.NewErr(serr.TErrAllocFailed, fmt.Sprintf("%d bytes for %v", c.BytesRequired, c.CapType))
	}
	u := e.gp.Get(i)
	t := e.kern.UntypedRetype(u.CPtr, c.CapType, sel4.Word(c.SizeBits), sel4.CapInitThreadCNode, 0, 0, e.slot(c.Dest), 1)
	if err := kernErr("retype", t); err != nil {
		return err
	}
	e.gp.Consume(i, c.BytesRequired)
	return nil
}

func (e *Executor) doCopy(op *plan.CapOperation) *serr.Err {
	c := &op.Copy
	t := e.kern.CNodeCopy(e.cptr(c.DestRoot), sel4.Word(c.DestIndex), sel4.Word(c.DestDepth),
		sel4.CapInitThreadCNode, e.slot(c.Src), e.wordBits, sel4.AllRights)
	return kernErr("copy", t)
}

func (e *Executor) doMint(op *plan.CapOperation) *serr.Err {
	m := &op.Mint
	t := e.kern.CNodeMint(sel4.CapInitThreadCNode, e.slot(m.Dest), e.wordBits,
		sel4.CapInitThreadCNode, e.slot(m.Src), e.wordBits, sel4.DecodeRights(m.Rights), m.Badge)
	return kernErr("mint", t)
}

func (e *Executor) doMutate(op *plan.CapOperation) *serr.Err {
	m := &op.Mutate
	t := e.kern.CNodeMutate(sel4.CapInitThreadCNode, e.slot(m.Dest), e.wordBits,
		sel4.CapInitThreadCNode, e.slot(m.Src), e.wordBits, m.Guard)
	return kernErr("mutate", t)
}

func (e *Executor) doMap(op *plan.CapOperation) *serr.Err {
	m := &op.Map
	t, err := e.shims.Dispatch(m.Func, e.cptr(m.Service), e.cptr(m.VSpace), m.Vaddr)
	if err != nil {
		return err
	}
	return kernErr("map", t)
}

// doBinaryChunkLoad migrates a contiguous run of image frames into a
// child's VSpace. The pages stop being accessible from the root task;
// the generator puts child binaries in dedicated image pages so they
// can be donated.
func (e *Executor) doBinaryChunkLoad(op *plan.CapOperation) *serr.Err {
	b := &op.BinaryChunkLoad
	pageSz := sel4.Word(1) << e.pageBits
	vspace := e.cptr(b.DestVSpace)
	npages := (b.Length + pageSz - 1) >> e.pageBits
	for i := sel4.Word(0); i < npages; i++ {
		frame := e.FrameForVaddr(b.SrcVaddr + i*pageSz)
		if err := kernErr("chunk unmap", e.shims.UnmapPage(frame)); err != nil {
			return err
		}
		if err := kernErr("chunk map", e.shims.MapPage(frame, vspace, b.DestVaddr+i*pageSz)); err != nil {
			return err
		}
	}
	return nil
}

func (e *Executor) doTCBSetup(op *plan.CapOperation) *serr.Err {
	s := &op.TCBSetup
	tcb := e.cptr(s.TCB)
	t := e.kern.TCBConfigure(tcb, sel4.CapNull, e.cptr(s.CSpace), 0, e.cptr(s.VSpace), 0, s.IPCBufferAddr, e.cptr(s.IPCBuffer))
	if err := kernErr("tcb configure", t); err != nil {
		return err
	}
	ad := e.shims.ArchDef()
	var ctx sel4.UserContext
	if err := kernErr("tcb read regs", e.kern.TCBReadRegisters(tcb, false, ad.NRegs, &ctx)); err != nil {
		return err
	}
	ad.InitContext(&ctx, s.EntryAddr, s.StackPointerAddr, s.Arg0, s.Arg1, s.Arg2)
	// resume=false: the thread stays suspended until TCBStart.
	return kernErr("tcb write regs", e.kern.TCBWriteRegisters(tcb, false, ad.NRegs, &ctx))
}

func (e *Executor) doMapFrame(op *plan.CapOperation) *serr.Err {
	f := &op.MapFrame
	return kernErr("map frame", e.shims.MapPage(e.cptr(f.Frame), e.cptr(f.VSpace), f.Vaddr))
}

// doRetypeLeftovers breaks every general-purpose residual into its
// power-of-two blocks and retypes the largest ones into the child's
// CNode. Bits are walked ascending and slots written descending, so
// when slots (or the descriptor page) run short the smallest blocks
// are dropped and the survivors land in descending size order.
func (e *Executor) doRetypeLeftovers(op *plan.CapOperation) *serr.Err {
	r := &op.RetypeLeftovers

	totalBlocks := 0
	for i := 0; i < e.gp.Len(); i++ {
		totalBlocks += bits.OnesCount64(uint64(e.gp.Get(i).BytesLeft))
	}
	numSlots := 0
	if r.EndSlot > r.StartSlot {
		numSlots = int(r.EndSlot - r.StartSlot)
	}
	if c := e.layout.EntryCapacity(); numSlots > c {
		numSlots = c
	}
	skip := 0
	if totalBlocks > numSlots {
		skip = totalBlocks - numSlots
		db.DPrintf(db.HANDOFF, "dropping %d smallest leftover blocks (%d blocks, %d slots)", skip, totalBlocks, numSlots)
	}

	sizes := make([]sel4.Word, 0, totalBlocks-skip)
	destSlot := sel4.Word(r.EndSlot) - 1
	for b := 0; b < int(e.wordBits); b++ {
		for i := 0; i < e.gp.Len(); i++ {
			u := e.gp.Get(i)
			if u.BytesLeft&(sel4.Word(1)<<b) == 0 {
				continue
			}
			if skip > 0 {
				skip--
				continue
			}
			t := e.kern.UntypedRetype(u.CPtr, sel4.ObjUntyped, sel4.Word(b),
				e.cptr(r.CNodeDest), 0, sel4.Word(r.CNodeDepth), destSlot, 1)
			if err := kernErr("leftover retype", t); err != nil {
				return err
			}
			sizes = append(sizes, sel4.Word(b))
			destSlot--
		}
	}

	// Descriptor entries follow slot order: descending sizes.
	for i := len(sizes) - 1; i >= 0; i-- {
		if !e.gpDesc.Append(handoff.MemoryEntry{SizeBits: sizes[i]}) {
			return serr.NewErr(serr.TErrBuggyPlan, "gp descriptor overflow")
		}
	}
	db.DPrintf(db.HANDOFF, "retyped %d leftover untypeds into cnode %d", len(sizes), r.CNodeDest)
	return nil
}

// doMoveDeviceUntypeds hands device untypeds over unchanged; their
// physical addresses are what make them useful.
func (e *Executor) doMoveDeviceUntypeds(op *plan.CapOperation) *serr.Err {
	m := &op.MoveDevice
	slot := sel4.Word(m.StartSlot)
	for _, d := range e.tbl.Device {
		if slot >= sel4.Word(m.EndSlot) {
			db.DPrintf(db.HANDOFF, "out of device slots, dropping remaining untypeds")
			break
		}
		if !e.deviceDesc.Append(handoff.MemoryEntry{SizeBits: sel4.Word(d.OriginalSizeBits), Paddr: d.Paddr}) {
			return serr.NewErr(serr.TErrBuggyPlan, "device descriptor overflow")
		}
		t := e.kern.CNodeMove(e.cptr(m.CNodeDest), slot, sel4.Word(m.CNodeDepth),
			sel4.CapInitThreadCNode, sel4.Word(d.CPtr), e.wordBits)
		if err := kernErr("device move", t); err != nil {
			return err
		}
		slot++
	}
	return nil
}

// passPage runs the descriptor handoff dance: map the pre-allocated
// frame at the scratch address, fill it, unmap, then map it into the
// child at its published address.
func (e *Executor) passPage(frame sel4.CPtr, destVSpace sel4.CPtr, destVaddr sel4.Word, page []byte) *serr.Err {
	if err := kernErr("pass map scratch", e.shims.MapPage(frame, sel4.CapInitThreadVSpace, e.img.FreePageVaddr)); err != nil {
		return err
	}
	if err := e.mem.Write(e.img.FreePageVaddr, page); err != nil {
		return serr.NewErr(serr.TErrKernel, fmt.Sprintf("scratch write: %v", err))
	}
	if err := kernErr("pass unmap scratch", e.shims.UnmapPage(frame)); err != nil {
		return err
	}
	return kernErr("pass map child", e.shims.MapPage(frame, destVSpace, destVaddr))
}

func (e *Executor) doPassMemoryInfo(p *plan.PassMemoryInfoOp, desc *handoff.MemoryDescriptor) *serr.Err {
	db.DPrintf(db.HANDOFF, "pass memory info: %d entries to vaddr %#x", desc.NumEntries(), p.DestVaddr)
	return e.passPage(e.cptr(p.Frame), e.cptr(p.DestVSpace), p.DestVaddr, desc.Encode())
}

func (e *Executor) doPassSystemInfo(op *plan.CapOperation) *serr.Err {
	p := &op.PassSystemInfo
	d := &handoff.SystemDescriptor{}
	if p.PassFramebufferInfo && e.tbl.Framebuffer != nil {
		d.Framebuffer = *e.tbl.Framebuffer
		d.FramebufferPresent = true
	}
	db.DPrintf(db.HANDOFF, "pass system info: fb %t to vaddr %#x", d.FramebufferPresent, p.DestVaddr)
	return e.passPage(e.cptr(p.Frame), e.cptr(p.DestVSpace), p.DestVaddr, d.Encode(e.layout))
}

func (e *Executor) doTCBStart(op *plan.CapOperation) *serr.Err {
	return kernErr("tcb start", e.kern.TCBResume(e.cptr(op.TCBStart.TCB)))
}
