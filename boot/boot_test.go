package boot_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taproot/boot"
	"taproot/executor"
	"taproot/kernelsim"
	"taproot/plan"
	"taproot/sel4"
	"taproot/serr"
)

const (
	pageSz      = sel4.Word(0x1000)
	lowestVaddr = sel4.Word(0x400000)
	firstEmpty  = sel4.Word(100)
)

func newKernel(t *testing.T, emptySlots sel4.Word) *kernelsim.Kernel {
	k, err := kernelsim.New(&kernelsim.Config{
		Arch:           sel4.ArchX8664,
		PageBits:       12,
		Untypeds:       []kernelsim.UntypedConfig{{SizeBits: 20}},
		EmptySlots:     sel4.SlotRegion{Start: firstEmpty, End: firstEmpty + emptySlots},
		LowestVaddr:    lowestVaddr,
		NumImageFrames: 4,
	})
	require.NoError(t, err)
	return k
}

func img() executor.Image {
	return executor.Image{LowestVaddr: lowestVaddr, FreePageVaddr: lowestVaddr + 3*pageSz}
}

func minimalPlan() *plan.Plan {
	return &plan.Plan{
		SlotsRequired: 4,
		BytesRequired: 1<<11 + 2*pageSz,
		Ops: []plan.CapOperation{
			{Op: plan.TCreate, Create: plan.CreateOp{CapType: sel4.ObjTCB, SizeBits: 11, BytesRequired: 1 << 11, Dest: 0}},
			{Op: plan.TCreate, Create: plan.CreateOp{CapType: sel4.ObjVSpace, SizeBits: 12, BytesRequired: pageSz, Dest: 1}},
			{Op: plan.TMap, Map: plan.MapOp{Func: plan.FuncAssignASID, Service: 1}},
			{Op: plan.TCreate, Create: plan.CreateOp{CapType: sel4.ObjFrame, SizeBits: 12, BytesRequired: pageSz, Dest: 2}},
			{Op: plan.TMapFrame, MapFrame: plan.MapFrameOp{Frame: 2, VSpace: 1, Vaddr: 0x7000}},
			{Op: plan.TTCBSetup, TCBSetup: plan.TCBSetupOp{
				EntryAddr: 0x1000, StackPointerAddr: 0x2000, IPCBufferAddr: 0x7000,
				TCB: 0, CSpace: 0, VSpace: 1, IPCBuffer: 2}},
			{Op: plan.TTCBStart, TCBStart: plan.TCBStartOp{TCB: 0}},
		},
	}
}

func TestBootUp(t *testing.T) {
	k := newKernel(t, 1024)
	// TCBSetup wants a CNode for the CSpace; reuse a simple plan where
	// the child CSpace is the root CNode is not possible, so build one.
	p := minimalPlan()
	p.Ops[5].TCBSetup.CSpace = 3
	p.Ops = append(p.Ops[:5:5],
		append([]plan.CapOperation{
			{Op: plan.TCreate, Create: plan.CreateOp{CapType: sel4.ObjCNode, SizeBits: 4, BytesRequired: 1 << (4 + 5), Dest: 3}},
		}, p.Ops[5:]...)...)

	err := boot.BootUp(k, k.Mem(), k.BootInfo(), img(), p)
	require.Nil(t, err)

	tcb, ok := k.TCB(sel4.CPtr(firstEmpty))
	require.True(t, ok)
	assert.True(t, tcb.Running)
	// The scratch page was unmapped before any op ran.
	assert.False(t, k.VSpaceMapped(sel4.CapInitThreadVSpace, lowestVaddr+3*pageSz))
}

func TestBootUpOversubscribed(t *testing.T) {
	k := newKernel(t, 2)
	p := minimalPlan()
	p.SlotsRequired = 100
	err := boot.BootUp(k, k.Mem(), k.BootInfo(), img(), p)
	require.NotNil(t, err)
	assert.True(t, serr.IsErrCode(err, serr.TErrOversubscribed))
	// Nothing was created.
	_, ok := k.Slot(sel4.CPtr(firstEmpty))
	assert.False(t, ok)
}

func TestBootUpNoBootInfo(t *testing.T) {
	k := newKernel(t, 1024)
	err := boot.BootUp(k, k.Mem(), nil, img(), minimalPlan())
	require.NotNil(t, err)
	assert.True(t, serr.IsErrCode(err, serr.TErrBootInfo))
}

func TestHalt(t *testing.T) {
	k := newKernel(t, 1024)
	boot.Halt(k)
	assert.True(t, k.Halted())
}
