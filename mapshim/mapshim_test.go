package mapshim_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taproot/kernelsim"
	"taproot/mapshim"
	"taproot/plan"
	"taproot/sel4"
	"taproot/serr"
)

func newKernel(t *testing.T) *kernelsim.Kernel {
	k, err := kernelsim.New(&kernelsim.Config{
		Arch:           sel4.ArchX8664,
		PageBits:       12,
		Untypeds:       []kernelsim.UntypedConfig{{SizeBits: 20}},
		EmptySlots:     sel4.SlotRegion{Start: 100, End: 200},
		LowestVaddr:    0x400000,
		NumImageFrames: 1,
	})
	require.NoError(t, err)
	return k
}

func TestUnknownArch(t *testing.T) {
	k := newKernel(t)
	_, err := mapshim.NewRegistry(k, sel4.Tarch("riscv128"))
	require.NotNil(t, err)
	assert.True(t, serr.IsErrCode(err, serr.TErrBadArch))
}

func TestUnknownHandle(t *testing.T) {
	k := newKernel(t)
	r, err := mapshim.NewRegistry(k, sel4.ArchX8664)
	require.Nil(t, err)
	_, err = r.Dispatch(plan.Tmapfunc(0), 0, 0, 0)
	require.NotNil(t, err)
	assert.True(t, serr.IsErrCode(err, serr.TErrBadMapFunc))
}

// Level handles resolve to the arch's page-structure objects.
func TestLevelDispatch(t *testing.T) {
	k := newKernel(t)
	r, serrr := mapshim.NewRegistry(k, sel4.ArchX8664)
	require.Nil(t, serrr)

	ut := sel4.CPtr(k.BootInfo().Untyped.Start)
	// vspace at 100, one structure per level at 101..103.
	require.Equal(t, sel4.NoError, k.UntypedRetype(ut, sel4.ObjVSpace, 12, sel4.CapInitThreadCNode, 0, 0, 100, 1))
	require.Equal(t, sel4.NoError, k.UntypedRetype(ut, sel4.ObjPageStructure1, 12, sel4.CapInitThreadCNode, 0, 0, 101, 1))
	require.Equal(t, sel4.NoError, k.UntypedRetype(ut, sel4.ObjPageStructure2, 12, sel4.CapInitThreadCNode, 0, 0, 102, 1))
	require.Equal(t, sel4.NoError, k.UntypedRetype(ut, sel4.ObjPageStructure3, 12, sel4.CapInitThreadCNode, 0, 0, 103, 1))

	terr, err := r.Dispatch(plan.FuncAssignASID, 100, 0, 0)
	require.Nil(t, err)
	require.Equal(t, sel4.NoError, terr)

	for i, f := range []plan.Tmapfunc{plan.FuncMapLevel1, plan.FuncMapLevel2, plan.FuncMapLevel3} {
		vaddr := sel4.Word(0x40000000 * (i + 1))
		terr, err := r.Dispatch(f, sel4.CPtr(101+i), 100, vaddr)
		require.Nil(t, err)
		require.Equal(t, sel4.NoError, terr, "%v", f)
		typ, ok := k.VSpaceStructure(100, vaddr)
		require.True(t, ok)
		assert.Equal(t, r.ArchDef().StructObjs[i], typ)
	}
}

func TestPageMapUnmap(t *testing.T) {
	k := newKernel(t)
	r, serrr := mapshim.NewRegistry(k, sel4.ArchX8664)
	require.Nil(t, serrr)

	ut := sel4.CPtr(k.BootInfo().Untyped.Start)
	require.Equal(t, sel4.NoError, k.UntypedRetype(ut, sel4.ObjVSpace, 12, sel4.CapInitThreadCNode, 0, 0, 100, 1))
	require.Equal(t, sel4.NoError, k.UntypedRetype(ut, sel4.ObjFrame, 12, sel4.CapInitThreadCNode, 0, 0, 101, 1))

	terr, err := r.Dispatch(plan.FuncAssignASID, 100, 0, 0)
	require.Nil(t, err)
	require.Equal(t, sel4.NoError, terr)

	require.Equal(t, sel4.NoError, r.MapPage(101, 100, 0x9000))
	assert.True(t, k.VSpaceMapped(100, 0x9000))

	terr, err = r.Dispatch(plan.FuncUnmapPage, 101, 0, 0)
	require.Nil(t, err)
	require.Equal(t, sel4.NoError, terr)
	assert.False(t, k.VSpaceMapped(100, 0x9000))
}
