package plan

//
// The ahead-of-time generated program the executor interprets. The
// generator emits a topologically ordered []CapOperation plus the
// slot/byte totals; the executor treats it as read-only.
//

import (
	"taproot/sel4"
)

type Top uint32

const (
	TCreate Top = iota + 1
	TCNodeCreate
	TCopy
	TMint
	TMutate
	TMap
	TBinaryChunkLoad
	TTCBSetup
	TMapFrame
	TRetypeLeftoverGPUntypeds
	TMoveDeviceUntypeds
	TPassGPMemoryInfo
	TPassDeviceMemoryInfo
	TPassSystemInfo
	TTCBStart
)

// Map-func handles. The generator picks the platform primitive for
// each Map operation; the executor dispatches through the shim
// registry by this tag. No function pointers live in plan data.
type Tmapfunc uint32

const (
	FuncAssignASID Tmapfunc = iota + 1
	FuncMapLevel1
	FuncMapLevel2
	FuncMapLevel3
	FuncMapPage
	FuncUnmapPage
)

type CreateOp struct {
	CapType       sel4.Tobj
	BytesRequired sel4.Word
	Dest          uint32
	SizeBits      uint8
}

type MintOp struct {
	Badge  sel4.Word
	Src    uint32
	Dest   uint32
	Rights uint8
}

type CopyOp struct {
	Src       uint32
	DestRoot  uint32
	DestIndex uint32
	DestDepth uint8
}

type MutateOp struct {
	Guard sel4.Word
	Src   uint32
	Dest  uint32
}

type MapOp struct {
	Func    Tmapfunc
	Vaddr   sel4.Word
	Service uint32
	VSpace  uint32
}

type BinaryChunkLoadOp struct {
	SrcVaddr   sel4.Word
	DestVaddr  sel4.Word
	Length     sel4.Word
	DestVSpace uint32
}

type TCBSetupOp struct {
	EntryAddr        sel4.Word
	StackPointerAddr sel4.Word
	IPCBufferAddr    sel4.Word
	Arg0             sel4.Word
	Arg1             sel4.Word
	Arg2             sel4.Word
	CSpace           uint32
	VSpace           uint32
	IPCBuffer        uint32
	TCB              uint32
}

type MapFrameOp struct {
	Vaddr  sel4.Word
	Frame  uint32
	VSpace uint32
}

// Break every general-purpose residual into power-of-two untypeds and
// retype them into the designated CNode slots.
type RetypeLeftoverGPUntypedsOp struct {
	CNodeDest  uint32
	StartSlot  uint32
	EndSlot    uint32
	CNodeDepth uint8
}

// Move device untyped caps, unchanged, into the designated CNode.
type MoveDeviceUntypedsOp struct {
	CNodeDest  uint32
	StartSlot  uint32
	EndSlot    uint32
	CNodeDepth uint8
}

// Shared by the GP and device memory-info passes: fill the frame with
// the relevant memory descriptor, then map it into the child.
type PassMemoryInfoOp struct {
	DestVaddr  sel4.Word
	Frame      uint32
	DestVSpace uint32
}

type PassSystemInfoOp struct {
	DestVaddr           sel4.Word
	Frame               uint32
	DestVSpace          uint32
	PassFramebufferInfo bool
}

type TCBStartOp struct {
	TCB uint32
}

// CapOperation is a tagged union; Op selects which payload is live.
// Payloads are owned values so the plan can be a flat read-only array.
type CapOperation struct {
	Op Top

	Create          CreateOp
	Mint            MintOp
	Copy            CopyOp
	Mutate          MutateOp
	Map             MapOp
	BinaryChunkLoad BinaryChunkLoadOp
	TCBSetup        TCBSetupOp
	MapFrame        MapFrameOp
	RetypeLeftovers RetypeLeftoverGPUntypedsOp
	MoveDevice      MoveDeviceUntypedsOp
	PassMemoryInfo  PassMemoryInfoOp
	PassSystemInfo  PassSystemInfoOp
	TCBStart        TCBStartOp
}

type Plan struct {
	Ops           []CapOperation
	SlotsRequired sel4.Word
	BytesRequired sel4.Word
}
