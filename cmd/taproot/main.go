package main

//
// Hosted entrypoint: boots the simulated kernel, runs a small built-in
// plan standing in for the generator's emitted program, and halts. On
// hardware the kernel binding layer replaces kernelsim and the plan is
// linked in by the generator.
//

import (
	"taproot/boot"
	db "taproot/debug"
	"taproot/executor"
	"taproot/kernelsim"
	"taproot/plan"
	"taproot/sel4"
	"taproot/sel4/platform"
)

const (
	lowestVaddr = sel4.Word(0x400000)
	nImgFrames  = 8
)

func demoPlan(pageSz sel4.Word) *plan.Plan {
	const (
		dTCB = iota
		dCNode
		dVSpace
		dIPC
		dScratch
	)
	return &plan.Plan{
		SlotsRequired: 8,
		BytesRequired: 1<<11 + 1<<(4+5) + 3*pageSz,
		Ops: []plan.CapOperation{
			{Op: plan.TCreate, Create: plan.CreateOp{CapType: sel4.ObjTCB, SizeBits: 11, BytesRequired: 1 << 11, Dest: dTCB}},
			{Op: plan.TCNodeCreate, Create: plan.CreateOp{CapType: sel4.ObjCNode, SizeBits: 4, BytesRequired: 1 << (4 + 5), Dest: dScratch}},
			{Op: plan.TMutate, Mutate: plan.MutateOp{Src: dScratch, Dest: dCNode, Guard: 0}},
			{Op: plan.TCreate, Create: plan.CreateOp{CapType: sel4.ObjVSpace, SizeBits: 12, BytesRequired: pageSz, Dest: dVSpace}},
			{Op: plan.TMap, Map: plan.MapOp{Func: plan.FuncAssignASID, Service: dVSpace}},
			{Op: plan.TCreate, Create: plan.CreateOp{CapType: sel4.ObjFrame, SizeBits: 12, BytesRequired: pageSz, Dest: dIPC}},
			{Op: plan.TMapFrame, MapFrame: plan.MapFrameOp{Frame: dIPC, VSpace: dVSpace, Vaddr: 0x7000}},
			{Op: plan.TTCBSetup, TCBSetup: plan.TCBSetupOp{
				EntryAddr: 0x1000, StackPointerAddr: 0x2000, IPCBufferAddr: 0x7000,
				TCB: dTCB, CSpace: dCNode, VSpace: dVSpace, IPCBuffer: dIPC}},
			{Op: plan.TTCBStart, TCBStart: plan.TCBStartOp{TCB: dTCB}},
		},
	}
}

func main() {
	cfg := platform.Conf
	pageSz := sel4.Word(cfg.PageSize())
	k, err := kernelsim.New(&kernelsim.Config{
		Arch:     sel4.Tarch(cfg.Arch),
		PageBits: cfg.PageBits,
		Untypeds: []kernelsim.UntypedConfig{
			{SizeBits: 24},
			{SizeBits: 20},
			{SizeBits: 16, Device: true, Paddr: 0xfe000000},
		},
		EmptySlots:     sel4.SlotRegion{Start: 100, End: 4096},
		LowestVaddr:    lowestVaddr,
		NumImageFrames: nImgFrames,
	})
	if err != nil {
		db.DFatalf("kernel sim: %v", err)
	}
	defer k.Close()

	img := executor.Image{
		LowestVaddr:   lowestVaddr,
		FreePageVaddr: lowestVaddr + sel4.Word(nImgFrames-1)*pageSz,
	}
	if err := boot.BootUp(k, k.Mem(), k.BootInfo(), img, demoPlan(pageSz)); err != nil {
		db.DPrintf(db.ALWAYS, "bootstrap failed: %v", err)
		boot.Halt(k)
		return
	}
	k.DebugDumpScheduler()
	boot.Halt(k)
}
