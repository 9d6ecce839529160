package boot

//
// The root task's entrypoint sequence: load the boot descriptor, free
// the scratch page, check the plan fits, execute it, halt. There is no
// recovery path; a failure after children are partially configured
// leaves nothing to do but stop.
//

import (
	"encoding/binary"

	"taproot/bootinfo"
	db "taproot/debug"
	"taproot/executor"
	"taproot/handoff"
	"taproot/mapshim"
	"taproot/plan"
	"taproot/sel4"
	"taproot/sel4/platform"
	"taproot/serr"
)

func byteOrder(endian string) binary.ByteOrder {
	if endian == "big" {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// BootUp drives the whole bootstrap. It returns only on failure or
// after every operation has run; the caller halts either way.
func BootUp(kern sel4.Calls, mem sel4.VMem, bi *sel4.BootInfo, img executor.Image, p *plan.Plan) *serr.Err {
	cfg := platform.Conf
	layout := handoff.NewLayout(cfg.PageSize(), cfg.WordBytes(), byteOrder(cfg.Endian))

	db.DPrintf(db.BOOT, "boot %v: slots needed %d bytes needed %d ops %d", cfg.Arch, p.SlotsRequired, p.BytesRequired, len(p.Ops))

	tbl, err := bootinfo.Load(bi, layout.EntryCapacity(), cfg.WordBytes(), layout.Order)
	if err != nil {
		return err
	}

	shims, err := mapshim.NewRegistry(kern, sel4.Tarch(cfg.Arch))
	if err != nil {
		return err
	}
	e := executor.New(kern, mem, shims, tbl, layout, cfg.PageBits, cfg.WordBits, img)

	if err := e.UnmapScratch(); err != nil {
		return err
	}

	if p.SlotsRequired > tbl.NumEmptySlots {
		return serr.NewErr(serr.TErrOversubscribed, tbl.NumEmptySlots)
	}

	if db.WillBePrinted(db.BOOT) {
		for i := range p.Ops {
			db.DPrintf(db.BOOT, "plan[%d] %v", i, &p.Ops[i])
		}
	}

	if err := e.Run(p); err != nil {
		return err
	}
	db.DPrintf(db.BOOT, "all %d operations done", len(p.Ops))
	return nil
}

// Halt suspends the init thread forever. On hardware the first
// suspend never returns; the loop guards against spurious wakeups.
func Halt(kern sel4.Calls) {
	for kern.TCBSuspend(sel4.CapInitThreadTCB) == sel4.NoError {
	}
}
