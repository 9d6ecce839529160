package mapshim

//
// Architecture-specific wrappers for the mapping primitives. The plan
// carries a map-func handle per Map operation; the registry resolves
// the handle to the right kernel invocation for the architecture this
// build targets. Page-structure levels are interpreted through the
// arch's object table (x86: PDPT / PageDirectory / PageTable, arm:
// PUD / PD / PT).
//

import (
	db "taproot/debug"
	"taproot/plan"
	"taproot/sel4"
	"taproot/serr"
)

type Registry struct {
	kern sel4.Calls
	ad   *sel4.ArchDef
}

func NewRegistry(kern sel4.Calls, arch sel4.Tarch) (*Registry, *serr.Err) {
	ad, err := sel4.GetArchDef(arch)
	if err != nil {
		return nil, serr.NewErr(serr.TErrBadArch, arch)
	}
	return &Registry{kern: kern, ad: ad}, nil
}

func (r *Registry) ArchDef() *sel4.ArchDef {
	return r.ad
}

// Dispatch runs the map operation's platform primitive. service and
// vspace are already rebased to absolute CPtrs by the executor.
func (r *Registry) Dispatch(f plan.Tmapfunc, service sel4.CPtr, vspace sel4.CPtr, vaddr sel4.Word) (sel4.Terror, *serr.Err) {
	db.DPrintf(db.MAPSHIM, "%v service %v vspace %v vaddr %#x", f, service, vspace, vaddr)
	switch f {
	case plan.FuncAssignASID:
		// Associates the VSpace root in the service slot with the init
		// thread's ASID pool.
		return r.kern.ASIDPoolAssign(sel4.CapInitThreadASIDPool, service), nil
	case plan.FuncMapLevel1:
		return r.kern.PageStructureMap(r.ad.StructObjs[0], service, vspace, vaddr, sel4.VMAttrDefault), nil
	case plan.FuncMapLevel2:
		return r.kern.PageStructureMap(r.ad.StructObjs[1], service, vspace, vaddr, sel4.VMAttrDefault), nil
	case plan.FuncMapLevel3:
		return r.kern.PageStructureMap(r.ad.StructObjs[2], service, vspace, vaddr, sel4.VMAttrDefault), nil
	case plan.FuncMapPage:
		return r.kern.PageMap(service, vspace, vaddr, sel4.ReadWrite, sel4.VMAttrDefault), nil
	case plan.FuncUnmapPage:
		return r.kern.PageUnmap(service), nil
	default:
		return sel4.NoError, serr.NewErr(serr.TErrBadMapFunc, f)
	}
}

// MapPage and UnmapPage are the leaf-frame shims the executor uses
// directly for chunk loads, frame maps, and descriptor handoff.
func (r *Registry) MapPage(frame sel4.CPtr, vspace sel4.CPtr, vaddr sel4.Word) sel4.Terror {
	return r.kern.PageMap(frame, vspace, vaddr, sel4.ReadWrite, sel4.VMAttrDefault)
}

func (r *Registry) UnmapPage(frame sel4.CPtr) sel4.Terror {
	return r.kern.PageUnmap(frame)
}
