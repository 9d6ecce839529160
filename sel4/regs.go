package sel4

import "fmt"

//
// Register context for TCB setup. The register file is an
// arch-indexed array; ArchDef says where the instruction pointer,
// stack pointer, and the first argument registers live for each
// supported architecture.
//

type Tarch string

const (
	ArchX8664   Tarch = "x86_64"
	ArchAarch64 Tarch = "aarch64"
)

const MaxRegs = 36

type UserContext struct {
	Regs  [MaxRegs]Word
	NRegs Word
}

type ArchDef struct {
	Arch  Tarch
	NRegs Word
	// Register indices for the context initializer.
	IPIdx  int
	SPIdx  int
	ArgIdx [3]int
	// Page-structure objects by map level, innermost last.
	StructObjs []Tobj
	// Arch names for the probe record.
	FrameObjName  string
	VSpaceObjName string
}

var archDefs = map[Tarch]*ArchDef{
	ArchX8664: &ArchDef{
		Arch:  ArchX8664,
		NRegs: 20,
		// seL4_UserContext: rip, rsp, rflags, rax, rbx, rcx, rdx, rsi, rdi, ...
		IPIdx:         0,
		SPIdx:         1,
		ArgIdx:        [3]int{8, 7, 6}, // rdi, rsi, rdx
		StructObjs:    []Tobj{ObjPageStructure1, ObjPageStructure2, ObjPageStructure3},
		FrameObjName:  "seL4_X86_4K",
		VSpaceObjName: "seL4_X64_PML4Object",
	},
	ArchAarch64: &ArchDef{
		Arch:  ArchAarch64,
		NRegs: 36,
		// seL4_UserContext: pc, sp, spsr, x0..x30
		IPIdx:         0,
		SPIdx:         1,
		ArgIdx:        [3]int{3, 4, 5}, // x0, x1, x2
		StructObjs:    []Tobj{ObjPageStructure1, ObjPageStructure2, ObjPageStructure3},
		FrameObjName:  "seL4_ARM_Page",
		VSpaceObjName: "seL4_ARM_PageGlobalDirectoryObject",
	},
}

func GetArchDef(arch Tarch) (*ArchDef, error) {
	ad, ok := archDefs[arch]
	if !ok {
		return nil, fmt.Errorf("unknown arch %v", arch)
	}
	return ad, nil
}

// InitContext fills in the registers the kernel hands a freshly
// started thread: entry point, stack pointer, and up to three
// arguments in the arch's argument registers.
func (ad *ArchDef) InitContext(ctx *UserContext, entry, sp, arg0, arg1, arg2 Word) {
	ctx.NRegs = ad.NRegs
	ctx.Regs[ad.IPIdx] = entry
	ctx.Regs[ad.SPIdx] = sp
	ctx.Regs[ad.ArgIdx[0]] = arg0
	ctx.Regs[ad.ArgIdx[1]] = arg1
	ctx.Regs[ad.ArgIdx[2]] = arg2
}
