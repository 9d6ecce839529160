package sel4

//
// Go structures for the kernel ABI seen by the root task: machine
// words, capability pointers, object types, rights, and the error
// codes kernel invocations return.
//

import (
	"fmt"
)

type Word uint64
type CPtr Word

func (c CPtr) String() string {
	return fmt.Sprintf("cptr %d", c)
}

// Slots the kernel installs in the root task's CNode at boot.
const (
	CapNull               CPtr = 0
	CapInitThreadTCB      CPtr = 1
	CapInitThreadCNode    CPtr = 2
	CapInitThreadVSpace   CPtr = 3
	CapIRQControl         CPtr = 4
	CapASIDControl        CPtr = 5
	CapInitThreadASIDPool CPtr = 6
	CapInitThreadIPCBuff  CPtr = 10
)

// A range of slots [Start, End) in a CNode.
type SlotRegion struct {
	Start Word
	End   Word
}

func (r SlotRegion) Size() Word {
	return r.End - r.Start
}

func (r SlotRegion) String() string {
	return fmt.Sprintf("[%d, %d)", r.Start, r.End)
}

type Terror Word

const (
	NoError Terror = iota
	ErrInvalidArgument
	ErrInvalidCapability
	ErrIllegalOperation
	ErrRangeError
	ErrAlignmentError
	ErrFailedLookup
	ErrTruncatedMessage
	ErrDeleteFirst
	ErrRevokeFirst
	ErrNotEnoughMemory
)

func (e Terror) String() string {
	switch e {
	case NoError:
		return "seL4_NoError"
	case ErrInvalidArgument:
		return "seL4_InvalidArgument"
	case ErrInvalidCapability:
		return "seL4_InvalidCapability"
	case ErrIllegalOperation:
		return "seL4_IllegalOperation"
	case ErrRangeError:
		return "seL4_RangeError"
	case ErrAlignmentError:
		return "seL4_AlignmentError"
	case ErrFailedLookup:
		return "seL4_FailedLookup"
	case ErrTruncatedMessage:
		return "seL4_TruncatedMessage"
	case ErrDeleteFirst:
		return "seL4_DeleteFirst"
	case ErrRevokeFirst:
		return "seL4_RevokeFirst"
	case ErrNotEnoughMemory:
		return "seL4_NotEnoughMemory"
	default:
		return fmt.Sprintf("seL4_Error(%d)", Word(e))
	}
}

// Kernel object types. The plan generator resolves per-arch object
// names (seL4_X86_4K, seL4_ARM_Page, ...) to these arch-neutral tags;
// the mapping shims translate back when an invocation needs the
// arch-specific object.
type Tobj uint32

const (
	ObjUntyped Tobj = iota + 1
	ObjTCB
	ObjEndpoint
	ObjCNode
	ObjFrame
	ObjVSpace
	ObjPageStructure1
	ObjPageStructure2
	ObjPageStructure3
	ObjASIDPool
)

func (o Tobj) String() string {
	switch o {
	case ObjUntyped:
		return "untyped"
	case ObjTCB:
		return "tcb"
	case ObjEndpoint:
		return "endpoint"
	case ObjCNode:
		return "cnode"
	case ObjFrame:
		return "frame"
	case ObjVSpace:
		return "vspace"
	case ObjPageStructure1:
		return "pagestruct1"
	case ObjPageStructure2:
		return "pagestruct2"
	case ObjPageStructure3:
		return "pagestruct3"
	case ObjASIDPool:
		return "asidpool"
	default:
		return fmt.Sprintf("obj(%d)", uint32(o))
	}
}

// Rights as the plan encodes them: a 4-bit mask.
const (
	CapAllowWrite      = 1 << 0
	CapAllowRead       = 1 << 1
	CapAllowGrant      = 1 << 2
	CapAllowGrantReply = 1 << 3
)

type CapRights struct {
	GrantReply bool
	Grant      bool
	Read       bool
	Write      bool
}

var AllRights = CapRights{true, true, true, true}
var ReadWrite = CapRights{Read: true, Write: true}

// DecodeRights unpacks the plan's 4-bit rights mask. The masks must be
// parenthesized before the comparison; `m&CapAllowWrite != 0` parses
// the same in Go, but the C source this replaces got the precedence
// wrong and produced constant rights.
func DecodeRights(m uint8) CapRights {
	return CapRights{
		GrantReply: (m & CapAllowGrantReply) != 0,
		Grant:      (m & CapAllowGrant) != 0,
		Read:       (m & CapAllowRead) != 0,
		Write:      (m & CapAllowWrite) != 0,
	}
}

func (r CapRights) String() string {
	s := ""
	if r.Write {
		s += "w"
	}
	if r.Read {
		s += "r"
	}
	if r.Grant {
		s += "g"
	}
	if r.GrantReply {
		s += "p"
	}
	if s == "" {
		s = "-"
	}
	return s
}

// VM attributes for mapping invocations. Only the default is used; the
// plan generator never emits cached/uncached variants.
type Tvmattr Word

const (
	VMAttrDefault Tvmattr = 0
)
