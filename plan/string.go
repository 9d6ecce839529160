package plan

import "fmt"

func (f Tmapfunc) String() string {
	switch f {
	case FuncAssignASID:
		return "assign_asid"
	case FuncMapLevel1:
		return "map_level1"
	case FuncMapLevel2:
		return "map_level2"
	case FuncMapLevel3:
		return "map_level3"
	case FuncMapPage:
		return "map_page"
	case FuncUnmapPage:
		return "unmap_page"
	default:
		return fmt.Sprintf("mapfunc(%d)", uint32(f))
	}
}

func (op *CapOperation) String() string {
	switch op.Op {
	case TCreate:
		return fmt.Sprintf("Create (type=%v) (size=%d) (dest=%d)", op.Create.CapType, op.Create.SizeBits, op.Create.Dest)
	case TCNodeCreate:
		return fmt.Sprintf("CNode create (size=%d) (dest=%d)", op.Create.SizeBits, op.Create.Dest)
	case TCopy:
		return fmt.Sprintf("Copy (src=%d) (dest_root=%d) (dest_index=%d) (dest_depth=%d)", op.Copy.Src, op.Copy.DestRoot, op.Copy.DestIndex, op.Copy.DestDepth)
	case TMint:
		return fmt.Sprintf("Mint (src=%d) (dest=%d) (badge=%d) (rights=%#x)", op.Mint.Src, op.Mint.Dest, op.Mint.Badge, op.Mint.Rights)
	case TMutate:
		return fmt.Sprintf("Mutate (src=%d) (dest=%d) (guard=%#x)", op.Mutate.Src, op.Mutate.Dest, op.Mutate.Guard)
	case TMap:
		return fmt.Sprintf("Map (func=%v) (service=%d) (vspace=%d) (vaddr=%#x)", op.Map.Func, op.Map.Service, op.Map.VSpace, op.Map.Vaddr)
	case TBinaryChunkLoad:
		return fmt.Sprintf("BinaryChunkLoad (src=%#x) (dest=%#x) (len=%#x) (vspace=%d)", op.BinaryChunkLoad.SrcVaddr, op.BinaryChunkLoad.DestVaddr, op.BinaryChunkLoad.Length, op.BinaryChunkLoad.DestVSpace)
	case TTCBSetup:
		return fmt.Sprintf("TCBSetup (tcb=%d) (cspace=%d) (vspace=%d) (ipc=%d) (entry=%#x) (sp=%#x)", op.TCBSetup.TCB, op.TCBSetup.CSpace, op.TCBSetup.VSpace, op.TCBSetup.IPCBuffer, op.TCBSetup.EntryAddr, op.TCBSetup.StackPointerAddr)
	case TMapFrame:
		return fmt.Sprintf("MapFrame (frame=%d) (vspace=%d) (vaddr=%#x)", op.MapFrame.Frame, op.MapFrame.VSpace, op.MapFrame.Vaddr)
	case TRetypeLeftoverGPUntypeds:
		return fmt.Sprintf("RetypeLeftoverGPUntypeds (cnode=%d) (slots=[%d,%d)) (depth=%d)", op.RetypeLeftovers.CNodeDest, op.RetypeLeftovers.StartSlot, op.RetypeLeftovers.EndSlot, op.RetypeLeftovers.CNodeDepth)
	case TMoveDeviceUntypeds:
		return fmt.Sprintf("MoveDeviceUntypeds (cnode=%d) (slots=[%d,%d)) (depth=%d)", op.MoveDevice.CNodeDest, op.MoveDevice.StartSlot, op.MoveDevice.EndSlot, op.MoveDevice.CNodeDepth)
	case TPassGPMemoryInfo:
		return fmt.Sprintf("PassGPMemoryInfo (frame=%d) (vspace=%d) (vaddr=%#x)", op.PassMemoryInfo.Frame, op.PassMemoryInfo.DestVSpace, op.PassMemoryInfo.DestVaddr)
	case TPassDeviceMemoryInfo:
		return fmt.Sprintf("PassDeviceMemoryInfo (frame=%d) (vspace=%d) (vaddr=%#x)", op.PassMemoryInfo.Frame, op.PassMemoryInfo.DestVSpace, op.PassMemoryInfo.DestVaddr)
	case TPassSystemInfo:
		return fmt.Sprintf("PassSystemInfo (frame=%d) (vspace=%d) (vaddr=%#x) (fb=%t)", op.PassSystemInfo.Frame, op.PassSystemInfo.DestVSpace, op.PassSystemInfo.DestVaddr, op.PassSystemInfo.PassFramebufferInfo)
	case TTCBStart:
		return fmt.Sprintf("TCBStart (tcb=%d)", op.TCBStart.TCB)
	default:
		return fmt.Sprintf("op(%d)", uint32(op.Op))
	}
}
