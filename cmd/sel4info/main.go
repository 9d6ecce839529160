package main

//
// Platform probe: emits a JSON record of the kernel geometry the plan
// generator needs (word size, page bits, object sizes, which per-arch
// page object symbols this build knows about). Run at build time; the
// generator reads the output.
//

import (
	"encoding/json"
	"fmt"

	db "taproot/debug"
	"taproot/sel4"
	"taproot/sel4/platform"
)

type probeRecord struct {
	WordBytes    int            `json:"sizeof(seL4_Word)"`
	SlotBits     int            `json:"seL4_SlotBits"`
	PageBits     int            `json:"seL4_PageBits"`
	Endianness   string         `json:"endianness"`
	ObjectSizes  map[string]int `json:"object_sizes"`
	FoundSymbols map[string]int `json:"found_symbols"`
}

func main() {
	cfg := platform.Conf
	ad, err := sel4.GetArchDef(sel4.Tarch(cfg.Arch))
	if err != nil {
		db.DFatalf("arch def: %v", err)
	}

	found := make(map[string]int)
	for _, arch := range []sel4.Tarch{sel4.ArchX8664, sel4.ArchAarch64} {
		other, err := sel4.GetArchDef(arch)
		if err != nil {
			db.DFatalf("arch def: %v", err)
		}
		v := 0
		if other.Arch == ad.Arch {
			v = 1
		}
		found[other.FrameObjName] = v
	}

	sizes := make(map[string]int)
	sizes["seL4_TCBObject"] = cfg.ObjectBits["tcb"]
	sizes["seL4_EndpointObject"] = cfg.ObjectBits["endpoint"]
	sizes[ad.FrameObjName] = cfg.ObjectBits["frame"]
	sizes[ad.VSpaceObjName] = cfg.ObjectBits["vspace"]

	rec := &probeRecord{
		WordBytes:    cfg.WordBytes(),
		SlotBits:     cfg.SlotBits,
		PageBits:     cfg.PageBits,
		Endianness:   cfg.Endian,
		ObjectSizes:  sizes,
		FoundSymbols: found,
	}
	b, jerr := json.Marshal(rec)
	if jerr != nil {
		db.DFatalf("marshal: %v", jerr)
	}
	fmt.Printf("%s\n", b)
}
