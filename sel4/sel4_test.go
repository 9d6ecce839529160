package sel4_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"taproot/sel4"
)

func TestDecodeRights(t *testing.T) {
	assert.Equal(t, sel4.CapRights{}, sel4.DecodeRights(0))
	assert.Equal(t, sel4.CapRights{Write: true}, sel4.DecodeRights(sel4.CapAllowWrite))
	assert.Equal(t, sel4.CapRights{Read: true}, sel4.DecodeRights(sel4.CapAllowRead))
	assert.Equal(t, sel4.CapRights{Grant: true}, sel4.DecodeRights(sel4.CapAllowGrant))
	assert.Equal(t, sel4.CapRights{GrantReply: true}, sel4.DecodeRights(sel4.CapAllowGrantReply))
	// Each mask decodes independently; no bit leaks into another.
	for m := uint8(0); m < 16; m++ {
		r := sel4.DecodeRights(m)
		assert.Equal(t, m&sel4.CapAllowWrite != 0, r.Write, "mask %#x", m)
		assert.Equal(t, m&sel4.CapAllowRead != 0, r.Read, "mask %#x", m)
		assert.Equal(t, m&sel4.CapAllowGrant != 0, r.Grant, "mask %#x", m)
		assert.Equal(t, m&sel4.CapAllowGrantReply != 0, r.GrantReply, "mask %#x", m)
	}
	assert.Equal(t, sel4.AllRights, sel4.DecodeRights(0xf))
}

func TestInitContext(t *testing.T) {
	for _, arch := range []sel4.Tarch{sel4.ArchX8664, sel4.ArchAarch64} {
		ad, err := sel4.GetArchDef(arch)
		assert.Nil(t, err)
		var ctx sel4.UserContext
		ad.InitContext(&ctx, 0x1000, 0x2000, 1, 2, 3)
		assert.Equal(t, ad.NRegs, ctx.NRegs)
		assert.Equal(t, sel4.Word(0x1000), ctx.Regs[ad.IPIdx], arch)
		assert.Equal(t, sel4.Word(0x2000), ctx.Regs[ad.SPIdx], arch)
		assert.Equal(t, sel4.Word(1), ctx.Regs[ad.ArgIdx[0]], arch)
		assert.Equal(t, sel4.Word(2), ctx.Regs[ad.ArgIdx[1]], arch)
		assert.Equal(t, sel4.Word(3), ctx.Regs[ad.ArgIdx[2]], arch)
	}
	_, err := sel4.GetArchDef(sel4.Tarch("vax"))
	assert.NotNil(t, err)
}
