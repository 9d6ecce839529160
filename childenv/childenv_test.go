package childenv_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"taproot/childenv"
	"taproot/sel4"
)

func TestRoundTrip(t *testing.T) {
	addrs := map[string]sel4.Word{
		childenv.KeyIPCBuffer:        0x7000,
		childenv.KeyGPMemoryInfo:     0x8000,
		childenv.KeyDeviceMemoryInfo: 0x9000,
		childenv.KeySystemInfo:       0xa000,
	}
	envp := []string{"PATH=/bin"}
	for k, a := range addrs {
		envp = append(envp, fmt.Sprintf("%s=%d", k, a))
	}
	for k, want := range addrs {
		got, ok := childenv.LookupAddr(envp, k)
		assert.True(t, ok, k)
		assert.Equal(t, want, got, k)
	}

	a, ok := childenv.IPCBufferAddr(envp)
	assert.True(t, ok)
	assert.Equal(t, sel4.Word(0x7000), a)
	a, ok = childenv.GPMemoryInfoAddr(envp)
	assert.True(t, ok)
	assert.Equal(t, sel4.Word(0x8000), a)
	a, ok = childenv.DeviceMemoryInfoAddr(envp)
	assert.True(t, ok)
	assert.Equal(t, sel4.Word(0x9000), a)
	a, ok = childenv.SystemInfoAddr(envp)
	assert.True(t, ok)
	assert.Equal(t, sel4.Word(0xa000), a)
}

func TestStrictKeyMatch(t *testing.T) {
	// A key that is a prefix of another must not match it.
	envp := []string{"ipc_bufferx=123", "ipc_buffer_old=456"}
	_, ok := childenv.LookupAddr(envp, "ipc_buffer")
	assert.False(t, ok)

	envp = append(envp, "ipc_buffer=789")
	a, ok := childenv.LookupAddr(envp, "ipc_buffer")
	assert.True(t, ok)
	assert.Equal(t, sel4.Word(789), a)
}

func TestParseMustConsumeValue(t *testing.T) {
	_, ok := childenv.LookupAddr([]string{"ipc_buffer=12ab"}, "ipc_buffer")
	assert.False(t, ok)

	_, ok = childenv.LookupAddr([]string{"ipc_buffer="}, "ipc_buffer")
	assert.False(t, ok)

	_, ok = childenv.LookupAddr([]string{"ipc_buffer=0x10"}, "ipc_buffer")
	assert.False(t, ok, "hex is not part of the ABI")
}

func TestMissing(t *testing.T) {
	_, ok := childenv.LookupAddr([]string{}, "ipc_buffer")
	assert.False(t, ok)
	_, ok = childenv.LookupAddr([]string{"system_info=1"}, "ipc_buffer")
	assert.False(t, ok)
}
