package childenv

//
// Child-side helper for the handoff ABI: the generator places
// `key=<decimal-address>` strings in a child's environment strip, and
// a freshly started thread uses these lookups to find its IPC buffer
// and descriptor pages.
//

import (
	"strconv"
	"strings"

	"taproot/sel4"
)

const (
	KeyIPCBuffer        = "ipc_buffer"
	KeyGPMemoryInfo     = "gp_memory_info"
	KeyDeviceMemoryInfo = "device_memory_info"
	KeySystemInfo       = "system_info"
)

// LookupAddr finds key in the environment strip and parses its value
// as a decimal address. Matching is strict: the key must be followed
// by '=' ("foo" never matches "foobar=1"), and the whole value must
// parse.
func LookupAddr(envp []string, key string) (sel4.Word, bool) {
	for _, env := range envp {
		val, ok := strings.CutPrefix(env, key)
		if !ok || !strings.HasPrefix(val, "=") {
			continue
		}
		val = val[1:]
		if val == "" {
			return 0, false
		}
		n, err := strconv.ParseUint(val, 10, 64)
		if err != nil {
			return 0, false
		}
		return sel4.Word(n), true
	}
	return 0, false
}

func IPCBufferAddr(envp []string) (sel4.Word, bool) {
	return LookupAddr(envp, KeyIPCBuffer)
}

func GPMemoryInfoAddr(envp []string) (sel4.Word, bool) {
	return LookupAddr(envp, KeyGPMemoryInfo)
}

func DeviceMemoryInfoAddr(envp []string) (sel4.Word, bool) {
	return LookupAddr(envp, KeyDeviceMemoryInfo)
}

func SystemInfoAddr(envp []string) (sel4.Word, bool) {
	return LookupAddr(envp, KeySystemInfo)
}
