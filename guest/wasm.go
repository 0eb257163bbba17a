//go:build wasip1

package guest

import (
	"fmt"
	"unsafe"
)

//go:wasmimport env litehost_call
func litehost_call(requestPayload string, destPtr uint32) int32

// Init wires CallHost to the host's litehost_call function. Must be called
// from the guest's startup path before any database operations.
func Init() {
	SetHostHandler(func(payload []byte) ([]byte, error) {
		var destPtr uint32
		destSize := litehost_call(string(payload), ptrAddress(&destPtr))
		if destSize < 0 {
			ret := bytesFromPtr(destPtr, uint32(-destSize))
			return nil, fmt.Errorf("litehost_call returned error: %s", string(ret))
		}
		return bytesFromPtr(destPtr, uint32(destSize)), nil
	})
}

func ptrAddress(destPtr *uint32) uint32 {
	return uint32(uintptr(unsafe.Pointer(destPtr)))
}

func bytesFromPtr(ptr uint32, size uint32) []byte {
	if size == 0 {
		return nil
	}
	slice := (*[1 << 30]byte)(unsafe.Pointer(uintptr(ptr)))[:size:size]
	result := make([]byte, size)
	copy(result, slice)
	return result
}
