//go:build wasip1

package guest

import "unsafe"

// The host writes response payloads into buffers it asks the guest to
// allocate. Handles pin the backing arrays against the Go garbage collector
// until the host is done with them.

var byteHandles map[uint32][]byte
var nextByteHandle uint32 = 1

//go:wasmexport alloc_bytes
func allocBytes(size uint32) uint64 {
	if byteHandles == nil {
		byteHandles = make(map[uint32][]byte)
	}
	if size == 0 {
		size = 1
	}
	buf := make([]byte, size)
	handle := nextByteHandle
	byteHandles[handle] = buf
	nextByteHandle++
	return uint64(handle)<<32 | uint64(uintptr(unsafe.Pointer(&buf[0])))
}

//go:wasmexport free_bytes
func freeBytes(handle uint32) {
	delete(byteHandles, handle)
}
