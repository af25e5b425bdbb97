// Package arena provides the tensor arena: a single page-aligned block of scratch
// memory that the inference engine works inside.
package arena

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// DefaultSize is the arena size used on the device
const DefaultSize = 1024 * 1024

// System page size
var pageSize = uintptr(unix.Getpagesize())

// Default is the process-wide arena, shared by every core that isn't given its own
var Default = New(DefaultSize)

// Arena is allocated on first use, and never freed
type Arena struct {
	size int
	buf  []byte
}

func New(size int) *Arena {
	return &Arena{size: RoundUpToPageSize(size)}
}

// Bytes returns the arena memory, allocating it if necessary
func (a *Arena) Bytes() []byte {
	if a.buf == nil {
		a.buf = PageAlignedAlloc(a.size)
	}
	return a.buf
}

// Allocated is true once Bytes has been called
func (a *Arena) Allocated() bool {
	return a.buf != nil
}

func (a *Arena) Size() int {
	return a.size
}

// Allocate 'size' bytes of memory, aligned to a page boundary.
func PageAlignedAlloc(size int) []byte {
	raw := make([]byte, size+int(pageSize))
	offset := pageSize - (uintptr(unsafe.Pointer(&raw[0])) % pageSize)
	return raw[offset : int(offset)+size]
}

// Returns the system page size
func PageSize() int {
	return int(pageSize)
}

// Round size up to the nearest page size
func RoundUpToPageSize(size int) int {
	return int((uintptr(size) + pageSize - 1) & ^(pageSize - 1))
}
