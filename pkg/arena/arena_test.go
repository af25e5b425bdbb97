package arena

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

func TestAlignedAlloc(t *testing.T) {
	for _, size := range []int{1, 2, 3, 99, 4095, 4096, 4097, 16385, 300000} {
		buf := PageAlignedAlloc(size)
		require.Equal(t, size, len(buf))
		require.Equal(t, 0, int(uintptr(unsafe.Pointer(&buf[0]))%pageSize))
	}
}

func TestArenaLazy(t *testing.T) {
	a := New(1000)
	require.False(t, a.Allocated())
	require.Equal(t, PageSize(), a.Size())

	buf := a.Bytes()
	require.True(t, a.Allocated())
	require.Len(t, buf, a.Size())
	require.Same(t, &buf[0], &a.Bytes()[0])
	require.Equal(t, 0, int(uintptr(unsafe.Pointer(&buf[0]))%pageSize))
}

// An arena the size of the device default takes this long to allocate
func BenchmarkArena(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = New(DefaultSize).Bytes()
	}
}
