package flash

import (
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// Default models window when there is no partition table to consult
const (
	DefaultModelAddress = 0x400000
	DefaultModelSize    = 4096 * 1024
)

// Region is a read-only view of flash
type Region struct {
	Address int64 // Flash address of Data[0]
	Data    []byte
	unmap   func() error
}

// Close releases the mapping. Data must not be used afterwards.
func (r *Region) Close() error {
	if r.unmap == nil {
		return nil
	}
	err := r.unmap()
	r.unmap = nil
	r.Data = nil
	return err
}

// Mapper makes the models region of flash addressable
type Mapper interface {
	Map() (*Region, error)
}

// Bytes is a Mapper for a region that is already in memory
type Bytes []byte

func (b Bytes) Map() (*Region, error) {
	if b == nil {
		return nil, fmt.Errorf("%w: no flash image", ErrFlashMapFailed)
	}
	return &Region{Data: b}, nil
}

// FileMapper maps a window of a flash dump (or a flash block device) into memory.
//
// If Label is set, the window is the data partition with that label, found through
// the partition table at TableOffset. Otherwise the window is Address:Address+Size.
type FileMapper struct {
	Path        string
	TableOffset int64 // If zero, PartitionTableOffset
	Label       string
	Address     int64 // If zero, DefaultModelAddress
	Size        int64 // If zero, DefaultModelSize
}

func (m *FileMapper) Map() (*Region, error) {
	f, err := os.Open(m.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFlashMapFailed, err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFlashMapFailed, err)
	}

	addr, size, err := m.window(f)
	if err != nil {
		return nil, err
	}
	if size <= 0 || addr < 0 || addr+size > st.Size() {
		return nil, fmt.Errorf("%w: window 0x%x + %v does not fit inside %v (%v bytes)", ErrFlashMapFailed, addr, size, m.Path, st.Size())
	}

	// mmap offsets must be page aligned
	pageSize := int64(unix.Getpagesize())
	skip := addr % pageSize
	mem, err := unix.Mmap(int(f.Fd()), addr-skip, int(size+skip), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFlashMapFailed, err)
	}
	return &Region{
		Address: addr,
		Data:    mem[skip:],
		unmap: func() error {
			return unix.Munmap(mem)
		},
	}, nil
}

func (m *FileMapper) window(f *os.File) (addr, size int64, err error) {
	if m.Label == "" {
		addr, size = m.Address, m.Size
		if addr == 0 {
			addr = DefaultModelAddress
		}
		if size == 0 {
			size = DefaultModelSize
		}
		return addr, size, nil
	}

	tableOffset := m.TableOffset
	if tableOffset == 0 {
		tableOffset = PartitionTableOffset
	}
	table := make([]byte, PartitionTableMaxSize)
	n, err := f.ReadAt(table, tableOffset)
	if err != nil && !errors.Is(err, io.EOF) {
		return 0, 0, fmt.Errorf("%w: reading partition table: %w", ErrPartitionNotFound, err)
	}
	parts, err := ParsePartitionTable(table[:n])
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %w", ErrPartitionNotFound, err)
	}
	p, err := FindPartition(parts, PartitionTypeData, SubtypeDataUndefined, m.Label)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", err, m.Label)
	}
	return int64(p.Offset), int64(p.Size), nil
}
