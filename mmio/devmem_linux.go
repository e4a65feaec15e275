//go:build linux

package mmio

import (
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

// DefaultDevMemPath is the character device exposing physical memory.
const DefaultDevMemPath = "/dev/mem"

// DevMem opens physical memory through /dev/mem. Opening requires root or
// CAP_SYS_RAWIO.
type DevMem struct {
	Path string
}

// Name returns the device path.
func (d DevMem) Name() string {
	if d.Path == "" {
		return DefaultDevMemPath
	}

	return d.Path
}

// Open opens the device uncached for reading and writing.
func (d DevMem) Open() (Device, error) {
	fd, err := unix.Open(d.Name(), unix.O_RDWR|unix.O_SYNC|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, err
	}

	return &devMemDevice{fd: fd}, nil
}

type devMemDevice struct {
	fd int
}

func (d *devMemDevice) Map(base uint64, span int) (Region, error) {
	mem, err := unix.Mmap(
		d.fd,
		int64(base),
		span,
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_SHARED,
	)
	if err != nil {
		return nil, err
	}

	return &mappedRegion{mem: mem}, nil
}

func (d *devMemDevice) Close() error {
	return unix.Close(d.fd)
}

// mappedRegion accesses device registers with word-sized atomic operations so
// the compiler never splits, merges or elides an access.
type mappedRegion struct {
	mem []byte
}

func (r *mappedRegion) Len() int {
	return len(r.mem)
}

func (r *mappedRegion) word(offset uint64) *uint32 {
	return (*uint32)(unsafe.Pointer(&r.mem[offset]))
}

func (r *mappedRegion) Load32(offset uint64) uint32 {
	return atomic.LoadUint32(r.word(offset))
}

func (r *mappedRegion) Store32(offset uint64, value uint32) {
	atomic.StoreUint32(r.word(offset), value)
}

func (r *mappedRegion) Unmap() error {
	err := unix.Munmap(r.mem)
	if err == nil {
		r.mem = nil
	}

	return err
}
