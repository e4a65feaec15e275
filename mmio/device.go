// Package mmio maps a physical register range into the process and hands out
// typed accessors for the registers inside it.
package mmio

//go:generate mockgen -destination "mock_mmio_test.go" -package $GOPACKAGE -write_package_comment=false -source device.go

// Opener opens the privileged device that backs physical memory.
type Opener interface {
	// Name identifies the device in error messages.
	Name() string

	// Open acquires the device handle.
	Open() (Device, error)
}

// Device is an opened handle onto physical memory.
type Device interface {
	// Map establishes a shared read/write mapping of span bytes starting at
	// the physical address base.
	Map(base uint64, span int) (Region, error)

	// Close releases the handle. Regions already mapped stay valid until
	// they are unmapped.
	Close() error
}

// Region is a mapped range. Offsets are relative to the start of the range
// and must be 4-byte aligned; every access is a single 32-bit bus cycle.
type Region interface {
	Len() int
	Load32(offset uint64) uint32
	Store32(offset uint64, value uint32)
	Unmap() error
}
