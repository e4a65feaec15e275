package mmio

import "sync/atomic"

const memoryUnitWords = 1024

// A MemoryRegion is a heap-backed Region. Storage is allocated lazily in
// 4 KiB units, so a large span only costs memory where it is touched.
type MemoryRegion struct {
	span  int
	units map[uint64][]uint32
}

// NewMemoryRegion creates a zeroed region of span bytes.
func NewMemoryRegion(span int) *MemoryRegion {
	return &MemoryRegion{
		span:  span,
		units: make(map[uint64][]uint32),
	}
}

func (r *MemoryRegion) word(offset uint64) *uint32 {
	if offset%4 != 0 || offset+4 > uint64(r.span) {
		panic(&FieldRangeError{Offset: offset, Width: 4, Span: r.span})
	}

	index := offset / 4
	unitBase := index - index%memoryUnitWords

	unit, ok := r.units[unitBase]
	if !ok {
		unit = make([]uint32, memoryUnitWords)
		r.units[unitBase] = unit
	}

	return &unit[index-unitBase]
}

// Len returns the span of the region.
func (r *MemoryRegion) Len() int {
	return r.span
}

// Load32 reads the word at offset.
func (r *MemoryRegion) Load32(offset uint64) uint32 {
	return atomic.LoadUint32(r.word(offset))
}

// Store32 writes the word at offset.
func (r *MemoryRegion) Store32(offset uint64, value uint32) {
	atomic.StoreUint32(r.word(offset), value)
}

// Unmap drops the backing storage.
func (r *MemoryRegion) Unmap() error {
	r.units = make(map[uint64][]uint32)
	return nil
}

// A MemoryOpener stands in for /dev/mem where there is no hardware. It keeps
// count of the devices and regions that are still live so that leaks can be
// detected, and it can be told to fail at any step.
type MemoryOpener struct {
	// OpenErr, MapErr, UnmapErr and CloseErr, when set, are returned by the
	// corresponding step.
	OpenErr  error
	MapErr   error
	UnmapErr error
	CloseErr error

	// NewRegion creates the region returned by Map. It defaults to
	// NewMemoryRegion. An error fails the Map.
	NewRegion func(base uint64, span int) (Region, error)

	openDevices int
	liveRegions int
	lastRegion  Region
}

// Name returns "memory".
func (o *MemoryOpener) Name() string {
	return "memory"
}

// Open creates a new in-memory device.
func (o *MemoryOpener) Open() (Device, error) {
	if o.OpenErr != nil {
		return nil, o.OpenErr
	}

	o.openDevices++

	return &memoryDevice{opener: o}, nil
}

// OpenDevices returns the number of devices that are open.
func (o *MemoryOpener) OpenDevices() int {
	return o.openDevices
}

// LiveRegions returns the number of regions that are mapped.
func (o *MemoryOpener) LiveRegions() int {
	return o.liveRegions
}

// LastRegion returns the region created by the latest successful Map.
func (o *MemoryOpener) LastRegion() Region {
	return o.lastRegion
}

type memoryDevice struct {
	opener *MemoryOpener
	closed bool
}

func (d *memoryDevice) Map(base uint64, span int) (Region, error) {
	o := d.opener
	if o.MapErr != nil {
		return nil, o.MapErr
	}

	region, err := o.newRegion(base, span)
	if err != nil {
		return nil, err
	}

	o.liveRegions++
	o.lastRegion = region

	return &trackedRegion{Region: region, opener: o}, nil
}

func (o *MemoryOpener) newRegion(base uint64, span int) (Region, error) {
	if o.NewRegion == nil {
		return NewMemoryRegion(span), nil
	}

	return o.NewRegion(base, span)
}

func (d *memoryDevice) Close() error {
	if d.closed {
		return ErrReleased
	}

	d.closed = true
	d.opener.openDevices--

	return d.opener.CloseErr
}

type trackedRegion struct {
	Region
	opener *MemoryOpener
}

func (r *trackedRegion) Unmap() error {
	if r.opener.UnmapErr != nil {
		return r.opener.UnmapErr
	}

	r.opener.liveRegions--

	return r.Region.Unmap()
}
