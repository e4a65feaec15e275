package mmio

import (
	"errors"
	"fmt"
)

var (
	// ErrDeviceAccess is matched by every error that prevents a Window from
	// being acquired.
	ErrDeviceAccess = errors.New("mmio: device access failed")

	// ErrReleased is returned when a released Window is used again.
	ErrReleased = errors.New("mmio: window already released")

	// ErrUnsupportedPlatform is returned by DevMem where physical memory
	// cannot be mapped.
	ErrUnsupportedPlatform = errors.New(
		"mmio: physical memory mapping is not supported on this platform")

	errInvalidSpan = errors.New("mmio: span must be positive")
)

// DeviceOpenError reports that the privileged memory device could not be
// opened. Nothing is left open when it is returned.
type DeviceOpenError struct {
	Device string
	Err    error
}

func (e *DeviceOpenError) Error() string {
	return fmt.Sprintf("mmio: could not open %s: %v", e.Device, e.Err)
}

func (e *DeviceOpenError) Unwrap() error { return e.Err }

// Is makes DeviceOpenError match ErrDeviceAccess.
func (e *DeviceOpenError) Is(target error) bool {
	return target == ErrDeviceAccess
}

// MappingError reports that the device was opened but the physical range
// could not be mapped. The device has been closed when it is returned.
type MappingError struct {
	Base uint64
	Span int
	Err  error
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("mmio: could not map 0x%08x+0x%x: %v",
		e.Base, e.Span, e.Err)
}

func (e *MappingError) Unwrap() error { return e.Err }

// Is makes MappingError match ErrDeviceAccess.
func (e *MappingError) Is(target error) bool {
	return target == ErrDeviceAccess
}

// UnmapError reports a failed teardown. The work done through the window is
// not affected.
type UnmapError struct {
	Base uint64
	Span int
	Err  error
}

func (e *UnmapError) Error() string {
	return fmt.Sprintf("mmio: could not unmap 0x%08x+0x%x: %v",
		e.Base, e.Span, e.Err)
}

func (e *UnmapError) Unwrap() error { return e.Err }

// FieldRangeError reports a register accessor that would not fit in the
// window.
type FieldRangeError struct {
	Offset uint64
	Width  int
	Span   int
}

func (e *FieldRangeError) Error() string {
	return fmt.Sprintf(
		"mmio: %d-byte field at offset 0x%x does not fit an aligned slot in span 0x%x",
		e.Width, e.Offset, e.Span)
}
