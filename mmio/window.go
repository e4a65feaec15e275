package mmio

import (
	"errors"
	"fmt"

	"github.com/sarchlab/fractalhost/hooking"
)

// HookPosRegRead is triggered after a register is read through a Window.
var HookPosRegRead = &hooking.HookPos{Name: "RegRead"}

// HookPosRegWrite is triggered after a register is written through a Window.
var HookPosRegWrite = &hooking.HookPos{Name: "RegWrite"}

// Access is the hook item of HookPosRegRead and HookPosRegWrite.
type Access struct {
	Offset uint64
	Value  uint32
}

func (a Access) String() string {
	return fmt.Sprintf("[0x%02x]=0x%08x", a.Offset, a.Value)
}

// A Window exclusively owns one mapping of a physical register range. All
// register access goes through accessors created from it.
type Window struct {
	hooking.HookableBase

	device   string
	base     uint64
	span     int
	dev      Device
	region   Region
	released bool
}

// Acquire opens the device and maps span bytes at the physical address base.
//
// If the device cannot be opened, a *DeviceOpenError is returned. If mapping
// fails, the device is closed and a *MappingError is returned. Both match
// ErrDeviceAccess. On success the caller must call Release exactly once.
//
// Acquire keeps no registry of live windows. Callers must not hold two
// windows over the same physical range at once.
func Acquire(opener Opener, base uint64, span int) (*Window, error) {
	dev, err := opener.Open()
	if err != nil {
		return nil, &DeviceOpenError{Device: opener.Name(), Err: err}
	}

	if span <= 0 {
		return nil, &MappingError{
			Base: base,
			Span: span,
			Err:  joinClose(errInvalidSpan, dev),
		}
	}

	region, err := dev.Map(base, span)
	if err != nil {
		return nil, &MappingError{
			Base: base,
			Span: span,
			Err:  joinClose(err, dev),
		}
	}

	w := &Window{
		device: opener.Name(),
		base:   base,
		span:   span,
		dev:    dev,
		region: region,
	}

	return w, nil
}

func joinClose(err error, dev Device) error {
	if closeErr := dev.Close(); closeErr != nil {
		return errors.Join(err, closeErr)
	}

	return err
}

// Release unmaps the region and closes the device. The device is closed even
// if unmapping fails, in which case an *UnmapError is returned. Calling
// Release again returns ErrReleased.
func (w *Window) Release() error {
	if w.released {
		return ErrReleased
	}

	w.released = true

	var err error

	if unmapErr := w.region.Unmap(); unmapErr != nil {
		err = &UnmapError{Base: w.base, Span: w.span, Err: unmapErr}
	}

	if closeErr := w.dev.Close(); closeErr != nil {
		err = errors.Join(err,
			fmt.Errorf("mmio: could not close %s: %w", w.device, closeErr))
	}

	w.region = nil
	w.dev = nil

	return err
}

// Base returns the physical address the window starts at.
func (w *Window) Base() uint64 {
	return w.base
}

// Span returns the number of mapped bytes.
func (w *Window) Span() int {
	return w.span
}

// Released tells if Release has been called.
func (w *Window) Released() bool {
	return w.released
}

// Reg32At returns a 32-bit register accessor at offset.
func (w *Window) Reg32At(offset uint64) (Reg32, error) {
	if err := w.checkField(offset, 4); err != nil {
		return Reg32{}, err
	}

	return Reg32{w: w, offset: offset}, nil
}

// Float32At returns an IEEE-754 binary32 register accessor at offset.
func (w *Window) Float32At(offset uint64) (Float32Reg, error) {
	raw, err := w.Reg32At(offset)
	if err != nil {
		return Float32Reg{}, err
	}

	return Float32Reg{raw: raw}, nil
}

func (w *Window) checkField(offset uint64, width int) error {
	if w.released {
		return ErrReleased
	}

	if offset%uint64(width) != 0 || offset+uint64(width) > uint64(w.span) {
		return &FieldRangeError{Offset: offset, Width: width, Span: w.span}
	}

	return nil
}

func (w *Window) load32(offset uint64) uint32 {
	w.mustBeMapped()

	value := w.region.Load32(offset)

	if w.NumHooks() > 0 {
		w.InvokeHook(hooking.HookCtx{
			Domain: w,
			Pos:    HookPosRegRead,
			Item:   Access{Offset: offset, Value: value},
		})
	}

	return value
}

func (w *Window) store32(offset uint64, value uint32) {
	w.mustBeMapped()

	w.region.Store32(offset, value)

	if w.NumHooks() > 0 {
		w.InvokeHook(hooking.HookCtx{
			Domain: w,
			Pos:    HookPosRegWrite,
			Item:   Access{Offset: offset, Value: value},
		})
	}
}

func (w *Window) mustBeMapped() {
	if w.released {
		panic(ErrReleased)
	}
}
