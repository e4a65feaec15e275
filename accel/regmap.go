// Package accel drives the fractal accelerator through its memory-mapped
// register block.
//
// The host writes the seed registers, pulses Start in Control, and then polls
// Status until Done is set. Status is the only source of truth; Control is
// never read back.
package accel

import "strings"

// Platform constants of the hardware instance. The register block sits at the
// start of the mapped range.
const (
	PhysBase uint64 = 0xFC000000
	Span            = 0x04000000
)

// Register offsets relative to PhysBase.
const (
	ControlOffset  uint64 = 0x00
	SeedRealOffset uint64 = 0x04
	SeedImagOffset uint64 = 0x08
	StatusOffset   uint64 = 0x0C
)

// Control is the write-only command register.
type Control uint32

// Control bits.
const (
	// ControlMode selects the Julia set when set and the Mandelbrot set when
	// clear.
	ControlMode Control = 1 << iota
	ControlStart
	ControlAnimate
	ControlPause
)

var controlNames = []struct {
	bit  Control
	name string
}{
	{ControlMode, "Mode"},
	{ControlStart, "Start"},
	{ControlAnimate, "Animate"},
	{ControlPause, "Pause"},
}

// Has tells if all the bits in flags are set.
func (c Control) Has(flags Control) bool {
	return c&flags == flags
}

func (c Control) String() string {
	var names []string
	for _, n := range controlNames {
		if c.Has(n.bit) {
			names = append(names, n.name)
		}
	}

	if len(names) == 0 {
		return "0"
	}

	return strings.Join(names, "|")
}

// Status is the read-only state register.
type Status uint32

// Status bits.
const (
	StatusReady Status = 1 << iota
	StatusDone
)

// Ready tells if the accelerator accepts a new Start.
func (s Status) Ready() bool {
	return s&StatusReady != 0
}

// Done tells if the last started computation has completed.
func (s Status) Done() bool {
	return s&StatusDone != 0
}

func (s Status) String() string {
	var names []string
	if s.Ready() {
		names = append(names, "Ready")
	}

	if s.Done() {
		names = append(names, "Done")
	}

	if len(names) == 0 {
		return "Busy"
	}

	return strings.Join(names, "|")
}
