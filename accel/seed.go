package accel

import (
	"fmt"
	"math"
	"time"
)

// A Seed is the complex-plane coordinate parametrizing a Julia set. Values
// are passed to the hardware unchecked.
type Seed struct {
	Real float32
	Imag float32
}

func (s Seed) String() string {
	return fmt.Sprintf("(%.1f, %.1f)", s.Real, s.Imag)
}

// ComplexString formats the seed as a complex number, e.g. -0.7 + 0.6i.
func (s Seed) ComplexString() string {
	sign := "+"
	if math.Signbit(float64(s.Imag)) {
		sign = "-"
	}

	return fmt.Sprintf("%.1f %s %.1fi",
		s.Real, sign, math.Abs(float64(s.Imag)))
}

// A FrameProgram is the ordered list of seeds of one animation, one frame
// per seed.
type FrameProgram []Seed

// StaticJuliaSeed is the seed of the single still Julia image.
var StaticJuliaSeed = Seed{Real: -0.7, Imag: 0.6}

// DefaultPacing is the pause after each animation frame.
const DefaultPacing = 500 * time.Millisecond

// DefaultFrameProgram returns the animation shipped with the hardware demo.
func DefaultFrameProgram() FrameProgram {
	return FrameProgram{
		{Real: -0.6, Imag: 0.6},
		{Real: -0.5, Imag: 0.6},
		{Real: -0.4, Imag: 0.6},
		{Real: -0.8, Imag: 0.3},
		{Real: -0.8, Imag: 0.2},
		{Real: -0.6, Imag: 0.5},
		{Real: -0.3, Imag: 0.6},
	}
}

// A Program is the full run: one Mandelbrot image, one still Julia image, and
// an animation.
type Program struct {
	StaticSeed Seed
	Frames     FrameProgram
	Pacing     time.Duration
}

// DefaultProgram returns the fixed demo program.
func DefaultProgram() Program {
	return Program{
		StaticSeed: StaticJuliaSeed,
		Frames:     DefaultFrameProgram(),
		Pacing:     DefaultPacing,
	}
}
