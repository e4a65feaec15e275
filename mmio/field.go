package mmio

import "math"

// Reg32 reads and writes one 32-bit register.
type Reg32 struct {
	w      *Window
	offset uint64
}

// Read loads the register.
func (r Reg32) Read() uint32 {
	return r.w.load32(r.offset)
}

// Write stores value into the register.
func (r Reg32) Write(value uint32) {
	r.w.store32(r.offset, value)
}

// Offset returns the register offset within the window.
func (r Reg32) Offset() uint64 {
	return r.offset
}

// Address returns the physical address of the register.
func (r Reg32) Address() uint64 {
	return r.w.base + r.offset
}

// Float32Reg is a 32-bit register holding an IEEE-754 binary32 value. The bit
// pattern is stored unchanged.
type Float32Reg struct {
	raw Reg32
}

// Read loads the register as a float.
func (r Float32Reg) Read() float32 {
	return math.Float32frombits(r.raw.Read())
}

// Write stores value into the register.
func (r Float32Reg) Write(value float32) {
	r.raw.Write(math.Float32bits(value))
}

// Bits loads the raw bit pattern of the register.
func (r Float32Reg) Bits() uint32 {
	return r.raw.Read()
}

// Offset returns the register offset within the window.
func (r Float32Reg) Offset() uint64 {
	return r.raw.Offset()
}

// Address returns the physical address of the register.
func (r Float32Reg) Address() uint64 {
	return r.raw.Address()
}
