package accel

import "github.com/sarchlab/fractalhost/mmio"

// RegisterSet is the register block of a mapped window.
type RegisterSet struct {
	control  mmio.Reg32
	seedReal mmio.Float32Reg
	seedImag mmio.Float32Reg
	status   mmio.Reg32
}

// NewRegisterSet binds the four registers to w. It fails if the window is too
// small to hold them.
func NewRegisterSet(w *mmio.Window) (*RegisterSet, error) {
	var (
		r   RegisterSet
		err error
	)

	if r.control, err = w.Reg32At(ControlOffset); err != nil {
		return nil, err
	}

	if r.seedReal, err = w.Float32At(SeedRealOffset); err != nil {
		return nil, err
	}

	if r.seedImag, err = w.Float32At(SeedImagOffset); err != nil {
		return nil, err
	}

	if r.status, err = w.Reg32At(StatusOffset); err != nil {
		return nil, err
	}

	return &r, nil
}

// WriteControl writes the Control register.
func (r *RegisterSet) WriteControl(c Control) {
	r.control.Write(uint32(c))
}

// WriteSeed writes SeedReal and then SeedImag.
func (r *RegisterSet) WriteSeed(s Seed) {
	r.seedReal.Write(s.Real)
	r.seedImag.Write(s.Imag)
}

// ReadStatus reads the Status register.
func (r *RegisterSet) ReadStatus() Status {
	return Status(r.status.Read())
}
