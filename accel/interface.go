package accel

import "time"

// Local abstractions the driver depends on, so tests can replace the hardware
// and the clock.
//
//go:generate mockgen -destination "mock_local_test.go" -package $GOPACKAGE -write_package_comment=false -source interface.go

// Registers is the register block seen by the driver.
type Registers interface {
	// WriteControl writes the Control register.
	WriteControl(c Control)

	// WriteSeed writes SeedReal and then SeedImag.
	WriteSeed(s Seed)

	// ReadStatus reads the Status register once.
	ReadStatus() Status
}

// Poller waits for the Done bit after a Start pulse.
type Poller interface {
	// WaitDone reads Status until Done is observed and returns the number of
	// reads performed.
	WaitDone(regs Registers) (polls int, err error)
}

// Sleeper paces animation frames.
type Sleeper interface {
	Sleep(d time.Duration)
}
