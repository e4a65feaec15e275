package accel

import "github.com/sarchlab/fractalhost/id"

// Builder can build accelerator drivers.
type Builder struct {
	regs    Registers
	poller  Poller
	sleeper Sleeper
	idGen   id.IDGenerator
}

// MakeBuilder returns a Builder that polls without bound and sleeps on the
// wall clock.
func MakeBuilder() Builder {
	return Builder{
		poller:  BusyPoller{},
		sleeper: RealSleeper{},
	}
}

// WithRegisters sets the register block to drive. It is required.
func (b Builder) WithRegisters(regs Registers) Builder {
	b.regs = regs
	return b
}

// WithPoller sets how Done is waited for.
func (b Builder) WithPoller(poller Poller) Builder {
	b.poller = poller
	return b
}

// WithSleeper sets how frames are paced.
func (b Builder) WithSleeper(sleeper Sleeper) Builder {
	b.sleeper = sleeper
	return b
}

// WithIDGenerator sets the generator of request IDs.
func (b Builder) WithIDGenerator(idGen id.IDGenerator) Builder {
	b.idGen = idGen
	return b
}

// Build creates a Driver.
func (b Builder) Build(name string) *Driver {
	if b.regs == nil {
		panic("accel: registers are not set")
	}

	d := &Driver{
		name:    name,
		regs:    b.regs,
		poller:  b.poller,
		sleeper: b.sleeper,
		idGen:   b.idGen,
	}

	if d.idGen == nil {
		d.idGen = id.NewIDGenerator()
	}

	return d
}
