package accelsim

import (
	"github.com/sarchlab/fractalhost/accel"
	"github.com/sarchlab/fractalhost/mmio"
)

// Builder can build simulated accelerators.
type Builder struct {
	latency int
	span    int
}

// MakeBuilder returns a Builder for an accelerator spanning the full
// hardware window that reports busy for 3 Status reads per job.
func MakeBuilder() Builder {
	return Builder{
		latency: 3,
		span:    accel.Span,
	}
}

// WithLatency sets the number of Status reads that report busy before a job
// is done.
func (b Builder) WithLatency(latency int) Builder {
	b.latency = latency
	return b
}

// WithSpan sets the size of the register window.
func (b Builder) WithSpan(span int) Builder {
	b.span = span
	return b
}

// Build creates an idle accelerator.
func (b Builder) Build() *Accelerator {
	if b.latency < 0 {
		panic("accelsim: latency must not be negative")
	}

	return &Accelerator{
		latency: b.latency,
		storage: mmio.NewMemoryRegion(b.span),
		status:  accel.StatusReady,
	}
}
