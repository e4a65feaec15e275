// Package accelsim provides a behavioral model of the fractal accelerator.
// It plugs into mmio in place of /dev/mem, so the host program can run end to
// end without the FPGA.
package accelsim

import (
	"fmt"
	"math"

	"github.com/sarchlab/fractalhost/accel"
	"github.com/sarchlab/fractalhost/mmio"
)

// A Job is a computation the accelerator accepted.
type Job struct {
	Control accel.Control
	Seed    accel.Seed
}

// An Accelerator is an ideal accelerator that finishes every job after a
// fixed number of Status reads. It implements mmio.Region.
type Accelerator struct {
	latency int
	storage *mmio.MemoryRegion

	status    accel.Status
	remaining int
	jobs      []Job
	polls     int
}

// Len returns the span of the register window.
func (a *Accelerator) Len() int {
	return a.storage.Len()
}

// Load32 reads a register. Reading Status advances the current job.
func (a *Accelerator) Load32(offset uint64) uint32 {
	if offset != accel.StatusOffset {
		return a.storage.Load32(offset)
	}

	a.polls++

	if a.remaining > 0 {
		a.remaining--
		if a.remaining > 0 {
			return uint32(a.status)
		}

		a.status = accel.StatusReady | accel.StatusDone
		return uint32(a.status)
	}

	return uint32(a.status)
}

// Store32 writes a register. A Control write with Start set latches a job.
func (a *Accelerator) Store32(offset uint64, value uint32) {
	switch offset {
	case accel.StatusOffset:
		return
	case accel.ControlOffset:
		a.control(accel.Control(value))
	}

	a.storage.Store32(offset, value)
}

func (a *Accelerator) control(c accel.Control) {
	if !c.Has(accel.ControlStart) {
		return
	}

	job := Job{Control: c}
	if c.Has(accel.ControlMode) {
		job.Seed = accel.Seed{
			Real: math.Float32frombits(a.storage.Load32(accel.SeedRealOffset)),
			Imag: math.Float32frombits(a.storage.Load32(accel.SeedImagOffset)),
		}
	}

	a.jobs = append(a.jobs, job)

	if a.latency == 0 {
		a.status = accel.StatusReady | accel.StatusDone
		return
	}

	a.status = 0
	a.remaining = a.latency + 1
}

// Unmap does nothing; the model keeps its state for inspection.
func (a *Accelerator) Unmap() error {
	return nil
}

// Jobs returns the jobs accepted so far, in issue order.
func (a *Accelerator) Jobs() []Job {
	return a.jobs
}

// Polls returns the number of Status reads so far.
func (a *Accelerator) Polls() int {
	return a.polls
}

// Opener returns an mmio.Opener whose mappings are backed by the model. A
// mapping larger than the model's span fails.
func (a *Accelerator) Opener() *mmio.MemoryOpener {
	return &mmio.MemoryOpener{
		NewRegion: func(_ uint64, span int) (mmio.Region, error) {
			if span > a.Len() {
				return nil, fmt.Errorf(
					"accelsim: cannot map 0x%x bytes of a 0x%x-byte accelerator",
					span, a.Len())
			}

			return a, nil
		},
	}
}
