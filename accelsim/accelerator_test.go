package accelsim_test

import (
	"errors"
	"math"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/fractalhost/accel"
	"github.com/sarchlab/fractalhost/accelsim"
	"github.com/sarchlab/fractalhost/hooking"
	"github.com/sarchlab/fractalhost/mmio"
)

type recordingSleeper struct {
	sleeps []time.Duration
}

func (s *recordingSleeper) Sleep(d time.Duration) {
	s.sleeps = append(s.sleeps, d)
}

var _ = Describe("Accelerator", func() {
	It("should report Ready before any job", func() {
		a := accelsim.MakeBuilder().Build()

		Expect(accel.Status(a.Load32(accel.StatusOffset))).
			To(Equal(accel.StatusReady))
	})

	It("should report busy for the configured number of reads", func() {
		a := accelsim.MakeBuilder().WithLatency(2).Build()

		a.Store32(accel.ControlOffset, uint32(accel.ControlStart))

		Expect(accel.Status(a.Load32(accel.StatusOffset)).Done()).To(BeFalse())
		Expect(accel.Status(a.Load32(accel.StatusOffset)).Done()).To(BeFalse())
		Expect(accel.Status(a.Load32(accel.StatusOffset)).Done()).To(BeTrue())
		Expect(accel.Status(a.Load32(accel.StatusOffset)).Done()).To(BeTrue())
	})

	It("should ignore Control writes without Start", func() {
		a := accelsim.MakeBuilder().Build()

		a.Store32(accel.ControlOffset, uint32(accel.ControlPause))

		Expect(a.Jobs()).To(BeEmpty())
	})

	It("should latch the seed with the job", func() {
		a := accelsim.MakeBuilder().WithLatency(0).Build()

		a.Store32(accel.SeedRealOffset, math.Float32bits(-0.7))
		a.Store32(accel.SeedImagOffset, math.Float32bits(0.6))
		a.Store32(accel.ControlOffset,
			uint32(accel.ControlMode|accel.ControlStart))

		Expect(a.Jobs()).To(Equal([]accelsim.Job{{
			Control: accel.ControlMode | accel.ControlStart,
			Seed:    accel.Seed{Real: -0.7, Imag: 0.6},
		}}))
	})
})

var _ = Describe("Accelerator opener", func() {
	It("should refuse a mapping larger than the accelerator", func() {
		sim := accelsim.MakeBuilder().WithSpan(0x100).Build()
		opener := sim.Opener()

		w, err := mmio.Acquire(opener, accel.PhysBase, 0x200)

		Expect(w).To(BeNil())
		var mapErr *mmio.MappingError
		Expect(errors.As(err, &mapErr)).To(BeTrue())
		Expect(opener.OpenDevices()).To(Equal(0))
		Expect(opener.LiveRegions()).To(Equal(0))
	})

	It("should accept a mapping within the accelerator", func() {
		sim := accelsim.MakeBuilder().WithSpan(0x100).Build()

		w, err := mmio.Acquire(sim.Opener(), accel.PhysBase, 0x10)
		Expect(err).NotTo(HaveOccurred())
		Expect(w.Release()).To(Succeed())
	})
})

var _ = Describe("Full run on the simulated accelerator", func() {
	const latency = 4

	var (
		sim     *accelsim.Accelerator
		opener  *mmio.MemoryOpener
		window  *mmio.Window
		driver  *accel.Driver
		sleeper *recordingSleeper
		writes  []mmio.Access
		polls   []int
	)

	BeforeEach(func() {
		var err error

		sim = accelsim.MakeBuilder().WithLatency(latency).Build()
		opener = sim.Opener()
		window, err = mmio.Acquire(opener, accel.PhysBase, accel.Span)
		Expect(err).NotTo(HaveOccurred())

		writes = nil
		polls = nil
		window.AcceptHook(hooking.HookFunc(func(ctx hooking.HookCtx) {
			if ctx.Pos == mmio.HookPosRegWrite {
				writes = append(writes, ctx.Item.(mmio.Access))
			}
		}))

		regs, err := accel.NewRegisterSet(window)
		Expect(err).NotTo(HaveOccurred())

		sleeper = &recordingSleeper{}
		driver = accel.MakeBuilder().
			WithRegisters(regs).
			WithSleeper(sleeper).
			Build("Accel")
		driver.AcceptHook(hooking.HookFunc(func(ctx hooking.HookCtx) {
			if ctx.Pos == accel.HookPosRequestDone {
				polls = append(polls, ctx.Item.(*accel.Request).Polls)
			}
		}))
	})

	AfterEach(func() {
		if !window.Released() {
			Expect(window.Release()).To(Succeed())
		}

		Expect(opener.OpenDevices()).To(Equal(0))
		Expect(opener.LiveRegions()).To(Equal(0))
	})

	It("should issue the requests of the fixed program in order", func() {
		Expect(driver.Run(accel.DefaultProgram())).To(Succeed())

		expected := []accelsim.Job{
			{Control: accel.ControlStart},
			{
				Control: accel.ControlMode | accel.ControlStart,
				Seed:    accel.Seed{Real: -0.7, Imag: 0.6},
			},
		}
		for _, seed := range accel.DefaultFrameProgram() {
			expected = append(expected, accelsim.Job{
				Control: accel.ControlMode | accel.ControlStart |
					accel.ControlAnimate,
				Seed: seed,
			})
		}

		Expect(sim.Jobs()).To(Equal(expected))
		Expect(sleeper.sleeps).To(HaveLen(7))
		Expect(sleeper.sleeps).To(HaveEach(500 * time.Millisecond))
	})

	It("should poll each request exactly latency+1 times", func() {
		Expect(driver.Run(accel.DefaultProgram())).To(Succeed())

		Expect(polls).To(HaveLen(9))
		Expect(polls).To(HaveEach(latency + 1))
		Expect(sim.Polls()).To(Equal(9 * (latency + 1)))
	})

	It("should write seeds and pulses once per animated frame", func() {
		frames := accel.DefaultFrameProgram()

		Expect(driver.RunAnimation(frames, accel.DefaultPacing)).To(Succeed())

		var realWrites, imagWrites, animatePulses int
		for _, w := range writes {
			switch w.Offset {
			case accel.SeedRealOffset:
				Expect(w.Value).To(Equal(
					math.Float32bits(frames[realWrites].Real)))
				realWrites++
			case accel.SeedImagOffset:
				Expect(w.Value).To(Equal(
					math.Float32bits(frames[imagWrites].Imag)))
				imagWrites++
			case accel.ControlOffset:
				Expect(accel.Control(w.Value).Has(accel.ControlAnimate)).
					To(BeTrue())
				animatePulses++
			}
		}

		Expect(realWrites).To(Equal(len(frames)))
		Expect(imagWrites).To(Equal(len(frames)))
		Expect(animatePulses).To(Equal(len(frames)))
	})

	It("should not touch the registers for an empty animation", func() {
		Expect(driver.RunAnimation(accel.FrameProgram{}, accel.DefaultPacing)).
			To(Succeed())

		Expect(writes).To(BeEmpty())
		Expect(sim.Jobs()).To(BeEmpty())
		Expect(sleeper.sleeps).To(BeEmpty())
	})

	It("should stop polling a hung accelerator with a bounded poller", func() {
		hung := accelsim.MakeBuilder().WithLatency(1000).Build()
		w, err := mmio.Acquire(hung.Opener(), accel.PhysBase, accel.Span)
		Expect(err).NotTo(HaveOccurred())
		defer w.Release()

		regs, err := accel.NewRegisterSet(w)
		Expect(err).NotTo(HaveOccurred())

		d := accel.MakeBuilder().
			WithRegisters(regs).
			WithPoller(accel.BoundedPoller{MaxPolls: 10}).
			Build("Hung")

		err = d.RunDefault()

		var timeout *accel.TimeoutError
		Expect(errors.As(err, &timeout)).To(BeTrue())
		Expect(hung.Polls()).To(Equal(10))
	})
})
