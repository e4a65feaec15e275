package accel

import (
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/fractalhost/hooking"
)

var _ = Describe("Driver", func() {
	var (
		mockCtrl *gomock.Controller
		regs     *MockRegisters
		sleeper  *MockSleeper
		driver   *Driver
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		regs = NewMockRegisters(mockCtrl)
		sleeper = NewMockSleeper(mockCtrl)

		driver = MakeBuilder().
			WithRegisters(regs).
			WithSleeper(sleeper).
			Build("Accel")
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	expectPolls := func(busy int) *gomock.Call {
		calls := make([]any, 0, busy+1)
		if busy > 0 {
			calls = append(calls,
				regs.EXPECT().ReadStatus().Return(Status(0)).Times(busy))
		}

		done := regs.EXPECT().ReadStatus().Return(StatusReady | StatusDone)
		calls = append(calls, done)
		gomock.InOrder(calls...)

		return done
	}

	It("should pulse Start only for the default computation", func() {
		gomock.InOrder(
			regs.EXPECT().WriteControl(ControlStart),
			expectPolls(0),
		)

		Expect(driver.RunDefault()).To(Succeed())
	})

	It("should not return before Done is observed", func() {
		const busy = 5
		var polls int
		driver.AcceptHook(hooking.HookFunc(func(ctx hooking.HookCtx) {
			if ctx.Pos == HookPosRequestDone {
				polls = ctx.Item.(*Request).Polls
			}
		}))

		regs.EXPECT().WriteControl(ControlStart)
		expectPolls(busy)

		Expect(driver.RunDefault()).To(Succeed())
		Expect(polls).To(Equal(busy + 1))
	})

	It("should write the seed before starting a Julia frame", func() {
		seed := Seed{Real: -0.7, Imag: 0.6}
		gomock.InOrder(
			regs.EXPECT().WriteSeed(seed),
			regs.EXPECT().WriteControl(ControlMode|ControlStart),
			expectPolls(3),
		)

		Expect(driver.RunJuliaFrame(seed, false)).To(Succeed())
	})

	It("should set Animate on animated Julia frames", func() {
		seed := Seed{Real: -0.6, Imag: 0.6}
		gomock.InOrder(
			regs.EXPECT().WriteSeed(seed),
			regs.EXPECT().
				WriteControl(ControlMode|ControlStart|ControlAnimate),
			expectPolls(0),
		)

		Expect(driver.RunJuliaFrame(seed, true)).To(Succeed())
	})

	It("should do nothing for an empty animation", func() {
		invoked := false
		driver.AcceptHook(hooking.HookFunc(func(hooking.HookCtx) {
			invoked = true
		}))

		Expect(driver.RunAnimation(nil, time.Second)).To(Succeed())
		Expect(driver.RunAnimation(FrameProgram{}, time.Second)).To(Succeed())
		Expect(invoked).To(BeFalse())
	})

	It("should run the frames in order with a pause after each", func() {
		frames := FrameProgram{
			{Real: -0.6, Imag: 0.6},
			{Real: -0.8, Imag: 0.3},
			{Real: -0.3, Imag: 0.6},
		}
		pacing := 500 * time.Millisecond

		var calls []any
		for _, seed := range frames {
			calls = append(calls,
				regs.EXPECT().WriteSeed(seed),
				regs.EXPECT().
					WriteControl(ControlMode|ControlStart|ControlAnimate),
				regs.EXPECT().ReadStatus().Return(StatusDone),
				sleeper.EXPECT().Sleep(pacing),
			)
		}
		gomock.InOrder(calls...)

		var frameNumbers []int
		driver.AcceptHook(hooking.HookFunc(func(ctx hooking.HookCtx) {
			if ctx.Pos == HookPosRequestStart {
				frameNumbers = append(frameNumbers, ctx.Item.(*Request).Frame)
			}
		}))

		Expect(driver.RunAnimation(frames, pacing)).To(Succeed())
		Expect(frameNumbers).To(Equal([]int{1, 2, 3}))
	})

	It("should stop the animation at a poll failure", func() {
		timeout := &TimeoutError{Polls: 2}
		poller := NewMockPoller(mockCtrl)
		driver = MakeBuilder().
			WithRegisters(regs).
			WithSleeper(sleeper).
			WithPoller(poller).
			Build("Accel")

		regs.EXPECT().WriteSeed(gomock.Any())
		regs.EXPECT().WriteControl(gomock.Any())
		poller.EXPECT().WaitDone(regs).Return(2, timeout)

		err := driver.RunAnimation(DefaultFrameProgram(), time.Second)

		Expect(err).To(MatchError(timeout))
	})

	It("should run the whole program in order", func() {
		program := DefaultProgram()

		calls := []any{
			regs.EXPECT().WriteControl(ControlStart),
			regs.EXPECT().ReadStatus().Return(StatusDone),
			regs.EXPECT().WriteSeed(StaticJuliaSeed),
			regs.EXPECT().WriteControl(ControlMode | ControlStart),
			regs.EXPECT().ReadStatus().Return(StatusDone),
		}
		for _, seed := range program.Frames {
			calls = append(calls,
				regs.EXPECT().WriteSeed(seed),
				regs.EXPECT().
					WriteControl(ControlMode|ControlStart|ControlAnimate),
				regs.EXPECT().ReadStatus().Return(StatusDone),
				sleeper.EXPECT().Sleep(DefaultPacing),
			)
		}
		gomock.InOrder(calls...)

		Expect(driver.Run(program)).To(Succeed())
	})

	It("should not start Julia if the default computation fails", func() {
		poller := NewMockPoller(mockCtrl)
		driver = MakeBuilder().
			WithRegisters(regs).
			WithPoller(poller).
			Build("Accel")

		failure := errors.New("stuck")
		regs.EXPECT().WriteControl(ControlStart)
		poller.EXPECT().WaitDone(regs).Return(0, failure)

		Expect(driver.Run(DefaultProgram())).To(MatchError(failure))
	})

	It("should panic without registers", func() {
		Expect(func() { MakeBuilder().Build("Accel") }).To(Panic())
	})
})

var _ = Describe("BoundedPoller", func() {
	var (
		mockCtrl *gomock.Controller
		regs     *MockRegisters
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		regs = NewMockRegisters(mockCtrl)
	})

	It("should return once Done is seen", func() {
		gomock.InOrder(
			regs.EXPECT().ReadStatus().Return(Status(0)).Times(2),
			regs.EXPECT().ReadStatus().Return(StatusDone),
		)

		polls, err := BoundedPoller{MaxPolls: 10}.WaitDone(regs)

		Expect(err).NotTo(HaveOccurred())
		Expect(polls).To(Equal(3))
	})

	It("should time out after the bound", func() {
		regs.EXPECT().ReadStatus().Return(StatusReady).Times(4)

		polls, err := BoundedPoller{MaxPolls: 4}.WaitDone(regs)

		var timeout *TimeoutError
		Expect(errors.As(err, &timeout)).To(BeTrue())
		Expect(timeout.Polls).To(Equal(4))
		Expect(polls).To(Equal(4))
	})

	It("should read Status once when the bound is not positive", func() {
		regs.EXPECT().ReadStatus().Return(StatusDone)

		polls, err := BoundedPoller{MaxPolls: 0}.WaitDone(regs)

		Expect(err).NotTo(HaveOccurred())
		Expect(polls).To(Equal(1))
	})

	It("should time out after one read when the bound is not positive", func() {
		regs.EXPECT().ReadStatus().Return(StatusReady)

		polls, err := BoundedPoller{MaxPolls: -3}.WaitDone(regs)

		var timeout *TimeoutError
		Expect(errors.As(err, &timeout)).To(BeTrue())
		Expect(timeout.Polls).To(Equal(1))
		Expect(polls).To(Equal(1))
	})
})
