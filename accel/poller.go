package accel

import (
	"fmt"
	"time"
)

// BusyPoller spins on Status without any bound. A hung accelerator blocks
// the caller forever.
type BusyPoller struct{}

// WaitDone reads Status until Done is set.
func (BusyPoller) WaitDone(regs Registers) (int, error) {
	polls := 0
	for {
		polls++
		if regs.ReadStatus().Done() {
			return polls, nil
		}
	}
}

// BoundedPoller gives up after MaxPolls reads without Done. Status is always
// read at least once, even if MaxPolls is not positive.
type BoundedPoller struct {
	MaxPolls int
}

// WaitDone reads Status until Done is set or the bound is reached.
func (p BoundedPoller) WaitDone(regs Registers) (int, error) {
	maxPolls := max(p.MaxPolls, 1)

	for polls := 1; polls <= maxPolls; polls++ {
		if regs.ReadStatus().Done() {
			return polls, nil
		}
	}

	return maxPolls, &TimeoutError{Polls: maxPolls}
}

// TimeoutError reports that the accelerator did not signal Done within the
// poll bound.
type TimeoutError struct {
	Polls int
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("accel: no Done after %d status reads", e.Polls)
}

// RealSleeper sleeps on the wall clock.
type RealSleeper struct{}

// Sleep calls time.Sleep.
func (RealSleeper) Sleep(d time.Duration) {
	time.Sleep(d)
}
