package accel

import (
	"fmt"
	"io"

	"github.com/sarchlab/fractalhost/hooking"
)

// ConsoleHook prints a progress line at every phase of a run.
type ConsoleHook struct {
	w io.Writer
}

// NewConsoleHook creates a ConsoleHook writing to w.
func NewConsoleHook(w io.Writer) *ConsoleHook {
	return &ConsoleHook{w: w}
}

// Func prints the line matching the hook site.
func (h *ConsoleHook) Func(ctx hooking.HookCtx) {
	switch ctx.Pos {
	case HookPosRequestStart:
		h.requestStart(ctx.Item.(*Request))
	case HookPosRequestDone:
		h.requestDone(ctx.Item.(*Request))
	case HookPosAnimationDone:
		fmt.Fprintln(h.w, "animation complete")
	}
}

func (h *ConsoleHook) requestStart(req *Request) {
	switch req.Kind {
	case KindDefault:
		fmt.Fprintln(h.w, "Starting Mandelbrot")
	case KindJulia:
		fmt.Fprintf(h.w, "Starting Julia with seed %s\n",
			req.Seed.ComplexString())
	case KindAnimationFrame:
		fmt.Fprintf(h.w, "animating frame %d with seed %s\n",
			req.Frame, req.Seed)
	}
}

func (h *ConsoleHook) requestDone(req *Request) {
	if req.Err != nil {
		return
	}

	switch req.Kind {
	case KindDefault:
		fmt.Fprintln(h.w, "Mandelbrot complete")
	case KindJulia:
		fmt.Fprintln(h.w, "Julia complete")
	}
}
