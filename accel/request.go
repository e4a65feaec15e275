package accel

import "fmt"

// Kind classifies a computation request.
type Kind int

// Kinds of requests.
const (
	KindDefault Kind = iota
	KindJulia
	KindAnimationFrame
)

func (k Kind) String() string {
	switch k {
	case KindDefault:
		return "mandelbrot"
	case KindJulia:
		return "julia"
	case KindAnimationFrame:
		return "frame"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// A Request is one Start/Done handshake. It is the item of the request hooks;
// Polls and Err are only valid at HookPosRequestDone.
type Request struct {
	ID      string
	Kind    Kind
	Control Control
	Seed    Seed

	// Frame is the 1-based position in the animation, or 0 outside of one.
	Frame int

	Polls int
	Err   error
}

func (r *Request) String() string {
	s := fmt.Sprintf("%s %s control=%s", r.ID, r.Kind, r.Control)
	if r.Control.Has(ControlMode) {
		s += " seed=" + r.Seed.String()
	}

	if r.Frame > 0 {
		s += fmt.Sprintf(" frame=%d", r.Frame)
	}

	if r.Polls > 0 {
		s += fmt.Sprintf(" polls=%d", r.Polls)
	}

	return s
}
