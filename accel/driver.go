package accel

import (
	"time"

	"github.com/sarchlab/fractalhost/hooking"
	"github.com/sarchlab/fractalhost/id"
)

// HookPosRequestStart is triggered before a request touches the registers.
var HookPosRequestStart = &hooking.HookPos{Name: "RequestStart"}

// HookPosRequestDone is triggered after Done is observed or polling failed.
var HookPosRequestDone = &hooking.HookPos{Name: "RequestDone"}

// HookPosAnimationStart is triggered before the first frame of a non-empty
// animation. The item is the FrameProgram.
var HookPosAnimationStart = &hooking.HookPos{Name: "AnimationStart"}

// HookPosAnimationDone is triggered after the last frame's pause.
var HookPosAnimationDone = &hooking.HookPos{Name: "AnimationDone"}

// HookPosFrameDelay is triggered before the pause after a frame. The item is
// the pause duration.
var HookPosFrameDelay = &hooking.HookPos{Name: "FrameDelay"}

// A Driver issues computation requests to one accelerator. It is the single
// owner of the register block; requests never overlap.
type Driver struct {
	hooking.HookableBase

	name    string
	regs    Registers
	poller  Poller
	sleeper Sleeper
	idGen   id.IDGenerator
}

// Name returns the name of the driver.
func (d *Driver) Name() string {
	return d.name
}

// RunDefault computes the Mandelbrot image.
func (d *Driver) RunDefault() error {
	return d.issue(&Request{
		Kind:    KindDefault,
		Control: ControlStart,
	})
}

// RunJuliaFrame computes the Julia image of seed. Animate marks the request
// as part of a frame sequence.
func (d *Driver) RunJuliaFrame(seed Seed, animate bool) error {
	return d.runJulia(seed, animate, 0)
}

func (d *Driver) runJulia(seed Seed, animate bool, frame int) error {
	req := &Request{
		Kind:    KindJulia,
		Control: ControlMode | ControlStart,
		Seed:    seed,
		Frame:   frame,
	}

	if animate {
		req.Kind = KindAnimationFrame
		req.Control |= ControlAnimate
	}

	return d.issue(req)
}

// RunAnimation computes one animated frame per seed, in order, pausing for
// pacing after each frame. An empty program does nothing.
func (d *Driver) RunAnimation(frames FrameProgram, pacing time.Duration) error {
	if len(frames) == 0 {
		return nil
	}

	d.invoke(HookPosAnimationStart, frames)

	for i, seed := range frames {
		err := d.runJulia(seed, true, i+1)
		if err != nil {
			return err
		}

		d.invoke(HookPosFrameDelay, pacing)
		d.sleeper.Sleep(pacing)
	}

	d.invoke(HookPosAnimationDone, frames)

	return nil
}

// Run executes p: the Mandelbrot image, the still Julia image, then the
// animation. It stops at the first failure.
func (d *Driver) Run(p Program) error {
	if err := d.RunDefault(); err != nil {
		return err
	}

	if err := d.RunJuliaFrame(p.StaticSeed, false); err != nil {
		return err
	}

	return d.RunAnimation(p.Frames, p.Pacing)
}

func (d *Driver) issue(req *Request) error {
	req.ID = d.idGen.Generate()
	d.invoke(HookPosRequestStart, req)

	if req.Control.Has(ControlMode) {
		d.regs.WriteSeed(req.Seed)
	}

	d.regs.WriteControl(req.Control)

	req.Polls, req.Err = d.poller.WaitDone(d.regs)
	d.invoke(HookPosRequestDone, req)

	return req.Err
}

func (d *Driver) invoke(pos *hooking.HookPos, item interface{}) {
	if d.NumHooks() == 0 {
		return
	}

	d.InvokeHook(hooking.HookCtx{
		Domain: d,
		Pos:    pos,
		Item:   item,
	})
}
