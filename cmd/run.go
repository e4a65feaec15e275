package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/shirou/gopsutil/process"
	"github.com/spf13/cobra"

	"github.com/sarchlab/fractalhost/accel"
	"github.com/sarchlab/fractalhost/accelsim"
	"github.com/sarchlab/fractalhost/hooking"
	"github.com/sarchlab/fractalhost/id"
	"github.com/sarchlab/fractalhost/mmio"
	"github.com/sarchlab/fractalhost/monitoring"
	"github.com/sarchlab/fractalhost/tracing"
)

// frameSleeper paces the animation.
var frameSleeper accel.Sleeper = accel.RealSleeper{}

// newOpener selects the device the registers are mapped from.
var newOpener = func(o runOptions) mmio.Opener {
	return o.opener()
}

type runOptions struct {
	device      string
	simulate    bool
	simLatency  int
	trace       bool
	traceDB     string
	monitorPort int
	pollLimit   int
	verbose     bool
}

func newRunCommand() *cobra.Command {
	opts := runOptions{}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Render the Mandelbrot, Julia and animated Julia images.",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return applyEnv(cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !opts.simulate {
				warnIfUnprivileged(cmd.ErrOrStderr())
			}

			return runProgram(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	flags := runCmd.Flags()
	flags.StringVar(&opts.device, "device", mmio.DefaultDevMemPath,
		"The physical memory device to map the registers from.")
	flags.BoolVar(&opts.simulate, "simulate", false,
		"Drive a simulated accelerator instead of the hardware.")
	flags.IntVar(&opts.simLatency, "sim-latency", 3,
		"Status reads the simulated accelerator reports busy per request.")
	flags.BoolVar(&opts.trace, "trace", false,
		"Record every request into a SQLite database.")
	flags.StringVar(&opts.traceDB, "trace-db", "",
		"The trace database name, without the .sqlite3 suffix. "+
			"A unique name is generated if empty.")
	flags.IntVar(&opts.monitorPort, "monitor-port", 0,
		"Serve the monitoring API on this port. 0 disables monitoring.")
	flags.IntVar(&opts.pollLimit, "poll-limit", 0,
		"Give up a request after this many status reads. "+
			"0 waits forever.")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false,
		"Log every register access to stderr.")

	return runCmd
}

func (o runOptions) opener() mmio.Opener {
	if o.simulate {
		return accelsim.MakeBuilder().
			WithLatency(o.simLatency).
			Build().
			Opener()
	}

	return &mmio.DevMem{Path: o.device}
}

// runProgram maps the accelerator, runs the fixed program and releases the
// mapping. A release failure is reported even when the run succeeded.
func runProgram(opts runOptions, out, errOut io.Writer) (err error) {
	window, err := mmio.Acquire(newOpener(opts), accel.PhysBase, accel.Span)
	if err != nil {
		return err
	}

	defer func() {
		if releaseErr := window.Release(); releaseErr != nil {
			err = errors.Join(err, releaseErr)
		}
	}()

	logger := log.New(errOut, "fractalhost: ", log.Lmicroseconds)
	if opts.verbose {
		window.AcceptHook(hooking.NewLogHook(logger,
			mmio.HookPosRegWrite, mmio.HookPosRegRead))
	}

	regs, err := accel.NewRegisterSet(window)
	if err != nil {
		return err
	}

	builder := accel.MakeBuilder().
		WithRegisters(regs).
		WithSleeper(frameSleeper).
		WithIDGenerator(id.NewXIDGenerator())
	if opts.pollLimit > 0 {
		builder = builder.WithPoller(accel.BoundedPoller{MaxPolls: opts.pollLimit})
	}

	driver := builder.Build("Accel")
	driver.AcceptHook(accel.NewConsoleHook(out))

	if opts.verbose {
		driver.AcceptHook(hooking.NewLogHook(logger,
			accel.HookPosRequestDone))
	}

	if opts.trace {
		tracer := tracing.NewSQLiteTracer(opts.traceDB)
		if err := tracer.Init(); err != nil {
			return err
		}

		logger.Printf("tracing requests into %s", tracer.FileName())
		driver.AcceptHook(tracer)

		defer func() {
			if closeErr := tracer.Close(); closeErr != nil {
				err = errors.Join(err, closeErr)
			}
		}()
	}

	if opts.monitorPort != 0 {
		monitor := monitoring.NewMonitor().WithPortNumber(opts.monitorPort)
		if _, err := monitor.StartServer(); err != nil {
			return err
		}

		driver.AcceptHook(monitor)

		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()

			_ = monitor.StopServer(ctx)
		}()
	}

	return driver.Run(accel.DefaultProgram())
}

func warnIfUnprivileged(w io.Writer) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return
	}

	uids, err := proc.Uids()
	if err != nil || len(uids) < 2 {
		return
	}

	if uids[1] != 0 {
		fmt.Fprintf(w,
			"warning: running with effective uid %d; mapping physical memory "+
				"usually requires root\n", uids[1])
	}
}
