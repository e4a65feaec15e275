// Command fractalhost drives the fractal accelerator of the FPGA fabric: it
// renders the Mandelbrot image, a still Julia image, and a Julia animation.
package main

import "github.com/sarchlab/fractalhost/cmd"

func main() {
	cmd.Execute()
}
