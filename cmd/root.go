// Package cmd provides the command-line interface of fractalhost.
package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/tebeka/atexit"
)

// envPrefix prefixes the environment variables that provide flag defaults.
const envPrefix = "FRACTALHOST_"

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "fractalhost",
		Short: "Host driver of the memory-mapped fractal accelerator.",
		Long: `fractalhost maps the register block of the fractal accelerator ` +
			`and renders the Mandelbrot image, a still Julia image and a ` +
			`Julia animation. Flag defaults can be set with ` + envPrefix +
			`* variables or in a .env file.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newRunCommand())

	return rootCmd
}

// Execute runs the command line and exits the process. The exit code is 0
// on success and 1 on any failure.
func Execute() {
	if err := loadEnvFile(".env"); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		atexit.Exit(1)
	}

	if err := newRootCommand().Execute(); err != nil {
		atexit.Exit(1)
	}

	atexit.Exit(0)
}

func loadEnvFile(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	return err
}

// applyEnv sets every flag that was not given on the command line from its
// environment variable, if there is one.
func applyEnv(flags *pflag.FlagSet) error {
	var errs []error

	flags.VisitAll(func(f *pflag.Flag) {
		if f.Changed {
			return
		}

		value, ok := os.LookupEnv(envName(f.Name))
		if !ok {
			return
		}

		if err := flags.Set(f.Name, value); err != nil {
			errs = append(errs,
				fmt.Errorf("invalid %s: %w", envName(f.Name), err))
		}
	})

	return errors.Join(errs...)
}

func envName(flag string) string {
	return envPrefix + strings.ToUpper(strings.ReplaceAll(flag, "-", "_"))
}
