// rayimg main entrypoint
//
// Single-binary orchestrator for the layered ray image build: optionally
// produce a wheel in the pinned manylinux builder (or download one), build
// the configured image targets in order with the wheel staged into each
// context, then the optional development and examples images.
//
// Keep this file simple: load env overrides, parse flags into one immutable
// options value, hand it to runtime.Run. All the heavy lifting stays internal.

package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"rayimg/internal/config"
	"rayimg/internal/executil"
	"rayimg/internal/runtime"
)

func main() {
	// Local overrides for dev runs; harmless in CI.
	_ = godotenv.Load(".rayimg.env")

	// Keep stdout clean for --shas-only digest lines.
	log.SetOutput(os.Stderr)

	if err := newApp(runtime.Run).Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "rayimg: %v\n", err)
		os.Exit(executil.ExitCode(err))
	}
}

// newApp wires the CLI surface. The run func is injected so tests can
// capture the parsed options without touching docker.
func newApp(run func(config.BuildOptions) error) *cli.App {
	return &cli.App{
		Name:            "rayimg",
		Usage:           "build the layered ray docker images",
		HideHelpCommand: true,
		// usage and help go to stderr; stdout carries only digest lines
		Writer:    os.Stderr,
		ErrWriter: os.Stderr,
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "gpu", Usage: "build the GPU flavor (CUDA base image, -gpu channel tag)"},
			&cli.StringFlag{Name: "base-image", Usage: "override the BASE_IMAGE build arg for base-deps"},
			&cli.BoolFlag{Name: "no-cache-build", Usage: "pass --no-cache to every docker build"},
			&cli.BoolFlag{Name: "build-development-image", Usage: "also build the development image from a source snapshot"},
			&cli.BoolFlag{Name: "build-examples", Usage: "also build the examples image on top of the channel tag"},
			&cli.BoolFlag{Name: "shas-only", Usage: "print only '<ref> <digest>' per image instead of build logs"},
			&cli.StringFlag{Name: "wheel-to-use", Value: "LOCAL", Usage: "wheel source: LOCAL or REMOTE"},
			&cli.StringFlag{Name: "wheel-url", Usage: "wheel URL for --wheel-to-use REMOTE"},
			&cli.StringFlag{Name: "python-version", Usage: "target python version for the manylinux build"},
			&cli.BoolFlag{Name: "no-wheel-build", Usage: "trust an existing wheel under .whl/ instead of building one"},
			&cli.StringFlag{Name: "targets", Usage: "YAML file naming the ordered image targets to build"},
			&cli.BoolFlag{Name: "dry-run", Usage: "print commands instead of executing them"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() > 0 {
				_ = cli.ShowAppHelp(c)
				return fmt.Errorf("unexpected argument %q", c.Args().First())
			}
			opts, err := optionsFromCLI(c)
			if err != nil {
				return err
			}
			return run(opts)
		},
	}
}

// optionsFromCLI lays the flag values over the env-derived defaults and
// validates the result. The returned options are never mutated again.
func optionsFromCLI(c *cli.Context) (config.BuildOptions, error) {
	opts := config.FromEnv()

	opts.GPU = c.Bool("gpu")
	opts.BaseImage = c.String("base-image")
	opts.NoCache = c.Bool("no-cache-build")
	opts.BuildDevImage = c.Bool("build-development-image")
	opts.BuildExamples = c.Bool("build-examples")
	opts.ShasOnly = c.Bool("shas-only")
	opts.WheelURL = c.String("wheel-url")
	opts.SkipWheelBuild = c.Bool("no-wheel-build")
	opts.TargetsFile = c.String("targets")
	opts.DryRun = opts.DryRun || c.Bool("dry-run")
	if v := c.String("python-version"); v != "" {
		opts.PythonVersion = v
	}

	src, err := config.ParseWheelSource(c.String("wheel-to-use"))
	if err != nil {
		return config.BuildOptions{}, err
	}
	opts.WheelSource = src

	if err := opts.Validate(); err != nil {
		return config.BuildOptions{}, err
	}
	return opts, nil
}
