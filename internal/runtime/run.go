// internal/runtime/run.go
//
// The orchestration sequence: acquire the wheel, build each image target in
// order, then the optional development and examples images. Everything is
// sequential — each subprocess gates the next — and the design assumes at
// most one run at a time against a given source checkout, since staged
// files are mutated in place inside the build-context directories.

package runtime

import (
	"fmt"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"

	"rayimg/internal/config"
	"rayimg/internal/devimage"
	"rayimg/internal/docker"
	"rayimg/internal/stage"
	"rayimg/internal/target"
	"rayimg/internal/wheel"
)

// Run executes one full orchestration against the current working directory.
func Run(opts config.BuildOptions) error {
	srcRoot, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("resolve source root: %w", err)
	}
	return run(docker.NewRunner(opts.DryRun), opts, srcRoot)
}

func run(r docker.Runner, opts config.BuildOptions, srcRoot string) error {
	targets := target.Defaults()
	if opts.TargetsFile != "" {
		var err error
		if targets, err = target.Load(opts.TargetsFile); err != nil {
			return err
		}
	}

	art, cleanup, err := wheel.Acquire(r, opts, srcRoot)
	if err != nil {
		return err
	}
	defer cleanup()

	for _, t := range targets {
		if err := buildTarget(r, opts, t, art, srcRoot); err != nil {
			return err
		}
	}

	if opts.BuildDevImage {
		if err := devimage.Build(r, opts, srcRoot); err != nil {
			return err
		}
	}
	if opts.BuildExamples {
		if err := buildExamples(r, opts); err != nil {
			return err
		}
	}
	return nil
}

// buildTarget stages the wheel (and any per-target manifests) into the
// target's context, builds it, and removes the staged copies whether or not
// the build succeeded.
func buildTarget(r docker.Runner, opts config.BuildOptions, t target.Target, art wheel.Artifact, srcRoot string) error {
	ctxDir := t.ContextDir(opts)

	if t.Kind != target.KindBase && !opts.DryRun {
		files := append([]string{art.Path}, t.StagedFiles(srcRoot)...)
		cleanup, err := stage.Stage(ctxDir, files...)
		if err != nil {
			return err
		}
		defer cleanup()
	}

	log.Infof("[run] building %s", t.Name)
	_, err := docker.Build(r, docker.BuildConfig{
		Ref:        t.Ref(opts),
		ContextDir: ctxDir,
		BuildArgs:  t.BuildArgs(opts, art.Name()),
		NoCache:    opts.NoCache,
		ShaOnly:    opts.ShasOnly,
		DryRun:     opts.DryRun,
	})
	return err
}

// buildExamples layers the examples image on the image built (or previously
// published) under the same channel tag. Its context is self-contained, so
// nothing is staged.
func buildExamples(r docker.Runner, opts config.BuildOptions) error {
	log.Info("[run] building examples")
	_, err := docker.Build(r, docker.BuildConfig{
		Ref:        opts.ImageRef("examples"),
		ContextDir: filepath.Join(opts.DockerDir, "examples"),
		BuildArgs:  [][2]string{{"BASE_IMAGE_TAG", opts.ChannelTag()}},
		NoCache:    opts.NoCache,
		ShaOnly:    opts.ShasOnly,
		DryRun:     opts.DryRun,
	})
	return err
}
