// internal/docker/runner.go
package docker

import (
	"strings"

	"rayimg/internal/executil"
)

// Runner abstracts subprocess execution so the build loop can be exercised
// in tests without a docker daemon.
type Runner interface {
	// Run streams the command's output to the console.
	Run(name string, args ...string) error
	// Output runs the command and returns its captured stdout.
	Output(name string, args ...string) (string, error)
}

type execRunner struct {
	dryRun bool
}

// NewRunner returns the real subprocess-backed Runner. In dry-run mode
// commands are printed instead of executed and Output returns a
// placeholder digest so downstream formatting still works.
func NewRunner(dryRun bool) Runner {
	return &execRunner{dryRun: dryRun}
}

func (r *execRunner) Run(name string, args ...string) error {
	if r.dryRun {
		return executil.DryRunCMD(name, args...)
	}
	return executil.RunCMD(name, args...)
}

func (r *execRunner) Output(name string, args ...string) (string, error) {
	if r.dryRun {
		if err := executil.DryRunCMD(name, args...); err != nil {
			return "", err
		}
		return "sha256:" + strings.Repeat("0", 64), nil
	}
	return executil.OutputCMD(name, args...)
}
