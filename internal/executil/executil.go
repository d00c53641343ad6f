// internal/executil/executil.go
package executil

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"syscall"

	log "github.com/sirupsen/logrus"
)

// RunCMD executes the given command with inherited stdout/stderr.
func RunCMD(name string, args ...string) error {
	_, err := runCore(context.Background(), "", false, false, name, args...)
	return err
}

// RunCMDWithDir executes the command in a specific directory.
func RunCMDWithDir(dir, name string, args ...string) error {
	_, err := runCore(context.Background(), dir, false, false, name, args...)
	return err
}

// OutputCMD executes the command, captures stdout, and streams stderr.
// The captured output is returned with surrounding whitespace trimmed.
func OutputCMD(name string, args ...string) (string, error) {
	return runCore(context.Background(), "", true, false, name, args...)
}

// DryRunCMD logs the command that would be run without executing.
func DryRunCMD(name string, args ...string) error {
	_, err := runCore(context.Background(), "", false, true, name, args...)
	return err
}

// ----------------------------------------------------------------

func runCore(ctx context.Context, dir string, capture, dry bool, name string, args ...string) (string, error) {
	fullCmd := name + " " + ShellQuoteArgs(args)
	prefix := ""
	if dir != "" {
		prefix = " in " + dir
	}

	if dry {
		fmt.Fprintf(os.Stderr, "[DRY RUN%s] %s\n", prefix, fullCmd)
		return "", nil
	}

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Stderr = os.Stderr
	cmd.Env = os.Environ()

	var buf bytes.Buffer
	if capture {
		cmd.Stdout = &buf
	} else {
		cmd.Stdout = os.Stdout
	}

	log.Infof("running%s: %s", prefix, fullCmd)
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			if status, ok := exitErr.Sys().(syscall.WaitStatus); ok {
				return "", fmt.Errorf("command failed (exit=%d): %s: %w", status.ExitStatus(), fullCmd, err)
			}
		}
		return "", fmt.Errorf("failed to run command: %s: %w", fullCmd, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// ExitCode extracts the subprocess exit status wrapped by runCore, so the
// orchestrator can propagate it as its own. Falls back to 1 for any other
// failure.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() > 0 {
		return exitErr.ExitCode()
	}
	return 1
}

// ShellQuoteArgs returns a printable, shell-safe representation of args.
func ShellQuoteArgs(args []string) string {
	quoted := make([]string, len(args))
	for i, a := range args {
		if a == "" || strings.ContainsAny(a, " \t\n\"'`$\\*?[]{}()<>|&;") {
			a = "'" + strings.ReplaceAll(a, "'", `'\''`) + "'"
		}
		quoted[i] = a
	}
	return strings.Join(quoted, " ")
}
