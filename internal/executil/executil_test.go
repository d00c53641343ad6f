package executil

import (
	"fmt"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShellQuoteArgs(t *testing.T) {
	tests := []struct {
		in   []string
		want string
	}{
		{[]string{"build", "-t", "ray:nightly"}, "build -t ray:nightly"},
		{[]string{"a b"}, "'a b'"},
		{[]string{""}, "''"},
		{[]string{"it's"}, `'it'\''s'`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ShellQuoteArgs(tt.in))
	}
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, ExitCode(nil))
	assert.Equal(t, 1, ExitCode(fmt.Errorf("boom")))

	err := exec.Command("sh", "-c", "exit 3").Run()
	require.Error(t, err)
	assert.Equal(t, 3, ExitCode(fmt.Errorf("wrapped: %w", err)))
}

func TestOutputCMDCapturesAndTrims(t *testing.T) {
	out, err := OutputCMD("sh", "-c", "echo '  hello  '")
	require.NoError(t, err)
	assert.Equal(t, "hello", out)
}

func TestRunCMDDecoratesExitStatus(t *testing.T) {
	err := RunCMD("sh", "-c", "exit 7")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exit=7")
	assert.Equal(t, 7, ExitCode(err))
}
