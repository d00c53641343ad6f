package wheel

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rayimg/internal/config"
)

// fakeRunner records invocations; Run optionally creates the wheel the
// manylinux builder would have produced.
type fakeRunner struct {
	calls  [][]string
	onRun  func()
	runErr error
}

func (f *fakeRunner) Run(name string, args ...string) error {
	f.calls = append(f.calls, append([]string{name}, args...))
	if f.onRun != nil {
		f.onRun()
	}
	return f.runErr
}

func (f *fakeRunner) Output(name string, args ...string) (string, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	return "", f.runErr
}

func TestExactlyOneWheel(t *testing.T) {
	dir := t.TempDir()

	_, err := exactlyOneWheel(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no .whl")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "ray-1.0-cp38.whl"), []byte("w"), 0o644))
	got, err := exactlyOneWheel(dir)
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(got))
	assert.Equal(t, "ray-1.0-cp38.whl", filepath.Base(got))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "ray-2.0-cp38.whl"), []byte("w"), 0o644))
	_, err = exactlyOneWheel(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exactly one")
}

func TestAcquireRemoteDownloadsIntoFreshTempDir(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("wheel-bytes"))
	}))
	defer srv.Close()

	opts := config.FromEnv()
	opts.WheelSource = config.WheelRemote
	opts.WheelURL = srv.URL + "/ray-3.0.0-cp38-cp38-manylinux2014_x86_64.whl"

	r := &fakeRunner{}

	acquire := func() (Artifact, func()) {
		art, cleanup, err := Acquire(r, opts, t.TempDir())
		require.NoError(t, err)
		return art, cleanup
	}

	first, cleanup1 := acquire()
	second, cleanup2 := acquire()

	assert.Equal(t, OriginRemote, first.Origin)
	assert.Equal(t, "ray-3.0.0-cp38-cp38-manylinux2014_x86_64.whl", first.Name())
	assert.FileExists(t, first.Path)

	// fresh directory per run, never reused
	assert.NotEqual(t, filepath.Dir(first.Path), filepath.Dir(second.Path))

	// no builder-container invocation on the remote path
	assert.Empty(t, r.calls)

	// cleanup removes the download directory
	cleanup1()
	cleanup2()
	assert.NoFileExists(t, first.Path)
	assert.NoDirExists(t, filepath.Dir(first.Path))
}

func TestAcquireRemoteFailsOnBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	opts := config.FromEnv()
	opts.WheelSource = config.WheelRemote
	opts.WheelURL = srv.URL + "/missing.whl"

	_, _, err := Acquire(&fakeRunner{}, opts, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status")
}

func TestAcquireLocalSkipBuildNeverInvokesBuilder(t *testing.T) {
	srcRoot := t.TempDir()
	whlDir := filepath.Join(srcRoot, Dir)
	require.NoError(t, os.MkdirAll(whlDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(whlDir, "ray-local.whl"), []byte("w"), 0o644))

	opts := config.FromEnv()
	opts.SkipWheelBuild = true

	r := &fakeRunner{}
	art, cleanup, err := Acquire(r, opts, srcRoot)
	require.NoError(t, err)
	defer cleanup()

	assert.Empty(t, r.calls, "builder container must not run with --no-wheel-build")
	assert.Equal(t, OriginLocal, art.Origin)
	assert.Equal(t, "ray-local.whl", art.Name())

	// local wheel is the operator's; cleanup must not delete it
	cleanup()
	assert.FileExists(t, art.Path)
}

func TestAcquireLocalBuildsWheelInManylinuxContainer(t *testing.T) {
	srcRoot := t.TempDir()
	whlDir := filepath.Join(srcRoot, Dir)
	require.NoError(t, os.MkdirAll(whlDir, 0o755))

	r := &fakeRunner{}
	r.onRun = func() {
		// the builder deposits the wheel under .whl/
		require.NoError(t, os.WriteFile(filepath.Join(whlDir, "ray-built.whl"), []byte("w"), 0o644))
	}

	opts := config.FromEnv()
	opts.PythonVersion = "3.9"

	art, _, err := Acquire(r, opts, srcRoot)
	require.NoError(t, err)

	require.Len(t, r.calls, 1)
	joined := strings.Join(r.calls[0], " ")
	assert.Contains(t, joined, BuilderImage)
	assert.Contains(t, joined, "BUILD_ONE_PYTHON_ONLY=3.9")
	assert.Contains(t, joined, ":/ray")
	assert.Equal(t, "ray-built.whl", art.Name())
}

func TestAcquireLocalBuildFailureIsFatal(t *testing.T) {
	r := &fakeRunner{runErr: assert.AnError}
	_, _, err := Acquire(r, config.FromEnv(), t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "manylinux build failed")
}
