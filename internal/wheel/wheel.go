// internal/wheel/wheel.go
//
// Wheel acquisition has two terminal paths: build one locally inside the
// pinned manylinux container (or trust a previously built one), or download
// one into a fresh temporary directory. Either way the run ends up with
// exactly one wheel whose canonical copy outlives every image build.

package wheel

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"

	"github.com/dustin/go-humanize"
	log "github.com/sirupsen/logrus"

	"rayimg/internal/config"
	"rayimg/internal/docker"
)

const (
	// BuilderImage is the pinned manylinux builder used for local wheel
	// builds. The build script lives in the source tree and is mounted
	// along with it.
	BuilderImage = "quay.io/pypa/manylinux2014_x86_64"
	buildScript  = "python/build-wheel-manylinux2014.sh"

	// Dir is the directory under the source root where local builds
	// deposit their wheel.
	Dir = ".whl"
)

// Origin records which acquisition path produced the wheel. Diagnostic only;
// downstream treatment is identical.
type Origin string

const (
	OriginLocal  Origin = "LOCAL"
	OriginRemote Origin = "REMOTE"
)

// Artifact is the resolved wheel. Read-only once produced.
type Artifact struct {
	Path   string
	Origin Origin
}

// Name is the wheel filename, which is what build args carry: the wheel is
// staged into each build context, so only the basename is meaningful there.
func (a Artifact) Name() string {
	return filepath.Base(a.Path)
}

// Acquire produces the run's single wheel artifact. The returned cleanup
// func must run when the orchestration ends: it removes the remote
// download's temporary directory. For local wheels cleanup is a no-op; the
// wheel under .whl/ is the operator's to keep.
func Acquire(r docker.Runner, opts config.BuildOptions, srcRoot string) (Artifact, func(), error) {
	noop := func() {}

	if opts.WheelSource == config.WheelRemote {
		tmp, err := os.MkdirTemp("", "rayimg-wheel-")
		if err != nil {
			return Artifact{}, noop, fmt.Errorf("wheel: create download dir: %w", err)
		}
		cleanup := func() { os.RemoveAll(tmp) }

		if opts.DryRun {
			log.Infof("[wheel] dry-run: would download %s into %s", opts.WheelURL, tmp)
			return Artifact{Path: filepath.Join(tmp, "ray-dryrun.whl"), Origin: OriginRemote}, cleanup, nil
		}
		if err := download(opts.WheelURL, tmp); err != nil {
			cleanup()
			return Artifact{}, noop, err
		}
		p, err := exactlyOneWheel(tmp)
		if err != nil {
			cleanup()
			return Artifact{}, noop, err
		}
		log.Infof("[wheel] using remote wheel %s", p)
		return Artifact{Path: p, Origin: OriginRemote}, cleanup, nil
	}

	// LOCAL
	if !opts.SkipWheelBuild {
		if err := buildLocal(r, srcRoot, opts.PythonVersion); err != nil {
			return Artifact{}, noop, err
		}
	}
	whlDir := filepath.Join(srcRoot, Dir)
	if opts.DryRun {
		return Artifact{Path: filepath.Join(whlDir, "ray-dryrun.whl"), Origin: OriginLocal}, noop, nil
	}
	p, err := exactlyOneWheel(whlDir)
	if err != nil {
		return Artifact{}, noop, err
	}
	log.Infof("[wheel] using local wheel %s", p)
	return Artifact{Path: p, Origin: OriginLocal}, noop, nil
}

// buildLocal runs the pinned manylinux builder against the mounted source
// tree. One shot: a failed compile is not retried.
func buildLocal(r docker.Runner, srcRoot, pythonVersion string) error {
	abs, err := filepath.Abs(srcRoot)
	if err != nil {
		return fmt.Errorf("wheel: resolve source root: %w", err)
	}
	args := []string{
		"run", "--rm",
		"-w", "/ray",
		"-v", abs + ":/ray",
		"-e", "BUILD_ONE_PYTHON_ONLY=" + pythonVersion,
		BuilderImage,
		"/ray/" + buildScript,
	}
	if err := r.Run("docker", args...); err != nil {
		return fmt.Errorf("wheel: manylinux build failed: %w", err)
	}
	return nil
}

// download fetches url into dir, keeping the URL's base filename.
func download(rawURL, dir string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("wheel: invalid wheel URL %q: %w", rawURL, err)
	}
	name := path.Base(u.Path)
	if name == "" || name == "." || name == "/" {
		return fmt.Errorf("wheel: cannot derive a filename from %q", rawURL)
	}

	resp, err := http.Get(rawURL)
	if err != nil {
		return fmt.Errorf("wheel: download %s: %w", rawURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("wheel: download %s: unexpected status %s", rawURL, resp.Status)
	}

	dst := filepath.Join(dir, name)
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("wheel: create %s: %w", dst, err)
	}
	n, err := io.Copy(out, resp.Body)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("wheel: write %s: %w", dst, err)
	}
	log.Infof("[wheel] downloaded %s (%s)", name, humanize.Bytes(uint64(n)))
	return nil
}

// exactlyOneWheel asserts that dir holds exactly one .whl and returns its
// absolute path. Zero or multiple matches are ambiguous and fail loudly.
func exactlyOneWheel(dir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.whl"))
	if err != nil {
		return "", fmt.Errorf("wheel: list %s: %w", dir, err)
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("wheel: no .whl file found in %s", dir)
	case 1:
		return filepath.Abs(matches[0])
	default:
		return "", fmt.Errorf("wheel: expected exactly one .whl in %s, found %d: %v", dir, len(matches), matches)
	}
}
