// internal/docker/build.go
package docker

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/opencontainers/go-digest"
	log "github.com/sirupsen/logrus"

	"rayimg/internal/executil"
)

// BuildConfig describes one `docker build` invocation.
type BuildConfig struct {
	Ref        string      // fully-qualified repo/name:tag
	ContextDir string      // build context handed to docker
	Dockerfile string      // optional; defaults to <ContextDir>/Dockerfile
	BuildArgs  [][2]string // KEY,VALUE (deterministic order)
	NoCache    bool
	ShaOnly    bool // capture only the image digest instead of streaming logs
	DryRun     bool // skip filesystem validation; Runner handles printing
}

// Build invokes `docker build` for one image. In ShaOnly mode the build is
// run quietly, the resulting digest is validated and printed on stdout as
// "<ref> <digest>", and returned. Otherwise output streams to the console.
// A non-zero build exit is fatal to the caller; there is nothing to retry.
func Build(r Runner, cfg BuildConfig) (digest.Digest, error) {
	if strings.TrimSpace(cfg.Ref) == "" {
		return "", errors.New("docker.Build: Ref must be a repo:tag")
	}
	if strings.ToLower(cfg.Ref) != cfg.Ref || strings.ContainsAny(cfg.Ref, " \t\n") {
		return "", fmt.Errorf("docker.Build: invalid ref %q (must be lowercase, no spaces)", cfg.Ref)
	}

	ctxDir := strings.TrimSpace(cfg.ContextDir)
	if ctxDir == "" {
		ctxDir = "."
	}
	df := strings.TrimSpace(cfg.Dockerfile)
	if df == "" {
		df = filepath.Join(ctxDir, "Dockerfile")
	}

	if !cfg.DryRun {
		if st, err := os.Stat(df); err != nil || st.IsDir() {
			return "", fmt.Errorf("docker.Build: Dockerfile %q not found or not a file", df)
		}
		if st, err := os.Stat(ctxDir); err != nil || !st.IsDir() {
			return "", fmt.Errorf("docker.Build: context %q not found or not a directory", ctxDir)
		}
	}

	args := []string{"build"}
	if cfg.ShaOnly {
		args = append(args, "-q")
	} else {
		args = append(args, "--progress=plain")
	}
	args = append(args, "-t", cfg.Ref, "-f", df)
	if cfg.NoCache {
		args = append(args, "--no-cache")
	}
	for _, kv := range cfg.BuildArgs {
		if kv[0] != "" {
			args = append(args, "--build-arg", kv[0]+"="+kv[1])
		}
	}
	args = append(args, ctxDir)

	log.Infof("[build] %s (context=%s)", cfg.Ref, absOr(ctxDir, ctxDir))
	log.Debugf("[build] docker %s", executil.ShellQuoteArgs(redactBuildArgs(args)))

	if cfg.ShaOnly {
		out, err := r.Output("docker", args...)
		if err != nil {
			return "", err
		}
		d, err := digest.Parse(strings.TrimSpace(out))
		if err != nil {
			return "", fmt.Errorf("docker.Build: unparseable image digest %q: %w", out, err)
		}
		fmt.Printf("%s %s\n", cfg.Ref, d)
		return d, nil
	}
	return "", r.Run("docker", args...)
}
