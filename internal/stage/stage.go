// internal/stage/stage.go
//
// Staging copies files into an image's build-context directory for the
// duration of one build. The returned cleanup func removes exactly the
// copies that were made and is safe to defer, so staged files disappear
// on success, build failure, and panic alike.

package stage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
)

// Stage copies each source file into dir under its base name and returns a
// cleanup func that removes the copies. If any copy fails, the copies made
// so far are removed before the error is returned.
func Stage(dir string, files ...string) (func(), error) {
	staged := make([]string, 0, len(files))
	cleanup := func() {
		for _, p := range staged {
			if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
				log.Warnf("[stage] failed to remove %s: %v", p, err)
			}
		}
	}

	for _, src := range files {
		dst := filepath.Join(dir, filepath.Base(src))
		if err := copyFile(src, dst); err != nil {
			cleanup()
			return nil, fmt.Errorf("stage %s into %s: %w", src, dir, err)
		}
		staged = append(staged, dst)
		log.Debugf("[stage] %s -> %s", src, dst)
	}
	return cleanup, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	st, err := in.Stat()
	if err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, st.Mode().Perm())
	if err != nil {
		return err
	}
	_, err = io.Copy(out, in)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		// never leave a partial copy behind in the build context
		os.Remove(dst)
		return err
	}
	return nil
}
