// internal/devimage/devimage.go
//
// The development image is built from a snapshot of the current source
// tree: the HEAD revision is recorded to git-rev and the HEAD tree is
// archived to ray.tar inside the development build context. Archiving the
// committed tree (rather than copying the working directory) keeps
// untracked and ignored files out of the image.

package devimage

import (
	"archive/tar"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	log "github.com/sirupsen/logrus"

	"rayimg/internal/config"
	"rayimg/internal/docker"
)

const (
	revFile     = "git-rev"
	archiveFile = "ray.tar"
)

// Build snapshots the source tree into the development context and builds
// the development image. The staged snapshot files are removed on every
// exit path.
func Build(r docker.Runner, opts config.BuildOptions, srcRoot string) error {
	ctxDir := filepath.Join(opts.DockerDir, "development")
	revPath := filepath.Join(ctxDir, revFile)
	tarPath := filepath.Join(ctxDir, archiveFile)

	if !opts.DryRun {
		repo, err := git.PlainOpen(srcRoot)
		if err != nil {
			return fmt.Errorf("devimage: open repository at %s: %w", srcRoot, err)
		}
		head, err := repo.Head()
		if err != nil {
			return fmt.Errorf("devimage: resolve HEAD: %w", err)
		}
		rev := head.Hash()
		log.Infof("[devimage] snapshotting source at %s", rev)

		if err := os.WriteFile(revPath, []byte(rev.String()+"\n"), 0o644); err != nil {
			return fmt.Errorf("devimage: write %s: %w", revPath, err)
		}
		defer os.Remove(revPath)

		commit, err := repo.CommitObject(rev)
		if err != nil {
			return fmt.Errorf("devimage: load commit %s: %w", rev, err)
		}
		tree, err := commit.Tree()
		if err != nil {
			return fmt.Errorf("devimage: load tree for %s: %w", rev, err)
		}
		if err := writeArchive(tree, tarPath); err != nil {
			return err
		}
		defer os.Remove(tarPath)
	}

	_, err := docker.Build(r, docker.BuildConfig{
		Ref:        opts.ImageRef("development"),
		ContextDir: ctxDir,
		NoCache:    opts.NoCache,
		ShaOnly:    opts.ShasOnly,
		DryRun:     opts.DryRun,
	})
	return err
}

// writeArchive tars every file of the given tree into dst.
func writeArchive(tree *object.Tree, dst string) error {
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("devimage: create %s: %w", dst, err)
	}
	tw := tar.NewWriter(out)

	err = tree.Files().ForEach(func(f *object.File) error {
		if f.Mode == filemode.Symlink {
			// symlink blobs hold the link target
			linkname, err := f.Contents()
			if err != nil {
				return err
			}
			return tw.WriteHeader(&tar.Header{
				Name:     f.Name,
				Typeflag: tar.TypeSymlink,
				Linkname: linkname,
				Mode:     0o777,
			})
		}
		mode, err := f.Mode.ToOSFileMode()
		if err != nil {
			return err
		}
		if err := tw.WriteHeader(&tar.Header{
			Name: f.Name,
			Mode: int64(mode.Perm()),
			Size: f.Blob.Size,
		}); err != nil {
			return err
		}
		rc, err := f.Reader()
		if err != nil {
			return err
		}
		_, err = io.Copy(tw, rc)
		rc.Close()
		return err
	})
	if err != nil {
		tw.Close()
		out.Close()
		os.Remove(dst)
		return fmt.Errorf("devimage: archive source tree: %w", err)
	}
	if err := tw.Close(); err != nil {
		out.Close()
		return fmt.Errorf("devimage: finalize %s: %w", dst, err)
	}
	return out.Close()
}
