package fsys

import (
	"io/fs"
	"os"
	"path/filepath"

	"github.com/m-mizutani/goerr/v2"

	"github.com/m-mizutani/gdfetch/pkg/domain/interfaces"
	"github.com/m-mizutani/gdfetch/pkg/domain/model"
)

type osFS struct{}

// New returns a FileSystem backed by the operating system.
func New() interfaces.FileSystem {
	return &osFS{}
}

// Snapshot walks root without descending into symlinks. A symlink to a
// directory is listed as a directory. Entries that cannot be read below root
// are skipped.
func (x *osFS) Snapshot(root string) ([]model.Entry, error) {
	var entries []model.Entry
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		entries = append(entries, model.Entry{
			Path:  filepath.ToSlash(rel),
			IsDir: isDir(path, d),
		})
		return nil
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to walk directory", goerr.V("root", root))
	}
	return entries, nil
}

func isDir(path string, d fs.DirEntry) bool {
	if d.Type()&fs.ModeSymlink == 0 {
		return d.IsDir()
	}
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func (x *osFS) ReadDir(dir string) ([]fs.DirEntry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read directory", goerr.V("dir", dir))
	}
	return entries, nil
}

func (x *osFS) Exists(path string) (bool, error) {
	_, err := os.Lstat(path)
	switch {
	case err == nil:
		return true, nil
	case os.IsNotExist(err):
		return false, nil
	default:
		return false, goerr.Wrap(err, "failed to stat path", goerr.V("path", path))
	}
}

func (x *osFS) Rename(oldPath, newPath string) error {
	if err := os.Rename(oldPath, newPath); err != nil {
		return goerr.Wrap(err, "failed to move entry",
			goerr.V("from", oldPath),
			goerr.V("to", newPath),
		)
	}
	return nil
}

// RemoveEmptyDir relies on os.Remove refusing non-empty directories.
func (x *osFS) RemoveEmptyDir(dir string) error {
	info, err := os.Lstat(dir)
	if err != nil {
		return goerr.Wrap(err, "failed to stat directory", goerr.V("dir", dir))
	}
	if !info.IsDir() {
		return goerr.New("not a directory", goerr.V("dir", dir))
	}
	if err := os.Remove(dir); err != nil {
		return goerr.Wrap(err, "failed to remove directory", goerr.V("dir", dir))
	}
	return nil
}
