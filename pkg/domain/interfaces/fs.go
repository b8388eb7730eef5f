package interfaces

import (
	"io/fs"

	"github.com/m-mizutani/gdfetch/pkg/domain/model"
)

// FileSystem is the subset of filesystem operations needed to locate and
// flatten a model directory.
type FileSystem interface {
	// Snapshot lists every entry below root, paths relative to root.
	Snapshot(root string) ([]model.Entry, error)

	// ReadDir lists the immediate children of dir.
	ReadDir(dir string) ([]fs.DirEntry, error)

	// Exists reports whether path exists.
	Exists(path string) (bool, error)

	// Rename moves oldPath to newPath on the same filesystem.
	Rename(oldPath, newPath string) error

	// RemoveEmptyDir removes dir only if it is empty.
	RemoveEmptyDir(dir string) error
}
