package usecase

import (
	"context"
	"path/filepath"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"

	"github.com/m-mizutani/gdfetch/pkg/domain/interfaces"
	"github.com/m-mizutani/gdfetch/pkg/domain/model"
)

// Flattener promotes a nested model directory up to the job target so that
// the target itself carries the model signature.
type Flattener struct {
	fs interfaces.FileSystem
}

var _ interfaces.ModelDirUseCase = (*Flattener)(nil)

// NewFlattener creates a Flattener working on fs.
func NewFlattener(fs interfaces.FileSystem) *Flattener {
	return &Flattener{fs: fs}
}

// Find returns the shallowest model directory below targetDir, with its path
// joined onto targetDir.
func (x *Flattener) Find(ctx context.Context, targetDir string) (*model.ModelDirectory, bool, error) {
	snapshot, err := x.fs.Snapshot(targetDir)
	if err != nil {
		return nil, false, goerr.Wrap(err, "failed to scan target directory", goerr.V("target", targetDir))
	}

	found, ok := model.FindModelDir(snapshot)
	if !ok {
		return nil, false, nil
	}
	found.Path = filepath.Join(targetDir, filepath.FromSlash(found.Path))
	return found, true, nil
}

// Flatten moves the immediate children of the model directory found below
// targetDir into targetDir. It returns nil when no model directory exists.
// A name collision with an entry already in targetDir cancels the move and
// the nested directory is returned as is.
func (x *Flattener) Flatten(ctx context.Context, targetDir string) (*model.ModelDirectory, error) {
	logger := ctxlog.From(ctx)
	targetDir = filepath.Clean(targetDir)

	found, ok, err := x.Find(ctx, targetDir)
	if err != nil || !ok {
		return nil, err
	}
	if found.Path == targetDir {
		logger.Debug("Model directory already flat", "path", targetDir)
		return found, nil
	}

	children, err := x.fs.ReadDir(found.Path)
	if err != nil {
		return nil, err
	}

	var collisions []string
	for _, child := range children {
		exists, err := x.fs.Exists(filepath.Join(targetDir, child.Name()))
		if err != nil {
			return nil, err
		}
		if exists {
			collisions = append(collisions, child.Name())
		}
	}
	if len(collisions) > 0 {
		logger.Warn("Cannot flatten model directory, entries already exist in target",
			"nested", found.Path,
			"target", targetDir,
			"collisions", collisions,
		)
		return found, nil
	}

	logger.Info("Flattening model directory", "from", found.Path, "to", targetDir)
	for _, child := range children {
		if err := x.fs.Rename(
			filepath.Join(found.Path, child.Name()),
			filepath.Join(targetDir, child.Name()),
		); err != nil {
			return nil, err
		}
	}

	if err := x.prune(found.Path, targetDir); err != nil {
		return nil, err
	}

	flat, ok, err := x.Find(ctx, targetDir)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, goerr.New("model directory lost after flattening", goerr.V("target", targetDir))
	}
	return flat, nil
}

// prune removes dir and its ancestors while they are empty, stopping below
// targetDir.
func (x *Flattener) prune(dir, targetDir string) error {
	for dir != targetDir && dir != filepath.Dir(dir) {
		entries, err := x.fs.ReadDir(dir)
		if err != nil {
			return err
		}
		if len(entries) > 0 {
			return nil
		}
		if err := x.fs.RemoveEmptyDir(dir); err != nil {
			return err
		}
		dir = filepath.Dir(dir)
	}
	return nil
}
