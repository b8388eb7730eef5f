package fsys_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/gdfetch/pkg/domain/model"
	"github.com/m-mizutani/gdfetch/pkg/infra/fsys"
	"github.com/m-mizutani/gt"
)

func TestOSFS_Snapshot(t *testing.T) {
	root := t.TempDir()
	gt.NoError(t, os.MkdirAll(filepath.Join(root, "a", "fold_0"), 0755))
	gt.NoError(t, os.WriteFile(filepath.Join(root, "a", "plans.json"), []byte("{}"), 0644))

	entries, err := fsys.New().Snapshot(root)
	gt.NoError(t, err)

	gt.Value(t, entries).Equal([]model.Entry{
		{Path: ".", IsDir: true},
		{Path: "a", IsDir: true},
		{Path: "a/fold_0", IsDir: true},
		{Path: "a/plans.json", IsDir: false},
	})
}

func TestOSFS_RemoveEmptyDir(t *testing.T) {
	root := t.TempDir()
	empty := filepath.Join(root, "empty")
	full := filepath.Join(root, "full")
	gt.NoError(t, os.MkdirAll(empty, 0755))
	gt.NoError(t, os.MkdirAll(full, 0755))
	gt.NoError(t, os.WriteFile(filepath.Join(full, "x"), []byte("x"), 0644))

	x := fsys.New()
	gt.NoError(t, x.RemoveEmptyDir(empty))
	gt.Error(t, x.RemoveEmptyDir(full))

	exists, err := x.Exists(empty)
	gt.NoError(t, err)
	gt.Value(t, exists).Equal(false)

	exists, err = x.Exists(full)
	gt.NoError(t, err)
	gt.True(t, exists)
}

func TestOSFS_SnapshotSymlinkedDirectory(t *testing.T) {
	root := t.TempDir()
	store := t.TempDir()
	gt.NoError(t, os.MkdirAll(filepath.Join(store, "fold_0"), 0755))
	gt.NoError(t, os.WriteFile(filepath.Join(store, "fold_0", "w.pth"), []byte("w"), 0644))
	gt.NoError(t, os.WriteFile(filepath.Join(root, "plans.json"), []byte("{}"), 0644))
	gt.NoError(t, os.Symlink(filepath.Join(store, "fold_0"), filepath.Join(root, "fold_0")))

	entries, err := fsys.New().Snapshot(root)
	gt.NoError(t, err)

	// Listed as a directory but not descended into.
	gt.Value(t, entries).Equal([]model.Entry{
		{Path: ".", IsDir: true},
		{Path: "fold_0", IsDir: true},
		{Path: "plans.json", IsDir: false},
	})

	dir, ok := model.FindModelDir(entries)
	gt.True(t, ok)
	gt.Value(t, dir.Path).Equal(".")
}

func TestOSFS_SnapshotSkipsUnreadableDirectory(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permissions are not enforced for root")
	}

	root := t.TempDir()
	locked := filepath.Join(root, "locked")
	gt.NoError(t, os.MkdirAll(filepath.Join(locked, "inner"), 0755))
	gt.NoError(t, os.MkdirAll(filepath.Join(root, "model", "fold_0"), 0755))
	gt.NoError(t, os.WriteFile(filepath.Join(root, "model", "dataset.json"), []byte("{}"), 0644))
	gt.NoError(t, os.Chmod(locked, 0))
	t.Cleanup(func() { _ = os.Chmod(locked, 0755) })

	entries, err := fsys.New().Snapshot(root)
	gt.NoError(t, err)

	dir, ok := model.FindModelDir(entries)
	gt.True(t, ok)
	gt.Value(t, dir.Path).Equal("model")
}
