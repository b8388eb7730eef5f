package cli_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/m-mizutani/gdfetch/pkg/cli"
)

func TestRun_Flatten(t *testing.T) {
	dir := t.TempDir()
	nested := filepath.Join(dir, "export", "model")
	gt.NoError(t, os.MkdirAll(filepath.Join(nested, "fold_0"), 0755))
	gt.NoError(t, os.WriteFile(filepath.Join(nested, "plans.json"), []byte("{}"), 0644))

	err := cli.Run(context.Background(), []string{"gdfetch", "--log-level", "error", "flatten", dir})
	gt.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, "plans.json"))
	gt.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "export"))
	gt.True(t, os.IsNotExist(err))
}

func TestRun_FlattenRequiresDir(t *testing.T) {
	err := cli.Run(context.Background(), []string{"gdfetch", "--log-level", "error", "flatten"})
	gt.Error(t, err)
}

func TestRun_InvalidLogLevel(t *testing.T) {
	err := cli.Run(context.Background(), []string{"gdfetch", "--log-level", "loud", "flatten", t.TempDir()})
	gt.Error(t, err)
}
