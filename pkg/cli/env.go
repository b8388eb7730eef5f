package cli

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"

	"github.com/m-mizutani/gdfetch/pkg/domain/model"
)

const modelsDirEnv = "COLLATERALSCORE_MODELS_DIR"

// modelDirEnv returns the variable name pointing at the model directory of
// the job labelled label.
func modelDirEnv(label string) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r - 'a' + 'A'
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, label)
	return "NNUNET_" + name + "_MODEL_DIR"
}

// formatEnvPath renders path relative to base when path lies below base,
// absolute otherwise.
func formatEnvPath(path, base string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	if base == "" {
		return abs
	}
	rel, err := filepath.Rel(base, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return abs
	}
	return rel
}

type envLine struct {
	name     string
	value    string
	detected bool
}

func printEnvSuggestions(w io.Writer, cwd, destRoot string, results []*model.FetchResult) error {
	key := color.New(color.FgGreen)
	warn := color.New(color.FgYellow)

	lines := []envLine{
		{name: modelsDirEnv, value: formatEnvPath(destRoot, cwd), detected: true},
	}
	for _, r := range results {
		lines = append(lines, envLine{
			name:     modelDirEnv(r.Label),
			value:    formatEnvPath(r.ModelDir, cwd),
			detected: r.Detected,
		})
	}

	if _, err := fmt.Fprintln(w, "\nSuggested .env entries:"); err != nil {
		return goerr.Wrap(err, "failed to print suggestions")
	}
	for _, l := range lines {
		var note string
		if !l.detected {
			note = warn.Sprint("  # not auto-detected, set manually")
		}
		if _, err := fmt.Fprintf(w, "%s=%s%s\n", key.Sprint(l.name), l.value, note); err != nil {
			return goerr.Wrap(err, "failed to print suggestions")
		}
	}
	return nil
}
