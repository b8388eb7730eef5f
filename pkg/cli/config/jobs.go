package config

import (
	"os"
	"path/filepath"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/urfave/cli/v3"

	"github.com/m-mizutani/gdfetch/pkg/domain/model"
)

const (
	DefaultDestRoot     = "modelsweights"
	DefaultBinaryFileID = "1p4TYVPz_QA0CvuX5HueYVUUYj-wgs5cj"
	DefaultMultiFileID  = "1r14hRPjsc_443_TZbsRSK3xm-ZbfFlK6"
)

// Jobs holds the list of downloads to run. Precedence: manifest file, then a
// single job given by --file-id, then the built-in binary and multi jobs.
type Jobs struct {
	DestRoot string
	Manifest string

	BinaryID string
	MultiID  string

	FileID           string
	Label            string
	Target           string
	FallbackFilename string

	NoExtract bool
}

// Flags returns CLI flags for job configuration
func (c *Jobs) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "dest-root",
			Usage:       "Destination root directory of downloaded weights",
			Value:       DefaultDestRoot,
			Destination: &c.DestRoot,
			Sources:     cli.EnvVars("GDFETCH_DEST_ROOT"),
		},
		&cli.StringFlag{
			Name:        "manifest",
			Aliases:     []string{"m"},
			Usage:       "TOML file listing [[job]] entries",
			Destination: &c.Manifest,
			Sources:     cli.EnvVars("GDFETCH_MANIFEST"),
		},
		&cli.StringFlag{
			Name:        "binary-id",
			Usage:       "File id of the binary model weights",
			Value:       DefaultBinaryFileID,
			Destination: &c.BinaryID,
			Sources:     cli.EnvVars("GDFETCH_BINARY_ID"),
		},
		&cli.StringFlag{
			Name:        "multi-id",
			Usage:       "File id of the multi-label model weights",
			Value:       DefaultMultiFileID,
			Destination: &c.MultiID,
			Sources:     cli.EnvVars("GDFETCH_MULTI_ID"),
		},
		&cli.StringFlag{
			Name:        "file-id",
			Usage:       "Download a single file id instead of the default jobs",
			Destination: &c.FileID,
			Sources:     cli.EnvVars("GDFETCH_FILE_ID"),
		},
		&cli.StringFlag{
			Name:        "label",
			Usage:       "Label of the single job",
			Value:       "model",
			Destination: &c.Label,
		},
		&cli.StringFlag{
			Name:        "target",
			Usage:       "Target directory of the single job (default: <dest-root>/<label>)",
			Destination: &c.Target,
		},
		&cli.StringFlag{
			Name:        "fallback-filename",
			Usage:       "File name used when the response does not carry one (default: <label>_model.zip)",
			Destination: &c.FallbackFilename,
		},
		&cli.BoolFlag{
			Name:        "no-extract",
			Usage:       "Do not extract downloaded or local archives",
			Destination: &c.NoExtract,
			Sources:     cli.EnvVars("GDFETCH_NO_EXTRACT"),
		},
	}
}

type manifest struct {
	Jobs []model.Job `toml:"job"`
}

// Load builds the job list. Relative targets are resolved against DestRoot.
func (c *Jobs) Load() ([]model.Job, error) {
	var jobs []model.Job

	switch {
	case c.Manifest != "":
		loaded, err := loadManifest(c.Manifest)
		if err != nil {
			return nil, err
		}
		jobs = loaded

	case c.FileID != "":
		jobs = []model.Job{{
			Label:            c.Label,
			FileID:           c.FileID,
			Target:           c.Target,
			FallbackFilename: c.FallbackFilename,
		}}

	default:
		jobs = DefaultJobs(c.BinaryID, c.MultiID)
	}

	for i := range jobs {
		job := &jobs[i]
		if job.Target == "" {
			job.Target = job.Label
		}
		if !filepath.IsAbs(job.Target) {
			job.Target = filepath.Join(c.DestRoot, job.Target)
		}
		if job.FallbackFilename == "" {
			job.FallbackFilename = job.Label + "_model.zip"
		}
		if err := job.Validate(); err != nil {
			return nil, err
		}
	}

	return jobs, nil
}

// DefaultJobs returns the binary and multi-label nnUNet weight jobs, with
// targets relative to the destination root.
func DefaultJobs(binaryID, multiID string) []model.Job {
	return []model.Job{
		{
			Label:            "binary",
			FileID:           binaryID,
			Target:           filepath.Join("nnunet", "binary"),
			FallbackFilename: "binary_model.zip",
		},
		{
			Label:            "multi",
			FileID:           multiID,
			Target:           filepath.Join("nnunet", "multi"),
			FallbackFilename: "multi_model.zip",
		},
	}
}

func loadManifest(path string) ([]model.Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read manifest", goerr.V("path", path))
	}

	var m manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, goerr.Wrap(err, "failed to parse manifest", goerr.V("path", path))
	}
	if len(m.Jobs) == 0 {
		return nil, goerr.New("manifest has no job", goerr.V("path", path))
	}

	seen := map[string]struct{}{}
	for _, job := range m.Jobs {
		if _, ok := seen[job.Label]; ok {
			return nil, goerr.New("duplicated job label in manifest",
				goerr.V("path", path),
				goerr.V("label", job.Label),
			)
		}
		seen[job.Label] = struct{}{}
	}
	return m.Jobs, nil
}
