package model

import "github.com/m-mizutani/goerr/v2"

// Job is one labelled download handled by the fetch pipeline.
type Job struct {
	Label            string `toml:"label"`
	FileID           string `toml:"file_id"`
	Target           string `toml:"target"`
	FallbackFilename string `toml:"fallback_filename"`
}

// Validate checks that the job can be run.
func (j Job) Validate() error {
	if j.Label == "" {
		return goerr.New("job label is required", goerr.V("file_id", j.FileID))
	}
	if j.FileID == "" {
		return goerr.New("file id is required", goerr.V("label", j.Label))
	}
	if j.Target == "" {
		return goerr.New("target directory is required", goerr.V("label", j.Label))
	}
	if j.FallbackFilename == "" {
		return goerr.New("fallback filename is required", goerr.V("label", j.Label))
	}
	return nil
}

// Request converts the job into a FileRequest targeting the job directory.
func (j Job) Request(candidates ...string) *FileRequest {
	return &FileRequest{
		FileID:           j.FileID,
		CandidateURLs:    candidates,
		OutputDir:        j.Target,
		FallbackFilename: j.FallbackFilename,
	}
}

// FetchSource tells how the model directory of a job was obtained.
type FetchSource string

const (
	SourceExisting     FetchSource = "existing"
	SourceLocalArchive FetchSource = "local_archive"
	SourceDownload     FetchSource = "download"
)

// FetchResult is the outcome of one job.
type FetchResult struct {
	Label      string
	Source     FetchSource
	Downloaded string // Path of the persisted file, empty unless downloaded
	Extracted  bool
	ModelDir   string // Detected model directory, or the job target when not detected
	Detected   bool
}
