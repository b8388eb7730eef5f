package model

import "github.com/m-mizutani/goerr/v2"

// FileRequest describes one logical download job for a hosted file.
// It must not be modified once resolution begins.
type FileRequest struct {
	FileID           string   // Opaque file identifier on the hosting provider
	CandidateURLs    []string // Seed URLs; provider defaults are used when empty
	OutputDir        string   // Directory receiving the downloaded file
	FallbackFilename string   // Used when the response does not name the file
}

// Validate checks required fields.
func (r *FileRequest) Validate() error {
	if r.FileID == "" {
		return goerr.New("file id is required")
	}
	if r.OutputDir == "" {
		return goerr.New("output directory is required", goerr.V("file_id", r.FileID))
	}
	if r.FallbackFilename == "" {
		return goerr.New("fallback filename is required", goerr.V("file_id", r.FileID))
	}
	return nil
}

// ConfirmToken is the value that acknowledges the provider's warning page.
// It is redacted from logs.
type ConfirmToken string
