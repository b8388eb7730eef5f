package model

import "time"

// PartialFile is a local file that may hold the head of a remote payload.
// Bytes on disk never exceed the remote size when that size is known.
type PartialFile struct {
	Path string
	Size int64
}

// ResumeState identifies which remote resource a partial file belongs to.
// It is stored next to the partial file while a transfer is in flight.
type ResumeState struct {
	FileID    string    `toml:"file_id"`
	SourceURL string    `toml:"source_url"`
	TotalSize int64     `toml:"total_size"`
	StartedAt time.Time `toml:"started_at"`
}

// Matches reports whether the state was recorded for fileID.
func (s *ResumeState) Matches(fileID string) bool {
	return s != nil && s.FileID == fileID
}

// TransferResult summarizes one Persist call.
type TransferResult struct {
	Path    string
	Written int64 // Bytes written by this call
	Resumed bool  // Bytes were appended to an existing partial file
	Skipped bool  // Server reported the file already complete (416)
}
