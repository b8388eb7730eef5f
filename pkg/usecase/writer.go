package usecase

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"

	"github.com/m-mizutani/gdfetch/pkg/domain/interfaces"
	"github.com/m-mizutani/gdfetch/pkg/domain/model"
	"github.com/m-mizutani/gdfetch/pkg/utils/progress"
)

const (
	// ChunkSize is the unit of body reads and of progress reporting.
	ChunkSize = 1024 * 1024

	resumeStateSuffix = ".gdfetch.toml"
)

// Writer streams attachment responses to disk and resumes partial files with
// byte range requests.
type Writer struct {
	session  interfaces.HTTPSession
	reporter interfaces.ProgressReporter
	now      func() time.Time
}

// WriterOption configures Writer.
type WriterOption func(*Writer)

// WithProgress sets the progress observer.
func WithProgress(r interfaces.ProgressReporter) WriterOption {
	return func(w *Writer) {
		w.reporter = r
	}
}

// NewWriter creates a Writer that reissues range requests through session.
func NewWriter(session interfaces.HTTPSession, opts ...WriterOption) *Writer {
	w := &Writer{
		session:  session,
		reporter: progress.Discard{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// ResumeStatePath returns where the resume record of outputPath is kept.
func ResumeStatePath(outputPath string) string {
	return outputPath + resumeStateSuffix
}

// Persist writes the body of src to outputPath. When outputPath already holds
// bytes, src's body is discarded and the remainder is requested with a byte
// range instead. On success outputPath holds the complete payload.
func (w *Writer) Persist(ctx context.Context, src *model.Resolved, outputPath string) (*model.TransferResult, error) {
	logger := ctxlog.From(ctx)
	name := filepath.Base(outputPath)

	existing, err := fileSize(outputPath)
	if err != nil {
		src.Response.Body.Close()
		return nil, err
	}

	if existing <= 0 {
		defer src.Response.Body.Close()
		return w.fresh(ctx, src, src.Response, outputPath)
	}

	// The original body is never resumed; a range request replaces it.
	src.Response.Body.Close()

	partial := model.PartialFile{Path: outputPath, Size: existing}
	state, err := readResumeState(outputPath)
	if err != nil {
		return nil, err
	}

	switch {
	case state == nil:
		logger.Warn("No resume record for partial file, trusting bytes on disk",
			"path", partial.Path,
			"bytes", partial.Size,
		)
	case !state.Matches(src.FileID):
		logger.Warn("Partial file belongs to another resource, restarting download",
			"path", partial.Path,
			"bytes", partial.Size,
			"recorded_file_id", state.FileID,
			"file_id", src.FileID,
		)
		return w.restart(ctx, src, outputPath)
	case state.TotalSize > 0 && partial.Size > state.TotalSize:
		logger.Warn("Partial file is larger than the recorded remote size, restarting download",
			"path", partial.Path,
			"bytes", partial.Size,
			"total_size", state.TotalSize,
		)
		return w.restart(ctx, src, outputPath)
	}

	resp, err := w.session.GetRange(ctx, src.URL, partial.Size)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to request remaining bytes",
			goerr.V("url", src.URL),
			goerr.V("offset", partial.Size),
		)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusPartialContent:
		logger.Info("Resuming download", "path", outputPath, "offset_mib", partial.Size/ChunkSize)
		total := resp.ContentLength
		if total > 0 {
			total += partial.Size
		}
		written, err := w.stream(resp.Body, outputPath, name, true, partial.Size, total)
		if err != nil {
			return nil, err
		}
		if err := removeResumeState(outputPath); err != nil {
			return nil, err
		}
		return &model.TransferResult{Path: outputPath, Written: written, Resumed: true}, nil

	case resp.StatusCode == http.StatusRequestedRangeNotSatisfiable:
		logger.Info("Download already complete", "path", outputPath, "size_mib", partial.Size/ChunkSize)
		if err := removeResumeState(outputPath); err != nil {
			return nil, err
		}
		return &model.TransferResult{Path: outputPath, Skipped: true}, nil

	case statusOK(resp.StatusCode):
		logger.Info("Server ignored range request, restarting full download", "path", outputPath)
		return w.fresh(ctx, src, resp, outputPath)

	default:
		return nil, goerr.Wrap(ErrUnexpectedStatus, "range request rejected",
			goerr.V("url", src.URL),
			goerr.V("status", resp.StatusCode),
		)
	}
}

// restart fetches the whole resource again and overwrites outputPath.
func (w *Writer) restart(ctx context.Context, src *model.Resolved, outputPath string) (*model.TransferResult, error) {
	resp, err := w.session.Get(ctx, src.URL)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to restart download", goerr.V("url", src.URL))
	}
	defer resp.Body.Close()

	if !statusOK(resp.StatusCode) {
		return nil, goerr.Wrap(ErrUnexpectedStatus, "restart request rejected",
			goerr.V("url", src.URL),
			goerr.V("status", resp.StatusCode),
		)
	}
	return w.fresh(ctx, src, resp, outputPath)
}

// fresh truncates outputPath and writes the whole body of resp.
func (w *Writer) fresh(ctx context.Context, src *model.Resolved, resp *http.Response, outputPath string) (*model.TransferResult, error) {
	state := &model.ResumeState{
		FileID:    src.FileID,
		SourceURL: src.URL,
		TotalSize: resp.ContentLength,
		StartedAt: w.now().UTC(),
	}
	if err := writeResumeState(outputPath, state); err != nil {
		return nil, err
	}

	written, err := w.stream(resp.Body, outputPath, filepath.Base(outputPath), false, 0, resp.ContentLength)
	if err != nil {
		return nil, err
	}
	if err := removeResumeState(outputPath); err != nil {
		return nil, err
	}

	ctxlog.From(ctx).Info("Saved file", "path", outputPath, "bytes", written)
	return &model.TransferResult{Path: outputPath, Written: written}, nil
}

// stream copies body to path in ChunkSize reads, reporting progress each time
// the count of whole MiB on disk changes. total <= 0 means unknown.
func (w *Writer) stream(body io.Reader, path, name string, appendMode bool, initial, total int64) (int64, error) {
	flag := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if appendMode {
		flag = os.O_WRONLY | os.O_CREATE | os.O_APPEND
	}
	if total < 0 {
		total = 0
	}

	f, err := os.OpenFile(path, flag, 0644)
	if err != nil {
		return 0, goerr.Wrap(err, "failed to open output file", goerr.V("path", path))
	}
	defer f.Close()

	buf := make([]byte, ChunkSize)
	downloaded := initial
	lastReported := int64(-1)

	for {
		n, readErr := fillChunk(body, buf)
		if n > 0 {
			if _, err := f.Write(buf[:n]); err != nil {
				return downloaded - initial, goerr.Wrap(err, "failed to write chunk", goerr.V("path", path))
			}
			downloaded += int64(n)

			if mb := downloaded / ChunkSize; mb != lastReported {
				lastReported = mb
				w.reporter.Progress(name, downloaded, total)
			}
		}

		if errors.Is(readErr, io.EOF) {
			break
		}
		if readErr != nil {
			return downloaded - initial, goerr.Wrap(readErr, "failed to read response body",
				goerr.V("path", path),
				goerr.V("bytes_on_disk", downloaded),
			)
		}
	}

	if err := f.Close(); err != nil {
		return downloaded - initial, goerr.Wrap(err, "failed to close output file", goerr.V("path", path))
	}
	w.reporter.Done(name, downloaded)
	return downloaded - initial, nil
}

// fillChunk reads until buf is full or the reader fails. io.EOF is returned
// only at the true end of the body.
func fillChunk(r io.Reader, buf []byte) (int, error) {
	var n int
	for n < len(buf) {
		m, err := r.Read(buf[n:])
		n += m
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

func fileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, goerr.Wrap(err, "failed to stat output file", goerr.V("path", path))
	}
	if !info.Mode().IsRegular() {
		return 0, goerr.New("output path is not a regular file", goerr.V("path", path))
	}
	return info.Size(), nil
}

func readResumeState(outputPath string) (*model.ResumeState, error) {
	data, err := os.ReadFile(ResumeStatePath(outputPath))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read resume record", goerr.V("path", outputPath))
	}

	var state model.ResumeState
	if err := toml.Unmarshal(data, &state); err != nil {
		return nil, goerr.Wrap(err, "failed to parse resume record", goerr.V("path", outputPath))
	}
	return &state, nil
}

func writeResumeState(outputPath string, state *model.ResumeState) error {
	data, err := toml.Marshal(state)
	if err != nil {
		return goerr.Wrap(err, "failed to encode resume record")
	}
	if err := os.WriteFile(ResumeStatePath(outputPath), data, 0644); err != nil {
		return goerr.Wrap(err, "failed to write resume record", goerr.V("path", outputPath))
	}
	return nil
}

func removeResumeState(outputPath string) error {
	if err := os.Remove(ResumeStatePath(outputPath)); err != nil && !os.IsNotExist(err) {
		return goerr.Wrap(err, "failed to remove resume record", goerr.V("path", outputPath))
	}
	return nil
}
