package usecase

import (
	"context"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"

	"github.com/m-mizutani/gdfetch/pkg/domain/interfaces"
	"github.com/m-mizutani/gdfetch/pkg/domain/model"
	"github.com/m-mizutani/gdfetch/pkg/infra/archive"
	"github.com/m-mizutani/gdfetch/pkg/infra/drive"
	"github.com/m-mizutani/gdfetch/pkg/infra/fsys"
	"github.com/m-mizutani/gdfetch/pkg/infra/session"
	"github.com/m-mizutani/gdfetch/pkg/utils/progress"
)

// SessionFactory creates a fresh HTTP session for one file request.
type SessionFactory func() (interfaces.HTTPSession, error)

// Fetcher runs the download pipeline of a job: reuse what is on disk,
// otherwise resolve, download, extract and flatten.
type Fetcher struct {
	newSession SessionFactory
	seedURLs   func(fileID string) []string
	reporter   interfaces.ProgressReporter
	fs         interfaces.FileSystem
	noExtract  bool
}

var _ interfaces.FetchUseCase = (*Fetcher)(nil)

// FetcherOption configures Fetcher.
type FetcherOption func(*Fetcher)

// WithSessionFactory replaces how sessions are created.
func WithSessionFactory(f SessionFactory) FetcherOption {
	return func(x *Fetcher) {
		x.newSession = f
	}
}

// WithSeedURLs replaces the provider seed endpoints.
func WithSeedURLs(f func(fileID string) []string) FetcherOption {
	return func(x *Fetcher) {
		x.seedURLs = f
	}
}

// WithReporter sets the progress observer of downloads.
func WithReporter(r interfaces.ProgressReporter) FetcherOption {
	return func(x *Fetcher) {
		x.reporter = r
	}
}

// WithFileSystem replaces the filesystem used to find and flatten model
// directories.
func WithFileSystem(fs interfaces.FileSystem) FetcherOption {
	return func(x *Fetcher) {
		x.fs = fs
	}
}

// WithNoExtract keeps downloaded files as they are and ignores local archives.
func WithNoExtract(noExtract bool) FetcherOption {
	return func(x *Fetcher) {
		x.noExtract = noExtract
	}
}

// NewFetcher creates a Fetcher.
func NewFetcher(opts ...FetcherOption) *Fetcher {
	x := &Fetcher{
		newSession: func() (interfaces.HTTPSession, error) {
			return session.New()
		},
		seedURLs: drive.SeedURLs,
		reporter: progress.Discard{},
		fs:       fsys.New(),
	}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

// FetchAll runs jobs in order and stops at the first failure. Results of the
// jobs finished before the failure are returned with the error.
func (x *Fetcher) FetchAll(ctx context.Context, jobs []model.Job) ([]*model.FetchResult, error) {
	results := make([]*model.FetchResult, 0, len(jobs))
	for _, job := range jobs {
		result, err := x.Fetch(ctx, job)
		if err != nil {
			return results, goerr.Wrap(err, "job failed", goerr.V("label", job.Label))
		}
		results = append(results, result)
	}
	return results, nil
}

// Fetch makes the model directory of job available under job.Target.
func (x *Fetcher) Fetch(ctx context.Context, job model.Job) (*model.FetchResult, error) {
	logger := ctxlog.From(ctx).With("job_id", uuid.NewString(), "label", job.Label)
	ctx = ctxlog.With(ctx, logger)

	if err := job.Validate(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(job.Target, 0755); err != nil {
		return nil, goerr.Wrap(err, "failed to create target directory", goerr.V("target", job.Target))
	}

	flattener := NewFlattener(x.fs)

	existing, err := flattener.Flatten(ctx, job.Target)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		logger.Info("Model directory ready", "path", existing.Path, "source", model.SourceExisting)
		return readyResult(job, model.SourceExisting, existing), nil
	}

	if !x.noExtract {
		found, err := x.reuseLocalArchives(ctx, flattener, job)
		if err != nil {
			return nil, err
		}
		if found != nil {
			logger.Info("Model directory ready", "path", found.Path, "source", model.SourceLocalArchive)
			return readyResult(job, model.SourceLocalArchive, found), nil
		}
	}

	logger.Info("Downloading", "file_id", job.FileID)
	saved, err := x.download(ctx, job)
	if err != nil {
		return nil, err
	}

	result := &model.FetchResult{
		Label:      job.Label,
		Source:     model.SourceDownload,
		Downloaded: saved,
		ModelDir:   job.Target,
	}

	if !x.noExtract {
		extracted, err := archive.ExtractIfArchive(ctx, saved, job.Target)
		if err != nil {
			return nil, err
		}
		result.Extracted = extracted
	}

	found, err := flattener.Flatten(ctx, job.Target)
	if err != nil {
		return nil, err
	}
	if found == nil {
		logger.Warn("Model directory not detected, set its path manually", "target", job.Target)
		return result, nil
	}

	logger.Info("Model directory ready", "path", found.Path, "source", model.SourceDownload)
	result.ModelDir = found.Path
	result.Detected = true
	return result, nil
}

// reuseLocalArchives extracts archives already sitting in the target and
// looks for a model directory again.
func (x *Fetcher) reuseLocalArchives(ctx context.Context, flattener *Flattener, job model.Job) (*model.ModelDirectory, error) {
	candidates, err := archive.FindCandidates(job.Target)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	ctxlog.From(ctx).Info("Found local archives, trying extraction first", "archives", candidates)

	var extractedAny bool
	for _, path := range candidates {
		extracted, err := archive.ExtractIfArchive(ctx, path, job.Target)
		if err != nil {
			return nil, err
		}
		extractedAny = extractedAny || extracted
	}
	if !extractedAny {
		return nil, nil
	}
	return flattener.Flatten(ctx, job.Target)
}

// download resolves the job's file and persists it in the target directory.
// It returns the path of the saved file.
func (x *Fetcher) download(ctx context.Context, job model.Job) (string, error) {
	sess, err := x.newSession()
	if err != nil {
		return "", err
	}

	req := job.Request(x.seedURLs(job.FileID)...)
	if err := req.Validate(); err != nil {
		return "", err
	}

	resolved, err := NewResolver(sess).Resolve(ctx, req)
	if err != nil {
		return "", err
	}

	outputPath := filepath.Join(req.OutputDir, drive.Filename(resolved.Response, req.FallbackFilename))
	transfer, err := NewWriter(sess, WithProgress(x.reporter)).Persist(ctx, resolved, outputPath)
	if err != nil {
		return "", err
	}

	ctxlog.From(ctx).Info("Saved",
		"path", transfer.Path,
		"written", transfer.Written,
		"resumed", transfer.Resumed,
		"skipped", transfer.Skipped,
	)
	return transfer.Path, nil
}

func readyResult(job model.Job, source model.FetchSource, dir *model.ModelDirectory) *model.FetchResult {
	return &model.FetchResult{
		Label:    job.Label,
		Source:   source,
		ModelDir: dir.Path,
		Detected: true,
	}
}
