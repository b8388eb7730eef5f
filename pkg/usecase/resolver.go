package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"

	"github.com/m-mizutani/gdfetch/pkg/domain/interfaces"
	"github.com/m-mizutani/gdfetch/pkg/domain/model"
	"github.com/m-mizutani/gdfetch/pkg/infra/drive"
)

// ErrUnexpectedStatus is returned when the host answers a resolution request
// with a non-2xx status. It aborts the whole resolution.
var ErrUnexpectedStatus = errors.New("unexpected HTTP status")

// maxPageSize bounds how much of an interstitial page is read.
const maxPageSize = 8 * 1024 * 1024

// Resolver turns a file identifier into a response carrying the file body.
type Resolver struct {
	session   interfaces.HTTPSession
	extractor interfaces.SignalExtractor
}

// ResolverOption configures Resolver.
type ResolverOption func(*Resolver)

// WithSignalExtractor replaces the interstitial page parser.
func WithSignalExtractor(x interfaces.SignalExtractor) ResolverOption {
	return func(r *Resolver) {
		r.extractor = x
	}
}

// NewResolver creates a Resolver bound to session. The session must not be
// shared with another FileRequest.
func NewResolver(session interfaces.HTTPSession, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		session:   session,
		extractor: drive.NewParser(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve walks the seed URLs of req and the branches derived from each
// interstitial page until a response classified as an attachment is found.
// The caller owns the returned response body. Transport errors and non-2xx
// statuses abort immediately.
func (r *Resolver) Resolve(ctx context.Context, req *model.FileRequest) (*model.Resolved, error) {
	logger := ctxlog.From(ctx)

	seeds := req.CandidateURLs
	if len(seeds) == 0 {
		seeds = drive.SeedURLs(req.FileID)
	}

	var attempts model.ResolutionAttempt
	for _, seed := range seeds {
		resolved, page, landed, err := r.try(ctx, req, seed, &attempts)
		if err != nil || resolved != nil {
			return resolved, err
		}

		if directURL, ok := r.extractor.DirectURL(page, req.FileID); ok {
			logger.Debug("Found direct download URL in interstitial page", "url", directURL)
			resolved, _, _, err := r.try(ctx, req, directURL, &attempts)
			if err != nil || resolved != nil {
				return resolved, err
			}
		}

		token, ok := r.extractor.ConfirmToken(page, r.pageCookies(seed, landed))
		if !ok {
			logger.Debug("No way past interstitial page", "url", seed)
			continue
		}

		logger.Debug("Found confirm token", slog.Any("confirm_token", token))
		for _, confirmURL := range drive.ConfirmURLs(seeds, token) {
			resolved, _, _, err := r.try(ctx, req, confirmURL, &attempts)
			if err != nil || resolved != nil {
				return resolved, err
			}
		}
	}

	return nil, &model.ResolutionError{
		FileID:   req.FileID,
		Attempts: attempts.URLs(),
	}
}

// pageCookies returns the session cookies visible to the seed and to the URL
// the seed finally landed on after redirects.
func (r *Resolver) pageCookies(seed, landed string) []*http.Cookie {
	cookies := r.session.Cookies(seed)
	if landed != "" && landed != seed {
		cookies = append(cookies, r.session.Cookies(landed)...)
	}
	return cookies
}

// try requests url. It returns a Resolved for an attachment, or the page text
// and the final URL after redirects for an interstitial.
func (r *Resolver) try(ctx context.Context, req *model.FileRequest, url string, attempts *model.ResolutionAttempt) (*model.Resolved, string, string, error) {
	logger := ctxlog.From(ctx)

	attempts.Add(url)
	logger.Debug("Requesting", "url", url, "attempt", attempts.Len())

	resp, err := r.session.Get(ctx, url)
	if err != nil {
		return nil, "", "", goerr.Wrap(err, "failed to request hosted file",
			goerr.V("file_id", req.FileID),
			goerr.V("attempts", attempts.URLs()),
		)
	}

	if !statusOK(resp.StatusCode) {
		resp.Body.Close()
		return nil, "", "", goerr.Wrap(ErrUnexpectedStatus, "host rejected request",
			goerr.V("url", url),
			goerr.V("status", resp.StatusCode),
			goerr.V("attempts", attempts.URLs()),
		)
	}

	verdict := drive.Classify(resp)
	if verdict.IsAttachment() {
		logger.Info("Resolved hosted file",
			"file_id", req.FileID,
			"url", url,
			"attempts", attempts.Len(),
		)
		return &model.Resolved{
			FileID:   req.FileID,
			URL:      url,
			Response: resp,
			Verdict:  verdict,
			Attempts: attempts.URLs(),
		}, "", "", nil
	}

	landed := url
	if resp.Request != nil && resp.Request.URL != nil {
		landed = resp.Request.URL.String()
	}

	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageSize))
	if err != nil {
		return nil, "", "", goerr.Wrap(err, "failed to read interstitial page", goerr.V("url", url))
	}
	return nil, string(body), landed, nil
}

// statusOK reports whether code is a 2xx status.
func statusOK(code int) bool {
	return code >= http.StatusOK && code < http.StatusMultipleChoices
}
