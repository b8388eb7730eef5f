package usecase_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/m-mizutani/gdfetch/pkg/domain/model"
	"github.com/m-mizutani/gdfetch/pkg/infra/session"
	"github.com/m-mizutani/gdfetch/pkg/usecase"
	"github.com/m-mizutani/gdfetch/pkg/utils/testhost"
)

func newSession(t *testing.T) *session.Session {
	t.Helper()
	sess, err := session.New()
	gt.NoError(t, err)
	return sess
}

func TestResolver_Resolve(t *testing.T) {
	content := []byte("model weights payload")

	tests := []struct {
		name         string
		behavior     testhost.Behavior
		wantAttempts int
		wantPath     string
	}{
		{
			name:         "direct attachment from first seed",
			behavior:     testhost.Direct,
			wantAttempts: 1,
			wantPath:     "/uc",
		},
		{
			name:         "confirm token from warning cookie",
			behavior:     testhost.CookieConfirm,
			wantAttempts: 2,
			wantPath:     "/uc",
		},
		{
			name:         "confirm token from page text",
			behavior:     testhost.PageConfirm,
			wantAttempts: 2,
			wantPath:     "/uc",
		},
		{
			name:         "embedded download URL",
			behavior:     testhost.EmbeddedURL,
			wantAttempts: 2,
			wantPath:     "/direct/",
		},
		{
			name:         "download form",
			behavior:     testhost.Form,
			wantAttempts: 2,
			wantPath:     "/form-submit",
		},
		{
			name:         "second seed serves the file",
			behavior:     testhost.SecondSeedOnly,
			wantAttempts: 2,
			wantPath:     "/download",
		},
		{
			name:         "warning cookie set by the redirect target host",
			behavior:     testhost.RedirectCookieConfirm,
			wantAttempts: 2,
			wantPath:     "/uc",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host := testhost.New()
			defer host.Close()
			host.Add("file-1", testhost.File{
				Name:     "weights.zip",
				Content:  content,
				Behavior: tt.behavior,
			})

			req := &model.FileRequest{
				FileID:           "file-1",
				CandidateURLs:    host.SeedURLs("file-1"),
				OutputDir:        t.TempDir(),
				FallbackFilename: "fallback.zip",
			}

			resolved, err := usecase.NewResolver(newSession(t)).Resolve(context.Background(), req)
			gt.NoError(t, err)
			defer resolved.Response.Body.Close()

			gt.Value(t, resolved.FileID).Equal("file-1")
			gt.Value(t, resolved.Verdict.Kind).Equal(model.VerdictAttachment)
			gt.Number(t, len(resolved.Attempts)).Equal(tt.wantAttempts)
			gt.Value(t, resolved.Attempts[len(resolved.Attempts)-1]).Equal(resolved.URL)
			gt.String(t, resolved.URL).Contains(tt.wantPath)

			body, err := io.ReadAll(resolved.Response.Body)
			gt.NoError(t, err)
			gt.Value(t, body).Equal(content)
		})
	}
}

func TestResolver_CookieFromRedirectTarget(t *testing.T) {
	host := testhost.New()
	defer host.Close()
	host.Add("moved", testhost.File{
		Name:     "moved.zip",
		Content:  []byte("payload"),
		Behavior: testhost.RedirectCookieConfirm,
	})

	seeds := host.SeedURLs("moved")
	req := &model.FileRequest{
		FileID:           "moved",
		CandidateURLs:    seeds,
		OutputDir:        t.TempDir(),
		FallbackFilename: "moved.zip",
	}

	sess := newSession(t)
	resolved, err := usecase.NewResolver(sess).Resolve(context.Background(), req)
	gt.NoError(t, err)
	defer resolved.Response.Body.Close()

	// The cookie belongs to the alias host only.
	gt.Number(t, len(sess.Cookies(seeds[0]))).Equal(0)
	gt.Number(t, len(sess.Cookies(host.AliasURL()+"/download"))).Equal(1)

	gt.Value(t, resolved.Attempts).Equal([]string{
		seeds[0],
		host.URL() + "/uc?confirm=t0k3n&export=download&id=moved",
	})
}

func TestResolver_ExhaustedListsAttempts(t *testing.T) {
	host := testhost.New()
	defer host.Close()
	host.Add("locked", testhost.File{Name: "x.zip", Content: []byte("x"), Behavior: testhost.Denied})

	seeds := host.SeedURLs("locked")
	req := &model.FileRequest{
		FileID:           "locked",
		CandidateURLs:    seeds,
		OutputDir:        t.TempDir(),
		FallbackFilename: "x.zip",
	}

	resolved, err := usecase.NewResolver(newSession(t)).Resolve(context.Background(), req)
	gt.Value(t, resolved).Nil()
	gt.Error(t, err)

	var resErr *model.ResolutionError
	gt.True(t, errors.As(err, &resErr))
	gt.Value(t, resErr.FileID).Equal("locked")
	gt.Value(t, resErr.Attempts).Equal(seeds)

	for _, u := range seeds {
		gt.String(t, err.Error()).Contains(u)
	}
}

func TestResolver_NonSuccessStatusIsFatal(t *testing.T) {
	host := testhost.New()
	defer host.Close()

	req := &model.FileRequest{
		FileID:           "missing",
		CandidateURLs:    host.SeedURLs("missing"),
		OutputDir:        t.TempDir(),
		FallbackFilename: "x.zip",
	}

	_, err := usecase.NewResolver(newSession(t)).Resolve(context.Background(), req)
	gt.Error(t, err)
	gt.True(t, errors.Is(err, usecase.ErrUnexpectedStatus))

	// The second seed is never tried.
	gt.Number(t, len(host.Requests())).Equal(1)
}

func TestResolver_TransportErrorIsFatal(t *testing.T) {
	host := testhost.New()
	seeds := host.SeedURLs("gone")
	host.Close()

	req := &model.FileRequest{
		FileID:           "gone",
		CandidateURLs:    seeds,
		OutputDir:        t.TempDir(),
		FallbackFilename: "x.zip",
	}

	_, err := usecase.NewResolver(newSession(t)).Resolve(context.Background(), req)
	gt.Error(t, err)

	var resErr *model.ResolutionError
	gt.False(t, errors.As(err, &resErr))
}

type mockSession struct {
	GetFunc      func(ctx context.Context, url string) (*http.Response, error)
	GetRangeFunc func(ctx context.Context, url string, offset int64) (*http.Response, error)
	CookiesFunc  func(url string) []*http.Cookie
}

func (m *mockSession) Get(ctx context.Context, url string) (*http.Response, error) {
	return m.GetFunc(ctx, url)
}

func (m *mockSession) GetRange(ctx context.Context, url string, offset int64) (*http.Response, error) {
	return m.GetRangeFunc(ctx, url, offset)
}

func (m *mockSession) Cookies(url string) []*http.Cookie {
	if m.CookiesFunc == nil {
		return nil
	}
	return m.CookiesFunc(url)
}

type mockExtractor struct {
	DirectURLFunc    func(html, fileID string) (string, bool)
	ConfirmTokenFunc func(html string, cookies []*http.Cookie) (model.ConfirmToken, bool)
}

func (m *mockExtractor) DirectURL(html, fileID string) (string, bool) {
	return m.DirectURLFunc(html, fileID)
}

func (m *mockExtractor) ConfirmToken(html string, cookies []*http.Cookie) (model.ConfirmToken, bool) {
	return m.ConfirmTokenFunc(html, cookies)
}

func htmlResponse(body string) *http.Response {
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": []string{"text/html"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestResolver_BranchOrder(t *testing.T) {
	var requested []string
	sess := &mockSession{
		GetFunc: func(ctx context.Context, url string) (*http.Response, error) {
			requested = append(requested, url)
			return htmlResponse("<html>" + url + "</html>"), nil
		},
	}

	extractor := &mockExtractor{
		DirectURLFunc: func(html, fileID string) (string, bool) {
			if strings.Contains(html, "seed-a") {
				return "https://host.test/direct", true
			}
			return "", false
		},
		ConfirmTokenFunc: func(html string, cookies []*http.Cookie) (model.ConfirmToken, bool) {
			if strings.Contains(html, "seed-a") {
				return "tok", true
			}
			return "", false
		},
	}

	req := &model.FileRequest{
		FileID:           "abc",
		CandidateURLs:    []string{"https://host.test/seed-a", "https://host.test/seed-b"},
		OutputDir:        t.TempDir(),
		FallbackFilename: "abc.zip",
	}

	_, err := usecase.NewResolver(sess, usecase.WithSignalExtractor(extractor)).Resolve(context.Background(), req)
	gt.Error(t, err)

	gt.Value(t, requested).Equal([]string{
		"https://host.test/seed-a",
		"https://host.test/direct",
		"https://host.test/seed-a?confirm=tok",
		"https://host.test/seed-b?confirm=tok",
		"https://host.test/seed-b",
	})

	var resErr *model.ResolutionError
	gt.True(t, errors.As(err, &resErr))
	gt.Value(t, resErr.Attempts).Equal(requested)
}
