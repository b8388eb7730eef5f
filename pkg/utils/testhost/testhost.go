// Package testhost emulates the file hosting provider's two download hosts
// for tests: warning pages, confirmation cookies, download forms and byte
// range handling.
package testhost

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
)

// Behavior selects how the host answers a first request for a file.
type Behavior int

const (
	// Direct serves the file from the first seed endpoint.
	Direct Behavior = iota
	// CookieConfirm answers with a warning page and a download_warning
	// cookie; requests carrying confirm=<token> get the file.
	CookieConfirm
	// PageConfirm is CookieConfirm without the cookie; the token only
	// appears in the page text.
	PageConfirm
	// EmbeddedURL answers with a page holding an escaped "downloadUrl".
	EmbeddedURL
	// Form answers with a "download-form" page whose submission gets the file.
	Form
	// Denied always answers with a page that carries no way forward.
	Denied
	// SecondSeedOnly answers the first seed with a dead-end page and serves
	// the file from the second seed.
	SecondSeedOnly
	// RedirectCookieConfirm redirects the first seed to the second endpoint
	// under another host name (see AliasURL). That host sets the
	// download_warning cookie on a page that carries no token.
	RedirectCookieConfirm
)

// RangeMode selects how byte range requests are answered.
type RangeMode int

const (
	RangeSupported RangeMode = iota
	RangeIgnored
)

// File is a payload served by the host.
type File struct {
	Name     string
	Content  []byte
	Behavior Behavior
	Range    RangeMode
	Token    string // confirmation token, default "t0k3n"
	NoLength bool   // omit Content-Length
}

// Host is a running fake provider.
type Host struct {
	server *httptest.Server

	mu       sync.Mutex
	files    map[string]*File
	requests []string
}

// New starts a Host. Call Close when done.
func New() *Host {
	h := &Host{files: map[string]*File{}}

	r := chi.NewRouter()
	r.Use(h.record)
	r.Get("/uc", h.handleUC)
	r.Get("/download", h.handleUserContent)
	r.Get("/direct/{id}", h.handleDirect)
	r.Get("/form-submit", h.handleFormSubmit)

	h.server = httptest.NewServer(r)
	return h
}

// Close shuts the server down.
func (h *Host) Close() {
	h.server.Close()
}

// URL is the base URL of the host.
func (h *Host) URL() string {
	return h.server.URL
}

// Add registers a file under id.
func (h *Host) Add(id string, f File) {
	if f.Token == "" {
		f.Token = "t0k3n"
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.files[id] = &f
}

// SetContent replaces the payload of a registered file.
func (h *Host) SetContent(id string, content []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if f, ok := h.files[id]; ok {
		f.Content = content
	}
}

// AliasURL is the base URL of the host under the name "localhost". Cookies
// set through it are not visible under URL.
func (h *Host) AliasURL() string {
	return strings.Replace(h.server.URL, "127.0.0.1", "localhost", 1)
}

// SeedURLs mirrors the provider's two seed endpoints on this host.
func (h *Host) SeedURLs(id string) []string {
	return []string{
		h.server.URL + "/uc?export=download&id=" + id,
		h.server.URL + "/download?id=" + id + "&export=download",
	}
}

// Requests returns every request URI received, in order.
func (h *Host) Requests() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.requests...)
}

func (h *Host) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.mu.Lock()
		h.requests = append(h.requests, r.URL.RequestURI())
		h.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (h *Host) lookup(id string) (*File, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	f, ok := h.files[id]
	if !ok {
		return nil, false
	}
	cp := *f
	return &cp, true
}

func (h *Host) handleUC(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	f, ok := h.lookup(id)
	if !ok {
		http.NotFound(w, r)
		return
	}

	switch f.Behavior {
	case Direct:
		h.serveFile(w, r, f)

	case CookieConfirm, PageConfirm:
		if r.URL.Query().Get("confirm") == f.Token {
			h.serveFile(w, r, f)
			return
		}
		if f.Behavior == CookieConfirm {
			http.SetCookie(w, &http.Cookie{
				Name:  "download_warning_13058876669334088843_" + id,
				Value: f.Token,
				Path:  "/",
			})
			servePage(w, `<html><body><p>Google Drive can't scan this file for viruses.</p></body></html>`)
			return
		}
		servePage(w, fmt.Sprintf(`<html><body><a id="uc-download-link" href="/uc?export=download&amp;confirm=%s&amp;id=%s">Download anyway</a></body></html>`, f.Token, id))

	case EmbeddedURL:
		escaped := strings.ReplaceAll(h.server.URL+"/direct/"+id+"?export=download&authuser=0", "/", `\/`)
		escaped = strings.ReplaceAll(escaped, "=", `\u003d`)
		escaped = strings.ReplaceAll(escaped, "&", `\u0026`)
		servePage(w, fmt.Sprintf(`<html><script>window.viewerData = {"downloadUrl":"%s"};</script></html>`, escaped))

	case Form:
		servePage(w, fmt.Sprintf(`<html><body>
<form id="download-form" action="%s/form-submit" method="get">
<input type="submit" id="uc-download-link" value="Download anyway"/>
<input type="hidden" name="id" value="%s">
<input type="hidden" name="export" value="download">
<input type="hidden" name="confirm" value="%s">
<input type="hidden" name="uuid" value="0b5f5b0e-uuid">
</form></body></html>`, h.server.URL, id, f.Token))

	case RedirectCookieConfirm:
		if r.URL.Query().Get("confirm") == f.Token {
			h.serveFile(w, r, f)
			return
		}
		http.Redirect(w, r, h.AliasURL()+"/download?id="+id+"&export=download", http.StatusSeeOther)

	case Denied, SecondSeedOnly:
		servePage(w, `<html><body><p>Sorry, you can't view or download this file at this time.</p></body></html>`)
	}
}

func (h *Host) handleUserContent(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	f, ok := h.lookup(id)
	if !ok {
		http.NotFound(w, r)
		return
	}

	switch f.Behavior {
	case SecondSeedOnly, Direct:
		h.serveFile(w, r, f)
	case CookieConfirm, PageConfirm, Form, RedirectCookieConfirm:
		if r.URL.Query().Get("confirm") == f.Token {
			h.serveFile(w, r, f)
			return
		}
		if f.Behavior == RedirectCookieConfirm {
			http.SetCookie(w, &http.Cookie{
				Name:  "download_warning_40_" + id,
				Value: f.Token,
				Path:  "/",
			})
		}
		servePage(w, `<html><body><p>Virus scan warning</p></body></html>`)
	default:
		servePage(w, `<html><body><p>Access denied</p></body></html>`)
	}
}

func (h *Host) handleDirect(w http.ResponseWriter, r *http.Request) {
	f, ok := h.lookup(chi.URLParam(r, "id"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	h.serveFile(w, r, f)
}

func (h *Host) handleFormSubmit(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f, ok := h.lookup(q.Get("id"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	if q.Get("confirm") != f.Token || q.Get("uuid") == "" || q.Get("export") != "download" {
		servePage(w, `<html><body><p>Bad form submission</p></body></html>`)
		return
	}
	h.serveFile(w, r, f)
}

func servePage(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}

func (h *Host) serveFile(w http.ResponseWriter, r *http.Request, f *File) {
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, f.Name))

	size := int64(len(f.Content))
	offset, hasRange := parseRange(r.Header.Get("Range"))
	if hasRange && f.Range == RangeSupported {
		if offset >= size {
			w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", size))
			w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
			return
		}
		w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", offset, size-1, size))
		if !f.NoLength {
			w.Header().Set("Content-Length", strconv.FormatInt(size-offset, 10))
		}
		w.WriteHeader(http.StatusPartialContent)
		_, _ = w.Write(f.Content[offset:])
		return
	}

	if !f.NoLength {
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	}
	w.WriteHeader(http.StatusOK)
	if f.NoLength {
		// Flushing before the body forces chunked encoding.
		if fl, ok := w.(http.Flusher); ok {
			fl.Flush()
		}
	}
	_, _ = w.Write(f.Content)
}

// parseRange understands the open-ended "bytes=N-" form only.
func parseRange(header string) (int64, bool) {
	if !strings.HasPrefix(header, "bytes=") || !strings.HasSuffix(header, "-") {
		return 0, false
	}
	n, err := strconv.ParseInt(strings.TrimSuffix(strings.TrimPrefix(header, "bytes="), "-"), 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
