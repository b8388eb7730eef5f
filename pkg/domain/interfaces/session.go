package interfaces

import (
	"context"
	"net/http"

	"github.com/m-mizutani/gdfetch/pkg/domain/model"
)

// HTTPSession issues requests that share one cookie store. A session serves a
// single FileRequest and must not be used concurrently.
type HTTPSession interface {
	// Get requests url. Non-2xx responses are returned, not converted to errors.
	Get(ctx context.Context, url string) (*http.Response, error)

	// GetRange requests url from byte offset to the end of the resource.
	GetRange(ctx context.Context, url string, offset int64) (*http.Response, error)

	// Cookies returns the cookies the session would send to url.
	Cookies(url string) []*http.Cookie
}

// SignalExtractor reads an interstitial page and finds the way past it.
type SignalExtractor interface {
	// DirectURL returns a ready-made download URL embedded in the page.
	DirectURL(html, fileID string) (string, bool)

	// ConfirmToken returns a token acknowledging the warning page.
	ConfirmToken(html string, cookies []*http.Cookie) (model.ConfirmToken, bool)
}

// ProgressReporter observes a transfer. It must not affect written data.
type ProgressReporter interface {
	// Progress is called each time a new whole MiB has been written.
	// total is zero when the remote size is unknown.
	Progress(name string, written, total int64)

	// Done is called once when the transfer finished successfully.
	Done(name string, written int64)
}
