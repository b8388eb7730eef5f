package drive

import (
	"net/http"
	"strings"

	"github.com/m-mizutani/gdfetch/pkg/domain/model"
)

// Classify decides from headers alone whether resp carries the file body or
// an interstitial page. The body is never read.
func Classify(resp *http.Response) model.Verdict {
	disposition := resp.Header.Get("Content-Disposition")
	contentType := resp.Header.Get("Content-Type")

	v := model.Verdict{
		Kind:        model.VerdictAttachment,
		Disposition: disposition,
		ContentType: contentType,
	}

	switch {
	case strings.Contains(strings.ToLower(disposition), "attachment"):
		v.Kind = model.VerdictAttachment
	case strings.Contains(strings.ToLower(contentType), "text/html"):
		v.Kind = model.VerdictInterstitial
	}
	return v
}
