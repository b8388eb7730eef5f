package model

import (
	"net/http"
	"strings"
)

// ResolutionAttempt is the append-only trail of URLs requested while
// resolving one FileRequest.
type ResolutionAttempt struct {
	urls []string
}

// Add records a URL before it is requested.
func (a *ResolutionAttempt) Add(url string) {
	a.urls = append(a.urls, url)
}

// URLs returns a copy of the recorded URLs in request order.
func (a *ResolutionAttempt) URLs() []string {
	out := make([]string, len(a.urls))
	copy(out, a.urls)
	return out
}

// Len returns the number of recorded URLs.
func (a *ResolutionAttempt) Len() int {
	return len(a.urls)
}

// Resolved is a successful resolution: the URL that produced an attachment
// and its still-unread response.
type Resolved struct {
	FileID   string
	URL      string
	Response *http.Response
	Verdict  Verdict
	Attempts []string
}

// ResolutionError is returned when every seed URL and every derived branch
// has been tried without receiving an attachment.
type ResolutionError struct {
	FileID   string
	Attempts []string
}

func (e *ResolutionError) Error() string {
	var b strings.Builder
	b.WriteString("failed to resolve hosted file, it may require manual access or sharing permission\n")
	b.WriteString("file id: ")
	b.WriteString(e.FileID)
	b.WriteString("\ntried URLs:")
	for _, u := range e.Attempts {
		b.WriteString("\n- ")
		b.WriteString(u)
	}
	return b.String()
}
