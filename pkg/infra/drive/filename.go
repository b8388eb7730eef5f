package drive

import (
	"net/http"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	encodedFilenamePattern = regexp.MustCompile(`filename\*=UTF-8''([^;]+)`)
	plainFilenamePattern   = regexp.MustCompile(`(?:^|;)\s*filename="?([^";]+)"?`)
)

// Filename picks the local file name for resp: the RFC 5987 encoded form of
// Content-Disposition first, then the plain form, then fallback. Directory
// components are stripped.
func Filename(resp *http.Response, fallback string) string {
	disposition := resp.Header.Get("Content-Disposition")

	if m := encodedFilenamePattern.FindStringSubmatch(disposition); m != nil {
		if safe := sanitize(unescapeLenient(strings.TrimSpace(m[1]))); safe != "" {
			return safe
		}
	}

	if m := plainFilenamePattern.FindStringSubmatch(disposition); m != nil {
		if safe := sanitize(m[1]); safe != "" {
			return safe
		}
	}

	return fallback
}

// unescapeLenient percent-decodes s, keeping malformed escapes verbatim.
func unescapeLenient(s string) string {
	if name, err := url.PathUnescape(s); err == nil {
		return name
	}

	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '%' && i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]) {
			b.WriteByte(unhex(s[i+1])<<4 | unhex(s[i+2]))
			i += 2
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func isHex(c byte) bool {
	return '0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F'
}

func unhex(c byte) byte {
	switch {
	case '0' <= c && c <= '9':
		return c - '0'
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}

func sanitize(name string) string {
	name = filepath.Base(filepath.FromSlash(strings.TrimSpace(name)))
	switch name {
	case ".", "..", string(filepath.Separator):
		return ""
	}
	return name
}
