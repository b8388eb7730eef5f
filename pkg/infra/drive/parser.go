package drive

import (
	"html"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	xhtml "golang.org/x/net/html"

	"github.com/m-mizutani/gdfetch/pkg/domain/model"
)

// Input is what a strategy sees of an interstitial page.
type Input struct {
	HTML    string
	FileID  string
	Cookies []*http.Cookie
}

// Strategy extracts a download signal from one page format.
type Strategy interface {
	Name() string
	Extract(in Input) (model.Signal, bool)
}

// Parser tries its strategies in order; the first match wins.
type Parser struct {
	strategies []Strategy
}

// NewParser returns a Parser using strategies, or the default ordered set
// when none are given.
func NewParser(strategies ...Strategy) *Parser {
	if len(strategies) == 0 {
		strategies = DefaultStrategies()
	}
	return &Parser{strategies: strategies}
}

// DefaultStrategies returns the page formats known today, highest priority
// first.
func DefaultStrategies() []Strategy {
	return []Strategy{
		&DownloadURLStrategy{},
		&DownloadFormStrategy{},
		&ConfirmTokenStrategy{CookiePrefix: "download_warning"},
	}
}

// Extract returns the first signal any strategy finds.
func (p *Parser) Extract(in Input) (model.Signal, bool) {
	for _, s := range p.strategies {
		if sig, ok := s.Extract(in); ok {
			return sig, true
		}
	}
	return model.Signal{}, false
}

// DirectURL returns the first ready-made download URL found in page.
func (p *Parser) DirectURL(page, fileID string) (string, bool) {
	in := Input{HTML: page, FileID: fileID}
	for _, s := range p.strategies {
		if sig, ok := s.Extract(in); ok && sig.HasURL() {
			return sig.DirectURL, true
		}
	}
	return "", false
}

// ConfirmToken returns the first confirmation token found in cookies or page.
func (p *Parser) ConfirmToken(page string, cookies []*http.Cookie) (model.ConfirmToken, bool) {
	in := Input{HTML: page, Cookies: cookies}
	for _, s := range p.strategies {
		if sig, ok := s.Extract(in); ok && sig.HasToken() {
			return sig.Token, true
		}
	}
	return "", false
}

var downloadURLPattern = regexp.MustCompile(`"downloadUrl":"([^"]+)"`)

// DownloadURLStrategy finds a JSON-like "downloadUrl" field.
type DownloadURLStrategy struct{}

func (s *DownloadURLStrategy) Name() string { return "download_url" }

func (s *DownloadURLStrategy) Extract(in Input) (model.Signal, bool) {
	m := downloadURLPattern.FindStringSubmatch(in.HTML)
	if m == nil {
		return model.Signal{}, false
	}
	return model.Signal{DirectURL: DecodeEmbeddedURL(m[1])}, true
}

var embeddedEscapes = strings.NewReplacer(
	`\u003d`, "=",
	`\u0026`, "&",
	`\/`, "/",
)

// DecodeEmbeddedURL undoes HTML entity encoding and then the escape
// sequences used inside inline script data.
func DecodeEmbeddedURL(raw string) string {
	return embeddedEscapes.Replace(html.UnescapeString(raw))
}

// DownloadFormStrategy rebuilds the URL submitted by the page's
// "download-form" form from its action and the page's hidden inputs.
type DownloadFormStrategy struct{}

func (s *DownloadFormStrategy) Name() string { return "download_form" }

func (s *DownloadFormStrategy) Extract(in Input) (model.Signal, bool) {
	var (
		action string
		keys   []string
		params = map[string]string{}
	)

	z := xhtml.NewTokenizer(strings.NewReader(in.HTML))
	for {
		tt := z.Next()
		if tt == xhtml.ErrorToken {
			break
		}
		if tt != xhtml.StartTagToken && tt != xhtml.SelfClosingTagToken {
			continue
		}

		tok := z.Token()
		switch tok.Data {
		case "form":
			if action != "" {
				continue
			}
			id, _ := attr(tok, "id")
			act, ok := attr(tok, "action")
			if ok && act != "" && strings.EqualFold(id, "download-form") {
				action = act
			}

		case "input":
			typ, _ := attr(tok, "type")
			if !strings.EqualFold(typ, "hidden") {
				continue
			}
			name, hasName := attr(tok, "name")
			value, hasValue := attr(tok, "value")
			if !hasName || !hasValue || name == "" {
				continue
			}
			if _, seen := params[name]; !seen {
				keys = append(keys, name)
			}
			params[name] = value
		}
	}

	if action == "" {
		return model.Signal{}, false
	}

	defaults := [][2]string{{"id", in.FileID}, {"export", "download"}}
	for _, kv := range defaults {
		if _, ok := params[kv[0]]; !ok {
			keys = append(keys, kv[0])
			params[kv[0]] = kv[1]
		}
	}

	query := make([]string, 0, len(keys))
	for _, k := range keys {
		query = append(query, url.QueryEscape(k)+"="+url.QueryEscape(params[k]))
	}

	sep := "?"
	if strings.Contains(action, "?") {
		sep = "&"
	}
	return model.Signal{DirectURL: action + sep + strings.Join(query, "&")}, true
}

func attr(tok xhtml.Token, key string) (string, bool) {
	for _, a := range tok.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

var confirmPatterns = []*regexp.Regexp{
	regexp.MustCompile(`name="confirm"\s+value="([0-9A-Za-z_]+)"`),
	regexp.MustCompile(`'confirm'\s*:\s*'([0-9A-Za-z_]+)'`),
	regexp.MustCompile(`"confirm"\s*:\s*"([0-9A-Za-z_]+)"`),
	regexp.MustCompile(`confirm=([0-9A-Za-z_]+)&`),
	regexp.MustCompile(`confirm=([0-9A-Za-z_]+)`),
}

// ConfirmTokenStrategy finds a confirmation token, first in a warning
// cookie, then in the page text.
type ConfirmTokenStrategy struct {
	CookiePrefix string
}

func (s *ConfirmTokenStrategy) Name() string { return "confirm_token" }

func (s *ConfirmTokenStrategy) Extract(in Input) (model.Signal, bool) {
	if s.CookiePrefix != "" {
		for _, c := range in.Cookies {
			if strings.HasPrefix(c.Name, s.CookiePrefix) && c.Value != "" {
				return model.Signal{Token: model.ConfirmToken(c.Value)}, true
			}
		}
	}

	for _, p := range confirmPatterns {
		if m := p.FindStringSubmatch(in.HTML); m != nil {
			return model.Signal{Token: model.ConfirmToken(m[1])}, true
		}
	}
	return model.Signal{}, false
}
