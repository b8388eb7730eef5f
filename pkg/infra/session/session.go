package session

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/m-mizutani/goerr/v2"
	"golang.org/x/net/publicsuffix"
)

// DefaultUserAgent is sent with every request.
const DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0"

// config holds internal session configuration
type config struct {
	userAgent string
	timeout   time.Duration
	transport http.RoundTripper
}

// Option is a functional option for Session configuration
type Option func(*config)

// WithUserAgent overrides the User-Agent header
func WithUserAgent(ua string) Option {
	return func(c *config) {
		c.userAgent = ua
	}
}

// WithTimeout sets the timeout for a whole request including the body read.
// Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// WithTransport replaces the pooled transport
func WithTransport(rt http.RoundTripper) Option {
	return func(c *config) {
		c.transport = rt
	}
}

// Session is a cookie-persisting HTTP client scoped to one file request.
type Session struct {
	client    *http.Client
	jar       http.CookieJar
	userAgent string
}

// New creates a Session with an empty cookie store.
func New(opts ...Option) (*Session, error) {
	cfg := &config{
		userAgent: DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.transport == nil {
		cfg.transport = cleanhttp.DefaultPooledTransport()
	}

	// All users of cookiejar should import "golang.org/x/net/publicsuffix"
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create cookie jar")
	}

	return &Session{
		client: &http.Client{
			Transport: cfg.transport,
			Jar:       jar,
			Timeout:   cfg.timeout,
		},
		jar:       jar,
		userAgent: cfg.userAgent,
	}, nil
}

// Get issues a GET request for rawURL.
func (s *Session) Get(ctx context.Context, rawURL string) (*http.Response, error) {
	return s.do(ctx, rawURL, nil)
}

// GetRange issues a GET request for bytes offset..end of rawURL.
func (s *Session) GetRange(ctx context.Context, rawURL string, offset int64) (*http.Response, error) {
	return s.do(ctx, rawURL, http.Header{
		"Range": []string{fmt.Sprintf("bytes=%d-", offset)},
	})
}

// Cookies returns the cookies stored for rawURL.
func (s *Session) Cookies(rawURL string) []*http.Cookie {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil
	}
	return s.jar.Cookies(u)
}

func (s *Session) do(ctx context.Context, rawURL string, header http.Header) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create request", goerr.V("url", rawURL))
	}
	for key, values := range header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, goerr.Wrap(err, "request failed", goerr.V("url", rawURL))
	}
	return resp, nil
}
