package crawler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/net/html/charset"
	"golang.org/x/net/proxy"
)

// Default HTTP settings.
const (
	DefaultUserAgent   = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) Chrome/91.0.4472.124"
	DefaultMaxBodySize = 5 * 1024 * 1024
	DefaultTimeout     = 30 * time.Second
)

// PageSource returns the markup of a URL as UTF-8.
type PageSource interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// HTTPSource is a PageSource over net/http.
type HTTPSource struct {
	client      *http.Client
	userAgent   string
	headers     map[string]string
	cookie      string
	maxBodySize int64
	proxyURL    string
	timeout     time.Duration
	logger      *slog.Logger
}

var _ PageSource = (*HTTPSource)(nil)

// SourceOption configures an HTTPSource.
type SourceOption func(*HTTPSource)

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) SourceOption {
	return func(s *HTTPSource) {
		if ua != "" {
			s.userAgent = ua
		}
	}
}

// WithHeaders sets extra request headers.
func WithHeaders(h map[string]string) SourceOption {
	return func(s *HTTPSource) {
		s.headers = h
	}
}

// WithCookie sets the Cookie header.
func WithCookie(cookie string) SourceOption {
	return func(s *HTTPSource) {
		s.cookie = cookie
	}
}

// WithMaxBodySize limits the bytes read per response.
func WithMaxBodySize(n int64) SourceOption {
	return func(s *HTTPSource) {
		if n > 0 {
			s.maxBodySize = n
		}
	}
}

// WithProxy routes requests through a proxy: socks5://, socks5h://,
// http:// or https:// URLs are accepted. An empty string disables proxying.
func WithProxy(proxyURL string) SourceOption {
	return func(s *HTTPSource) {
		s.proxyURL = proxyURL
	}
}

// WithTimeout sets the client timeout for a whole request.
func WithTimeout(d time.Duration) SourceOption {
	return func(s *HTTPSource) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithSourceLogger sets a custom logger.
func WithSourceLogger(logger *slog.Logger) SourceOption {
	return func(s *HTTPSource) {
		s.logger = logger
	}
}

// WithHTTPClient replaces the HTTP client. Proxy and timeout options are
// ignored when a client is given.
func WithHTTPClient(c *http.Client) SourceOption {
	return func(s *HTTPSource) {
		s.client = c
	}
}

// NewHTTPSource creates an HTTPSource.
func NewHTTPSource(opts ...SourceOption) (*HTTPSource, error) {
	s := &HTTPSource{
		userAgent:   DefaultUserAgent,
		maxBodySize: DefaultMaxBodySize,
		timeout:     DefaultTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	if s.client == nil {
		transport, err := newTransport(s.proxyURL)
		if err != nil {
			return nil, err
		}
		s.client = &http.Client{Transport: transport, Timeout: s.timeout}
	}
	return s, nil
}

// newTransport builds a transport for proxyURL.
func newTransport(proxyURL string) (*http.Transport, error) {
	base, ok := http.DefaultTransport.(*http.Transport)
	if !ok {
		return nil, fmt.Errorf("unexpected default transport %T", http.DefaultTransport)
	}
	t := base.Clone()
	if proxyURL == "" {
		return t, nil
	}

	u, err := url.Parse(proxyURL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidProxy, proxyURL)
	}

	switch u.Scheme {
	case "http", "https":
		t.Proxy = http.ProxyURL(u)
	case "socks5", "socks5h":
		dialer, err := proxy.FromURL(u, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidProxy, err)
		}
		t.Proxy = nil
		if cd, ok := dialer.(proxy.ContextDialer); ok {
			t.DialContext = cd.DialContext
		} else {
			t.DialContext = func(_ context.Context, network, addr string) (net.Conn, error) {
				return dialer.Dial(network, addr)
			}
		}
	default:
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidProxy, u.Scheme)
	}
	return t, nil
}

// Fetch GETs pageURL. Non-200 responses return a *StatusError. The body is
// truncated to the size limit and converted from its declared charset.
func (s *HTTPSource) Fetch(ctx context.Context, pageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request for %s: %w", pageURL, err)
	}

	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	for k, v := range s.headers {
		req.Header.Set(k, v)
	}
	if s.cookie != "" {
		req.Header.Set("Cookie", s.cookie)
	}

	s.logger.Debug("fetching page", "url", pageURL, "cookie", s.cookie)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", pageURL, err)
	}
	defer resp.Body.Close() //nolint:errcheck // body is fully read or discarded

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096)) //nolint:errcheck // draining for reuse
		return nil, &StatusError{URL: pageURL, Code: resp.StatusCode}
	}

	body := io.LimitReader(resp.Body, s.maxBodySize)
	reader, err := charset.NewReader(body, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", pageURL, err)
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", pageURL, err)
	}
	return data, nil
}
