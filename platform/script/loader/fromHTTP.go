package loader

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultHTTPTimeout bounds a single fetch.
const DefaultHTTPTimeout = 30 * time.Second

// HTTPOption configures a FromHTTP loader.
type HTTPOption func(*FromHTTP) error

// WithHTTPClient replaces the client used for fetches.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(l *FromHTTP) error {
		if client == nil {
			return fmt.Errorf("http client cannot be nil")
		}
		l.client = client
		return nil
	}
}

// WithHeader adds a request header, e.g. an Authorization bearer token.
func WithHeader(key, value string) HTTPOption {
	return func(l *FromHTTP) error {
		if key == "" {
			return fmt.Errorf("header name cannot be empty")
		}
		l.headers.Set(key, value)
		return nil
	}
}

// WithBasicAuth sends HTTP basic credentials.
func WithBasicAuth(username, password string) HTTPOption {
	return func(l *FromHTTP) error {
		l.username = username
		l.password = password
		return nil
	}
}

// FromHTTP fetches source text or plugin bytes from an http(s) URL. Every
// call to GetReader issues a new request.
type FromHTTP struct {
	sourceURL *url.URL
	client    *http.Client
	headers   http.Header
	username  string
	password  string
}

// NewFromHTTP creates a loader for rawURL.
func NewFromHTTP(rawURL string, opts ...HTTPOption) (*FromHTTP, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("unable to parse URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: %s", ErrSchemeUnsupported, rawURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: %s has no host", ErrSourceNotAvailable, rawURL)
	}

	l := &FromHTTP{
		sourceURL: u,
		client:    &http.Client{Timeout: DefaultHTTPTimeout},
		headers:   make(http.Header),
	}
	for _, opt := range opts {
		if err := opt(l); err != nil {
			return nil, fmt.Errorf("error applying loader option: %w", err)
		}
	}
	return l, nil
}

func (l *FromHTTP) String() string {
	return fmt.Sprintf("loader.FromHTTP{URL: %s}", l.sourceURL.Redacted())
}

// GetReader performs the request. Non-2xx answers are reported as
// ErrSourceNotAvailable.
func (l *FromHTTP) GetReader() (io.ReadCloser, error) {
	req, err := http.NewRequest(http.MethodGet, l.sourceURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for key, values := range l.headers {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	if l.username != "" {
		req.SetBasicAuth(l.username, l.password)
	}
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", "go-hihi/http-loader")
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceNotAvailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("%w: %s: HTTP %s", ErrSourceNotAvailable, l.sourceURL.Redacted(), resp.Status)
	}
	return resp.Body, nil
}

func (l *FromHTTP) GetSourceURL() *url.URL {
	return l.sourceURL
}

// IsRemote reports whether ref names an http(s) URL.
func IsRemote(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}

// New picks the loader for ref: FromHTTP for http(s) URLs, FromDisk for
// everything else.
func New(ref string) (Loader, error) {
	if IsRemote(ref) {
		l, err := NewFromHTTP(ref)
		if err != nil {
			return nil, err
		}
		return l, nil
	}
	l, err := NewFromDisk(ref)
	if err != nil {
		return nil, err
	}
	return l, nil
}
