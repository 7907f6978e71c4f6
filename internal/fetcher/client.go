package fetcher

import (
	"fmt"
	"net/http"
	"time"
)

const (
	defaultTimeout      = 60 * time.Second
	defaultMaxRedirects = 10
	defaultUserAgent    = "spclone"
)

// ClientOptions contains options for building the HTTP client
type ClientOptions struct {
	Timeout      time.Duration
	MaxRedirects int
	MaxRetries   int
	UserAgent    string
	Token        string // Sent as a token Authorization header when set

	// HTTPClient overrides the constructed client (used by tests)
	HTTPClient *http.Client
}

// DefaultClientOptions returns default client options
func DefaultClientOptions() ClientOptions {
	return ClientOptions{
		Timeout:      defaultTimeout,
		MaxRedirects: defaultMaxRedirects,
		MaxRetries:   0,
	}
}

// NewHTTPClient builds an explicitly configured *http.Client. Archive
// downloads redirect from github.com to codeload.github.com, so redirects
// are followed up to a bounded depth.
func NewHTTPClient(opts ClientOptions) *http.Client {
	if opts.HTTPClient != nil {
		return opts.HTTPClient
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	maxRedirects := opts.MaxRedirects
	if maxRedirects <= 0 {
		maxRedirects = defaultMaxRedirects
	}

	return &http.Client{
		Timeout: timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			return nil
		},
	}
}
