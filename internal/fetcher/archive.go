package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/quantmind-br/spclone-go/internal/domain"
	"github.com/quantmind-br/spclone-go/internal/utils"
)

const defaultBaseURL = "https://github.com"

// ArchiveFetcher downloads repository archives from GitHub's archive
// endpoint into a scoped temporary file.
type ArchiveFetcher struct {
	httpClient   *http.Client
	retrier      *Retrier
	baseURL      string
	userAgent    string
	token        string
	showProgress bool
	logger       *utils.Logger
}

// ArchiveFetcherOptions contains options for creating an ArchiveFetcher
type ArchiveFetcherOptions struct {
	Client       ClientOptions
	BaseURL      string // Archive host override (used by tests)
	ShowProgress bool
	Logger       *utils.Logger
}

// NewArchiveFetcher creates a new ArchiveFetcher
func NewArchiveFetcher(opts ArchiveFetcherOptions) *ArchiveFetcher {
	userAgent := opts.Client.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &ArchiveFetcher{
		httpClient: NewHTTPClient(opts.Client),
		retrier: NewRetrier(RetrierOptions{
			MaxRetries: opts.Client.MaxRetries,
		}),
		baseURL:      baseURL,
		userAgent:    userAgent,
		token:        opts.Client.Token,
		showProgress: opts.ShowProgress,
		logger:       opts.Logger,
	}
}

// ArchiveURL returns the tarball URL for a ref. The refless /archive/ form
// resolves branches, tags and commits alike.
func (f *ArchiveFetcher) ArchiveURL(ref domain.Reference, resolvedRef string) string {
	return fmt.Sprintf("%s/%s/%s/archive/%s.tar.gz", f.baseURL, ref.Owner, ref.Name, resolvedRef)
}

// Download fetches archiveURL into a temporary file and returns its path.
// The caller owns the file and must remove it when done.
func (f *ArchiveFetcher) Download(ctx context.Context, archiveURL string) (*domain.DownloadResult, error) {
	if f.logger != nil {
		f.logger.Debug().Str("archive_url", archiveURL).Msg("Downloading archive")
	}

	var result *domain.DownloadResult
	err := f.retrier.Retry(ctx, func() error {
		var err error
		result, err = f.doDownload(ctx, archiveURL)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (f *ArchiveFetcher) doDownload(ctx context.Context, archiveURL string) (*domain.DownloadResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, archiveURL, nil)
	if err != nil {
		return nil, err
	}
	f.setHeaders(req)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, domain.NewFetchError(archiveURL, 0, fmt.Errorf("download request failed: %w", err))
	}
	defer resp.Body.Close()

	if err := f.checkStatus(archiveURL, resp); err != nil {
		return nil, err
	}

	tmpFile, err := os.CreateTemp("", "spclone-*.tar.gz")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}

	var dst io.Writer = tmpFile
	if f.showProgress {
		bar := utils.NewProgressBar(resp.ContentLength, utils.DescDownloading)
		defer bar.Finish()
		dst = utils.ProgressWriter(tmpFile, bar)
	}

	size, err := io.Copy(dst, resp.Body)
	closeErr := tmpFile.Close()
	if err != nil || closeErr != nil {
		os.Remove(tmpFile.Name())
		if err == nil {
			err = closeErr
		}
		return nil, domain.NewFetchError(archiveURL, 0, fmt.Errorf("write archive: %w", err))
	}

	if size == 0 {
		os.Remove(tmpFile.Name())
		return nil, domain.NewFetchError(archiveURL, 0, fmt.Errorf("downloaded archive is empty"))
	}

	if f.logger != nil {
		f.logger.Debug().Int64("bytes", size).Msg("Archive downloaded")
	}

	return &domain.DownloadResult{
		ArchivePath: tmpFile.Name(),
		Size:        size,
		FetchedAt:   time.Now(),
	}, nil
}

// ProbeRef reports whether the archive endpoint can serve the candidate ref.
// Used for branch-candidate fallback when the metadata API is unreachable.
func (f *ArchiveFetcher) ProbeRef(ctx context.Context, ref domain.Reference, candidate string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, f.ArchiveURL(ref, candidate), nil)
	if err != nil {
		return false
	}
	f.setHeaders(req)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

func (f *ArchiveFetcher) setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", f.userAgent)
	if f.token != "" {
		req.Header.Set("Authorization", "token "+f.token)
	}
}

func (f *ArchiveFetcher) checkStatus(archiveURL string, resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return domain.NewFetchError(archiveURL, resp.StatusCode, domain.ErrNotFound)
	case resp.StatusCode == http.StatusUnauthorized:
		return domain.NewFetchError(archiveURL, resp.StatusCode, fmt.Errorf("authentication required"))
	case resp.StatusCode == http.StatusForbidden, resp.StatusCode == http.StatusTooManyRequests:
		reset := ParseRateLimitReset(resp.Header.Get("X-RateLimit-Reset"))
		if reset.IsZero() {
			if after := ParseRetryAfter(resp.Header.Get("Retry-After")); after > 0 {
				reset = time.Now().Add(after)
			}
		}
		return &domain.RateLimitError{URL: archiveURL, ResetAt: reset}
	case ShouldRetryStatus(resp.StatusCode):
		return &domain.RetryableError{
			Err:        domain.NewFetchError(archiveURL, resp.StatusCode, fmt.Errorf("HTTP %d", resp.StatusCode)),
			RetryAfter: int(ParseRetryAfter(resp.Header.Get("Retry-After")).Seconds()),
		}
	default:
		return domain.NewFetchError(archiveURL, resp.StatusCode, fmt.Errorf("HTTP %d", resp.StatusCode))
	}
}
