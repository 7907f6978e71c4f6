package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	gogithub "github.com/google/go-github/v75/github"
	"golang.org/x/oauth2"

	"github.com/quantmind-br/spclone-go/internal/cache"
	"github.com/quantmind-br/spclone-go/internal/domain"
	"github.com/quantmind-br/spclone-go/internal/utils"
)

// Ensure Resolver implements domain.RefResolver
var _ domain.RefResolver = (*Resolver)(nil)

// Resolver resolves a repository's default branch through the GitHub REST
// API, with an optional TTL cache in front of it.
type Resolver struct {
	client   *gogithub.Client
	cache    domain.Cache
	cacheTTL time.Duration
	refresh  bool
	logger   *utils.Logger
}

// ResolverOptions contains options for creating a Resolver
type ResolverOptions struct {
	Token      string
	HTTPClient *http.Client
	BaseURL    string // API base override (used by tests)
	Cache      domain.Cache
	CacheTTL   time.Duration
	Refresh    bool // Bypass cached entries and overwrite them
	Logger     *utils.Logger
}

// NewResolver creates a new Resolver
func NewResolver(opts ResolverOptions) (*Resolver, error) {
	httpClient := opts.HTTPClient

	if opts.Token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.Token})
		ctx := context.Background()
		if httpClient != nil {
			ctx = context.WithValue(ctx, oauth2.HTTPClient, httpClient)
		}
		httpClient = oauth2.NewClient(ctx, ts)
	}

	client := gogithub.NewClient(httpClient)
	if opts.BaseURL != "" {
		base, err := url.Parse(strings.TrimSuffix(opts.BaseURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("invalid API base URL: %w", err)
		}
		client.BaseURL = base
	}

	return &Resolver{
		client:   client,
		cache:    opts.Cache,
		cacheTTL: opts.CacheTTL,
		refresh:  opts.Refresh,
		logger:   opts.Logger,
	}, nil
}

// DefaultBranch returns the repository's default branch, consulting the
// cache first. One metadata request per uncached repository.
func (r *Resolver) DefaultBranch(ctx context.Context, ref domain.Reference) (string, error) {
	key := cache.DefaultBranchKey(ref.Owner, ref.Name)

	if r.cache != nil && !r.refresh {
		if cached, err := r.cache.Get(ctx, key); err == nil && len(cached) > 0 {
			if r.logger != nil {
				r.logger.Debug().Str("repo", ref.String()).Str("branch", string(cached)).Msg("Default branch from cache")
			}
			return string(cached), nil
		}
	}

	repo, resp, err := r.client.Repositories.Get(ctx, ref.Owner, ref.Name)
	if err != nil {
		return "", mapAPIError(ref, resp, err)
	}

	branch := repo.GetDefaultBranch()
	if branch == "" {
		return "", domain.NewFetchError(ref.String(), 0, fmt.Errorf("repository metadata has no default branch"))
	}

	if r.cache != nil {
		_ = r.cache.Set(ctx, key, []byte(branch), r.cacheTTL)
	}

	if r.logger != nil {
		r.logger.Debug().Str("repo", ref.String()).Str("branch", branch).Msg("Resolved default branch")
	}
	return branch, nil
}

func mapAPIError(ref domain.Reference, resp *gogithub.Response, err error) error {
	var rateErr *gogithub.RateLimitError
	if errors.As(err, &rateErr) {
		return &domain.RateLimitError{URL: ref.String(), ResetAt: rateErr.Rate.Reset.Time}
	}

	var abuseErr *gogithub.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		reset := time.Time{}
		if abuseErr.RetryAfter != nil {
			reset = time.Now().Add(*abuseErr.RetryAfter)
		}
		return &domain.RateLimitError{URL: ref.String(), ResetAt: reset}
	}

	if resp != nil {
		switch resp.StatusCode {
		case http.StatusNotFound:
			return domain.NewFetchError(ref.String(), resp.StatusCode, domain.ErrNotFound)
		case http.StatusForbidden, http.StatusTooManyRequests:
			return &domain.RateLimitError{URL: ref.String(), ResetAt: resp.Rate.Reset.Time}
		default:
			return domain.NewFetchError(ref.String(), resp.StatusCode, err)
		}
	}

	return domain.NewFetchError(ref.String(), 0, err)
}

// CandidateBranches are probed against the archive endpoint when the
// metadata API cannot be reached.
var CandidateBranches = []string{"main", "master", "develop", "dev"}
