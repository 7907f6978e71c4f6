package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/quantmind-br/spclone-go/internal/archive"
	"github.com/quantmind-br/spclone-go/internal/cache"
	"github.com/quantmind-br/spclone-go/internal/config"
	"github.com/quantmind-br/spclone-go/internal/domain"
	"github.com/quantmind-br/spclone-go/internal/fetcher"
	"github.com/quantmind-br/spclone-go/internal/github"
	"github.com/quantmind-br/spclone-go/internal/gitclone"
	"github.com/quantmind-br/spclone-go/internal/installer"
	"github.com/quantmind-br/spclone-go/internal/locator"
	"github.com/quantmind-br/spclone-go/internal/utils"
)

// Orchestrator wires the linear pipeline: locate -> resolve -> fetch ->
// extract -> (install). It owns the temp resources of a single invocation.
type Orchestrator struct {
	cfg       *config.Config
	parser    *locator.Parser
	resolver  domain.RefResolver
	fetcher   *fetcher.ArchiveFetcher
	cloner    *gitclone.Fetcher
	installer *installer.Bridge
	cache     domain.Cache
	fallback  bool
	logger    *utils.Logger
}

// Options contains options for creating an Orchestrator
type Options struct {
	Config       *config.Config
	Logger       *utils.Logger
	Token        string
	NoCache      bool
	RefreshCache bool
	NoFallback   bool
	ShowProgress bool

	// Test seams
	APIBaseURL string
	Fetcher    *fetcher.ArchiveFetcher
	Resolver   domain.RefResolver
	Cache      domain.Cache
}

// NewOrchestrator creates a new Orchestrator
func NewOrchestrator(opts Options) (*Orchestrator, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	logger := opts.Logger
	if logger == nil {
		logger = utils.NewDefaultLogger()
	}

	token := opts.Token
	if token == "" {
		token = os.Getenv("GITHUB_TOKEN")
	}
	if token == "" {
		token = os.Getenv("SPCLONE_TOKEN")
	}

	var refCache domain.Cache
	if opts.Cache != nil {
		refCache = opts.Cache
	} else if cfg.Cache.Enabled && !opts.NoCache {
		c, err := cache.NewBadgerCache(cache.Options{Directory: utils.ExpandPath(cfg.Cache.Directory)})
		if err != nil {
			// A broken cache should not block a clone
			logger.Warn().Err(err).Msg("Cache unavailable, resolving refs without it")
		} else {
			refCache = c
		}
	}

	archiveFetcher := opts.Fetcher
	if archiveFetcher == nil {
		archiveFetcher = fetcher.NewArchiveFetcher(fetcher.ArchiveFetcherOptions{
			Client: fetcher.ClientOptions{
				Timeout:    cfg.Network.Timeout,
				MaxRetries: cfg.Network.MaxRetries,
				UserAgent:  cfg.Network.UserAgent,
				Token:      token,
			},
			ShowProgress: opts.ShowProgress,
			Logger:       logger.WithComponent("fetcher"),
		})
	}

	resolver := opts.Resolver
	if resolver == nil {
		r, err := github.NewResolver(github.ResolverOptions{
			Token:    token,
			BaseURL:  opts.APIBaseURL,
			Cache:    refCache,
			CacheTTL: cfg.Cache.TTL,
			Refresh:  opts.RefreshCache,
			Logger:   logger.WithComponent("resolver"),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create resolver: %w", err)
		}
		resolver = r
	}

	return &Orchestrator{
		cfg:      cfg,
		parser:   locator.NewParser(),
		resolver: resolver,
		fetcher:  archiveFetcher,
		cloner: gitclone.NewFetcher(gitclone.FetcherOptions{
			Token:  token,
			Logger: logger.WithComponent("clone"),
		}),
		installer: installer.NewBridge(installer.BridgeOptions{
			Python:  cfg.Install.Python,
			Timeout: cfg.Install.Timeout,
			Upgrade: cfg.Install.Upgrade,
			Logger:  logger.WithComponent("installer"),
		}),
		cache:    refCache,
		fallback: cfg.Network.CloneFallback && !opts.NoFallback,
		logger:   logger,
	}, nil
}

// Close releases orchestrator resources
func (o *Orchestrator) Close() error {
	if o.cache != nil {
		return o.cache.Close()
	}
	return nil
}

// CloneOptions controls a single clone operation
type CloneOptions struct {
	Destination string // Default: ./owner-name
	Branch      string // Used when the reference carries no @ref
	KeepRoot    bool
	Force       bool
	DryRun      bool
}

// InstallOptions controls a single install operation
type InstallOptions struct {
	Branch string
}

// Clone runs the full pipeline for input and returns the snapshot result
func (o *Orchestrator) Clone(ctx context.Context, input string, opts CloneOptions) (*domain.SnapshotResult, error) {
	ref, err := o.parser.Parse(input)
	if err != nil {
		return nil, err
	}
	if ref.Ref == "" && opts.Branch != "" {
		ref = ref.WithRef(opts.Branch)
	}

	resolved, err := o.resolveRef(ctx, ref)
	if err != nil {
		return nil, err
	}

	dest := opts.Destination
	if dest == "" {
		dest = ref.Slug()
	}

	archiveURL := o.fetcher.ArchiveURL(ref, resolved)
	if opts.DryRun {
		o.logger.Info().
			Str("repo", ref.String()).
			Str("ref", resolved).
			Str("archive_url", archiveURL).
			Str("destination", dest).
			Msg("Dry run, nothing downloaded")
		return &domain.SnapshotResult{Ref: resolved, Method: "dry-run"}, nil
	}

	result, err := o.fetchAndExtract(ctx, ref, resolved, archiveURL, dest, opts)
	if err != nil {
		return nil, err
	}

	o.logger.Info().
		Str("repo", ref.String()).
		Str("ref", result.Ref).
		Str("method", result.Method).
		Str("destination", result.LocalPath).
		Msg("Clone complete")
	return result, nil
}

// Install clones input into a scoped temp directory and hands it to pip
func (o *Orchestrator) Install(ctx context.Context, input string, opts InstallOptions) error {
	tmpDir, err := os.MkdirTemp("", "spclone-install-*")
	if err != nil {
		return fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	srcDir := filepath.Join(tmpDir, "src")
	result, err := o.Clone(ctx, input, CloneOptions{
		Destination: srcDir,
		Branch:      opts.Branch,
		Force:       true,
	})
	if err != nil {
		return err
	}

	return o.installer.Install(ctx, result.LocalPath)
}

// resolveRef returns the ref to download: the explicit one, or the default
// branch from the metadata API, or a probed candidate branch when the API
// is unreachable.
func (o *Orchestrator) resolveRef(ctx context.Context, ref domain.Reference) (string, error) {
	if ref.Ref != "" {
		return ref.Ref, nil
	}

	branch, err := o.resolver.DefaultBranch(ctx, ref)
	if err == nil {
		return branch, nil
	}
	if errors.Is(err, domain.ErrNotFound) || ctx.Err() != nil {
		return "", err
	}

	// Metadata API unreachable or rate limited; the archive endpoint may
	// still work. Probe the usual default branch names.
	o.logger.Warn().Err(err).Msg("Default branch lookup failed, probing candidates")
	for _, candidate := range github.CandidateBranches {
		if o.fetcher.ProbeRef(ctx, ref, candidate) {
			o.logger.Debug().Str("branch", candidate).Msg("Candidate branch found")
			return candidate, nil
		}
	}

	return "", err
}

func (o *Orchestrator) fetchAndExtract(ctx context.Context, ref domain.Reference, resolved, archiveURL, dest string, opts CloneOptions) (*domain.SnapshotResult, error) {
	extractor := archive.NewExtractor(archive.ExtractorOptions{
		KeepRoot: opts.KeepRoot || o.cfg.Output.KeepRoot,
		SubPath:  ref.SubPath,
		Logger:   o.logger.WithComponent("extractor"),
	})
	force := opts.Force || o.cfg.Output.Overwrite

	dl, fetchErr := o.fetcher.Download(ctx, archiveURL)
	if fetchErr == nil {
		defer os.Remove(dl.ArchivePath)
		if err := extractor.Extract(dl.ArchivePath, dest, force); err != nil {
			return nil, err
		}
		return &domain.SnapshotResult{LocalPath: dest, Ref: resolved, Method: "archive"}, nil
	}

	if !o.fallback || ctx.Err() != nil {
		return nil, fetchErr
	}

	o.logger.Info().Err(fetchErr).Msg("Archive download failed, trying shallow clone")
	result, err := o.cloneTo(ctx, ref.WithRef(resolved), dest, force)
	if err != nil {
		o.logger.Debug().Err(err).Msg("Clone fallback failed")
		// The archive error carries the proper failure category
		return nil, fetchErr
	}
	return result, nil
}

// cloneTo clones into a staging directory and moves it into place with the
// same overwrite semantics as archive extraction.
func (o *Orchestrator) cloneTo(ctx context.Context, ref domain.Reference, dest string, force bool) (*domain.SnapshotResult, error) {
	staging, err := os.MkdirTemp("", "spclone-clone-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(staging)

	cloneDir := filepath.Join(staging, "repo")
	result, err := o.cloner.Fetch(ctx, ref, cloneDir)
	if err != nil {
		return nil, err
	}

	if utils.DirExists(dest) || fileExists(dest) {
		if !force {
			return nil, &domain.ExtractError{Archive: ref.String(), Path: dest, Err: domain.ErrDestinationExists}
		}
		if err := os.RemoveAll(dest); err != nil {
			return nil, &domain.ExtractError{Archive: ref.String(), Path: dest, Err: err}
		}
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return nil, &domain.ExtractError{Archive: ref.String(), Path: dest, Err: err}
	}
	if err := utils.MoveDir(cloneDir, dest); err != nil {
		return nil, &domain.ExtractError{Archive: ref.String(), Path: dest, Err: err}
	}

	result.LocalPath = dest
	return result, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
