package gitclone

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"

	"github.com/quantmind-br/spclone-go/internal/domain"
	"github.com/quantmind-br/spclone-go/internal/utils"
)

// Fetcher acquires a repository snapshot with a shallow in-process clone.
// Used as a fallback when the archive endpoint cannot serve the ref; the
// default acquisition path never touches it.
type Fetcher struct {
	token  string
	logger *utils.Logger
}

// FetcherOptions contains options for creating a Fetcher
type FetcherOptions struct {
	Token  string
	Logger *utils.Logger
}

// NewFetcher creates a new clone Fetcher
func NewFetcher(opts FetcherOptions) *Fetcher {
	return &Fetcher{
		token:  opts.Token,
		logger: opts.Logger,
	}
}

// Fetch clones the repository at depth 1 into destDir. The .git metadata
// directory is removed afterwards so the result matches an extracted archive.
func (f *Fetcher) Fetch(ctx context.Context, ref domain.Reference, destDir string) (*domain.SnapshotResult, error) {
	repoURL := fmt.Sprintf("https://github.com/%s/%s.git", ref.Owner, ref.Name)
	if f.logger != nil {
		f.logger.Info().Str("url", repoURL).Msg("Falling back to shallow clone")
	}

	cloneOpts := &gogit.CloneOptions{
		URL:          repoURL,
		Depth:        1,
		SingleBranch: true,
	}
	if f.token != "" {
		cloneOpts.Auth = &githttp.BasicAuth{
			Username: "token",
			Password: f.token,
		}
	}

	repo, err := f.clone(ctx, destDir, cloneOpts, ref.Ref)
	if err != nil {
		return nil, fmt.Errorf("shallow clone failed: %w", err)
	}

	detectedRef := ref.Ref
	if detectedRef == "" {
		if head, headErr := repo.Head(); headErr == nil {
			name := head.Name().String()
			detectedRef = strings.TrimPrefix(name, "refs/heads/")
		}
	}

	if err := os.RemoveAll(filepath.Join(destDir, ".git")); err != nil {
		return nil, fmt.Errorf("remove clone metadata: %w", err)
	}

	return &domain.SnapshotResult{
		LocalPath: destDir,
		Ref:       detectedRef,
		Method:    "clone",
	}, nil
}

// clone tries the requested ref as a branch first, then as a tag. Commit
// SHAs cannot be fetched shallowly and stay on the archive path.
func (f *Fetcher) clone(ctx context.Context, destDir string, opts *gogit.CloneOptions, ref string) (*gogit.Repository, error) {
	if ref == "" {
		return gogit.PlainCloneContext(ctx, destDir, false, opts)
	}

	branchOpts := *opts
	branchOpts.ReferenceName = plumbing.NewBranchReferenceName(ref)
	repo, err := gogit.PlainCloneContext(ctx, destDir, false, &branchOpts)
	if err == nil {
		return repo, nil
	}

	// A failed clone can leave partial state behind
	_ = os.RemoveAll(destDir)

	tagOpts := *opts
	tagOpts.ReferenceName = plumbing.NewTagReferenceName(ref)
	return gogit.PlainCloneContext(ctx, destDir, false, &tagOpts)
}
