package domain

import (
	"context"
	"fmt"
	"time"
)

// Reference identifies a repository snapshot: owner/name, optionally
// qualified by a branch, tag or commit, and optionally narrowed to a
// subdirectory. Immutable after construction.
type Reference struct {
	Owner   string
	Name    string
	Ref     string // Branch, tag or commit; empty means the default branch
	SubPath string // Subdirectory filter; empty means the whole tree
}

// String returns the canonical owner/name[@ref] form
func (r Reference) String() string {
	if r.Ref != "" {
		return fmt.Sprintf("%s/%s@%s", r.Owner, r.Name, r.Ref)
	}
	return fmt.Sprintf("%s/%s", r.Owner, r.Name)
}

// Slug returns the owner-name form used for default destination directories
func (r Reference) Slug() string {
	return fmt.Sprintf("%s-%s", r.Owner, r.Name)
}

// WithRef returns a copy of the reference with the ref set
func (r Reference) WithRef(ref string) Reference {
	r.Ref = ref
	return r
}

// DownloadResult describes a completed archive download. The archive file is
// a scoped resource owned by the pipeline and removed once extraction
// finishes, successfully or not.
type DownloadResult struct {
	ArchivePath string // Temp file holding the archive bytes
	Size        int64
	FetchedAt   time.Time
}

// SnapshotResult describes an acquired repository tree
type SnapshotResult struct {
	LocalPath string // Directory containing the extracted tree
	Ref       string // Ref the snapshot was taken at
	Method    string // "archive" or "clone"
}

// Cache stores small values with a TTL
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// RefResolver resolves the default branch for a repository
type RefResolver interface {
	DefaultBranch(ctx context.Context, ref Reference) (string, error)
}
