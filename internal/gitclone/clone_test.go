package gitclone_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantmind-br/spclone-go/internal/domain"
	"github.com/quantmind-br/spclone-go/internal/gitclone"
)

func TestNewFetcher(t *testing.T) {
	f := gitclone.NewFetcher(gitclone.FetcherOptions{})

	assert.NotNil(t, f)
}

func TestFetch_CancelledContext(t *testing.T) {
	f := gitclone.NewFetcher(gitclone.FetcherOptions{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.Fetch(ctx, domain.Reference{Owner: "octocat", Name: "hello-world"}, filepath.Join(t.TempDir(), "out"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "shallow clone failed")
}
